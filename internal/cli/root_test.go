package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// executeCommand runs a command with the given args and captures output.
func executeCommand(args ...string) (string, error) {
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	_, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	root := NewRootCmd()

	formatFlag := root.PersistentFlags().Lookup("format")
	if formatFlag == nil {
		t.Fatal("expected --format flag to exist")
	}
	if formatFlag.DefValue != "text" {
		t.Errorf("expected --format default 'text', got %q", formatFlag.DefValue)
	}

	if root.PersistentFlags().Lookup("db") == nil {
		t.Fatal("expected --db flag to exist")
	}
	if root.PersistentFlags().Lookup("debug") == nil {
		t.Fatal("expected --debug flag to exist")
	}
}

func TestSubcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"comments", "comment", "thread", "remove", "collective", "expense", "serve", "seed", "login", "logout", "status", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := executeCommand("version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != Version+"\n" {
		t.Errorf("output = %q", out)
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CT_PAGE_SIZE", "")
	if err := os.Unsetenv("CT_PAGE_SIZE"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CT_PAGE_SIZE=25\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loadDotEnv(path)
	if got := getPageSize(); got != 25 {
		t.Errorf("page size = %d, want 25 from .env", got)
	}
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CT_PAGE_SIZE", "7")

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CT_PAGE_SIZE=25\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loadDotEnv(path)
	if got := getPageSize(); got != 7 {
		t.Errorf("page size = %d, want 7 from the environment", got)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	// Must not panic or fail.
	loadDotEnv(filepath.Join(t.TempDir(), "nope.env"))
}

func TestParseParent(t *testing.T) {
	tests := []struct {
		kind, id string
		wantErr  bool
	}{
		{"expense", "7", false},
		{"conversation", "12", false},
		{"update", "7", true},
		{"expense", "abc", true},
		{"expense", "0", true},
		{"expense", "-3", true},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.id, func(t *testing.T) {
			p, err := parseParent(tt.kind, tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(p.Kind) != tt.kind {
				t.Errorf("kind = %q", p.Kind)
			}
		})
	}
}
