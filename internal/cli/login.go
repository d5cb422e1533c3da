package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type loginOptions struct {
	server       string
	collectiveID int64
	userID       int64
}

func newLoginCmd() *cobra.Command {
	var opts loginOptions

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API key and identity",
		Long:  "Reads an API key from stdin and saves it, with the collective you comment as, to the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "", "server URL (default: from config or http://localhost:8080)")
	cmd.Flags().Int64Var(&opts.collectiveID, "collective-id", 0, "collective to author comments as")
	cmd.Flags().Int64Var(&opts.userID, "user-id", 0, "your user ID, used to pick expense notices")

	return cmd
}

func runLogin(in io.Reader, w io.Writer, opts loginOptions) error {
	fmt.Fprint(w, "Paste your API key: ")
	reader := bufio.NewReader(in)
	key, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading input: %w", err)
	}

	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.APIKey = key
	if opts.server != "" {
		cfg.ServerURL = opts.server
	}
	if opts.collectiveID != 0 {
		cfg.CollectiveID = opts.collectiveID
	}
	if opts.userID != 0 {
		cfg.UserID = opts.userID
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(w, "\n✓ API key saved. You're logged in!")
	if cfg.CollectiveID == 0 {
		fmt.Fprintln(w, "Set --collective-id to post comments.")
	}
	return nil
}

// validateAPIKey checks that the key is non-empty and a single token.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if strings.ContainsAny(key, " \t") {
		return fmt.Errorf("invalid API key format (must not contain spaces)")
	}
	return nil
}
