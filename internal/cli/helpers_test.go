package cli

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/evcraddock/collective-threads/internal/comment"
	"github.com/evcraddock/collective-threads/internal/db"
	"github.com/evcraddock/collective-threads/internal/web"
)

// devServer starts a seeded dev server with n comments per thread and points
// the CLI environment at it.
func devServer(t *testing.T, apiKey string, n int) *comment.SeedResult {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})

	seeded, err := comment.NewRepository(d).Seed(n)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	ts := httptest.NewServer(web.NewServer(d, apiKey))
	t.Cleanup(ts.Close)

	t.Setenv("CT_SERVER_URL", ts.URL)
	t.Setenv("CT_API_KEY", apiKey)
	t.Setenv("CT_COLLECTIVE_ID", "")
	t.Setenv("CT_USER_ID", "")
	t.Setenv("CT_PAGE_SIZE", "")
	return seeded
}

// useFormat sets --format for tests that call run functions directly.
func useFormat(t *testing.T, format string) {
	t.Helper()
	prev := flagFormat
	flagFormat = format
	t.Cleanup(func() { flagFormat = prev })
}
