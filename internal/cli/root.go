// Package cli defines the cobra command tree for ct.
package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
	"github.com/evcraddock/collective-threads/internal/db"
	"github.com/evcraddock/collective-threads/internal/logging"
)

var (
	flagFormat string
	flagDB     string
	flagDebug  bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ct",
		Short:         "Read and write collective comment threads",
		Long:          "A tool to page through and post to the comment threads of expenses and conversations, plus a local dev server to run them against.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadDotEnv(".env")
			logging.Setup(flagDebug)
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path for serve and seed (default: ~/.config/ct/threads.db)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "human-readable debug logging on stderr")

	root.AddCommand(
		newCommentsCmd(),
		newCommentCmd(),
		newThreadCmd(),
		newRemoveCmd(),
		newCollectiveCmd(),
		newExpenseCmd(),
		newServeCmd(),
		newSeedCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// loadDotEnv populates unset CT_* variables from path. A missing file is fine.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("loading env file", "path", path, "error", err)
	}
}

// openDB opens the SQLite database using the --db flag or default path.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newAPIClient creates a client for the configured server.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getAPIKey())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

// parseParent turns "<kind> <id>" arguments into a parent reference.
func parseParent(kindArg, idArg string) (comment.Parent, error) {
	kind, err := comment.ParseParentKind(kindArg)
	if err != nil {
		return comment.Parent{}, err
	}
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil || id <= 0 {
		return comment.Parent{}, fmt.Errorf("invalid %s ID: %s", kind, idArg)
	}
	return comment.Parent{Kind: kind, ID: id}, nil
}
