package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/evcraddock/collective-threads/internal/comment"
)

func newSeedCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo data for the dev server",
		Long:  "Creates a hosted collective, a user, an expense and a conversation, each with comments.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.OutOrStdout(), n)
		},
	}

	cmd.Flags().IntVar(&n, "comments", 25, "comments per thread")

	return cmd
}

func runSeed(w io.Writer, n int) error {
	if n < 0 {
		return fmt.Errorf("--comments must not be negative")
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	res, err := comment.NewRepository(database).Seed(n)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(w, res)
	}

	fmt.Fprintf(w, "Seeded collective #%d (host #%d) with user collective #%d.\n", res.CollectiveID, res.HostID, res.UserID)
	fmt.Fprintf(w, "  %s: %d comments\n", res.Expense, n)
	fmt.Fprintf(w, "  %s: %d comments\n", res.Conversation, n)
	fmt.Fprintf(w, "\nTry: ct login --collective-id %d --user-id %d\n", res.UserID, res.UserID)
	fmt.Fprintf(w, "     ct comments expense %d --all\n", res.Expense.ID)
	return nil
}
