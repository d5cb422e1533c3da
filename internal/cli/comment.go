package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/collective-threads/internal/cache"
	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
	"github.com/evcraddock/collective-threads/internal/thread"
)

func newCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `comment <expense|conversation> <id> "text"`,
		Short: "Post a comment",
		Long:  "Post a comment to an expense or conversation as the logged-in collective.",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := parseParent(args[0], args[1])
			if err != nil {
				return err
			}
			author, err := requireAuthor()
			if err != nil {
				return err
			}
			text := strings.Join(args[2:], " ")
			return runComment(cmd.Context(), cmd.OutOrStdout(), newAPIClient(), parent, author, getUserID(), text)
		},
	}
}

// requireAuthor returns the configured author collective or explains how to set it.
func requireAuthor() (int64, error) {
	id := getCollectiveID()
	if id == 0 {
		return 0, fmt.Errorf("no collective configured; run 'ct login --collective-id <id>' or set CT_COLLECTIVE_ID")
	}
	return id, nil
}

func runComment(ctx context.Context, w io.Writer, api *client.Client, parent comment.Parent, author, userID int64, text string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if parent.Kind == comment.KindExpense && !isJSON() {
		if err := printNotice(ctx, w, api, parent.ID, userID); err != nil {
			return err
		}
	}

	sub := thread.NewSubmitter(api, cache.New(), thread.WithPageSize(getPageSize()))
	created, err := sub.Submit(ctx, text, thread.SubmitContext{Parent: parent, AuthorID: author})
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(w, created)
	}

	printCommentSingle(w, created)
	return nil
}

// printNotice tells the commenter who will be notified about an expense comment.
func printNotice(ctx context.Context, w io.Writer, api *client.Client, expenseID, userID int64) error {
	e, err := api.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}
	if msg := thread.Notice(userID, *e).Message(); msg != "" {
		fmt.Fprintln(w, msg)
	}
	return nil
}
