package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/collective-threads/internal/client"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <comment-id>",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove a comment",
		Long:    "Delete a comment from whichever thread it was posted on.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid comment ID: %s", args[0])
			}
			return runRemove(cmd.Context(), cmd.OutOrStdout(), newAPIClient(), id)
		},
	}
}

func runRemove(ctx context.Context, w io.Writer, api *client.Client, id int64) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := api.DeleteComment(ctx, id); err != nil {
		return err
	}

	if isJSON() {
		return printJSON(w, map[string]interface{}{
			"id":      id,
			"removed": true,
		})
	}

	fmt.Fprintf(w, "Comment #%d removed.\n", id)
	return nil
}
