package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evcraddock/collective-threads/internal/cache"
	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
	"github.com/evcraddock/collective-threads/internal/thread"
)

type commentsOptions struct {
	limit int
	pages int
	all   bool
}

func newCommentsCmd() *cobra.Command {
	var opts commentsOptions

	cmd := &cobra.Command{
		Use:   "comments <expense|conversation> <id>",
		Short: "List comments on an expense or conversation",
		Long:  "List a thread's comments, oldest first, one page at a time.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := parseParent(args[0], args[1])
			if err != nil {
				return err
			}
			if opts.limit <= 0 {
				opts.limit = getPageSize()
			}
			return runComments(cmd.Context(), cmd.OutOrStdout(), newAPIClient(), parent, opts)
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", 0, "comments per page (default: page_size from config, or 10)")
	cmd.Flags().IntVar(&opts.pages, "pages", 1, "number of pages to load")
	cmd.Flags().BoolVar(&opts.all, "all", false, "load every page")

	return cmd
}

func runComments(ctx context.Context, w io.Writer, api *client.Client, parent comment.Parent, opts commentsOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.pages < 1 {
		return fmt.Errorf("--pages must be at least 1")
	}

	store := thread.NewStore(api, cache.New(), parent, opts.limit)
	defer store.Close()

	page, err := store.Load(ctx)
	if err != nil {
		return err
	}
	for n := 1; page.HasMore() && (opts.all || n < opts.pages); n++ {
		before := page.Len()
		if page, err = store.LoadMore(ctx); err != nil {
			return err
		}
		// The server reported more than it returns; another request would
		// ask for the same offset again.
		if page.Len() == before {
			slog.Debug("server returned no more comments", "parent", parent.String(), "nodes", before, "total", page.TotalCount)
			break
		}
	}

	if parent.Kind == comment.KindConversation {
		conv, err := api.GetConversation(ctx, parent.ID)
		if err != nil {
			return err
		}
		if isJSON() {
			return printJSON(w, struct {
				Conversation *comment.Conversation `json:"conversation"`
				Comments     comment.Page          `json:"comments"`
			}{conv, page})
		}
		printConversation(w, conv, page)
		printMoreHint(w, page)
		return nil
	}

	if isJSON() {
		return printJSON(w, page)
	}

	printPageHeader(w, parent, page)
	printCommentList(w, page.Nodes)
	printMoreHint(w, page)
	return nil
}
