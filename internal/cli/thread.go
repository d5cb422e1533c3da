package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/collective-threads/internal/cache"
	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
	"github.com/evcraddock/collective-threads/internal/thread"
)

func newThreadCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "thread <expense|conversation> <id>",
		Short: "Browse and reply to a thread interactively",
		Long: `Open a thread and read commands from stdin:

  more          load the next page
  post <text>   post a comment
  quit          exit`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := parseParent(args[0], args[1])
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = getPageSize()
			}
			sess := threadSession{
				api:    newAPIClient(),
				parent: parent,
				limit:  limit,
				author: getCollectiveID(),
				userID: getUserID(),
			}
			return sess.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "comments per page (default: page_size from config, or 10)")

	return cmd
}

// threadSession is one interactive view of a thread. The store and the
// submitter share a cache, so posted comments show up without a refetch.
type threadSession struct {
	api    *client.Client
	parent comment.Parent
	limit  int
	author int64
	userID int64
}

func (s threadSession) run(ctx context.Context, in io.Reader, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	pages := cache.New()
	store := thread.NewStore(s.api, pages, s.parent, s.limit)
	defer store.Close()
	// The submitter must update the page the store reads, so it takes the
	// store's normalised page size.
	sub := thread.NewSubmitter(s.api, pages, thread.WithPageSize(store.Limit()))

	page, err := store.Load(ctx)
	if err != nil {
		return err
	}
	printPageHeader(w, store.Parent(), page)
	printCommentList(w, page.Nodes)

	if s.parent.Kind == comment.KindExpense && s.author != 0 {
		if err := printNotice(ctx, w, s.api, s.parent.ID, s.userID); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")

		switch cmd {
		case "":
			continue
		case "quit", "q", "exit":
			return nil
		case "more", "m":
			before := loadedLen(store)
			page, err := store.LoadMore(ctx)
			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				continue
			}
			if page.Len() == before {
				fmt.Fprintf(w, "All %d comments loaded.\n", page.TotalCount)
				continue
			}
			printCommentList(w, page.Nodes[before:])
			fmt.Fprintf(w, "(%d of %d)\n", page.Len(), page.TotalCount)
		case "post", "p":
			if s.author == 0 {
				fmt.Fprintln(w, "error: no collective configured; run 'ct login --collective-id <id>'")
				continue
			}
			created, err := sub.Submit(ctx, arg, thread.SubmitContext{Parent: s.parent, AuthorID: s.author})
			if err != nil {
				var ve *comment.ValidationError
				if errors.As(err, &ve) {
					fmt.Fprintf(w, "error: %s\n", ve.Reason)
				} else {
					fmt.Fprintf(w, "error: %v\n", err)
				}
				continue
			}
			page, _ := store.Page()
			fmt.Fprintf(w, "Posted #%d: %s (%d of %d)\n",
				created.ID, truncate(plainText(created.HTML), 60), page.Len(), page.TotalCount)
		case "help", "?":
			fmt.Fprintln(w, "commands: more, post <text>, quit")
		default:
			fmt.Fprintf(w, "unknown command %q (more, post <text>, quit)\n", cmd)
		}
	}
}

// loadedLen returns the number of loaded nodes, zero before the first load.
func loadedLen(s *thread.Store) int {
	p, _ := s.Page()
	return p.Len()
}
