package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
)

type collectiveOptions struct {
	name   string
	slug   string
	kind   string
	hostID int64
	email  string
}

func newCollectiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collective",
		Short: "Manage collectives",
	}
	cmd.AddCommand(newCollectiveCreateCmd())
	return cmd
}

func newCollectiveCreateCmd() *cobra.Command {
	var opts collectiveOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a collective, organization or user",
		Long:  "Create a collective or organization to comment as. With --type user, create a user profile instead; users need an email.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectiveCreate(cmd.Context(), cmd.OutOrStdout(), newAPIClient(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.slug, "slug", "", "URL slug (default: derived from the name)")
	cmd.Flags().StringVar(&opts.kind, "type", "collective", "collective|organization|user")
	cmd.Flags().Int64Var(&opts.hostID, "host-id", 0, "fiscal host collective ID")
	cmd.Flags().StringVar(&opts.email, "email", "", "email address (users only)")

	return cmd
}

func runCollectiveCreate(ctx context.Context, w io.Writer, api *client.Client, opts collectiveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	kind := strings.ToUpper(strings.TrimSpace(opts.kind))
	var (
		created *comment.CollectiveRef
		err     error
	)
	switch kind {
	case comment.TypeUser:
		created, err = api.CreateUser(ctx, opts.name, opts.email)
	case comment.TypeCollective, comment.TypeOrganization:
		created, err = api.CreateCollective(ctx, client.CreateCollectiveInput{
			Type:   kind,
			Name:   opts.name,
			Slug:   opts.slug,
			HostID: opts.hostID,
		})
	default:
		return &comment.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q (collective|organization|user)", opts.kind)}
	}
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(w, created)
	}

	fmt.Fprintf(w, "Created %s #%d %s\n", strings.ToLower(created.Type), created.ID, formatAuthor(*created))
	return nil
}
