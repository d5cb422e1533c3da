package cli

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
)

type expenseOptions struct {
	collectiveID int64
	description  string
	amount       string
	currency     string
}

func newExpenseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Submit, show and approve expenses",
	}
	cmd.AddCommand(newExpenseCreateCmd(), newExpenseShowCmd(), newExpenseApproveCmd())
	return cmd
}

func newExpenseCreateCmd() *cobra.Command {
	var opts expenseOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit an expense",
		Long:  "Submit an expense to a collective as the logged-in collective. The expense starts out pending.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := requireAuthor()
			if err != nil {
				return err
			}
			return runExpenseCreate(cmd.Context(), cmd.OutOrStdout(), newAPIClient(), from, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.collectiveID, "collective-id", 0, "collective the expense is submitted to")
	cmd.Flags().StringVar(&opts.description, "description", "", "what the money was spent on")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&opts.currency, "currency", "", "currency code (default: USD)")

	return cmd
}

func runExpenseCreate(ctx context.Context, w io.Writer, api *client.Client, from int64, opts expenseOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cents, err := parseAmount(opts.amount)
	if err != nil {
		return err
	}

	e, err := api.CreateExpense(ctx, client.CreateExpenseInput{
		CollectiveID:     opts.collectiveID,
		FromCollectiveID: from,
		Description:      opts.description,
		Amount:           cents,
		Currency:         strings.ToUpper(opts.currency),
	})
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(w, e)
	}
	fmt.Fprintf(w, "Expense #%d submitted.\n", e.ID)
	printExpense(w, e)
	return nil
}

func newExpenseShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseExpenseID(args[0])
			if err != nil {
				return err
			}
			e, err := newAPIClient().GetExpense(cmd.Context(), id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), e)
			}
			printExpense(cmd.OutOrStdout(), e)
			return nil
		},
	}
}

func newExpenseApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending expense",
		Long:  "Approve a pending expense. Comments on it then notify the fiscal host.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseExpenseID(args[0])
			if err != nil {
				return err
			}
			e, err := newAPIClient().ApproveExpense(cmd.Context(), id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expense #%d approved.\n", e.ID)
			printExpense(cmd.OutOrStdout(), e)
			return nil
		},
	}
}

func parseExpenseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid expense ID: %s", s)
	}
	return id, nil
}

var amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)

// parseAmount converts "12", "12.5" or "12.50" to cents.
func parseAmount(s string) (int64, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	bad := &comment.ValidationError{Field: "amount", Reason: fmt.Sprintf("%q is not an amount like 12.50", s)}
	if s == "" {
		return 0, &comment.ValidationError{Field: "amount", Reason: "Amount is required"}
	}

	whole, frac, _ := strings.Cut(s, ".")
	if !amountPattern.MatchString(s) {
		return 0, bad
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, bad
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	return units*100 + cents, nil
}

// printExpense prints an expense in text format.
func printExpense(w io.Writer, e *comment.Expense) {
	fmt.Fprintf(w, "  %s\n  %s  [%s]  collective #%d, submitted by #%d\n",
		e.Description, formatAmount(e.Amount, e.Currency), e.Status, e.CollectiveID, e.UserID)
}
