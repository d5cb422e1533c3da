package cli

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/evcraddock/collective-threads/internal/comment"
	"github.com/evcraddock/collective-threads/internal/thread"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printPageHeader prints how much of a thread is loaded.
func printPageHeader(w io.Writer, parent comment.Parent, page comment.Page) {
	fmt.Fprintf(w, "Comments on %s (%d of %d):\n\n", parent, page.Len(), page.TotalCount)
}

// printCommentList prints comments in text format.
func printCommentList(w io.Writer, comments []comment.Comment) {
	if len(comments) == 0 {
		fmt.Fprintln(w, "No comments.")
		return
	}

	for _, c := range comments {
		fmt.Fprintf(w, "[%s] #%d (%s)\n  %s\n\n",
			c.CreatedAt.Format("2006-01-02 15:04"), c.ID, formatAuthor(c.FromCollective), plainText(c.HTML))
	}
}

// printConversation prints a conversation's body followed by its replies.
func printConversation(w io.Writer, conv *comment.Conversation, page comment.Page) {
	fmt.Fprintf(w, "%s", conv.Title)
	if len(conv.Tags) > 0 {
		fmt.Fprintf(w, " [%s]", strings.Join(conv.Tags, ", "))
	}
	fmt.Fprintln(w)

	root, replies := thread.SplitRoot(page)
	if root != nil {
		fmt.Fprintf(w, "  %s\n  by %s\n", plainText(root.HTML), formatAuthor(root.FromCollective))
	}
	fmt.Fprintf(w, "\nReplies (%d of %d):\n\n", len(replies), replyCount(page))
	printCommentList(w, replies)
}

// replyCount is the number of replies a conversation has on the server.
func replyCount(page comment.Page) int {
	if page.TotalCount == 0 {
		return 0
	}
	return page.TotalCount - 1
}

// printCommentSingle prints a single comment in text format.
func printCommentSingle(w io.Writer, c comment.Comment) {
	fmt.Fprintf(w, "Comment #%d added.\n  %s\n", c.ID, plainText(c.HTML))
	if c.Collective != nil && c.Collective.Balance != nil {
		fmt.Fprintf(w, "  %s balance: %s\n", c.Collective.Name, formatAmount(*c.Collective.Balance, c.Collective.Currency))
	}
}

// printMoreHint tells the user how to see the rest of a thread.
func printMoreHint(w io.Writer, page comment.Page) {
	if page.HasMore() {
		fmt.Fprintf(w, "%d more not shown. Use --all or --pages to load them.\n", page.TotalCount-page.Len())
	}
}

// formatAuthor renders a collective as "Name (@slug)".
func formatAuthor(c comment.CollectiveRef) string {
	switch {
	case c.Name != "" && c.Slug != "":
		return fmt.Sprintf("%s (@%s)", c.Name, c.Slug)
	case c.Slug != "":
		return "@" + c.Slug
	case c.Name != "":
		return c.Name
	default:
		return "anonymous"
	}
}

// formatAmount formats a value in cents as "$1,234.56 USD".
func formatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	s := fmt.Sprintf("%s$%s.%02d", sign, formatWithCommas(cents/100), cents%100)
	if currency != "" {
		s += " " + currency
	}
	return s
}

// formatWithCommas formats n with thousands separators.
func formatWithCommas(n int64) string {
	s := fmt.Sprintf("%d", n)

	if len(s) <= 3 {
		return s
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	return strings.Join(parts, ",")
}

var (
	blockTags = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li)\s*/?>`)
	anyTag    = regexp.MustCompile(`<[^>]*>`)
	blankRuns = regexp.MustCompile(`\n{2,}`)
)

// plainText renders comment HTML for a terminal.
func plainText(s string) string {
	s = blockTags.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = blankRuns.ReplaceAllString(strings.TrimSpace(s), "\n")
	return strings.ReplaceAll(s, "\n", "\n  ")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
