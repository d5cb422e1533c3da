package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/evcraddock/collective-threads/internal/comment"
)

func TestCommentsFirstPage(t *testing.T) {
	seeded := devServer(t, "", 25)

	out, err := executeCommand("comments", "expense", fmt.Sprint(seeded.Expense.ID))
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if !strings.Contains(out, fmt.Sprintf("Comments on expense #%d (10 of 25)", seeded.Expense.ID)) {
		t.Errorf("missing header in %q", out)
	}
	if !strings.Contains(out, "Comment 10 on expense") || strings.Contains(out, "Comment 11 on expense") {
		t.Errorf("unexpected page contents: %q", out)
	}
	if !strings.Contains(out, "15 more not shown") {
		t.Errorf("missing hint in %q", out)
	}
}

func TestCommentsPagesAndAll(t *testing.T) {
	seeded := devServer(t, "", 25)
	id := fmt.Sprint(seeded.Expense.ID)

	tests := []struct {
		name  string
		args  []string
		nodes int
	}{
		{"two pages", []string{"comments", "expense", id, "--pages", "2", "--format", "json"}, 20},
		{"custom limit", []string{"comments", "expense", id, "--limit", "4", "--pages", "3", "--format", "json"}, 12},
		{"all", []string{"comments", "expense", id, "--all", "--format", "json"}, 25},
		{"pages past the end", []string{"comments", "expense", id, "--pages", "9", "--format", "json"}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(tt.args...)
			if err != nil {
				t.Fatalf("comments: %v", err)
			}
			var page comment.Page
			if err := json.Unmarshal([]byte(out), &page); err != nil {
				t.Fatalf("decode %q: %v", out, err)
			}
			if page.Len() != tt.nodes || page.TotalCount != 25 {
				t.Errorf("nodes=%d total=%d, want %d/25", page.Len(), page.TotalCount, tt.nodes)
			}
			for i, c := range page.Nodes {
				if want := fmt.Sprintf("<p>Comment %d on expense", i+1); !strings.HasPrefix(c.HTML, want) {
					t.Fatalf("node %d = %q: order broken", i, c.HTML)
				}
			}
		})
	}
}

func TestCommentsConversation(t *testing.T) {
	seeded := devServer(t, "", 3)

	out, err := executeCommand("comments", "conversation", fmt.Sprint(seeded.Conversation.ID))
	if err != nil {
		t.Fatalf("comments: %v", err)
	}
	if !strings.HasPrefix(out, "Welcome [intro]\n") {
		t.Errorf("missing title in %q", out)
	}
	if !strings.Contains(out, "Replies (2 of 2)") {
		t.Errorf("missing reply count in %q", out)
	}
}

func TestCommentsNotFound(t *testing.T) {
	devServer(t, "", 0)

	_, err := executeCommand("comments", "expense", "9999")
	if !errors.Is(err, comment.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCommentPostsWithNotice(t *testing.T) {
	seeded := devServer(t, "ct_key", 1)
	t.Setenv("CT_COLLECTIVE_ID", fmt.Sprint(seeded.UserID))
	t.Setenv("CT_USER_ID", fmt.Sprint(seeded.UserID))

	out, err := executeCommand("comment", "expense", fmt.Sprint(seeded.Expense.ID), "Looks", "good")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	// The seeded expense is pending and submitted by the viewer.
	if !strings.Contains(out, "notify the administrators of this collective") {
		t.Errorf("missing notice in %q", out)
	}
	if !strings.Contains(out, "added.\n  Looks good") {
		t.Errorf("missing comment in %q", out)
	}
	if !strings.Contains(out, "balance: $1,500.00 USD") {
		t.Errorf("missing balance in %q", out)
	}

	page, err := newAPIClient().GetComments(context.Background(), seeded.Expense, 10, 0)
	if err != nil {
		t.Fatalf("get comments: %v", err)
	}
	if page.TotalCount != 2 {
		t.Errorf("total = %d, want 2", page.TotalCount)
	}
}

func TestCommentRejectsBlankText(t *testing.T) {
	seeded := devServer(t, "", 0)
	t.Setenv("CT_COLLECTIVE_ID", fmt.Sprint(seeded.UserID))

	_, err := executeCommand("comment", "conversation", fmt.Sprint(seeded.Conversation.ID), "   ")
	if !errors.Is(err, comment.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestCommentWrongKey(t *testing.T) {
	seeded := devServer(t, "ct_key", 0)
	t.Setenv("CT_API_KEY", "ct_wrong")
	t.Setenv("CT_COLLECTIVE_ID", fmt.Sprint(seeded.UserID))

	_, err := executeCommand("comment", "conversation", fmt.Sprint(seeded.Conversation.ID), "hi")
	if !errors.Is(err, comment.ErrSubmission) {
		t.Errorf("err = %v, want ErrSubmission", err)
	}
}

func TestThreadSession(t *testing.T) {
	seeded := devServer(t, "", 12)

	sess := threadSession{
		api:    newAPIClient(),
		parent: seeded.Expense,
		limit:  5,
		author: seeded.UserID,
		userID: 9999,
	}

	script := strings.Join([]string{
		"more",
		"post ",
		"post Ship it",
		"bogus",
		"more",
		"more",
		"quit",
		"post never sent",
	}, "\n")

	var out bytes.Buffer
	if err := sess.run(context.Background(), strings.NewReader(script), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()

	wants := []string{
		"(5 of 12)",
		"notify the person who submitted the expense",
		"(10 of 12)",
		"error: comment cannot be empty",
		"Posted #",
		"Ship it (11 of 13)",
		`unknown command "bogus"`,
		"(13 of 13)",
		"All 13 comments loaded.",
	}
	for _, w := range wants {
		if !strings.Contains(got, w) {
			t.Errorf("output missing %q:\n%s", w, got)
		}
	}
	if strings.Contains(got, "never sent") {
		t.Error("commands after quit were run")
	}
}

func TestThreadSessionWithoutAuthor(t *testing.T) {
	seeded := devServer(t, "", 2)

	sess := threadSession{api: newAPIClient(), parent: seeded.Conversation, limit: 10}
	var out bytes.Buffer
	if err := sess.run(context.Background(), strings.NewReader("post hi\n"), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "error: no collective configured") {
		t.Errorf("output = %q", out.String())
	}
}
