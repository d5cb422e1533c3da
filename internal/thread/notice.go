package thread

import "github.com/evcraddock/collective-threads/internal/comment"

// NoticeKind says who gets notified about a new comment on an expense.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeAuthor
	NoticeHost
	NoticeCollective
)

// Notice picks the notice shown above the comment form. viewerID is the
// logged-in user, zero when nobody is logged in.
func Notice(viewerID int64, e comment.Expense) NoticeKind {
	switch {
	case viewerID == 0:
		return NoticeNone
	case viewerID != e.UserID:
		return NoticeAuthor
	case e.Status == comment.ExpenseApproved:
		return NoticeHost
	default:
		return NoticeCollective
	}
}

// Message returns the text shown to the commenter.
func (k NoticeKind) Message() string {
	switch k {
	case NoticeAuthor:
		return "Note: Your comment will be public and we will notify the person who submitted the expense"
	case NoticeHost:
		return "Note: Your comment will be public and we will notify the administrators of the host of this collective"
	case NoticeCollective:
		return "Note: Your comment will be public and we will notify the administrators of this collective"
	default:
		return ""
	}
}

// SplitRoot separates a conversation's body (its first comment) from the replies.
// root is nil for an empty page.
func SplitRoot(p comment.Page) (root *comment.Comment, replies []comment.Comment) {
	if len(p.Nodes) == 0 {
		return nil, nil
	}
	first := p.Nodes[0]
	replies = make([]comment.Comment, len(p.Nodes)-1)
	copy(replies, p.Nodes[1:])
	return &first, replies
}
