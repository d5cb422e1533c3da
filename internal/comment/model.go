// Package comment provides the comment domain model, the paged comment view,
// and SQLite data access used by the development server.
package comment

import (
	"fmt"
	"time"
)

// DefaultPageSize is the number of comments fetched per page.
const DefaultPageSize = 10

// CollectiveRef is the lightweight summary of the collective that authored a comment.
type CollectiveRef struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ImageURL string `json:"imageUrl,omitempty"`
	Email    string `json:"email,omitempty"`
}

// HostRef identifies the fiscal host of a collective.
type HostRef struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

// CollectiveSummary is the collective a comment was posted on.
type CollectiveSummary struct {
	ID       int64    `json:"id"`
	Slug     string   `json:"slug"`
	Currency string   `json:"currency"`
	Name     string   `json:"name"`
	Balance  *int64   `json:"balance,omitempty"`
	Host     *HostRef `json:"host,omitempty"`
}

// Comment is a single entry in a thread.
type Comment struct {
	ID             int64              `json:"id"`
	HTML           string             `json:"html"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      *time.Time         `json:"updatedAt,omitempty"`
	FromCollective CollectiveRef      `json:"fromCollective"`
	Collective     *CollectiveSummary `json:"collective,omitempty"`
}

// Page is an offset-based slice of a parent's comments, oldest first.
// Page values are never mutated once built; use MergeAppend and Concat.
type Page struct {
	TotalCount int       `json:"totalCount"`
	Nodes      []Comment `json:"nodes"`
}

// Len returns the number of loaded comments.
func (p Page) Len() int {
	return len(p.Nodes)
}

// HasMore reports whether the server holds comments not yet loaded.
func (p Page) HasMore() bool {
	return len(p.Nodes) < p.TotalCount
}

// Clone returns a copy of p that shares no backing array with it.
func (p Page) Clone() Page {
	nodes := make([]Comment, len(p.Nodes))
	copy(nodes, p.Nodes)
	return Page{TotalCount: p.TotalCount, Nodes: nodes}
}

// MergeAppend returns a new page with c at the tail and the total incremented.
func MergeAppend(p Page, c Comment) Page {
	nodes := make([]Comment, len(p.Nodes), len(p.Nodes)+1)
	copy(nodes, p.Nodes)
	nodes = append(nodes, c)

	total := p.TotalCount + 1
	if total < len(nodes) {
		total = len(nodes)
	}
	return Page{TotalCount: total, Nodes: nodes}
}

// Concat returns a new page with more appended in arrival order and the
// server-reported total. The total never drops below the node count.
func Concat(p Page, more []Comment, total int) Page {
	nodes := make([]Comment, 0, len(p.Nodes)+len(more))
	nodes = append(nodes, p.Nodes...)
	nodes = append(nodes, more...)

	if total < len(nodes) {
		total = len(nodes)
	}
	return Page{TotalCount: total, Nodes: nodes}
}

// ParentKind is the type of entity a thread hangs off.
type ParentKind string

const (
	KindExpense      ParentKind = "expense"
	KindConversation ParentKind = "conversation"
)

// ParseParentKind validates a kind name.
func ParseParentKind(s string) (ParentKind, error) {
	switch ParentKind(s) {
	case KindExpense, KindConversation:
		return ParentKind(s), nil
	default:
		return "", fmt.Errorf("unknown parent kind %q (expense|conversation)", s)
	}
}

// Parent identifies the expense or conversation a thread belongs to.
type Parent struct {
	Kind ParentKind `json:"kind"`
	ID   int64      `json:"id"`
}

func (p Parent) String() string {
	return fmt.Sprintf("%s #%d", p.Kind, p.ID)
}

// Expense statuses.
const (
	ExpensePending  = "PENDING"
	ExpenseApproved = "APPROVED"
	ExpensePaid     = "PAID"
)

// Expense is the parent entity for expense discussions.
type Expense struct {
	ID           int64  `json:"id"`
	CollectiveID int64  `json:"collectiveId,omitempty"`
	Description  string `json:"description,omitempty"`
	Amount       int64  `json:"amount,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Status       string `json:"status"`
	UserID       int64  `json:"userId"`
}

// Conversation is a collective discussion; its first comment is the body.
type Conversation struct {
	ID    int64    `json:"id"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}
