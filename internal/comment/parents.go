package comment

import (
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// Collective types.
const (
	TypeCollective   = "COLLECTIVE"
	TypeOrganization = "ORGANIZATION"
	TypeUser         = "USER"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugStrip   = regexp.MustCompile(`[^a-z0-9]+`)
)

// NewCollective is the input for CreateCollective.
type NewCollective struct {
	Type     string
	Name     string
	Slug     string
	Currency string
	ImageURL string
	Email    string
	Balance  *int64
	HostID   int64
}

// Slugify derives a slug from a display name.
func Slugify(name string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

func (in *NewCollective) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return &ValidationError{Field: "name", Reason: "Name is required"}
	}

	switch in.Type {
	case "":
		in.Type = TypeCollective
	case TypeCollective, TypeOrganization, TypeUser:
	default:
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown collective type %q", in.Type)}
	}

	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}
	if !slugPattern.MatchString(in.Slug) {
		return &ValidationError{Field: "slug", Reason: "slug may only contain lowercase letters, digits and single dashes"}
	}

	if in.Email != "" {
		addr, err := mail.ParseAddress(in.Email)
		if err != nil {
			return &ValidationError{Field: "email", Reason: "email is invalid"}
		}
		in.Email = addr.Address
	}
	if in.Type == TypeUser && in.Email == "" {
		return &ValidationError{Field: "email", Reason: "Email is required"}
	}

	if in.Currency == "" {
		in.Currency = "USD"
	}
	return nil
}

// CreateCollective stores a collective, user profile, or host and returns its
// ID. A missing slug is derived from the name. Users need an email.
func (r *Repository) CreateCollective(in NewCollective) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}

	var hostID interface{}
	if in.HostID != 0 {
		if err := r.requireCollective(in.HostID); err != nil {
			return 0, err
		}
		hostID = in.HostID
	}
	var balance interface{}
	if in.Balance != nil {
		balance = *in.Balance
	}

	result, err := r.db.Exec(
		`INSERT INTO collectives (type, name, slug, currency, image_url, email, balance, host_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Type, in.Name, in.Slug, in.Currency, in.ImageURL, in.Email, balance, hostID,
	)
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
		return 0, &ValidationError{Field: "slug", Reason: fmt.Sprintf("slug %q is already taken", in.Slug)}
	}
	if err != nil {
		return 0, fmt.Errorf("inserting collective: %w", err)
	}
	return result.LastInsertId()
}

// GetCollective returns a collective's public profile.
func (r *Repository) GetCollective(id int64) (*CollectiveRef, error) {
	var c CollectiveRef
	err := r.db.QueryRow("SELECT id, type, name, slug, image_url, email FROM collectives WHERE id = ?", id).
		Scan(&c.ID, &c.Type, &c.Name, &c.Slug, &c.ImageURL, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("collective %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading collective: %w", err)
	}
	return &c, nil
}

func (r *Repository) requireCollective(id int64) error {
	var found int64
	err := r.db.QueryRow("SELECT id FROM collectives WHERE id = ?", id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("collective %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("reading collective: %w", err)
	}
	return nil
}

// NewExpense is the input for CreateExpense. Amount is in cents.
type NewExpense struct {
	CollectiveID int64
	UserID       int64
	Description  string
	Amount       int64
	Currency     string
	Status       string
}

// CreateExpense stores an expense submitted by UserID against a collective.
// Status defaults to PENDING.
func (r *Repository) CreateExpense(in NewExpense) (int64, error) {
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Description == "":
		return 0, &ValidationError{Field: "description", Reason: "Description is required"}
	case in.Amount <= 0:
		return 0, &ValidationError{Field: "amount", Reason: "Amount must be greater than 0"}
	case in.UserID <= 0:
		return 0, &ValidationError{Field: "user", Reason: "a submitting user is required"}
	}
	if in.Status == "" {
		in.Status = ExpensePending
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}
	if err := r.requireCollective(in.CollectiveID); err != nil {
		return 0, err
	}

	result, err := r.db.Exec(
		`INSERT INTO expenses (collective_id, user_id, description, amount, currency, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.CollectiveID, in.UserID, in.Description, in.Amount, in.Currency, in.Status,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting expense: %w", err)
	}
	return result.LastInsertId()
}

// ApproveExpense moves a pending expense to APPROVED.
func (r *Repository) ApproveExpense(id int64) (*Expense, error) {
	result, err := r.db.Exec("UPDATE expenses SET status = ? WHERE id = ? AND status = ?", ExpenseApproved, id, ExpensePending)
	if err != nil {
		return nil, fmt.Errorf("approving expense: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}

	e, err := r.GetExpense(id)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("only pending expenses can be approved, expense is %s", e.Status)}
	}
	return e, nil
}

// CreateConversation stores a conversation with its tags.
func (r *Repository) CreateConversation(collectiveID int64, title string, tags []string) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, &ValidationError{Field: "title", Reason: "title is required"}
	}
	result, err := r.db.Exec(
		"INSERT INTO conversations (collective_id, title, tags) VALUES (?, ?, ?)",
		collectiveID, title, strings.Join(tags, ","),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting conversation: %w", err)
	}
	return result.LastInsertId()
}

// GetExpense returns an expense or a *NotFoundError.
func (r *Repository) GetExpense(id int64) (*Expense, error) {
	var e Expense
	err := r.db.QueryRow(
		"SELECT id, collective_id, description, amount, currency, status, user_id FROM expenses WHERE id = ?", id,
	).Scan(&e.ID, &e.CollectiveID, &e.Description, &e.Amount, &e.Currency, &e.Status, &e.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Parent: Parent{Kind: KindExpense, ID: id}}
	}
	if err != nil {
		return nil, fmt.Errorf("reading expense: %w", err)
	}
	return &e, nil
}

// GetConversation returns a conversation or a *NotFoundError.
func (r *Repository) GetConversation(id int64) (*Conversation, error) {
	var (
		c    Conversation
		tags string
	)
	err := r.db.QueryRow("SELECT id, title, tags FROM conversations WHERE id = ?", id).
		Scan(&c.ID, &c.Title, &tags)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Parent: Parent{Kind: KindConversation, ID: id}}
	}
	if err != nil {
		return nil, fmt.Errorf("reading conversation: %w", err)
	}

	c.Tags = []string{}
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			c.Tags = append(c.Tags, t)
		}
	}
	return &c, nil
}

// CollectiveOf returns the collective a parent entity belongs to.
func (r *Repository) CollectiveOf(p Parent) (int64, error) {
	table, err := parentTable(p.Kind)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.QueryRow("SELECT collective_id FROM "+table+" WHERE id = ?", p.ID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotFoundError{Parent: p}
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", p, err)
	}
	return id, nil
}
