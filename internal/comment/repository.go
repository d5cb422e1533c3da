package comment

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository provides SQLite access to comments and their parent entities.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a comment repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// NewComment is the input for Add.
type NewComment struct {
	HTML             string
	Parent           Parent
	CollectiveID     int64
	FromCollectiveID int64
}

const selectComment = `
	SELECT c.id, c.html, c.created_at, c.updated_at,
	       f.id, f.type, f.name, f.slug, f.image_url,
	       col.id, col.slug, col.currency, col.name, col.balance,
	       h.id, h.slug
	FROM comments c
	JOIN collectives f ON f.id = c.from_collective_id
	LEFT JOIN collectives col ON col.id = c.collective_id
	LEFT JOIN collectives h ON h.id = col.host_id`

// parentColumn maps a parent kind to its foreign key column on comments.
func parentColumn(kind ParentKind) (string, error) {
	switch kind {
	case KindExpense:
		return "expense_id", nil
	case KindConversation:
		return "conversation_id", nil
	default:
		return "", fmt.Errorf("unknown parent kind %q", kind)
	}
}

func parentTable(kind ParentKind) (string, error) {
	switch kind {
	case KindExpense:
		return "expenses", nil
	case KindConversation:
		return "conversations", nil
	default:
		return "", fmt.Errorf("unknown parent kind %q", kind)
	}
}

// Exists reports whether the parent entity is stored.
func (r *Repository) Exists(p Parent) (bool, error) {
	table, err := parentTable(p.Kind)
	if err != nil {
		return false, err
	}

	var id int64
	err = r.db.QueryRow("SELECT id FROM "+table+" WHERE id = ?", p.ID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", p, err)
	}
	return true, nil
}

// ListByParent returns one page of a parent's comments, oldest first.
// Returns a *NotFoundError when the parent does not exist.
func (r *Repository) ListByParent(p Parent, limit, offset int) (*Page, error) {
	col, err := parentColumn(p.Kind)
	if err != nil {
		return nil, err
	}

	ok, err := r.Exists(p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Parent: p}
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM comments WHERE "+col+" = ?", p.ID).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting comments: %w", err)
	}

	rows, err := r.db.Query(
		selectComment+" WHERE c."+col+" = ? ORDER BY c.id ASC LIMIT ? OFFSET ?",
		p.ID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	page := &Page{TotalCount: total, Nodes: []Comment{}}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		page.Nodes = append(page.Nodes, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}

	return page, nil
}

// Add stores a new comment and returns it as the API would echo it.
func (r *Repository) Add(in NewComment) (*Comment, error) {
	if strings.TrimSpace(in.HTML) == "" {
		return nil, &ValidationError{Field: "html", Reason: "comment text is required"}
	}
	if in.FromCollectiveID == 0 {
		return nil, &ValidationError{Field: "FromCollectiveId", Reason: "author is required"}
	}

	col, err := parentColumn(in.Parent.Kind)
	if err != nil {
		return nil, err
	}
	ok, err := r.Exists(in.Parent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &NotFoundError{Parent: in.Parent}
	}

	var collectiveID interface{}
	if in.CollectiveID != 0 {
		collectiveID = in.CollectiveID
	}

	now := time.Now().UTC()
	result, err := r.db.Exec(
		"INSERT INTO comments ("+col+", collective_id, from_collective_id, html, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		in.Parent.ID, collectiveID, in.FromCollectiveID, in.HTML, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	c, err := scanComment(r.db.QueryRow(selectComment+" WHERE c.id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("reading back comment: %w", err)
	}
	return c, nil
}

// Delete removes a comment by ID.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(row rowScanner) (*Comment, error) {
	var (
		c         Comment
		updatedAt sql.NullTime
		imageURL  sql.NullString

		colID       sql.NullInt64
		colSlug     sql.NullString
		colCurrency sql.NullString
		colName     sql.NullString
		colBalance  sql.NullInt64
		hostID      sql.NullInt64
		hostSlug    sql.NullString
	)

	err := row.Scan(
		&c.ID, &c.HTML, &c.CreatedAt, &updatedAt,
		&c.FromCollective.ID, &c.FromCollective.Type, &c.FromCollective.Name, &c.FromCollective.Slug, &imageURL,
		&colID, &colSlug, &colCurrency, &colName, &colBalance,
		&hostID, &hostSlug,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning comment: %w", err)
	}

	if updatedAt.Valid {
		t := updatedAt.Time
		c.UpdatedAt = &t
	}
	c.FromCollective.ImageURL = imageURL.String

	if colID.Valid {
		c.Collective = &CollectiveSummary{
			ID:       colID.Int64,
			Slug:     colSlug.String,
			Currency: colCurrency.String,
			Name:     colName.String,
		}
		if colBalance.Valid {
			b := colBalance.Int64
			c.Collective.Balance = &b
		}
		if hostID.Valid {
			c.Collective.Host = &HostRef{ID: hostID.Int64, Slug: hostSlug.String}
		}
	}

	return &c, nil
}
