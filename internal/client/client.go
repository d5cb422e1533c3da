// Package client provides the GraphQL client for the collectives API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/collective-threads/internal/comment"
)

// GraphQL error extension codes the client interprets.
const (
	CodeNotFound = "NOT_FOUND"
	CodeBadInput = "BAD_USER_INPUT"
)

// ErrUnauthorized is returned when the server rejects the API key.
var ErrUnauthorized = errors.New("invalid API key")

// errParentMissing marks a NOT_FOUND GraphQL error before the caller attaches the parent.
var errParentMissing = errors.New("entity not found")

// Client is a GraphQL-over-HTTP client for the collectives API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// CreateCommentInput is the mutation input. Exactly one parent is set from Parent.
type CreateCommentInput struct {
	HTML             string
	Parent           comment.Parent
	CollectiveID     int64
	FromCollectiveID int64
}

// GetComments fetches one page of a parent's comments.
func (c *Client) GetComments(ctx context.Context, parent comment.Parent, limit, offset int) (*comment.Page, error) {
	op := CommentsOperation(parent.Kind)
	query := expenseCommentsQuery
	if parent.Kind == comment.KindConversation {
		query = conversationCommentsQuery
	}

	var data struct {
		Expense      *commentsHolder `json:"expense"`
		Conversation *commentsHolder `json:"conversation"`
	}
	if err := c.do(ctx, op, query, commentsVariables(parent, limit, offset), &data); err != nil {
		return nil, withParent(err, parent)
	}

	holder := data.Expense
	if parent.Kind == comment.KindConversation {
		holder = data.Conversation
	}
	if holder == nil {
		return nil, &comment.NotFoundError{Parent: parent}
	}

	page := &comment.Page{
		TotalCount: holder.Comments.TotalCount,
		Nodes:      make([]comment.Comment, 0, len(holder.Comments.Nodes)),
	}
	for _, n := range holder.Comments.Nodes {
		page.Nodes = append(page.Nodes, n.toComment())
	}
	if page.TotalCount < len(page.Nodes) {
		page.TotalCount = len(page.Nodes)
	}
	return page, nil
}

// GetExpense fetches an expense, including the fields that decide who a
// comment notifies.
func (c *Client) GetExpense(ctx context.Context, id int64) (*comment.Expense, error) {
	parent := comment.Parent{Kind: comment.KindExpense, ID: id}

	var data struct {
		Expense *wireExpense `json:"expense"`
	}
	if err := c.do(ctx, OpExpense, expenseQuery, map[string]interface{}{"id": id}, &data); err != nil {
		return nil, withParent(err, parent)
	}
	if data.Expense == nil {
		return nil, &comment.NotFoundError{Parent: parent}
	}
	return data.Expense.toExpense(), nil
}

// CreateExpenseInput is the createExpense mutation input. Amount is in cents.
type CreateExpenseInput struct {
	CollectiveID     int64
	FromCollectiveID int64
	Description      string
	Amount           int64
	Currency         string
}

// CreateExpense submits a new expense. It starts out PENDING.
func (c *Client) CreateExpense(ctx context.Context, in CreateExpenseInput) (*comment.Expense, error) {
	input := map[string]interface{}{
		"description":      in.Description,
		"amount":           in.Amount,
		"CollectiveId":     in.CollectiveID,
		"FromCollectiveId": in.FromCollectiveID,
	}
	if in.Currency != "" {
		input["currency"] = in.Currency
	}

	var data struct {
		CreateExpense *wireExpense `json:"createExpense"`
	}
	if err := c.do(ctx, OpCreateExpense, createExpenseMutation, map[string]interface{}{"expense": input}, &data); err != nil {
		return nil, withEntity(err, "collective", in.CollectiveID)
	}
	if data.CreateExpense == nil {
		return nil, &comment.TransportError{Op: OpCreateExpense, Err: errors.New("empty createExpense response")}
	}
	return data.CreateExpense.toExpense(), nil
}

// ApproveExpense approves a pending expense.
func (c *Client) ApproveExpense(ctx context.Context, id int64) (*comment.Expense, error) {
	var data struct {
		ApproveExpense *wireExpense `json:"approveExpense"`
	}
	if err := c.do(ctx, OpApproveExpense, approveExpenseMutation, map[string]interface{}{"id": id}, &data); err != nil {
		return nil, withParent(err, comment.Parent{Kind: comment.KindExpense, ID: id})
	}
	if data.ApproveExpense == nil {
		return nil, &comment.TransportError{Op: OpApproveExpense, Err: errors.New("empty approveExpense response")}
	}
	return data.ApproveExpense.toExpense(), nil
}

// CreateCollectiveInput is the CreateCollective mutation input. Type is
// COLLECTIVE or ORGANIZATION; users go through CreateUser.
type CreateCollectiveInput struct {
	Type   string
	Name   string
	Slug   string
	HostID int64
}

// CreateCollective creates a collective or organization.
func (c *Client) CreateCollective(ctx context.Context, in CreateCollectiveInput) (*comment.CollectiveRef, error) {
	input := map[string]interface{}{"name": in.Name}
	if in.Type != "" {
		input["type"] = in.Type
	}
	if in.Slug != "" {
		input["slug"] = in.Slug
	}
	if in.HostID != 0 {
		input["HostCollectiveId"] = in.HostID
	}

	var data struct {
		CreateCollective *comment.CollectiveRef `json:"createCollective"`
	}
	if err := c.do(ctx, OpCreateCollective, createCollectiveMutation, map[string]interface{}{"collective": input}, &data); err != nil {
		return nil, withEntity(err, "host", in.HostID)
	}
	if data.CreateCollective == nil {
		return nil, &comment.TransportError{Op: OpCreateCollective, Err: errors.New("empty createCollective response")}
	}
	return data.CreateCollective, nil
}

// CreateUser creates a user and returns the user's collective profile.
func (c *Client) CreateUser(ctx context.Context, name, email string) (*comment.CollectiveRef, error) {
	vars := map[string]interface{}{"user": map[string]interface{}{"name": name, "email": email}}

	var data struct {
		CreateUser *struct {
			User *struct {
				ID         int64                  `json:"id"`
				Collective *comment.CollectiveRef `json:"collective"`
			} `json:"user"`
		} `json:"createUser"`
	}
	if err := c.do(ctx, OpCreateUser, createUserMutation, vars, &data); err != nil {
		return nil, err
	}
	if data.CreateUser == nil || data.CreateUser.User == nil || data.CreateUser.User.Collective == nil {
		return nil, &comment.TransportError{Op: OpCreateUser, Err: errors.New("empty createUser response")}
	}
	return data.CreateUser.User.Collective, nil
}

// DeleteComment removes a comment. Threads already loaded keep showing it
// until they are reloaded.
func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	var data struct {
		DeleteComment *struct {
			ID int64 `json:"id"`
		} `json:"deleteComment"`
	}
	if err := c.do(ctx, OpDeleteComment, deleteCommentMutation, map[string]interface{}{"id": id}, &data); err != nil {
		return withEntity(err, "comment", id)
	}
	if data.DeleteComment == nil {
		return fmt.Errorf("comment %d: %w", id, comment.ErrNotFound)
	}
	return nil
}

// GetConversation fetches a conversation's title and tags.
func (c *Client) GetConversation(ctx context.Context, id int64) (*comment.Conversation, error) {
	parent := comment.Parent{Kind: comment.KindConversation, ID: id}

	var data struct {
		Conversation *comment.Conversation `json:"conversation"`
	}
	if err := c.do(ctx, OpConversation, conversationQuery, map[string]interface{}{"id": id}, &data); err != nil {
		return nil, withParent(err, parent)
	}
	if data.Conversation == nil {
		return nil, &comment.NotFoundError{Parent: parent}
	}
	return data.Conversation, nil
}

// CreateComment posts a new comment and returns the server's copy of it.
func (c *Client) CreateComment(ctx context.Context, in CreateCommentInput) (*comment.Comment, error) {
	input := map[string]interface{}{
		"html":             in.HTML,
		"FromCollectiveId": in.FromCollectiveID,
	}
	if in.CollectiveID != 0 {
		input["CollectiveId"] = in.CollectiveID
	}
	switch in.Parent.Kind {
	case comment.KindExpense:
		input["ExpenseId"] = in.Parent.ID
	case comment.KindConversation:
		input["ConversationId"] = in.Parent.ID
	default:
		return nil, fmt.Errorf("unknown parent kind %q", in.Parent.Kind)
	}

	var data struct {
		CreateComment *wireComment `json:"createComment"`
	}
	vars := map[string]interface{}{"comment": input}
	if err := c.do(ctx, OpCreateComment, createCommentMutation, vars, &data); err != nil {
		return nil, withParent(err, in.Parent)
	}
	if data.CreateComment == nil {
		return nil, &comment.TransportError{Op: OpCreateComment, Err: errors.New("empty createComment response")}
	}

	created := data.CreateComment.toComment()
	return &created, nil
}

// Health checks that the server is reachable and accepts the configured key.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return &comment.TransportError{Op: "health", Err: fmt.Errorf("creating request: %w", err)}
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &comment.TransportError{Op: "health", Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "op", "health", "error", cerr)
		}
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return &comment.TransportError{Op: "health", Err: ErrUnauthorized}
	default:
		return &comment.TransportError{Op: "health", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
}

type graphQLRequest struct {
	OperationName string                 `json:"operationName"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
}

// GraphQLError is one entry of a response's errors array.
type GraphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code  string `json:"code,omitempty"`
		Field string `json:"field,omitempty"`
	} `json:"extensions"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// do posts one GraphQL operation and decodes data into result.
// Network, HTTP and GraphQL failures come back as *comment.TransportError,
// except NOT_FOUND errors which wrap errParentMissing.
func (c *Client) do(ctx context.Context, op, query string, vars map[string]interface{}, result interface{}) error {
	body, err := json.Marshal(graphQLRequest{OperationName: op, Query: query, Variables: vars})
	if err != nil {
		return &comment.TransportError{Op: op, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/graphql", bytes.NewReader(body))
	if err != nil {
		return &comment.TransportError{Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &comment.TransportError{Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "op", op, "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &comment.TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	slog.Debug("graphql",
		"op", op,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	var gr graphQLResponse
	decodeErr := json.Unmarshal(respBody, &gr)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && len(gr.Errors) > 0 {
			return classify(op, gr.Errors)
		}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &comment.TransportError{Op: op, Err: errors.New(errResp.Error)}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return &comment.TransportError{Op: op, Err: ErrUnauthorized}
		}
		msg := strings.TrimSpace(string(respBody))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &comment.TransportError{Op: op, Err: fmt.Errorf("server error %d: %s", resp.StatusCode, msg)}
	}

	if decodeErr != nil {
		return &comment.TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", decodeErr)}
	}
	if len(gr.Errors) > 0 {
		return classify(op, gr.Errors)
	}

	if result != nil && len(gr.Data) > 0 {
		if err := json.Unmarshal(gr.Data, result); err != nil {
			return &comment.TransportError{Op: op, Err: fmt.Errorf("decoding data: %w", err)}
		}
	}
	return nil
}

// classify turns GraphQL errors into the comment error taxonomy.
func classify(op string, errs []GraphQLError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Extensions.Code {
		case CodeNotFound:
			return fmt.Errorf("%s: %s: %w", op, e.Message, errParentMissing)
		case CodeBadInput:
			return &comment.ValidationError{Field: e.Extensions.Field, Reason: e.Message}
		}
		msgs = append(msgs, e.Message)
	}
	return &comment.TransportError{Op: op, Err: errors.New(strings.Join(msgs, "; "))}
}

// withParent replaces an anonymous not-found with a *comment.NotFoundError.
func withParent(err error, parent comment.Parent) error {
	if errors.Is(err, errParentMissing) {
		return &comment.NotFoundError{Parent: parent}
	}
	return err
}

// withEntity names the missing entity of a not-found that has no parent.
func withEntity(err error, entity string, id int64) error {
	if errors.Is(err, errParentMissing) {
		return fmt.Errorf("%s %d: %w", entity, id, comment.ErrNotFound)
	}
	return err
}

type wireExpense struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Collective  *struct {
		ID int64 `json:"id"`
	} `json:"collective"`
	User *struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

func (w wireExpense) toExpense() *comment.Expense {
	e := &comment.Expense{
		ID:          w.ID,
		Description: w.Description,
		Amount:      w.Amount,
		Currency:    w.Currency,
		Status:      w.Status,
	}
	if w.Collective != nil {
		e.CollectiveID = w.Collective.ID
	}
	if w.User != nil {
		e.UserID = w.User.ID
	}
	return e
}

type commentsHolder struct {
	ID       int64 `json:"id"`
	Comments struct {
		TotalCount int           `json:"totalCount"`
		Nodes      []wireComment `json:"nodes"`
	} `json:"comments"`
}

// wireCollective accepts both the v2 shape (balance) and the v1 shape (stats.balance).
type wireCollective struct {
	ID       int64            `json:"id"`
	Slug     string           `json:"slug"`
	Currency string           `json:"currency"`
	Name     string           `json:"name"`
	Balance  *int64           `json:"balance"`
	Host     *comment.HostRef `json:"host"`
	Stats    *struct {
		ID      int64  `json:"id"`
		Balance *int64 `json:"balance"`
	} `json:"stats"`
}

type wireComment struct {
	ID             int64                 `json:"id"`
	HTML           string                `json:"html"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      *time.Time            `json:"updatedAt"`
	FromCollective comment.CollectiveRef `json:"fromCollective"`
	Collective     *wireCollective       `json:"collective"`
}

func (w wireComment) toComment() comment.Comment {
	c := comment.Comment{
		ID:             w.ID,
		HTML:           w.HTML,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
		FromCollective: w.FromCollective,
	}
	if w.Collective != nil {
		c.Collective = &comment.CollectiveSummary{
			ID:       w.Collective.ID,
			Slug:     w.Collective.Slug,
			Currency: w.Collective.Currency,
			Name:     w.Collective.Name,
			Balance:  w.Collective.Balance,
			Host:     w.Collective.Host,
		}
		if c.Collective.Balance == nil && w.Collective.Stats != nil {
			c.Collective.Balance = w.Collective.Stats.Balance
		}
	}
	return c
}
