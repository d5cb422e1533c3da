package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/evcraddock/collective-threads/internal/client"
	"github.com/evcraddock/collective-threads/internal/comment"
	"github.com/evcraddock/collective-threads/internal/logging"
)

// Error extension codes besides client.CodeNotFound.
const (
	codeBadInput = client.CodeBadInput
	codeInternal = "INTERNAL_SERVER_ERROR"
)

// maxBodyBytes bounds a GraphQL request body.
const maxBodyBytes = 1 << 20

type graphQLRequest struct {
	OperationName string          `json:"operationName"`
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables"`
}

type graphQLError struct {
	Message    string            `json:"message"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

type graphQLResponse struct {
	Data   interface{}    `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

// handleGraphQL dispatches on operationName. The query text is not parsed;
// the server answers the fixed set of operations the client sends.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		gqlErrors(w, http.StatusBadRequest, nil, codeBadInput, "invalid request body")
		return
	}

	if mutations[req.OperationName] && !s.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch req.OperationName {
	case client.OpExpenseComments:
		s.gqlComments(w, r, comment.KindExpense, req.Variables)
	case client.OpConversationComments:
		s.gqlComments(w, r, comment.KindConversation, req.Variables)
	case client.OpExpense:
		s.gqlExpense(w, r, req.Variables)
	case client.OpConversation:
		s.gqlConversation(w, r, req.Variables)
	case client.OpCreateComment:
		s.gqlCreateComment(w, r, req.Variables)
	case client.OpDeleteComment:
		s.gqlDeleteComment(w, r, req.Variables)
	case client.OpCreateCollective:
		s.gqlCreateCollective(w, r, req.Variables)
	case client.OpCreateUser:
		s.gqlCreateUser(w, r, req.Variables)
	case client.OpCreateExpense:
		s.gqlCreateExpense(w, r, req.Variables)
	case client.OpApproveExpense:
		s.gqlApproveExpense(w, r, req.Variables)
	default:
		gqlErrors(w, http.StatusBadRequest, nil, codeBadInput,
			fmt.Sprintf("unknown operation %q", req.OperationName))
	}
}

// mutations need the configured API key.
var mutations = map[string]bool{
	client.OpCreateComment:    true,
	client.OpDeleteComment:    true,
	client.OpCreateCollective: true,
	client.OpCreateUser:       true,
	client.OpCreateExpense:    true,
	client.OpApproveExpense:   true,
}

type pageVars struct {
	ID     int64 `json:"id"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

type commentsHolder struct {
	ID       int64        `json:"id"`
	Comments comment.Page `json:"comments"`
}

func (s *Server) gqlComments(w http.ResponseWriter, r *http.Request, kind comment.ParentKind, raw json.RawMessage) {
	var vars pageVars
	if err := decodeVars(raw, &vars); err != nil {
		gqlErrors(w, http.StatusOK, nil, codeBadInput, err.Error())
		return
	}

	parent := comment.Parent{Kind: kind, ID: vars.ID}
	page, err := s.repo.ListByParent(parent, vars.Limit, vars.Offset)
	if err != nil {
		s.fail(w, r, string(kind), err)
		return
	}

	gqlData(w, map[string]interface{}{
		string(kind): commentsHolder{ID: parent.ID, Comments: *page},
	})
}

type idRef struct {
	ID int64 `json:"id"`
}

type expenseResult struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Collective  idRef  `json:"collective"`
	User        idRef  `json:"user"`
}

func toExpenseResult(e *comment.Expense) expenseResult {
	return expenseResult{
		ID:          e.ID,
		Description: e.Description,
		Amount:      e.Amount,
		Currency:    e.Currency,
		Status:      e.Status,
		Collective:  idRef{ID: e.CollectiveID},
		User:        idRef{ID: e.UserID},
	}
}

func (s *Server) gqlExpense(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var vars struct {
		ID int64 `json:"id"`
	}
	if err := decodeVars(raw, &vars); err != nil {
		gqlErrors(w, http.StatusOK, nil, codeBadInput, err.Error())
		return
	}

	e, err := s.repo.GetExpense(vars.ID)
	if err != nil {
		s.fail(w, r, "expense", err)
		return
	}

	gqlData(w, map[string]interface{}{"expense": toExpenseResult(e)})
}

func (s *Server) gqlConversation(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var vars struct {
		ID int64 `json:"id"`
	}
	if err := decodeVars(raw, &vars); err != nil {
		gqlErrors(w, http.StatusOK, nil, codeBadInput, err.Error())
		return
	}

	c, err := s.repo.GetConversation(vars.ID)
	if err != nil {
		s.fail(w, r, "conversation", err)
		return
	}
	gqlData(w, map[string]interface{}{"conversation": c})
}

type createVars struct {
	Comment struct {
		HTML             string `json:"html"`
		FromCollectiveID int64  `json:"FromCollectiveId"`
		CollectiveID     int64  `json:"CollectiveId"`
		ExpenseID        int64  `json:"ExpenseId"`
		ConversationID   int64  `json:"ConversationId"`
	} `json:"comment"`
}

// v1Collective is the legacy mutation shape: balance lives under stats.
type v1Collective struct {
	ID       int64            `json:"id"`
	Slug     string           `json:"slug"`
	Currency string           `json:"currency"`
	Name     string           `json:"name"`
	Host     *comment.HostRef `json:"host,omitempty"`
	Stats    *v1Stats         `json:"stats,omitempty"`
}

type v1Stats struct {
	ID      int64  `json:"id"`
	Balance *int64 `json:"balance"`
}

type v1Comment struct {
	ID             int64                 `json:"id"`
	HTML           string                `json:"html"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      *time.Time            `json:"updatedAt,omitempty"`
	FromCollective comment.CollectiveRef `json:"fromCollective"`
	Collective     *v1Collective         `json:"collective,omitempty"`
}

func toV1(c *comment.Comment) v1Comment {
	out := v1Comment{
		ID:             c.ID,
		HTML:           c.HTML,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
		FromCollective: c.FromCollective,
	}
	if c.Collective != nil {
		out.Collective = &v1Collective{
			ID:       c.Collective.ID,
			Slug:     c.Collective.Slug,
			Currency: c.Collective.Currency,
			Name:     c.Collective.Name,
			Host:     c.Collective.Host,
			Stats:    &v1Stats{ID: c.Collective.ID, Balance: c.Collective.Balance},
		}
	}
	return out
}

func (s *Server) gqlCreateComment(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var vars createVars
	if err := decodeVars(raw, &vars); err != nil {
		gqlErrors(w, http.StatusOK, nil, codeBadInput, err.Error())
		return
	}
	in := vars.Comment

	var parent comment.Parent
	switch {
	case in.ExpenseID > 0 && in.ConversationID > 0:
		gqlErrors(w, http.StatusOK, map[string]interface{}{"createComment": nil}, codeBadInput,
			"a comment belongs to one expense or one conversation")
		return
	case in.ExpenseID > 0:
		parent = comment.Parent{Kind: comment.KindExpense, ID: in.ExpenseID}
	case in.ConversationID > 0:
		parent = comment.Parent{Kind: comment.KindConversation, ID: in.ConversationID}
	default:
		gqlErrors(w, http.StatusOK, map[string]interface{}{"createComment": nil}, codeBadInput,
			"ExpenseId or ConversationId is required")
		return
	}

	collectiveID := in.CollectiveID
	if collectiveID == 0 {
		id, err := s.repo.CollectiveOf(parent)
		if err != nil {
			s.fail(w, r, "createComment", err)
			return
		}
		collectiveID = id
	}

	created, err := s.repo.Add(comment.NewComment{
		HTML:             in.HTML,
		Parent:           parent,
		CollectiveID:     collectiveID,
		FromCollectiveID: in.FromCollectiveID,
	})
	if err != nil {
		s.fail(w, r, "createComment", err)
		return
	}

	slog.Info("comment created",
		"id", created.ID,
		"parent", parent.String(),
		"request_id", logging.RequestID(r.Context()),
	)
	gqlData(w, map[string]interface{}{"createComment": toV1(created)})
}

func (s *Server) gqlDeleteComment(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var vars struct {
		ID int64 `json:"id"`
	}
	if err := decodeVars(raw, &vars); err != nil {
		gqlErrors(w, http.StatusOK, nil, codeBadInput, err.Error())
		return
	}

	if err := s.repo.Delete(vars.ID); err != nil {
		s.fail(w, r, "deleteComment", err)
		return
	}

	slog.Info("comment deleted", "id", vars.ID, "request_id", logging.RequestID(r.Context()))
	gqlData(w, map[string]interface{}{"deleteComment": idRef{ID: vars.ID}})
}

func (s *Server) gqlCreateCollective(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var vars struct {
		Collective struct {
			Name             string `json:"name"`
			Slug             string `json:"slug"`
			Type             string `json:"type"`
			HostCollectiveID int64  `json:"HostCollectiveId"`
		} `json:"collective"`
	}
	if err := decodeVars(raw, &vars); err != nil {
		gqlErrors(w, http.StatusOK, nil, codeBadInput, err.Error())
		return
	}
	in := vars.Collective
	if in.Type == comment.TypeUser {
		s.fail(w, r, "createCollective", &comment.ValidationError{Field: "type", Reason: "users are created with createUser"})
		return
	}

	id, err := s.repo.CreateCollective(comment.NewCollective{
		Type:   in.Type,
		Name:   in.Name,
		Slug:   in.Slug,
		HostID: in.HostCollectiveID,
	})
	if err != nil {
		s.fail(w, r, "createCollective", err)
		return
	}
	created, err := s.repo.GetCollective(id)
	if err != nil {
		s.fail(w, r, "createCollective", err)
		return
	}

	slog.Info("collective created", "id", id, "slug", created.Slug, "request_id", logging.RequestID(r.Context()))
	gqlData(w, map[string]interface{}{"createCollective": created})
}

func (s *Server) gqlCreateUser(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var vars struct {
		User struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := decodeVars(raw, &vars); err != nil {
		gqlErrors(w, http.StatusOK, nil, codeBadInput, err.Error())
		return
	}

	id, err := s.repo.CreateCollective(comment.NewCollective{
		Type:  comment.TypeUser,
		Name:  vars.User.Name,
		Email: vars.User.Email,
	})
	if err != nil {
		s.fail(w, r, "createUser", err)
		return
	}
	profile, err := s.repo.GetCollective(id)
	if err != nil {
		s.fail(w, r, "createUser", err)
		return
	}

	slog.Info("user created", "id", id, "slug", profile.Slug, "request_id", logging.RequestID(r.Context()))
	gqlData(w, map[string]interface{}{"createUser": map[string]interface{}{
		"user": map[string]interface{}{"id": id, "collective": profile},
	}})
}

func (s *Server) gqlCreateExpense(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var vars struct {
		Expense struct {
			Description      string `json:"description"`
			Amount           int64  `json:"amount"`
			Currency         string `json:"currency"`
			CollectiveID     int64  `json:"CollectiveId"`
			FromCollectiveID int64  `json:"FromCollectiveId"`
		} `json:"expense"`
	}
	if err := decodeVars(raw, &vars); err != nil {
		gqlErrors(w, http.StatusOK, nil, codeBadInput, err.Error())
		return
	}
	in := vars.Expense

	id, err := s.repo.CreateExpense(comment.NewExpense{
		CollectiveID: in.CollectiveID,
		UserID:       in.FromCollectiveID,
		Description:  in.Description,
		Amount:       in.Amount,
		Currency:     in.Currency,
	})
	if err != nil {
		s.fail(w, r, "createExpense", err)
		return
	}
	e, err := s.repo.GetExpense(id)
	if err != nil {
		s.fail(w, r, "createExpense", err)
		return
	}

	slog.Info("expense created", "id", id, "collective", in.CollectiveID, "request_id", logging.RequestID(r.Context()))
	gqlData(w, map[string]interface{}{"createExpense": toExpenseResult(e)})
}

func (s *Server) gqlApproveExpense(w http.ResponseWriter, r *http.Request, raw json.RawMessage) {
	var vars struct {
		ID int64 `json:"id"`
	}
	if err := decodeVars(raw, &vars); err != nil {
		gqlErrors(w, http.StatusOK, nil, codeBadInput, err.Error())
		return
	}

	e, err := s.repo.ApproveExpense(vars.ID)
	if err != nil {
		s.fail(w, r, "approveExpense", err)
		return
	}

	slog.Info("expense approved", "id", e.ID, "request_id", logging.RequestID(r.Context()))
	gqlData(w, map[string]interface{}{"approveExpense": toExpenseResult(e)})
}

// fail maps a repository error onto a GraphQL error with a null field.
// Validation errors carry the offending input field in extensions.field.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, field string, err error) {
	data := map[string]interface{}{field: nil}
	var ve *comment.ValidationError
	switch {
	case errors.Is(err, comment.ErrNotFound):
		gqlErrors(w, http.StatusOK, data, client.CodeNotFound, err.Error())
	case errors.As(err, &ve):
		apiJSON(w, graphQLResponse{
			Data: data,
			Errors: []graphQLError{{
				Message:    ve.Reason,
				Extensions: map[string]string{"code": codeBadInput, "field": ve.Field},
			}},
		}, http.StatusOK)
	case errors.Is(err, comment.ErrValidation):
		gqlErrors(w, http.StatusOK, data, codeBadInput, err.Error())
	default:
		slog.Error("graphql operation failed",
			"field", field,
			"error", err,
			"request_id", logging.RequestID(r.Context()),
		)
		gqlErrors(w, http.StatusInternalServerError, data, codeInternal, "internal error")
	}
}

func decodeVars(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errors.New("variables are required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid variables: %w", err)
	}
	return nil
}

func gqlData(w http.ResponseWriter, data interface{}) {
	apiJSON(w, graphQLResponse{Data: data}, http.StatusOK)
}

func gqlErrors(w http.ResponseWriter, status int, data interface{}, code, msg string) {
	apiJSON(w, graphQLResponse{
		Data:   data,
		Errors: []graphQLError{{Message: msg, Extensions: map[string]string{"code": code}}},
	}, status)
}
