package client

import "github.com/evcraddock/collective-threads/internal/comment"

// Operation names sent as operationName. The dev server dispatches on these.
const (
	OpExpenseComments      = "getCommentsQuery"
	OpConversationComments = "getConversationCommentsQuery"
	OpExpense              = "getExpenseQuery"
	OpConversation         = "getConversationQuery"
	OpCreateComment        = "createComment"
	OpDeleteComment        = "deleteComment"
	OpCreateCollective     = "CreateCollective"
	OpCreateUser           = "CreateUser"
	OpCreateExpense        = "createExpense"
	OpApproveExpense       = "approveExpense"
)

// CommentsOperation returns the query name used to page a parent's comments.
func CommentsOperation(kind comment.ParentKind) string {
	if kind == comment.KindConversation {
		return OpConversationComments
	}
	return OpExpenseComments
}

const commentFields = `
      id
      html
      createdAt
      collective {
        id
        slug
        currency
        name
        ... on Collective {
          balance
          host {
            id
            slug
          }
        }
      }
      fromCollective {
        id
        type
        name
        slug
        imageUrl
      }`

const expenseCommentsQuery = `
  query getCommentsQuery($id: Int!, $limit: Int, $offset: Int) {
    expense(id: $id) {
      id
      comments(limit: $limit, offset: $offset) {
        totalCount
        nodes {` + commentFields + `
        }
      }
    }
  }`

const conversationCommentsQuery = `
  query getConversationCommentsQuery($id: Int!, $limit: Int, $offset: Int) {
    conversation(id: $id) {
      id
      comments(limit: $limit, offset: $offset) {
        totalCount
        nodes {` + commentFields + `
        }
      }
    }
  }`

const expenseFields = `
      id
      description
      amount
      currency
      status
      collective {
        id
      }
      user {
        id
      }`

const expenseQuery = `
  query getExpenseQuery($id: Int!) {
    expense(id: $id) {` + expenseFields + `
    }
  }`

const createExpenseMutation = `
  mutation createExpense($expense: ExpenseInputType!) {
    createExpense(expense: $expense) {` + expenseFields + `
    }
  }`

const approveExpenseMutation = `
  mutation approveExpense($id: Int!) {
    approveExpense(id: $id) {` + expenseFields + `
    }
  }`

const deleteCommentMutation = `
  mutation deleteComment($id: Int!) {
    deleteComment(id: $id) {
      id
    }
  }`

const createCollectiveMutation = `
  mutation CreateCollective($collective: CollectiveInputType!) {
    createCollective(collective: $collective) {
      id
      name
      slug
      type
      imageUrl
    }
  }`

const createUserMutation = `
  mutation CreateUser($user: UserInputType!) {
    createUser(user: $user, throwIfExists: false, sendSignInLink: false) {
      user {
        id
        collective {
          id
          name
          slug
          type
          imageUrl
          ... on User {
            email
          }
        }
      }
    }
  }`

const conversationQuery = `
  query getConversationQuery($id: Int!) {
    conversation(id: $id) {
      id
      title
      tags
    }
  }`

// The v1 mutation reports balance under stats; decode normalises it.
const createCommentMutation = `
  mutation createComment($comment: CommentInputType!) {
    createComment(comment: $comment) {
      id
      html
      createdAt
      updatedAt
      collective {
        id
        slug
        currency
        name
        host {
          id
          slug
        }
        stats {
          id
          balance
        }
      }
      fromCollective {
        id
        type
        name
        slug
        imageUrl
      }
    }
  }`

// commentsVariables builds the variables of a comments page query.
func commentsVariables(parent comment.Parent, limit, offset int) map[string]interface{} {
	if limit <= 0 {
		limit = comment.DefaultPageSize
	}
	return map[string]interface{}{
		"id":     parent.ID,
		"limit":  limit,
		"offset": offset,
	}
}
