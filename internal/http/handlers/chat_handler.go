// Chat HTTP handlers.
//
// This file exposes REST endpoints for the negotiation chat:
//   - GET  /conversations                  (inbox, ETag support)
//   - GET  /requests/{id}/messages         (history, paginated)
//   - POST /requests/{id}/messages         (send, optional proposal)
//   - POST /requests/{id}/messages/read    (mark thread read)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/repo"
	"github.com/servx/servx-server/internal/services"
)

//
// DTOs
//

// ProposalPayload is the optional structured terms attached to a message.
type ProposalPayload struct {
	AgreedDateTime  time.Time `json:"agreed_date_time" binding:"required" example:"2026-09-03T14:00:00Z"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1" example:"90"`
	PriceMin        *float64  `json:"price_min,omitempty" example:"45"`
	PriceMax        *float64  `json:"price_max,omitempty" example:"60"`
	Notes           string    `json:"notes,omitempty" binding:"max=500" example:"Includes materials"`
}

// SendMessagePayload is the JSON payload for posting a chat message.
type SendMessagePayload struct {
	Content string `json:"content" binding:"required,max=2000" example:"I can come by Thursday afternoon"`
	// RecipientID is optional; when present it must match the other party.
	RecipientID string           `json:"recipient_id,omitempty" example:"provider42"`
	Proposal    *ProposalPayload `json:"proposal,omitempty"`
}

// ConversationsResponse wraps the caller's inbox.
type ConversationsResponse struct {
	Conversations []services.ConversationSummary `json:"conversations"`
}

// MessagesResponse wraps a page of a thread and pagination information.
type MessagesResponse struct {
	Messages   []domain.ChatMessage `json:"messages"`
	Pagination Pagination           `json:"pagination"`
}

// MarkReadResponse reports how many messages a read receipt affected.
type MarkReadResponse struct {
	Updated int64 `json:"updated"`
}

//
// Handlers
//

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations
// @Description Returns the caller's inbox across every request they are a party to, newest activity first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID      header  string  true   "Caller user ID"  example(user123)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"abc123\")
//
// @Success     200  {object}  handlers.ConversationsResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	ctx := c.Request.Context()

	// ETag pre-check (best effort). The digest covers every field of the
	// conversation representation that can change without a new message row:
	// read receipts move Unread, status transitions move LastChangeAt.
	var db *gorm.DB
	if svc, isConcrete := h.chatSvc.(*services.ChatService); isConcrete {
		db = svc.DB
	}
	if db != nil {
		dig, err := repo.ConversationStats(ctx, db, uid)
		if err == nil {
			var msgTS, chgTS int64
			if dig.LastMessageAt != nil {
				msgTS = dig.LastMessageAt.UnixNano()
			}
			if dig.LastChangeAt != nil {
				chgTS = dig.LastChangeAt.UnixNano()
			}
			etag := fmt.Sprintf(`W/"conv:%s:%d:%d:%d:%d"`, uid, dig.Messages, dig.Unread, msgTS, chgTS)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.chatSvc.Conversations(ctx, uid)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ConversationsResponse{Conversations: items})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List a thread's messages
// @Description Returns one page of the request's negotiation thread, newest first. Only the request's parties may read it.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Caller user ID"  example(user123)
// @Param       id         path    string  true   "Request ID (UUID)"  format(uuid)
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.MessagesResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Router      /requests/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.chatSvc.History(c.Request.Context(), uid, requestID, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, MessagesResponse{
		Messages:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a chat message
// @Description Appends a message to the request's thread, optionally carrying a booking proposal. The thread must be active (request ACCEPTED or BOOKING_CONFIRMED) and the sender must be a party; the recipient is always the other party.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
// @Param       body       body    handlers.SendMessagePayload  true  "Message payload"
//
// @Success     201  {object}  domain.ChatMessage
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / recipient mismatch"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Chat is not active"
// @Router      /requests/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}
	var req SendMessagePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	var proposal *domain.BookingProposal
	if req.Proposal != nil {
		proposal = &domain.BookingProposal{
			AgreedDateTime:  req.Proposal.AgreedDateTime,
			DurationMinutes: req.Proposal.DurationMinutes,
			PriceMin:        req.Proposal.PriceMin,
			PriceMax:        req.Proposal.PriceMax,
			Notes:           req.Proposal.Notes,
		}
	}

	msg, err := h.chatSvc.Send(c.Request.Context(), uid, requestID, req.Content, req.RecipientID, proposal)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, msg)
}

// MarkThreadRead godoc
// @ID          markThreadRead
// @Summary     Mark a thread as read
// @Description Marks every unread message addressed to the caller in the thread as read. Repeating the call affects zero messages.
// @Tags        Chat
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.MarkReadResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Router      /requests/{id}/messages/read [post]
func (h *Handlers) MarkThreadRead(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	updated, err := h.chatSvc.MarkRead(c.Request.Context(), uid, requestID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, MarkReadResponse{Updated: updated})
}
