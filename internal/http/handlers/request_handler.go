// Service-request HTTP handlers.
//
// This file exposes REST endpoints for the request lifecycle:
//   - POST /requests                        (create, seeker)
//   - GET  /requests                        (list by role)
//   - GET  /requests/{id}                   (detail, parties only)
//   - POST /requests/{id}/accept            (provider)
//   - POST /requests/{id}/confirm-booking   (seeker, redeems a proposal)
//   - POST /requests/{id}/reject-booking    (seeker, declines a proposal)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/services"
)

//
// DTOs
//

// AddressPayload is the address snapshot embedded in a create payload.
type AddressPayload struct {
	AddressLine string `json:"address_line" binding:"required,max=255" example:"12 Harbour Street"`
	City        string `json:"city"         binding:"required,max=128" example:"Rotterdam"`
	ZipCode     string `json:"zip_code"     binding:"required,max=32"  example:"3011 GA"`
	Country     string `json:"country"      binding:"required,max=64"  example:"NL"`
}

// CreateRequestPayload is the JSON payload for opening a service request.
type CreateRequestPayload struct {
	ServiceID   string         `json:"service_id"  binding:"required,uuid"  example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Description string         `json:"description" binding:"required,max=500" example:"Kitchen sink is leaking under the counter"`
	Severity    string         `json:"severity"    binding:"required,oneof=URGENT HIGH MEDIUM LOW" example:"HIGH"`
	Address     AddressPayload `json:"address"     binding:"required"`
}

// ConfirmBookingPayload names the proposal message being redeemed.
type ConfirmBookingPayload struct {
	MessageID string `json:"message_id" binding:"required,uuid" example:"9f3e9a4e-0c9a-4a2e-8e7f-0d6f2b1a5c44"`
}

// ListRequestsResponse wraps the role-scoped request listing.
type ListRequestsResponse struct {
	Requests []domain.ServiceRequest `json:"requests"`
}

//
// Handlers
//

// CreateRequest godoc
// @ID          createRequest
// @Summary     Open a service request
// @Description Creates a PENDING request for the calling seeker against a service profile. The provider is derived from the profile owner; the address is stored as a snapshot.
// @Tags        Requests
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       body       body    handlers.CreateRequestPayload  true  "Create request payload"
//
// @Success     201  {object}  domain.ServiceRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Service profile not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests [post]
func (h *Handlers) CreateRequest(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	var req CreateRequestPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	out, err := h.requestSvc.Create(c.Request.Context(), uid, services.CreateRequestInput{
		ServiceID:   req.ServiceID,
		Description: req.Description,
		Severity:    domain.RequestSeverity(req.Severity),
		Address: services.RequestAddress{
			AddressLine: req.Address.AddressLine,
			City:        req.Address.City,
			ZipCode:     req.Address.ZipCode,
			Country:     req.Address.Country,
		},
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, out)
}

// ListRequests godoc
// @ID          listRequests
// @Summary     List the caller's requests
// @Description Returns the caller's requests newest first, scoped by role: "seeker" (default) lists requests the caller opened, "provider" lists requests addressed to the caller.
// @Tags        Requests
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Caller user ID"  example(user123)
// @Param       role       query   string  false  "seeker or provider"  Enums(seeker, provider) default(seeker)
//
// @Success     200  {object}  handlers.ListRequestsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /requests [get]
func (h *Handlers) ListRequests(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}

	var (
		items []domain.ServiceRequest
		err   error
	)
	switch strings.ToLower(c.DefaultQuery("role", "seeker")) {
	case "seeker":
		items, err = h.requestSvc.ListForSeeker(c.Request.Context(), uid)
	case "provider":
		items, err = h.requestSvc.ListForProvider(c.Request.Context(), uid)
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role must be seeker or provider")
		return
	}
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ListRequestsResponse{Requests: items})
}

// GetRequest godoc
// @ID          getRequest
// @Summary     Fetch one request
// @Description Returns a single request. Only the seeker or the provider of the request may read it.
// @Tags        Requests
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.ServiceRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Router      /requests/{id} [get]
func (h *Handlers) GetRequest(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	out, err := h.requestSvc.Get(c.Request.Context(), uid, requestID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// AcceptRequest godoc
// @ID          acceptRequest
// @Summary     Accept a pending request
// @Description Moves a PENDING request to ACCEPTED, unlocking the chat. Only the request's provider may accept; a request that already left PENDING yields a conflict.
// @Tags        Requests
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(provider42)
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.ServiceRequest
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the provider"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Request is not pending"
// @Router      /requests/{id}/accept [post]
func (h *Handlers) AcceptRequest(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	out, err := h.requestSvc.Accept(c.Request.Context(), uid, requestID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// ConfirmBooking godoc
// @ID          confirmBooking
// @Summary     Redeem a proposal into a booking
// @Description Converts the proposal carried by the named chat message into a Booking and moves the request to BOOKING_CONFIRMED. Only the seeker may confirm, only while the request is ACCEPTED.
// @Tags        Requests
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
// @Param       body       body    handlers.ConfirmBookingPayload  true  "Proposal message reference"
//
// @Success     201  {object}  domain.Booking
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / message lacks a proposal reference"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the seeker"
// @Failure     404  {object}  handlers.ErrorResponse  "Request or message not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Request is not accepted"
// @Router      /requests/{id}/confirm-booking [post]
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}
	var req ConfirmBookingPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message_id (UUID) required")
		return
	}

	booking, err := h.requestSvc.ConfirmBooking(c.Request.Context(), uid, requestID, req.MessageID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, booking)
}

// RejectBooking godoc
// @ID          rejectBooking
// @Summary     Decline the outstanding proposal
// @Description Declines the current proposal. The request stays ACCEPTED so the parties can negotiate a new proposal; the provider is notified.
// @Tags        Requests
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the seeker"
// @Failure     404  {object}  handlers.ErrorResponse  "Request not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Request is not accepted"
// @Router      /requests/{id}/reject-booking [post]
func (h *Handlers) RejectBooking(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	if err := h.requestSvc.RejectBooking(c.Request.Context(), uid, requestID); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
