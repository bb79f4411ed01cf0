// Booking HTTP handlers.
//
// This file exposes REST endpoints for the booking lifecycle:
//   - GET  /bookings                           (list by role and status, paginated)
//   - GET  /bookings/schedule                  (date-range window by role)
//   - GET  /bookings/{id}                      (detail, parties only)
//   - GET  /requests/{id}/booking              (booking behind a confirmed request)
//   - POST /bookings/{id}/provider-complete    (handshake phase one)
//   - POST /bookings/{id}/confirm-completion   (handshake phase two)
//   - POST /bookings/{id}/cancel               (either party)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/servx/servx-server/internal/domain"
)

// ListBookingsResponse wraps a page of bookings and pagination information.
type ListBookingsResponse struct {
	Bookings   []domain.Booking `json:"bookings"`
	Pagination Pagination       `json:"pagination"`
}

// ScheduleResponse wraps a date-range window of bookings.
type ScheduleResponse struct {
	Bookings []domain.Booking `json:"bookings"`
}

// bookingRole resolves the role query param, defaulting to seeker.
func bookingRole(c *gin.Context) (string, bool) {
	role := strings.ToLower(c.DefaultQuery("role", "seeker"))
	if role != "seeker" && role != "provider" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role must be seeker or provider")
		return "", false
	}
	return role, true
}

// bookingStatus resolves the status query param, defaulting to UPCOMING.
func bookingStatus(c *gin.Context) (domain.BookingStatus, bool) {
	s := domain.BookingStatus(strings.ToUpper(c.DefaultQuery("status", string(domain.BookingUpcoming))))
	switch s {
	case domain.BookingUpcoming, domain.BookingCompleted,
		domain.BookingCancelledBySeeker, domain.BookingCancelledByProvider:
		return s, true
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown booking status")
	return "", false
}

// ListBookings godoc
// @ID          listBookings
// @Summary     List the caller's bookings
// @Description Returns one page of the caller's bookings in the given status, ordered by scheduled start ascending. Role selects which side of the booking the caller is on.
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "Caller user ID"  example(user123)
// @Param       role       query   string  false  "seeker or provider"  Enums(seeker, provider) default(seeker)
// @Param       status     query   string  false  "Booking status"  Enums(UPCOMING, COMPLETED, CANCELLED_BY_SEEKER, CANCELLED_BY_PROVIDER) default(UPCOMING)
// @Param       page       query   int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListBookingsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /bookings [get]
func (h *Handlers) ListBookings(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	role, okRole := bookingRole(c)
	if !okRole {
		return
	}
	status, okStatus := bookingStatus(c)
	if !okStatus {
		return
	}
	page, pageSize := clampPagination(c)

	var (
		items []domain.Booking
		total int64
		err   error
	)
	if role == "provider" {
		items, total, err = h.bookingSvc.ListForProvider(c.Request.Context(), uid, status, page, pageSize)
	} else {
		items, total, err = h.bookingSvc.ListForSeeker(c.Request.Context(), uid, status, page, pageSize)
	}
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ListBookingsResponse{
		Bookings:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// Schedule godoc
// @ID          bookingSchedule
// @Summary     List bookings in a date window
// @Description Returns the caller's bookings whose scheduled start falls between start_date and end_date inclusive (whole days, UTC).
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID   header  string  true   "Caller user ID"  example(provider42)
// @Param       role        query   string  false  "seeker or provider"  Enums(seeker, provider) default(seeker)
// @Param       start_date  query   string  true   "Window start (YYYY-MM-DD)"  example(2026-09-01)
// @Param       end_date    query   string  true   "Window end (YYYY-MM-DD)"    example(2026-09-07)
//
// @Success     200  {object}  handlers.ScheduleResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /bookings/schedule [get]
func (h *Handlers) Schedule(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	role, okRole := bookingRole(c)
	if !okRole {
		return
	}

	start, err := time.Parse("2006-01-02", c.Query("start_date"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", c.Query("end_date"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "end_date must not precede start_date")
		return
	}

	var items []domain.Booking
	if role == "provider" {
		items, err = h.bookingSvc.ListForProviderByDateRange(c.Request.Context(), uid, start, end)
	} else {
		items, err = h.bookingSvc.ListForSeekerByDateRange(c.Request.Context(), uid, start, end)
	}
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ScheduleResponse{Bookings: items})
}

// GetBooking godoc
// @ID          getBooking
// @Summary     Fetch one booking
// @Description Returns a single booking. Only the seeker or the provider of the booking may read it.
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Booking ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Booking
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Router      /bookings/{id} [get]
func (h *Handlers) GetBooking(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}

	out, err := h.bookingSvc.Get(c.Request.Context(), uid, bookingID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// GetRequestBooking godoc
// @ID          getRequestBooking
// @Summary     Fetch the booking behind a request
// @Description Returns the booking a confirmed request materialized into. 404 until a proposal has been redeemed; only the request's parties may read it.
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Request ID (UUID)"  format(uuid)
//
// @Success     200  {object}  domain.Booking
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404  {object}  handlers.ErrorResponse  "No booking for this request"
// @Router      /requests/{id}/booking [get]
func (h *Handlers) GetRequestBooking(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	requestID := c.Param("id")
	if _, err := uuid.Parse(requestID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "request id must be a UUID")
		return
	}

	out, err := h.bookingSvc.GetByRequest(c.Request.Context(), uid, requestID)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, out)
}

// ProviderComplete godoc
// @ID          providerComplete
// @Summary     Provider marks work done
// @Description Phase one of the completion handshake: flags the booking as provider-complete while it stays UPCOMING until the seeker confirms.
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(provider42)
// @Param       id         path    string  true  "Booking ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the provider"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Booking is not upcoming"
// @Router      /bookings/{id}/provider-complete [post]
func (h *Handlers) ProviderComplete(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}

	if err := h.bookingSvc.MarkCompletedByProvider(c.Request.Context(), uid, bookingID); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// ConfirmCompletion godoc
// @ID          confirmCompletion
// @Summary     Seeker confirms completion
// @Description Phase two of the handshake and the only transition to COMPLETED. Requires the provider's mark first; confirming an already completed booking succeeds as a no-op.
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Booking ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the seeker"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Provider has not marked complete"
// @Router      /bookings/{id}/confirm-completion [post]
func (h *Handlers) ConfirmCompletion(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}

	if err := h.bookingSvc.ConfirmCompletionBySeeker(c.Request.Context(), uid, bookingID); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// CancelBooking godoc
// @ID          cancelBooking
// @Summary     Cancel a booking
// @Description Cancels an UPCOMING booking. The resulting status records which party cancelled; the other party is notified.
// @Tags        Bookings
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Booking ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Not a party"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Booking is not upcoming"
// @Router      /bookings/{id}/cancel [post]
func (h *Handlers) CancelBooking(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}

	if err := h.bookingSvc.Cancel(c.Request.Context(), uid, bookingID); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}
