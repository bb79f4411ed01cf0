// Review HTTP handlers.
//
// This file exposes REST endpoints for reviews:
//   - POST /bookings/{id}/reviews    (submit, seeker of a completed booking)
//   - GET  /services/{id}/reviews    (per-profile listing, paginated)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/servx/servx-server/internal/services"
)

// SubmitReviewPayload is the JSON payload for reviewing a completed booking.
type SubmitReviewPayload struct {
	Rating  float64 `json:"rating"  binding:"required,min=1,max=5" example:"4.5"`
	Comment string  `json:"comment" binding:"max=1000" example:"Quick, clean work. Would book again."`
}

// ListReviewsResponse wraps a page of reviews and pagination information.
type ListReviewsResponse struct {
	Reviews    []services.ReviewView `json:"reviews"`
	Pagination Pagination            `json:"pagination"`
}

// SubmitReview godoc
// @ID          submitReview
// @Summary     Review a completed booking
// @Description Records the seeker's rating of a COMPLETED booking, at most once per booking, and folds it into the profile's aggregates.
// @Tags        Reviews
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller user ID"  example(user123)
// @Param       id         path    string  true  "Booking ID (UUID)"  format(uuid)
// @Param       body       body    handlers.SubmitReviewPayload  true  "Review payload"
//
// @Success     201  {object}  domain.Review
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request / rating out of range"
// @Failure     403  {object}  handlers.ErrorResponse  "Not the seeker"
// @Failure     404  {object}  handlers.ErrorResponse  "Booking not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Booking not completed or already reviewed"
// @Router      /bookings/{id}/reviews [post]
func (h *Handlers) SubmitReview(c *gin.Context) {
	uid, okUser := requireUser(c)
	if !okUser {
		return
	}
	bookingID := c.Param("id")
	if _, err := uuid.Parse(bookingID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "booking id must be a UUID")
		return
	}
	var req SubmitReviewPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "rating (1-5) required")
		return
	}

	review, err := h.reviewSvc.Submit(c.Request.Context(), uid, bookingID, req.Rating, req.Comment)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, review)
}

// ListServiceReviews godoc
// @ID          listServiceReviews
// @Summary     List a service profile's reviews
// @Description Returns one page of the profile's reviews, newest first, with the reviewer's display name and photo resolved.
// @Tags        Reviews
// @Produce     json
//
// @Param       id         path   string  true   "Service profile ID (UUID)"  format(uuid)
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListReviewsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Service profile not found"
// @Router      /services/{id}/reviews [get]
func (h *Handlers) ListServiceReviews(c *gin.Context) {
	serviceID := c.Param("id")
	if _, err := uuid.Parse(serviceID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "service id must be a UUID")
		return
	}
	page, pageSize := clampPagination(c)

	items, total, err := h.reviewSvc.ListForService(c.Request.Context(), serviceID, page, pageSize)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, ListReviewsResponse{
		Reviews:    items,
		Pagination: newPagination(page, pageSize, total),
	})
}
