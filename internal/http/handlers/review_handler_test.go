package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/services"
)

func TestSubmitReview_BindingAndMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.NewString()

	newRouter := func(svc ReviewService) *gin.Engine {
		h := newTestHandlers(nil, nil, nil, svc, nil)
		r := gin.New()
		r.POST("/bookings/:id/reviews", h.SubmitReview)
		return r
	}
	post := func(r *gin.Engine, bookingID, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/bookings/"+bookingID+"/reviews", bytes.NewBufferString(body))
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		return w
	}

	// Binding rejects out-of-range and missing ratings before the service.
	r := newRouter(stubReviewSvc{submit: func(context.Context, string, string, float64, string) (*domain.Review, error) {
		t.Fatal("service must not be called on binding failure")
		return nil, nil
	}})
	if w := post(r, id, `{"rating":6}`); w.Code != http.StatusBadRequest {
		t.Fatalf("rating 6 -> %d", w.Code)
	}
	if w := post(r, id, `{"comment":"no rating"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing rating -> %d", w.Code)
	}
	if w := post(r, "not-a-uuid", `{"rating":4}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id -> %d", w.Code)
	}

	// Success -> 201.
	r = newRouter(stubReviewSvc{})
	w := post(r, id, `{"rating":4.5,"comment":"great"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("submit -> %d body=%s", w.Code, w.Body.String())
	}
	var out domain.Review
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Rating != 4.5 {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}

	// Sentinel mapping: duplicate and not-completed are conflicts, wrong party
	// is forbidden.
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrDuplicateReview, http.StatusConflict},
		{services.ErrBookingNotCompleted, http.StatusConflict},
		{services.ErrNotSeeker, http.StatusForbidden},
		{services.ErrBookingNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		r = newRouter(stubReviewSvc{submit: func(context.Context, string, string, float64, string) (*domain.Review, error) {
			return nil, tc.err
		}})
		if w := post(r, id, `{"rating":4}`); w.Code != tc.want {
			t.Fatalf("%v -> %d, want %d", tc.err, w.Code, tc.want)
		}
	}
}

func TestListServiceReviews_PublicEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sid := uuid.NewString()

	svc := stubReviewSvc{list: func(_ context.Context, gotSID string, p, ps int) ([]services.ReviewView, int64, error) {
		if gotSID != sid || p != 1 || ps != 20 {
			t.Fatalf("args not forwarded: %s %d %d", gotSID, p, ps)
		}
		return []services.ReviewView{{ReviewerName: "Sam Seeker"}}, 1, nil
	}}
	h := newTestHandlers(nil, nil, nil, svc, nil)
	r := gin.New()
	r.GET("/services/:id/reviews", h.ListServiceReviews)

	// No X-User-ID header: listing reviews requires no identity.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/services/"+sid+"/reviews", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d body=%s", w.Code, w.Body.String())
	}
	var out ListReviewsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || len(out.Reviews) != 1 {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}
	if out.Reviews[0].ReviewerName != "Sam Seeker" {
		t.Fatalf("reviewer identity lost: %+v", out.Reviews[0])
	}

	// Unknown profile -> 404.
	h404 := newTestHandlers(nil, nil, nil, stubReviewSvc{list: func(context.Context, string, int, int) ([]services.ReviewView, int64, error) {
		return nil, 0, services.ErrServiceNotFound
	}}, nil)
	r404 := gin.New()
	r404.GET("/services/:id/reviews", h404.ListServiceReviews)
	w = httptest.NewRecorder()
	r404.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/services/"+uuid.NewString()+"/reviews", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown profile -> %d", w.Code)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var gotUnread bool
	svc := stubNotifSvc{
		list: func(_ context.Context, _ string, unread bool) ([]domain.Notification, error) {
			gotUnread = unread
			return []domain.Notification{{ID: "n1", Type: domain.NotificationNewRequest}}, nil
		},
	}
	h := newTestHandlers(nil, nil, nil, nil, svc)
	r := gin.New()
	r.GET("/notifications", h.ListNotifications)
	r.POST("/notifications/:id/read", h.MarkNotificationRead)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/notifications?unread=true", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !gotUnread {
		t.Fatalf("list unread -> %d (unread=%v)", w.Code, gotUnread)
	}
	var out NotificationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || len(out.Notifications) != 1 {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/notifications/"+uuid.NewString()+"/read", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("mark read -> %d", w.Code)
	}

	// Non-addressee sees 404.
	h404 := newTestHandlers(nil, nil, nil, nil, stubNotifSvc{markRead: func(context.Context, string, string) error {
		return services.ErrNotificationNotFound
	}})
	r404 := gin.New()
	r404.POST("/notifications/:id/read", h404.MarkNotificationRead)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/notifications/"+uuid.NewString()+"/read", nil)
	req.Header.Set("X-User-ID", "intruder")
	r404.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("non-addressee -> %d", w.Code)
	}
}
