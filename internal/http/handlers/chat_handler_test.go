package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/repo"
	"github.com/servx/servx-server/internal/services"
)

func TestPostMessage_ProposalForwarding(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rid := uuid.NewString()

	var gotProposal *domain.BookingProposal
	svc := stubChatSvc{send: func(_ context.Context, sid, gotRID, content, hint string, p *domain.BookingProposal) (*domain.ChatMessage, error) {
		gotProposal = p
		return &domain.ChatMessage{ID: "m1", ServiceRequestID: gotRID, SenderID: sid, Content: content, Proposal: p}, nil
	}}
	h := newTestHandlers(nil, nil, svc, nil, nil)
	r := gin.New()
	r.POST("/requests/:id/messages", h.PostMessage)

	body := `{
		"content": "how about Thursday?",
		"proposal": {"agreed_date_time": "2026-09-03T14:00:00Z", "duration_minutes": 90, "price_min": 45}
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/"+rid+"/messages", bytes.NewBufferString(body))
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("post -> %d body=%s", w.Code, w.Body.String())
	}
	if gotProposal == nil || gotProposal.DurationMinutes != 90 || gotProposal.PriceMin == nil || *gotProposal.PriceMin != 45 {
		t.Fatalf("proposal not forwarded: %+v", gotProposal)
	}
	want := time.Date(2026, 9, 3, 14, 0, 0, 0, time.UTC)
	if !gotProposal.AgreedDateTime.Equal(want) {
		t.Fatalf("agreed time wrong: %v", gotProposal.AgreedDateTime)
	}

	// Empty content fails binding.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/requests/"+rid+"/messages", bytes.NewBufferString(`{"content":""}`))
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty content -> %d", w.Code)
	}

	// Inactive chat maps to 409.
	h409 := newTestHandlers(nil, nil, stubChatSvc{send: func(context.Context, string, string, string, string, *domain.BookingProposal) (*domain.ChatMessage, error) {
		return nil, services.ErrChatInactive
	}}, nil, nil)
	r409 := gin.New()
	r409.POST("/requests/:id/messages", h409.PostMessage)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/requests/"+rid+"/messages", bytes.NewBufferString(`{"content":"hi"}`))
	req.Header.Set("X-User-ID", "u1")
	r409.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("inactive chat -> %d", w.Code)
	}
}

func TestMarkThreadRead_ReportsCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandlers(nil, nil, stubChatSvc{markRead: func(context.Context, string, string) (int64, error) {
		return 3, nil
	}}, nil, nil)
	r := gin.New()
	r.POST("/requests/:id/messages/read", h.MarkThreadRead)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/requests/"+uuid.NewString()+"/messages/read", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("mark read -> %d", w.Code)
	}
	var out MarkReadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Updated != 3 {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}
}

func TestListConversations_ETag304(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newHandlerDB(t)
	svc := &services.ChatService{DB: db}
	h := newTestHandlers(nil, nil, svc, nil, nil)

	g := seedHandlerGraph(t, db)
	if _, err := repo.CreateChatMessage(context.Background(), db, g.Request.ID, g.Provider.ID, g.Seeker.ID, "hello", nil); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	r := gin.New()
	r.GET("/conversations", h.ListConversations)

	// First fetch yields the inbox plus an ETag.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("X-User-ID", g.Seeker.ID)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d body=%s", w.Code, w.Body.String())
	}
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("expected an ETag header")
	}
	var out ConversationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || len(out.Conversations) != 1 {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}

	// Replaying it with If-None-Match short-circuits to 304.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("X-User-ID", g.Seeker.ID)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified {
		t.Fatalf("etag replay -> %d", w.Code)
	}

	// Reading the thread changes the unread count, so the tag must go stale
	// even though no message rows were added.
	if _, err := svc.MarkRead(context.Background(), g.Seeker.ID, g.Request.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("X-User-ID", g.Seeker.ID)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("etag must not survive a read receipt, got %d", w.Code)
	}
	out = ConversationsResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || len(out.Conversations) != 1 {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}
	if out.Conversations[0].UnreadCount != 0 {
		t.Fatalf("expected unread=0 after read receipt, got %d", out.Conversations[0].UnreadCount)
	}
	etag = w.Header().Get("ETag")

	// New activity invalidates the tag again.
	if _, err := repo.CreateChatMessage(context.Background(), db, g.Request.ID, g.Seeker.ID, g.Provider.ID, "reply", nil); err != nil {
		t.Fatalf("seed reply: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("X-User-ID", g.Seeker.ID)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stale etag -> %d", w.Code)
	}
}

// ---------- in-memory DB helpers for concrete-service tests ----------

type handlerGraph struct {
	Seeker   *domain.User
	Provider *domain.User
	Profile  *domain.ServiceProfile
	Request  *domain.ServiceRequest
}

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedHandlerGraph(t *testing.T, db *gorm.DB) handlerGraph {
	t.Helper()
	seeker := &domain.User{ID: uuid.NewString(), FirstName: "Sam", LastName: "Seeker", Email: uuid.NewString() + "@example.test", Role: "SEEKER"}
	provider := &domain.User{ID: uuid.NewString(), FirstName: "Pat", LastName: "Provider", Email: uuid.NewString() + "@example.test", Role: "PROVIDER"}
	for _, u := range []*domain.User{seeker, provider} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	profile := &domain.ServiceProfile{ID: uuid.NewString(), ProviderID: provider.ID, CategoryName: "Plumbing", AreaName: "Centrum", Price: 60}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	reqRow := &domain.ServiceRequest{
		ID:          uuid.NewString(),
		Description: "leaking sink",
		Severity:    domain.SeverityMedium,
		Status:      domain.RequestAccepted,
		AddressLine: "Main St 1",
		City:        "Utrecht",
		ZipCode:     "3511",
		Country:     "NL",
		ServiceID:   profile.ID,
		SeekerID:    seeker.ID,
		ProviderID:  provider.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.Create(reqRow).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return handlerGraph{Seeker: seeker, Provider: provider, Profile: profile, Request: reqRow}
}
