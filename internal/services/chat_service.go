// Package services – ChatService
//
// This file implements the negotiation chat that lives on a service request.
// Messaging is gated on the request status: the thread opens when the
// provider accepts and stays open after a booking is confirmed. The recipient
// of a message is always computed as the other party of the request; a
// caller-supplied recipient is only accepted as a cross-check.
package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/repo"
)

// ConversationSummary is one row of a user's inbox: the request the thread
// hangs off, the counterpart's display identity, the latest message if any,
// and the unread count for the viewing user.
type ConversationSummary struct {
	RequestID          string               `json:"request_id"`
	RequestStatus      domain.RequestStatus `json:"request_status"`
	Active             bool                 `json:"active"`
	OtherPartyID       string               `json:"other_party_id"`
	OtherPartyName     string               `json:"other_party_name"`
	OtherPartyPhotoURL string               `json:"other_party_photo_url,omitempty"`
	LastMessage        *domain.ChatMessage  `json:"last_message,omitempty"`
	LastActivity       time.Time            `json:"last_activity"`
	UnreadCount        int64                `json:"unread_count"`
}

// ChatService implements the messaging use-cases.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Push is the optional realtime channel; nil disables forwarding.
	Push Pusher
}

// Send appends a message to the request's thread. The request must be in a
// chat-active status and the sender must be one of its parties; the recipient
// is derived, and recipientHint (when non-empty) must agree with it. The
// optional proposal rides along as structured data.
func (s *ChatService) Send(ctx context.Context, senderID, requestID, content, recipientHint string, proposal *domain.BookingProposal) (*domain.ChatMessage, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("user.id", senderID),
			attribute.String("request.id", requestID),
			attribute.Bool("chat.has_proposal", proposal != nil),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	req, err := repo.GetServiceRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	recipient, ok := req.OtherParty(senderID)
	if !ok {
		return nil, ErrNotParticipant
	}
	if !domain.ChatActive(req.Status) {
		return nil, ErrChatInactive
	}
	if recipientHint != "" && recipientHint != recipient {
		return nil, ErrRecipientMismatch
	}

	msg, err := repo.CreateChatMessage(ctx, s.DB, req.ID, senderID, recipient, content, proposal)
	if err != nil {
		return nil, err
	}
	if s.Push != nil {
		s.Push.Push(recipient, msg)
	}
	return msg, nil
}

// Conversations builds the user's inbox across every request the user is a
// party to, newest activity first. Threads without messages sort by the
// request's creation time, so a freshly accepted request surfaces even before
// the first message.
func (s *ChatService) Conversations(ctx context.Context, userID string) ([]ConversationSummary, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Conversations",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	reqs, err := repo.ListRequestsForUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return []ConversationSummary{}, nil
	}

	otherIDs := make([]string, 0, len(reqs))
	for i := range reqs {
		if other, ok := reqs[i].OtherParty(userID); ok {
			otherIDs = append(otherIDs, other)
		}
	}
	users, err := repo.GetUsers(ctx, s.DB, otherIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, 0, len(reqs))
	for i := range reqs {
		req := &reqs[i]
		other, _ := req.OtherParty(userID)

		summary := ConversationSummary{
			RequestID:     req.ID,
			RequestStatus: req.Status,
			Active:        domain.ChatActive(req.Status),
			OtherPartyID:  other,
			LastActivity:  req.CreatedAt,
		}
		if u, ok := users[other]; ok {
			summary.OtherPartyName = u.FullName()
			summary.OtherPartyPhotoURL = u.PhotoURL
		}

		last, err := repo.LatestMessage(ctx, s.DB, req.ID)
		switch {
		case err == nil:
			summary.LastMessage = last
			summary.LastActivity = last.CreatedAt
		case errors.Is(err, repo.ErrNotFound):
			// empty thread, keep the request timestamp
		default:
			return nil, err
		}

		unread, err := repo.CountUnread(ctx, s.DB, req.ID, userID)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		out = append(out, summary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out, nil
}

// History returns one page of a request's thread, newest first, plus the
// total message count. Only the request's parties may read it.
func (s *ChatService) History(ctx context.Context, userID, requestID string, page, pageSize int) ([]domain.ChatMessage, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}

	req, err := repo.GetServiceRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrRequestNotFound
		}
		return nil, 0, err
	}
	if _, ok := req.OtherParty(userID); !ok {
		return nil, 0, ErrNotParticipant
	}

	total, err := repo.CountMessages(ctx, s.DB, req.ID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ChatMessage{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, req.ID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkRead marks every unread message addressed to the caller in the thread
// as read and returns how many were affected. Calling it again is a no-op.
func (s *ChatService) MarkRead(ctx context.Context, userID, requestID string) (int64, error) {
	req, err := repo.GetServiceRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, ErrRequestNotFound
		}
		return 0, err
	}
	if _, ok := req.OtherParty(userID); !ok {
		return 0, ErrNotParticipant
	}
	return repo.MarkMessagesRead(ctx, s.DB, req.ID, userID)
}
