package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"crewchat/models"
	"crewchat/store"
)

// Broadcaster fans an accepted message out to the live connections of both
// participants. Delivery is fire-and-forget: implementations must not block
// the send path and no acknowledgment is awaited.
type Broadcaster interface {
	BroadcastMessage(senderID, receiverID string, msg models.Message)
}

// Notifier delivers an out-of-band notification to a receiver who may not be
// connected. Implementations must be asynchronous and failure-tolerant.
type Notifier interface {
	NotifyMessage(receiverID, senderID, text string)
}

// SendInput is the send_message event payload.
type SendInput struct {
	SenderID    string `json:"senderId" validate:"required"`
	ReceiverID  string `json:"receiverId" validate:"required"`
	MessageText string `json:"messageText" validate:"required,max=4096"`
}

// TracedChat is one side of a bilateral conversation as seen by its owner,
// extracted for the oversight trace.
type TracedChat struct {
	UserID          string           `json:"userId"`
	CoworkerID      string           `json:"coworkerId"`
	MessageSent     []models.Message `json:"messageSent"`
	MessageReceived []models.Message `json:"messageReceived"`
}

// Service implements message ingestion and the read-side queries over the
// dual per-user chat documents.
type Service struct {
	store       store.ChatStore
	broadcaster Broadcaster
	notifier    Notifier
	validate    *validator.Validate
}

// NewService wires the ingestion pipeline. notifier may be nil when push
// delivery is disabled.
func NewService(st store.ChatStore, b Broadcaster, n Notifier) *Service {
	return &Service{
		store:       st,
		broadcaster: b,
		notifier:    n,
		validate:    validator.New(),
	}
}

// Send appends the message to the sender's outgoing log and the receiver's
// incoming log, then broadcasts it to both rooms. The two appends are
// independent single-document writes: if the receiver-side append fails the
// sender's log keeps the entry, nothing is rolled back and no delivery is
// emitted. The persisted timestamp is the one broadcast.
func (s *Service) Send(ctx context.Context, in SendInput) (models.Message, error) {
	if err := s.validate.Struct(in); err != nil {
		return models.Message{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msg := models.Message{
		Text:      in.MessageText,
		Timestamp: time.Now().UTC(),
	}

	if err := s.store.AppendSent(ctx, in.SenderID, in.ReceiverID, msg); err != nil {
		return models.Message{}, fmt.Errorf("%w: sender log: %v", ErrPersistence, err)
	}
	if err := s.store.AppendReceived(ctx, in.ReceiverID, in.SenderID, msg); err != nil {
		// Sender-side entry is already durable at this point.
		return models.Message{}, fmt.Errorf("%w: receiver log: %v", ErrPersistence, err)
	}

	s.broadcaster.BroadcastMessage(in.SenderID, in.ReceiverID, msg)

	if s.notifier != nil {
		s.notifier.NotifyMessage(in.ReceiverID, in.SenderID, in.MessageText)
	}

	return msg, nil
}

// GetThread returns the conversation entry userID holds for coworkerID.
// A missing document or missing entry is an empty result, never an error.
func (s *Service) GetThread(ctx context.Context, userID, coworkerID string) ([]models.CoworkerChat, error) {
	if userID == "" || coworkerID == "" {
		return nil, fmt.Errorf("%w: userId and coworkerId are required", ErrValidation)
	}

	doc, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	thread, ok := doc.Thread(coworkerID)
	if !ok {
		return []models.CoworkerChat{}, nil
	}
	return []models.CoworkerChat{thread}, nil
}

// TraceBetween reconstructs the bilateral conversation between two users by
// reading both participants' documents and concatenating the per-side views.
// No single document holds the full picture, so both sides are inspected.
func (s *Service) TraceBetween(ctx context.Context, employeeID1, employeeID2 string) ([]TracedChat, error) {
	if employeeID1 == "" || employeeID2 == "" {
		return nil, fmt.Errorf("%w: both employee ids are required", ErrValidation)
	}

	docs, err := s.store.FindBetween(ctx, employeeID1, employeeID2)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	traced := []TracedChat{}
	for _, doc := range docs {
		other := employeeID2
		if doc.UserID == employeeID2 {
			other = employeeID1
		}

		matches := lo.Filter(doc.CoworkerChats, func(cw models.CoworkerChat, _ int) bool {
			return cw.CoworkerID == other
		})
		traced = append(traced, lo.Map(matches, func(cw models.CoworkerChat, _ int) TracedChat {
			return TracedChat{
				UserID:          doc.UserID,
				CoworkerID:      cw.CoworkerID,
				MessageSent:     cw.MessageSent,
				MessageReceived: cw.MessageReceived,
			}
		})...)
	}
	return traced, nil
}
