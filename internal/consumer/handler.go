package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/johnohhh1/teri-suggestions/internal/history"
)

const (
	// EventSessionCompleted is emitted by the game runner when a couple
	// finishes an activity.
	EventSessionCompleted = "game.session_completed"
	// EventFeedbackRecorded is emitted when a partner rates an activity.
	EventFeedbackRecorded = "game.feedback_recorded"
)

type sessionCompletedPayload struct {
	ActivityID  string    `json:"activity_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type feedbackRecordedPayload struct {
	ActivityID string    `json:"activity_id"`
	Helpful    bool      `json:"helpful"`
	RecordedAt time.Time `json:"recorded_at"`
}

// HistoryHandler writes consumed game events into the play-history store.
type HistoryHandler struct {
	store  history.Store
	logger *log.Logger
}

// NewHistoryHandler constructs a handler backed by the provided store.
func NewHistoryHandler(store history.Store, logger *log.Logger) *HistoryHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[history-handler] ", log.LstdFlags)
	}
	return &HistoryHandler{store: store, logger: logger}
}

// Handle dispatches a decoded event to the store. Unknown event types are
// logged and skipped so new producers cannot wedge the consumer group.
func (h *HistoryHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case EventSessionCompleted:
		var payload sessionCompletedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode session_completed payload: %w", err)
		}
		if payload.ActivityID == "" {
			return fmt.Errorf("session_completed event missing activity_id")
		}
		if payload.CompletedAt.IsZero() {
			payload.CompletedAt = msg.Timestamp
		}
		return h.store.RecordPlay(ctx, msg.CoupleID, payload.ActivityID, payload.CompletedAt.UTC())

	case EventFeedbackRecorded:
		var payload feedbackRecordedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode feedback_recorded payload: %w", err)
		}
		if payload.ActivityID == "" {
			return fmt.Errorf("feedback_recorded event missing activity_id")
		}
		if payload.RecordedAt.IsZero() {
			payload.RecordedAt = msg.Timestamp
		}
		return h.store.RecordFeedback(ctx, msg.CoupleID, payload.ActivityID, payload.Helpful, payload.RecordedAt.UTC())

	default:
		h.logger.Printf("skipping unknown event type %q (topic=%s, offset=%d)", msg.EventType, msg.Topic, msg.Offset)
		return nil
	}
}
