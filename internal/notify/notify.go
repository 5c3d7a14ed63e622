package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event is one workflow hand-off emitted by the engine. Delivery is
// fire-and-forget: the engine never awaits or acts on the result.
type Event struct {
	Type         string    `json:"type"`
	TemplateID   string    `json:"templateId"`
	AssignmentID string    `json:"assignmentId"`
	RootID       string    `json:"rootId"`
	ActorID      string    `json:"actorId"`
	TargetID     string    `json:"targetId,omitempty"`
	Remarks      string    `json:"remarks,omitempty"`
	At           time.Time `json:"at"`
}

const (
	EventDelegated = "workflow.delegated"
	EventFinalized = "workflow.finalized"
	EventApproved  = "workflow.approved"
	EventRouted    = "workflow.routed"
	EventSubmitted = "workflow.submitted"
)

type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// LogSink writes events to the service log. Used when no broker is configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(_ context.Context, event Event) error {
	s.log.Info("workflow event",
		zap.String("type", event.Type),
		zap.String("templateId", event.TemplateID),
		zap.String("assignmentId", event.AssignmentID),
		zap.String("actorId", event.ActorID),
		zap.String("targetId", event.TargetID),
	)
	return nil
}
