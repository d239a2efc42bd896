// Package events publishes domain events about memories.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"memorygrid-backend/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/google/uuid"
)

const (
	// DefaultSource is the EventBridge source of every event.
	DefaultSource = "memorygrid.api"
	// MemoryCreatedType is the detail type of MemoryCreated.
	MemoryCreatedType = "MemoryCreated"
)

// MemoryCreated is emitted after a memory has been stored.
type MemoryCreated struct {
	EventID     string            `json:"eventId"`
	MemoryID    string            `json:"memoryId"`
	OwnerID     string            `json:"ownerId"`
	Category    string            `json:"category"`
	Visibility  domain.Visibility `json:"visibility"`
	Title       string            `json:"title,omitempty"`
	Content     string            `json:"content,omitempty"`
	AuthorLabel string            `json:"authorLabel,omitempty"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// NewMemoryCreated builds the event for m. Text and author of private memories stay out
// of the payload.
func NewMemoryCreated(m domain.Memory, at time.Time) MemoryCreated {
	e := MemoryCreated{
		EventID:    uuid.NewString(),
		MemoryID:   m.ID,
		OwnerID:    m.OwnerID,
		Category:   string(m.Category),
		Visibility: m.Visibility,
		OccurredAt: at.UTC(),
	}
	if m.IsPublic() {
		e.Title = m.Title
		e.Content = m.Content
		if m.AuthorLabel != nil {
			e.AuthorLabel = *m.AuthorLabel
		}
	}
	return e
}

// Publisher hands events to a bus.
type Publisher interface {
	Publish(ctx context.Context, event MemoryCreated) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, MemoryCreated) error { return nil }

// PutEventsAPI is the part of the EventBridge client used by the publisher.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher implements Publisher using AWS EventBridge
type EventBridgePublisher struct {
	client   PutEventsAPI
	eventBus string
	source   string
}

// NewEventBridgePublisher creates a new EventBridge publisher
func NewEventBridgePublisher(client PutEventsAPI, eventBus, source string) *EventBridgePublisher {
	if eventBus == "" {
		eventBus = "default"
	}
	if source == "" {
		source = DefaultSource
	}
	return &EventBridgePublisher{
		client:   client,
		eventBus: eventBus,
		source:   source,
	}
}

// Publish sends a single entry.
func (p *EventBridgePublisher) Publish(ctx context.Context, event MemoryCreated) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	output, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{{
			EventBusName: aws.String(p.eventBus),
			Source:       aws.String(p.source),
			DetailType:   aws.String(MemoryCreatedType),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.OccurredAt),
			Resources:    []string{event.MemoryID},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to put events: %w", err)
	}

	if output.FailedEntryCount > 0 {
		msg := "unknown"
		if len(output.Entries) > 0 && output.Entries[0].ErrorMessage != nil {
			msg = *output.Entries[0].ErrorMessage
		}
		return fmt.Errorf("event %s rejected: %s", event.EventID, msg)
	}
	return nil
}
