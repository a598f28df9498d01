// Package events defines the notification types emitted when backlog data
// changes. Consumers use them to invalidate caches and feed activity feeds.
package events

import (
	"time"
)

type EventType string

// Topic is the single stream all backlog events are published on.
const Topic = "backlogd.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow definition lifecycle.
	WorkflowDefinitionSavedEvent   EventType = "workflow_definition.saved"
	WorkflowDefinitionDeletedEvent EventType = "workflow_definition.deleted"

	// Backlog item lifecycle.
	BacklogItemCreatedEvent      EventType = "backlog_item.created"
	BacklogItemStateChangedEvent EventType = "backlog_item.state_changed"
	BacklogItemAssignedEvent     EventType = "backlog_item.assigned"
	BacklogItemRemovedEvent      EventType = "backlog_item.removed"

	// Sprint lifecycle.
	SprintOpenedEvent EventType = "sprint.opened"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkflowDefinitionSaved is emitted after a definition is created or
// edited. Every engine instance must drop its cached index for the name.
type WorkflowDefinitionSaved struct {
	BaseEvent

	WorkflowName string `json:"workflow_name"`
}

func (w WorkflowDefinitionSaved) GetType() EventType {
	return WorkflowDefinitionSavedEvent
}

// WorkflowDefinitionDeleted is emitted after a definition is removed.
type WorkflowDefinitionDeleted struct {
	BaseEvent

	WorkflowName string `json:"workflow_name"`
}

func (w WorkflowDefinitionDeleted) GetType() EventType {
	return WorkflowDefinitionDeletedEvent
}

type BacklogItemCreated struct {
	BaseEvent

	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
}

func (b BacklogItemCreated) GetType() EventType {
	return BacklogItemCreatedEvent
}

type BacklogItemStateChanged struct {
	BaseEvent

	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
}

func (b BacklogItemStateChanged) GetType() EventType {
	return BacklogItemStateChangedEvent
}

type BacklogItemAssigned struct {
	BaseEvent

	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
	SprintID  string `json:"sprint_id"`
}

func (b BacklogItemAssigned) GetType() EventType {
	return BacklogItemAssignedEvent
}

type BacklogItemRemoved struct {
	BaseEvent

	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id"`
}

func (b BacklogItemRemoved) GetType() EventType {
	return BacklogItemRemovedEvent
}

type SprintOpened struct {
	BaseEvent

	SprintID  string `json:"sprint_id"`
	ProductID string `json:"product_id"`
	Number    int    `json:"number"`
}

func (s SprintOpened) GetType() EventType {
	return SprintOpenedEvent
}
