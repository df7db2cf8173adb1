package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeAuditCompleted is sent after a find operation
	EventTypeAuditCompleted EventType = "audit_completed"
	// EventTypeReplaceCompleted is sent after a bulk replace
	EventTypeReplaceCompleted EventType = "replace_completed"
	// EventTypeImportCommitted is sent when imported rules are persisted
	EventTypeImportCommitted EventType = "import_committed"
	// EventTypeRulesChanged is sent when a rule is added or deleted by hand
	EventTypeRulesChanged EventType = "rules_changed"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	EventTypePong       EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// AuditEvent summarises a completed audit
type AuditEvent struct {
	SearchURL   string `json:"search_url"`
	TotalFound  int    `json:"total_found"`
	Locations   int    `json:"locations"`
	Fingerprint string `json:"fingerprint"`
}

// ReplaceEvent summarises a completed bulk replace
type ReplaceEvent struct {
	FromURL           string           `json:"from_url"`
	ToURL             string           `json:"to_url"`
	TotalReplacements int64            `json:"total_replacements"`
	BySource          map[string]int64 `json:"by_source"`
	RuleRetired       bool             `json:"rule_retired"`
}

// RulesEvent reports the rule list after a change
type RulesEvent struct {
	Action     string `json:"action"` // "import", "add", "delete", "retire"
	Changed    int    `json:"changed"`
	TotalRules int    `json:"total_rules"`
	Version    int64  `json:"version"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string              `json:"type"`
	Data SubscriptionRequest `json:"data"`
}

// SubscriptionRequest narrows the event types a client receives
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}
