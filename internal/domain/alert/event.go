package alert

import "time"

// EventType 標示稽核事件的種類。
type EventType string

const EventEmailSent EventType = "email_sent"

// Event 是一筆 append-only 的稽核紀錄。
type Event struct {
	ID        string
	AlertID   int64
	Type      EventType
	Payload   EventPayload
	CreatedAt time.Time
}

// EventPayload 記錄寄出內容的快照。
type EventPayload struct {
	MessageID  string          `json:"message_id,omitempty"`
	Total      int             `json:"total"`
	Properties []EventProperty `json:"properties"`
}

// EventProperty 是快照中的單筆房產摘要。
type EventProperty struct {
	ID      int64  `json:"id"`
	Address string `json:"address"`
}
