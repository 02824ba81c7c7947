// Package line implements the LINE Messaging API surface: webhook event
// types, signature verification, and the outbound reply/push client.
package line

// WebhookBatch is the body of one webhook delivery: an ordered set of events.
type WebhookBatch struct {
	Destination string  `json:"destination,omitempty"`
	Events      []Event `json:"events"`
}

// Event is a single webhook event. Only type "message" with a text message
// is actionable; every other shape is skipped by the relay.
type Event struct {
	Type            string           `json:"type"`
	WebhookEventID  string           `json:"webhookEventId,omitempty"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
	Timestamp       int64            `json:"timestamp,omitempty"`
	Mode            string           `json:"mode,omitempty"`
	ReplyToken      string           `json:"replyToken,omitempty"`
	Source          Source           `json:"source"`
	Message         *Message         `json:"message,omitempty"`
}

// DeliveryContext tells whether the platform is redelivering this event.
// Logged for operators; never used to dedup (no event-id cache exists).
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// Source identifies where an event came from. UserID is the durable
// recipient identifier usable for push, independent of the reply token.
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// Message is the message payload of a message event.
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// IsTextMessage reports whether the event is an actionable text message.
func (e Event) IsTextMessage() bool {
	return e.Type == "message" && e.Message != nil && e.Message.Type == "text"
}
