package notifications

import (
	"context"
	"encoding/json"
	"time"

	"secretheart/internal/models"
)

// EventType names a live feed event.
type EventType string

const (
	EventConfessionCreated EventType = "confession_created"
	EventConfessionLiked   EventType = "confession_liked"
	// EventMessagesDropped is sent in place of frames a slow subscriber
	// missed; the subscriber should reload the list.
	EventMessagesDropped EventType = "messages_dropped"
)

// Event is the JSON frame pushed to live feed subscribers.
type Event struct {
	Type       EventType         `json:"type"`
	Confession models.Confession `json:"confession"`
	At         time.Time         `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(t EventType, c models.Confession) Event {
	return Event{Type: t, Confession: c, At: time.Now().UTC()}
}

// Publisher fans feed events out to subscribers. With a Notifier the event
// goes through Redis pub/sub so every instance's hub receives it; without
// one it is broadcast on the local hub directly.
type Publisher struct {
	notifier *Notifier
	hub      *Hub
}

// NewPublisher builds a Publisher. Either argument may be nil.
func NewPublisher(n *Notifier, h *Hub) *Publisher {
	return &Publisher{notifier: n, hub: h}
}

// Publish encodes ev and delivers it.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if p.notifier != nil && p.notifier.Enabled() {
		return p.notifier.PublishFeed(ctx, string(payload))
	}
	if p.hub != nil {
		p.hub.BroadcastAll(payload)
	}
	return nil
}
