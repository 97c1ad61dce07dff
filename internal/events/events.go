package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"drivemate/config"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type Channel string

func (c Channel) String() string {
	return string(c)
}

const (
	BROADCAST_CHANNEL Channel = "broadcast"
)

// SessionChannel is the per-session channel both participants' live views
// listen on. Every persistence write to a session publishes here.
func SessionChannel(sessionID uuid.UUID) Channel {
	return Channel("handover." + sessionID.String())
}

type MessageType string

const (
	PING              MessageType = "ping"
	PONG              MessageType = "pong"
	ERROR             MessageType = "error"
	SESSION_CREATED   MessageType = "session_created"
	STEPS_INITIALIZED MessageType = "steps_initialized"
	STEP_COMPLETED    MessageType = "step_completed"
	PROGRESS_UPDATED  MessageType = "progress_updated"
	DAMAGE_UPDATED    MessageType = "damage_updated"
	SESSION_COMPLETED MessageType = "session_completed"
	REPORT_CREATED    MessageType = "report_created"
	REPORT_FAILED     MessageType = "report_failed"
	// SYNC_UNAVAILABLE is dispatched locally when the pub/sub connection for a
	// channel drops, so subscribers can surface a distinct unavailable state
	// instead of freezing stale data.
	SYNC_UNAVAILABLE MessageType = "sync_unavailable"
)

type Event struct {
	ID        string         `json:"id"`
	Type      MessageType    `json:"type"`
	Channel   Channel        `json:"channel"`
	SessionID *uuid.UUID     `json:"sessionId,omitempty"`
	UserID    *uuid.UUID     `json:"userId,omitempty"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

type EventHandler func(event Event) error

// EventBus is the real-time sync channel between the two handover
// participants. Publishes go through valkey pub/sub so every API instance
// sees them; local handlers are notified directly as well. Delivery is
// at-least-once, so handlers must tolerate duplicates.
type EventBus struct {
	client   valkey.Client
	logger   logger.Logger
	config   config.Config
	handlers map[Channel][]EventHandler
	mutex    sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(client valkey.Client, config config.Config) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventBus{
		client:   client,
		logger:   logger.New("EventBus"),
		config:   config,
		handlers: make(map[Channel][]EventHandler),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (eb *EventBus) Publish(channel Channel, event Event) error {
	log := eb.logger.Function("Publish")

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Channel == "" {
		event.Channel = channel
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	// Without a pub/sub client the bus runs in local-only mode: same-process
	// subscribers still hear every event, nothing crosses instances.
	if eb.client == nil {
		eb.notifyLocalHandlers(channel, event)
		return nil
	}

	ctx, cancel := context.WithTimeout(eb.ctx, 5*time.Second)
	defer cancel()

	err = eb.client.Do(ctx, eb.client.B().Publish().Channel(channel.String()).Message(string(eventData)).Build()).
		Error()
	if err != nil {
		return log.Err(
			"failed to publish event to valkey",
			err,
			"channel", channel,
			"eventID", event.ID,
		)
	}

	log.Debug("Event published", "channel", channel, "eventID", event.ID, "eventType", event.Type)

	// Also notify local handlers
	eb.notifyLocalHandlers(channel, event)

	return nil
}

// PublishSessionEvent publishes to the session's own channel.
func (eb *EventBus) PublishSessionEvent(
	sessionID uuid.UUID,
	eventType MessageType,
	data map[string]any,
) error {
	return eb.Publish(SessionChannel(sessionID), Event{
		Type:      eventType,
		SessionID: &sessionID,
		Data:      data,
	})
}

func (eb *EventBus) Subscribe(channel Channel, handler EventHandler) error {
	log := eb.logger.Function("Subscribe")

	eb.mutex.Lock()
	existing := len(eb.handlers[channel])
	eb.handlers[channel] = append(eb.handlers[channel], handler)
	eb.mutex.Unlock()

	log.Info("Handler subscribed to channel", "channel", channel)

	// Only the first handler starts a valkey subscription for the channel;
	// later handlers piggyback on it. Local-only mode has no channel to
	// listen on.
	if existing == 0 && eb.client != nil {
		go eb.listenToChannel(channel)
	}

	return nil
}

func (eb *EventBus) notifyLocalHandlers(channel Channel, event Event) {
	log := eb.logger.Function("notifyLocalHandlers")

	eb.mutex.RLock()
	handlers, exists := eb.handlers[channel]
	eb.mutex.RUnlock()

	if !exists || len(handlers) == 0 {
		return
	}

	for i, handler := range handlers {
		go func(h EventHandler, handlerIndex int) {
			if err := h(event); err != nil {
				log.Er(
					"handler failed",
					err,
					"channel", channel,
					"eventID", event.ID,
					"handlerIndex", handlerIndex,
				)
			}
		}(handler, i)
	}
}

func (eb *EventBus) listenToChannel(channel Channel) {
	log := eb.logger.Function("listenToChannel")

	ctx, cancel := context.WithCancel(eb.ctx)
	defer cancel()

	log.Info("Starting to listen to channel", "channel", channel)

	err := eb.client.Receive(
		ctx,
		eb.client.B().Subscribe().Channel(channel.String()).Build(),
		func(msg valkey.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				log.Er("failed to unmarshal event", err, "channel", channel, "message", msg.Message)
				return
			}

			log.Debug(
				"Received event from valkey",
				"channel", channel,
				"eventID", event.ID,
				"eventType", event.Type,
			)
			eb.notifyLocalHandlers(channel, event)
		},
	)
	if err != nil && eb.ctx.Err() == nil {
		log.Er("channel subscription lost", err, "channel", channel)

		// Tell subscribers the sync channel is down; progress trackers must
		// not silently keep serving stale state.
		eb.notifyLocalHandlers(channel, Event{
			ID:        uuid.New().String(),
			Type:      SYNC_UNAVAILABLE,
			Channel:   channel,
			Data:      map[string]any{"error": err.Error()},
			Timestamp: time.Now(),
		})
	}
}

func (eb *EventBus) Close() error {
	log := eb.logger.Function("Close")

	eb.cancel()

	log.Info("EventBus closed")
	return nil
}
