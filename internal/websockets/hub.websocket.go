package websockets

import (
	"sync"
	"time"

	"drivemate/internal/events"

	"github.com/google/uuid"
)

const (
	STATUS_UNAUTHENTICATED = iota
	STATUS_AUTHENTICATED
	STATUS_CLOSED
)

type Hub struct {
	register    chan *Client
	unregister  chan *Client
	clients     map[string]*Client
	sessionSubs map[uuid.UUID]map[string]*Client
	// eventStreams tracks which session channels already have a bus
	// subscription; bus subscriptions live for the process lifetime.
	eventStreams map[uuid.UUID]bool
	mutex        sync.RWMutex
}

func (h *Hub) run(m *Manager) {
	for {
		select {
		case client := <-h.register:
			m.registerClient(client)

		case client := <-h.unregister:
			func() {
				defer func() {
					if r := recover(); r != nil {
						_ = r // Explicitly ignore recovered value
					}
				}()
				close(client.send)
			}()
			m.unregisterClient(client)
		}
	}
}

func (m *Manager) registerClient(client *Client) {
	log := m.log.Function("registerClient")

	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	m.hub.clients[client.ID] = client

	log.Info("Client registered", "clientID", client.ID)
}

func (m *Manager) unregisterClient(client *Client) {
	log := m.log.Function("unregisterClient")

	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	delete(m.hub.clients, client.ID)
	for sessionID, subs := range m.hub.sessionSubs {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(m.hub.sessionSubs, sessionID)
		}
	}

	log.Info("Client unregistered", "clientID", client.ID, "userID", client.UserID)
}

// addSessionSubscriber attaches the client to a session's fanout set and
// lazily opens the bus subscription the first time anyone watches the
// session on this instance.
func (m *Manager) addSessionSubscriber(sessionID uuid.UUID, client *Client) {
	log := m.log.Function("addSessionSubscriber")

	m.hub.mutex.Lock()
	if m.hub.sessionSubs[sessionID] == nil {
		m.hub.sessionSubs[sessionID] = make(map[string]*Client)
	}
	m.hub.sessionSubs[sessionID][client.ID] = client

	needStream := !m.hub.eventStreams[sessionID]
	if needStream {
		m.hub.eventStreams[sessionID] = true
	}
	m.hub.mutex.Unlock()

	if !needStream {
		return
	}

	err := m.eventBus.Subscribe(events.SessionChannel(sessionID), func(event events.Event) error {
		m.forwardSessionEvent(sessionID, event)
		return nil
	})
	if err != nil {
		log.Er("failed to subscribe to session channel", err, "sessionID", sessionID)
	}
}

func (m *Manager) removeSessionSubscriber(sessionID uuid.UUID, client *Client) {
	m.hub.mutex.Lock()
	defer m.hub.mutex.Unlock()

	if subs, ok := m.hub.sessionSubs[sessionID]; ok {
		delete(subs, client.ID)
		if len(subs) == 0 {
			delete(m.hub.sessionSubs, sessionID)
		}
	}
}

// forwardSessionEvent fans a session event out to every connected
// subscriber. Slow clients get a bounded retry and are then disconnected so
// one stuck socket cannot stall the session's stream.
func (m *Manager) forwardSessionEvent(sessionID uuid.UUID, event events.Event) {
	log := m.log.Function("forwardSessionEvent")

	message := Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_SESSION_EVENT,
		SessionID: sessionID.String(),
		Data: map[string]any{
			"eventType": string(event.Type),
			"payload":   event.Data,
		},
		Timestamp: time.Now(),
	}

	m.hub.mutex.RLock()
	subs := make([]*Client, 0, len(m.hub.sessionSubs[sessionID]))
	for _, client := range m.hub.sessionSubs[sessionID] {
		subs = append(subs, client)
	}
	m.hub.mutex.RUnlock()

	for _, client := range subs {
		if client.Status != STATUS_AUTHENTICATED {
			continue
		}

		select {
		case client.send <- message:
		default:
			go func(c *Client, msg Message) {
				select {
				case c.send <- msg:
				case <-time.After(5 * time.Second):
					_ = log.Error("Client too slow, disconnecting", "clientID", c.ID)
					m.hub.unregister <- c
				}
			}(client, message)
		}
	}
}
