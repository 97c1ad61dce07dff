package websockets

import (
	"context"
	"time"

	"drivemate/config"
	"drivemate/internal/database"
	"drivemate/internal/events"
	"drivemate/internal/repositories"
	"drivemate/internal/services"

	logger "github.com/Bparsons0904/goLogger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	MESSAGE_TYPE_PING              = "ping"
	MESSAGE_TYPE_PONG              = "pong"
	MESSAGE_TYPE_ERROR             = "error"
	MESSAGE_TYPE_AUTH_REQUEST      = "auth_request"
	MESSAGE_TYPE_AUTH_RESPONSE     = "auth_response"
	MESSAGE_TYPE_AUTH_SUCCESS      = "auth_success"
	MESSAGE_TYPE_AUTH_FAILURE      = "auth_failure"
	MESSAGE_TYPE_SUBSCRIBE         = "session_subscribe"
	MESSAGE_TYPE_UNSUBSCRIBE       = "session_unsubscribe"
	MESSAGE_TYPE_SUBSCRIBED        = "session_subscribed"
	MESSAGE_TYPE_SESSION_EVENT     = "session_event"
	PING_INTERVAL                  = 30 * time.Second
	PONG_TIMEOUT                   = 60 * time.Second
	WRITE_TIMEOUT                  = 10 * time.Second
	MAX_MESSAGE_SIZE               = 1024 * 1024 // 1 MB
	SEND_CHANNEL_SIZE              = 64
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Client struct {
	ID         string
	UserID     uuid.UUID
	Connection *websocket.Conn
	Manager    *Manager
	Status     int
	send       chan Message
}

// Manager owns the live connections for handover participants. After the
// auth handshake a client subscribes to its session channel and receives
// every event the session publishes, including the degraded-sync signal.
type Manager struct {
	hub         *Hub
	db          database.DB
	config      config.Config
	log         logger.Logger
	eventBus    *events.EventBus
	authService *services.AuthService
	sessionRepo repositories.HandoverSessionRepository
}

func New(
	db database.DB,
	eventBus *events.EventBus,
	config config.Config,
	authService *services.AuthService,
	sessionRepo repositories.HandoverSessionRepository,
) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub: &Hub{
			register:     make(chan *Client),
			unregister:   make(chan *Client),
			clients:      make(map[string]*Client),
			sessionSubs:  make(map[uuid.UUID]map[string]*Client),
			eventStreams: make(map[uuid.UUID]bool),
		},
		db:          db,
		config:      config,
		log:         log,
		eventBus:    eventBus,
		authService: authService,
		sessionRepo: sessionRepo,
	}

	log.Function("New").Info("Starting websocket hub")
	go manager.hub.run(manager)

	return manager, nil
}

func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	log := m.log.Function("HandleWebSocket")
	clientID := uuid.New().String()

	client := &Client{
		ID:         clientID,
		UserID:     uuid.Nil,
		Connection: c,
		Manager:    m,
		Status:     STATUS_UNAUTHENTICATED,
		send:       make(chan Message, SEND_CHANNEL_SIZE),
	}

	authRequest := Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_REQUEST,
		Timestamp: time.Now(),
	}

	if err := c.WriteJSON(authRequest); err != nil {
		log.Er("failed to send auth request", err)
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
		return
	}

	m.hub.register <- client
	defer func() {
		m.hub.unregister <- client
		if err := c.Close(); err != nil {
			log.Er("failed to close connection", err)
		}
	}()

	go client.readPump()
	client.writePump()
}

func (c *Client) readPump() {
	log := c.Manager.log.Function("readPump")
	defer func() {
		c.Manager.hub.unregister <- c
		_ = c.Connection.Close()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
		log.Er("failed to set read deadline", err, "clientID", c.ID)
	}
	c.Connection.SetPongHandler(func(string) error {
		if err := c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT)); err != nil {
			log.Er("failed to set read deadline in pong handler", err, "clientID", c.ID)
		}
		return nil
	})

	for {
		var message Message
		err := c.Connection.ReadJSON(&message)
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				log.Er("Unexpected close error", err, "clientID", c.ID)
			}
			break
		}

		message.ID = uuid.New().String()
		message.Timestamp = time.Now()

		c.routeMessage(message)
	}
}

func (c *Client) routeMessage(message Message) {
	log := c.Manager.log.Function("routeMessage")

	if message.Type == MESSAGE_TYPE_AUTH_RESPONSE {
		c.handleAuthResponse(message)
		return
	}

	if c.Status == STATUS_UNAUTHENTICATED {
		log.Warn(
			"Blocking message from unauthenticated client",
			"clientID", c.ID,
			"messageType", message.Type,
		)
		c.send <- Message{
			ID:        uuid.New().String(),
			Type:      MESSAGE_TYPE_AUTH_FAILURE,
			Data:      map[string]any{"reason": "Authentication required"},
			Timestamp: time.Now(),
		}
		return
	}

	switch message.Type {
	case MESSAGE_TYPE_PING:
		c.send <- Message{
			ID:        uuid.New().String(),
			Type:      MESSAGE_TYPE_PONG,
			Timestamp: time.Now(),
		}
	case MESSAGE_TYPE_SUBSCRIBE:
		c.handleSessionSubscribe(message)
	case MESSAGE_TYPE_UNSUBSCRIBE:
		c.handleSessionUnsubscribe(message)
	default:
		log.Warn("Unknown message type", "type", message.Type, "clientID", c.ID)
	}
}

func (c *Client) handleAuthResponse(message Message) {
	log := c.Manager.log.Function("handleAuthResponse")

	if c.Status != STATUS_UNAUTHENTICATED {
		log.Warn("Auth response from already authenticated client", "clientID", c.ID)
		return
	}

	token, ok := message.Data["token"].(string)
	if !ok || token == "" {
		log.Warn("Invalid token in auth response", "clientID", c.ID)
		c.sendAuthFailure("Invalid token format")
		return
	}

	userID, err := c.Manager.authService.ValidateToken(token)
	if err != nil {
		log.Warn("Token validation failed", "clientID", c.ID, "error", err.Error())
		c.sendAuthFailure("Invalid token")
		return
	}

	c.UserID = userID
	c.Status = STATUS_AUTHENTICATED

	log.Info("Client authenticated", "clientID", c.ID, "userID", c.UserID)

	c.send <- Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_SUCCESS,
		Data:      map[string]any{"userId": c.UserID.String()},
		Timestamp: time.Now(),
	}
}

func (c *Client) handleSessionSubscribe(message Message) {
	log := c.Manager.log.Function("handleSessionSubscribe")

	rawID, ok := message.Data["sessionId"].(string)
	if !ok {
		c.sendError("sessionId is required")
		return
	}
	sessionID, err := uuid.Parse(rawID)
	if err != nil {
		c.sendError("invalid sessionId")
		return
	}

	session, err := c.Manager.sessionRepo.GetByID(context.Background(), c.Manager.db.SQL, sessionID)
	if err != nil {
		c.sendError("session not found")
		return
	}
	if c.UserID != session.HostID && c.UserID != session.RenterID {
		log.Warn(
			"Subscription rejected for non-participant",
			"clientID", c.ID,
			"sessionID", sessionID,
			"userID", c.UserID,
		)
		c.sendError("not a session participant")
		return
	}

	c.Manager.addSessionSubscriber(sessionID, c)

	c.send <- Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_SUBSCRIBED,
		SessionID: sessionID.String(),
		Timestamp: time.Now(),
	}

	log.Info("Client subscribed to session", "clientID", c.ID, "sessionID", sessionID)
}

func (c *Client) handleSessionUnsubscribe(message Message) {
	rawID, ok := message.Data["sessionId"].(string)
	if !ok {
		c.sendError("sessionId is required")
		return
	}
	sessionID, err := uuid.Parse(rawID)
	if err != nil {
		c.sendError("invalid sessionId")
		return
	}

	c.Manager.removeSessionSubscriber(sessionID, c)
}

func (c *Client) sendAuthFailure(reason string) {
	log := c.Manager.log.Function("sendAuthFailure")

	c.send <- Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_FAILURE,
		Data:      map[string]any{"reason": reason},
		Timestamp: time.Now(),
	}

	log.Info("Auth failure sent, closing connection", "clientID", c.ID, "reason", reason)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = c.Connection.Close()
	}()
}

func (c *Client) sendError(reason string) {
	c.send <- Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_ERROR,
		Data:      map[string]any{"reason": reason},
		Timestamp: time.Now(),
	}
}

func (c *Client) writePump() {
	log := c.Manager.log.Function("writePump")

	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		_ = c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline", err, "clientID", c.ID)
			}
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Connection.WriteJSON(message); err != nil {
				log.Er("WebSocket write error", err, "clientID", c.ID)
				return
			}

		case <-ticker.C:
			if err := c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT)); err != nil {
				log.Er("failed to set write deadline for ping", err, "clientID", c.ID)
			}
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
