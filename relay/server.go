package relay

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/critiq-ai/critiq/log"
)

// DefaultQueueCapacity bounds the dispatch queue.
const DefaultQueueCapacity = 1000

type dispatch struct {
	messageType string
	senderID    string
	recipientID string
	message     string
}

// agentConn serializes writes to one websocket connection.
type agentConn struct {
	connID string
	ws     *websocket.Conn

	mu sync.Mutex
}

func (c *agentConn) sendJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Server routes envelopes between registered agents.
type Server struct {
	logger   log.Logger
	upgrader websocket.Upgrader
	queue    chan dispatch

	mu       sync.Mutex
	registry map[string]*agentConn

	closeOnce sync.Once
	done      chan struct{}
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	logger   log.Logger
	queueCap int
}

// WithLogger sets the server logger.
func WithLogger(logger log.Logger) ServerOption {
	return func(c *serverConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithQueueCapacity overrides the dispatch queue capacity.
func WithQueueCapacity(capacity int) ServerOption {
	return func(c *serverConfig) {
		if capacity > 0 {
			c.queueCap = capacity
		}
	}
}

// NewServer creates a relay server and starts its dispatcher.
func NewServer(opts ...ServerOption) *Server {
	cfg := serverConfig{
		logger:   log.NopLogger{},
		queueCap: DefaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		logger:   cfg.logger,
		queue:    make(chan dispatch, cfg.queueCap),
		registry: make(map[string]*agentConn),
		done:     make(chan struct{}),
	}
	go s.dispatchLoop()
	return s
}

// Close stops the dispatcher and drops all registered connections.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()
		for id, conn := range s.registry {
			conn.ws.Close()
			delete(s.registry, id)
		}
	})
}

// Agents lists the currently registered agent ids.
func (s *Server) Agents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.registry))
	for id := range s.registry {
		ids = append(ids, id)
	}
	return ids
}

// ServeHTTP upgrades the connection and runs its read loop. The first
// frame must be a register envelope carrying an agent id; anything else
// closes the socket with a policy violation.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("relay: upgrade failed: %v", err)
		return
	}

	conn := &agentConn{connID: uuid.NewString(), ws: ws}
	defer ws.Close()

	var reg Envelope
	if err := ws.ReadJSON(&reg); err != nil || reg.MessageType != TypeRegister || reg.AgentID == "" {
		s.logger.Warn("relay: conn %s rejected, missing registration", conn.connID)
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "registration failed")
		ws.WriteMessage(websocket.CloseMessage, msg)
		return
	}

	agentID := reg.AgentID
	s.register(agentID, conn, reg)

	if err := conn.sendJSON(Envelope{Status: StatusRegistered}); err != nil {
		s.unregister(agentID, conn)
		return
	}

	s.readLoop(agentID, conn)
	s.unregister(agentID, conn)
}

// readLoop consumes frames until the connection drops. A frame that is
// not valid JSON is logged and dropped; the connection stays open.
func (s *Server) readLoop(agentID string, conn *agentConn) {
	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			s.logger.Info("relay: connection closed for agent %s", agentID)
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.logger.Error("relay: agent %s sent malformed frame: %v", agentID, err)
			continue
		}

		if env.RecipientID == "" || env.Message == "" {
			s.logger.Error("relay: agent %s sent invalid message format", agentID)
			continue
		}

		item := dispatch{
			messageType: env.MessageType,
			senderID:    env.SenderID,
			recipientID: env.RecipientID,
			message:     env.Message,
		}
		select {
		case s.queue <- item:
		case <-s.done:
			return
		}
	}
}

func (s *Server) dispatchLoop() {
	for {
		select {
		case item := <-s.queue:
			s.forward(item)
		case <-s.done:
			return
		}
	}
}

func (s *Server) forward(item dispatch) {
	s.mu.Lock()
	recipient := s.registry[item.recipientID]
	s.mu.Unlock()

	if recipient == nil {
		s.logger.Warn("relay: agent %s sending to unknown recipient %s", item.senderID, item.recipientID)
		return
	}

	env := Envelope{
		MessageType: item.messageType,
		SenderID:    item.senderID,
		Message:     item.message,
	}
	if err := recipient.sendJSON(env); err != nil {
		s.logger.Warn("relay: delivery from %s to %s failed: %v", item.senderID, item.recipientID, err)
		return
	}
	s.logger.Info("relay: agent %s sent a message to %s", item.senderID, item.recipientID)
}

func (s *Server) register(agentID string, conn *agentConn, reg Envelope) {
	s.mu.Lock()
	s.registry[agentID] = conn
	s.mu.Unlock()
	s.logger.Info("relay: agent %s registered on conn %s", agentID, conn.connID)

	if agentID == DirectoryAgentID {
		return
	}

	description := reg.Description
	if description == "" {
		description = "No description provided."
	}
	s.notifyDirectory(Envelope{
		MessageType:  TypeRegistration,
		AgentID:      agentID,
		Description:  description,
		Capabilities: reg.Capabilities,
	})
}

// unregister drops the agent only if this connection still owns the id,
// so a reconnect under the same id is not torn down by the old socket.
func (s *Server) unregister(agentID string, conn *agentConn) {
	s.mu.Lock()
	current, ok := s.registry[agentID]
	if !ok || current.connID != conn.connID {
		s.mu.Unlock()
		return
	}
	delete(s.registry, agentID)
	s.mu.Unlock()
	s.logger.Info("relay: agent %s unregistered", agentID)

	if agentID != DirectoryAgentID {
		s.notifyDirectory(Envelope{
			MessageType: TypeUpdate,
			AgentID:     agentID,
		})
	}
}

func (s *Server) notifyDirectory(env Envelope) {
	s.mu.Lock()
	directory := s.registry[DirectoryAgentID]
	s.mu.Unlock()

	if directory == nil {
		return
	}
	if err := directory.sendJSON(env); err != nil {
		s.logger.Warn("relay: directory notification for %s failed: %v", env.AgentID, err)
	}
}
