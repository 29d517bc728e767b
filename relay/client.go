package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one agent's connection to the relay.
type Client struct {
	agentID string
	ws      *websocket.Conn

	mu sync.Mutex
}

// DialOption configures registration.
type DialOption func(*Envelope)

// WithDescription sets the description advertised to the directory agent.
func WithDescription(description string) DialOption {
	return func(e *Envelope) { e.Description = description }
}

// WithCapabilities sets the capability list advertised to the directory
// agent.
func WithCapabilities(capabilities ...string) DialOption {
	return func(e *Envelope) { e.Capabilities = capabilities }
}

// Dial connects to a relay server and registers under agentID. It returns
// once the server confirms the registration.
func Dial(ctx context.Context, url, agentID string, opts ...DialOption) (*Client, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("relay dial: %w", err)
	}

	reg := Envelope{MessageType: TypeRegister, AgentID: agentID}
	for _, opt := range opts {
		opt(&reg)
	}
	if err := ws.WriteJSON(reg); err != nil {
		ws.Close()
		return nil, fmt.Errorf("relay register: %w", err)
	}

	var reply Envelope
	if err := ws.ReadJSON(&reply); err != nil {
		ws.Close()
		return nil, fmt.Errorf("relay register: %w", err)
	}
	if reply.Status != StatusRegistered {
		ws.Close()
		return nil, fmt.Errorf("relay register: unexpected status %q", reply.Status)
	}

	return &Client{agentID: agentID, ws: ws}, nil
}

// AgentID returns the id this client registered under.
func (c *Client) AgentID() string {
	return c.agentID
}

// Send routes a message to another agent.
func (c *Client) Send(recipientID, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	env := Envelope{
		MessageType: TypeMessage,
		SenderID:    c.agentID,
		RecipientID: recipientID,
		Message:     message,
	}
	if err := c.ws.WriteJSON(env); err != nil {
		return fmt.Errorf("relay send: %w", err)
	}
	return nil
}

// Receive blocks until the next envelope arrives.
func (c *Client) Receive() (*Envelope, error) {
	var env Envelope
	if err := c.ws.ReadJSON(&env); err != nil {
		return nil, fmt.Errorf("relay receive: %w", err)
	}
	return &env, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.ws.Close()
}
