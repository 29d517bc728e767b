// Package relay is the websocket switchboard between agents.
//
// Agents connect, register under an id, and exchange JSON envelopes
// addressed by recipient id. The server never interprets message
// payloads; it only routes them. A directory agent, when registered,
// is notified as other agents come and go.
package relay

// Envelope is the wire format for everything crossing a relay socket.
type Envelope struct {
	MessageType  string   `json:"message_type,omitempty"`
	SenderID     string   `json:"sender_id,omitempty"`
	RecipientID  string   `json:"recipient_id,omitempty"`
	Message      string   `json:"message,omitempty"`
	AgentID      string   `json:"agent_id,omitempty"`
	Description  string   `json:"description,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
	Status       string   `json:"status,omitempty"`
}

// Message types carried in Envelope.MessageType.
const (
	// TypeRegister is the first frame an agent must send.
	TypeRegister = "register"

	// TypeMessage is a routed agent-to-agent payload.
	TypeMessage = "message"

	// TypeUpdate notifies the directory agent of a disconnect.
	TypeUpdate = "update"

	// TypeRegistration notifies the directory agent of a new agent.
	TypeRegistration = "registration"
)

// DirectoryAgentID is the reserved id of the directory agent.
const DirectoryAgentID = "DirectoryAgent"

// StatusRegistered is the reply confirming a successful registration.
const StatusRegistered = "registration successful"
