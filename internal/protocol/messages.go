package protocol

// Chat roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatMessage is one turn of a guide conversation. Timestamp is unix milliseconds.
type ChatMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Name            string `json:"name,omitempty"`
	TimeOfDay       string `json:"time_of_day,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldID         string      `json:"world_id"`
	WorldDigest     string      `json:"world_digest"`
	Message         ChatMessage `json:"message"`
}

// CHAT (client -> server). Seq must increase within a session; replies to an older seq
// than the latest are dropped.
type ChatMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Text            string `json:"text"`
	TimeOfDay       string `json:"time_of_day,omitempty"`
}

// REPLY (server -> client)
type ReplyMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Seq             uint64      `json:"seq"`
	Message         ChatMessage `json:"message"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
	Seq             uint64 `json:"seq,omitempty"`
}

// ChatRequest is the body of POST /v1/guide/chat. History ends with the user's question.
type ChatRequest struct {
	History   []ChatMessage `json:"history"`
	TimeOfDay string        `json:"time_of_day,omitempty"`
}

type ChatResponse struct {
	Message ChatMessage `json:"message"`
}

// ErrorResponse is the JSON body of a failed HTTP request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
