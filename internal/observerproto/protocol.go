package observerproto

import (
	"brickwall.dev/internal/sim/world"
)

// Version is the scene protocol version (separate from the guide chat protocol).
const Version = "0.1"

// Message types.
const (
	TypeSubscribe   = "SUBSCRIBE"
	TypeChunkBricks = "CHUNK_BRICKS"
	TypeSceneReady  = "SCENE_READY"
	TypeLighting    = "LIGHTING"

	TypeHover    = "HOVER"
	TypeUnhover  = "UNHOVER"
	TypeSelect   = "SELECT"
	TypeDeselect = "DESELECT"

	TypeDisplay    = "DISPLAY"
	TypeSelection  = "SELECTION"
	TypeDeselected = "DESELECTED"
	TypeError      = "ERROR"
)

// Encodings used by CHUNK_BRICKS.
const (
	EncodingRLE      = "RLE_U16_VARINT_B64"
	EncodingPosDelta = "ZIGZAG_DELTA_XYZ_B64"
)

// Client -> Server. First message on the scene WS connection, and can be re-sent to move
// the streaming centre or change the time of day.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ChunkRadius     int    `json:"chunk_radius"`

	// Center is the chunk (cx, cz) streaming starts from.
	Center    [2]int `json:"center"`
	TimeOfDay string `json:"time_of_day,omitempty"`
}

// HTTP response for GET /v1/scene/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	WorldID         string         `json:"world_id"`
	Digest          string         `json:"digest"`
	BrickCount      int            `json:"brick_count"`
	Bounds          world.Bounds   `json:"bounds"`
	ChunkSize       int            `json:"chunk_size"`
	Chunks          [][2]int       `json:"chunks"`
	Palette         []string       `json:"palette"`
	Kinds           []string       `json:"kinds"`
	Highlight       string         `json:"highlight"`
	Lighting        world.Lighting `json:"lighting"`
}

// Server -> Client. All bricks of one chunk in generation order. Indices are positions in
// the world's brick sequence and are the ids used by interaction messages.
type ChunkBricksMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	CX              int    `json:"cx"`
	CZ              int    `json:"cz"`
	Count           int    `json:"count"`
	Indices         []int  `json:"indices"`

	PosEncoding string `json:"pos_encoding"`
	Positions   string `json:"positions"`
	Encoding    string `json:"encoding"`
	Colors      string `json:"colors"`
	Kinds       string `json:"kinds"`
}

// Server -> Client. Every chunk in the subscribed radius has been sent.
type SceneReadyMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Chunks          int    `json:"chunks"`
	Bricks          int    `json:"bricks"`
}

type LightingMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Lighting        world.Lighting `json:"lighting"`
}

// Client -> Server. HOVER, UNHOVER, SELECT (with index) or DESELECT.
type InteractMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Index           int    `json:"index"`
}

// Server -> Client. Colours the renderer should show.
type DisplayMsg struct {
	Type            string                `json:"type"`
	ProtocolVersion string                `json:"protocol_version"`
	Changes         []world.DisplayChange `json:"changes"`
}

type SelectionMsg struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Selection       world.Inspection `json:"selection"`
}

type DeselectedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Index           int    `json:"index"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
