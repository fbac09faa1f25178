package network

import (
	"encoding/json"

	"github.com/gravitas-games/hexgrid/internal/grid"
	"github.com/gravitas-games/hexgrid/internal/hecs"
)

// Message types - Client → Server
const (
	MsgTypePing = "ping"
)

// Message types - Server → Client
const (
	MsgTypeWelcome   = "welcome"
	MsgTypeActions   = "actions"
	MsgTypeMapUpdate = "map_update"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// ClientMessage represents any message from an observer to the server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from the server to an observer
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ActionType identifies the kind of transition carried by an Action.
type ActionType int

const (
	ActionInit ActionType = iota
	ActionInstant
	ActionRotate
	ActionTranslate
	ActionOutline
	ActionFade
)

func (t ActionType) String() string {
	switch t {
	case ActionInit:
		return "INIT"
	case ActionInstant:
		return "INSTANT"
	case ActionRotate:
		return "ROTATE"
	case ActionTranslate:
		return "TRANSLATE"
	case ActionOutline:
		return "OUTLINE"
	case ActionFade:
		return "FADE"
	default:
		return "UNKNOWN"
	}
}

// AnimationType tells the renderer which model animation to play.
type AnimationType int

const (
	AnimationNone AnimationType = iota
	AnimationIdle
	AnimationWalking
	AnimationInstant
	AnimationTranslate
	AnimationAccelDecel
	AnimationSkipping
	AnimationRotate
)

// Action is the wire descriptor of a single timed transition.
type Action struct {
	ID              int           `json:"id"`
	ActionType      ActionType    `json:"action_type"`
	AnimationType   AnimationType `json:"animation_type"`
	Displacement    hecs.Coord    `json:"displacement"`
	RotationDegrees int           `json:"rotation_degrees"`
	DurationS       float64       `json:"duration_s"`
	Opacity         float64       `json:"opacity"`
	Expiration      string        `json:"expiration"` // ISO-8601
}

// --- Client Message Payloads ---

// PingPayload is sent by observers to measure latency
type PingPayload struct {
	Nonce int64 `json:"nonce"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to an observer after a successful connection
type WelcomePayload struct {
	ObserverID string `json:"observer_id"`
	Iteration  int    `json:"iteration"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
}

// ActionsPayload carries a batch of action descriptors
type ActionsPayload struct {
	Actions []Action `json:"actions"`
}

// MapUpdatePayload carries the tiles changed by a map iteration
type MapUpdatePayload struct {
	Iteration int             `json:"iteration"`
	Tiles     []grid.TileInfo `json:"tiles"`
}

// PongPayload answers a ping
type PongPayload struct {
	Nonce     int64 `json:"nonce"`
	Timestamp int64 `json:"timestamp"` // Unix timestamp
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
