package main

import "encoding/json"

// ProtocolVersion is negotiated at join time. Mismatches are reported via
// error_message but do not close the connection.
const ProtocolVersion = 1

// Client -> Server message types
const (
	MsgJoinRoom         = "join_room"
	MsgInput            = "input"
	MsgRequestStateFull = "request_state_full"
	MsgUpdateUsername   = "update_username"
	MsgRadioCycle       = "radio_cycle"
	MsgLeave            = "leave"
)

// Server -> Client message types
const (
	MsgRoomInfo      = "room_info"
	MsgState         = "state" // alias of state_full, accepted on decode
	MsgStateFull     = "state_full"
	MsgStateDelta    = "state_delta"
	MsgPlayerJoined  = "player_joined"
	MsgPlayerUpdated = "player_updated"
	MsgError         = "error_message"
)

// Binary frame kinds. State frames travel as binary WebSocket messages:
// one kind byte followed by a msgpack payload.
const (
	FrameStateFull  byte = 0x01
	FrameStateDelta byte = 0x02
)

// Connection roles
const (
	RoleViewer     = "viewer"
	RoleController = "controller"
)

// Envelope wraps all outgoing control messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinRoomMsg is sent by a client when it wants to enter a room. A blank
// RoomID asks the server to place the client in (or create) the default
// room. SessionToken, when present, reclaims a previous identity.
type JoinRoomMsg struct {
	Role            string `json:"role"`
	ProtocolVersion int    `json:"protocolVersion"`
	RoomID          string `json:"roomId"`
	PlayerID        string `json:"playerId"`
	Username        string `json:"username,omitempty"`
	SessionToken    string `json:"sessionToken,omitempty"`
}

// RoomInfoMsg carries room identity, roster and track out-of-band from the
// position stream.
type RoomInfoMsg struct {
	RoomID          string       `json:"roomId"`
	PlayerID        string       `json:"playerId"`
	Role            string       `json:"role"`
	Track           string       `json:"track"`
	Players         []PlayerInfo `json:"players"`
	SessionToken    string       `json:"sessionToken,omitempty"`
	ProtocolVersion int          `json:"protocolVersion,omitempty"`
	ServerVersion   string       `json:"serverVersion,omitempty"`
}

// PlayerInfo is one roster entry.
type PlayerInfo struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

// RequestStateFullMsg asks the server for a fresh full snapshot after a
// reconciliation failure.
type RequestStateFullMsg struct {
	RoomID string `json:"roomId"`
}

// PlayerEventMsg announces identity changes (joins, renames) on the
// identity channel, separate from the state stream.
type PlayerEventMsg struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

// InputMsg is the controller input. Steer is -1..1, Throttle and Brake 0..1.
type InputMsg struct {
	RoomID   string   `json:"roomId"`
	PlayerID string   `json:"playerId"`
	Steer    float64  `json:"steer"`
	Throttle float64  `json:"throttle"`
	Brake    float64  `json:"brake"`
	Actions  []string `json:"actions,omitempty"`
}

// Input action names
const (
	ActionTurbo = "turbo"
	ActionFire  = "fire"
)

// UpdateUsernameMsg renames a player.
type UpdateUsernameMsg struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

// RadioCycleMsg advances the room radio to the next station.
type RadioCycleMsg struct {
	RoomID string `json:"roomId"`
}

// ErrorMsg sends a human-readable error to the client.
type ErrorMsg struct {
	Message string `json:"message"`
}
