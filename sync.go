package main

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// SyncState is the connection lifecycle of a SyncClient.
type SyncState int

const (
	SyncDisconnected SyncState = iota
	SyncConnecting
	SyncJoined
	SyncSynchronized
)

func (s SyncState) String() string {
	switch s {
	case SyncConnecting:
		return "connecting"
	case SyncJoined:
		return "joined"
	case SyncSynchronized:
		return "synchronized"
	default:
		return "disconnected"
	}
}

// SyncClient is the client side of the state-sync protocol: it joins a
// room, rebuilds consistent snapshots from the full/delta stream and feeds
// them into a StateStore. When a delta cannot be reconciled it requests a
// resync and waits for a fresh full snapshot — the full snapshot is the
// sole point of re-anchoring; there are no sequence numbers.
//
// Reconnection is not automatic: after a transport drop the caller must
// Connect and Join again. Resync requests are fire-and-forget with no
// built-in throttle; callers add their own rate limiting.
type SyncClient struct {
	url   string
	store *StateStore
	log   *logrus.Logger

	mu           sync.Mutex
	wmu          sync.Mutex // serializes writes; gorilla allows one writer
	conn         *websocket.Conn
	state        SyncState
	snapshot     *RoomState // last reconciled full snapshot
	roomID       string
	playerID     string
	sessionToken string
}

// NewSyncClient creates a client for the given websocket URL.
func NewSyncClient(url string, store *StateStore, log *logrus.Logger) *SyncClient {
	if log == nil {
		log = logrus.New()
	}
	return &SyncClient{
		url:   url,
		store: store,
		log:   log,
	}
}

// State returns the current protocol state.
func (c *SyncClient) State() SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionToken returns the token minted by the server at join, usable to
// reclaim this identity after a reconnect.
func (c *SyncClient) SessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionToken
}

// Snapshot returns the last reconciled snapshot, or nil before the first
// full snapshot arrives.
func (c *SyncClient) Snapshot() *RoomState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Connect dials the server. The previous snapshot is discarded: after a
// reconnect only a fresh full snapshot can re-anchor the stream.
func (c *SyncClient) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return fmt.Errorf("already connected")
	}
	c.state = SyncConnecting
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.state = SyncDisconnected
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	c.conn = conn
	c.snapshot = nil
	return nil
}

// Join sends join_room. Identity and roster arrive via room_info on the
// control channel; state starts flowing on the next broadcast.
func (c *SyncClient) Join(role, roomID, playerID, username, sessionToken string) error {
	return c.sendEnvelope(MsgJoinRoom, JoinRoomMsg{
		Role:            role,
		ProtocolVersion: ProtocolVersion,
		RoomID:          roomID,
		PlayerID:        playerID,
		Username:        username,
		SessionToken:    sessionToken,
	})
}

// RequestResync asks for a fresh full snapshot carrying the last known
// room id.
func (c *SyncClient) RequestResync() error {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	return c.sendEnvelope(MsgRequestStateFull, RequestStateFullMsg{RoomID: roomID})
}

// SendInput sends controller input for this client's car.
func (c *SyncClient) SendInput(steer, throttle, brake float64, actions ...string) error {
	c.mu.Lock()
	roomID, playerID := c.roomID, c.playerID
	c.mu.Unlock()
	return c.sendEnvelope(MsgInput, InputMsg{
		RoomID:   roomID,
		PlayerID: playerID,
		Steer:    steer,
		Throttle: throttle,
		Brake:    brake,
		Actions:  actions,
	})
}

// UpdateUsername renames this client's player.
func (c *SyncClient) UpdateUsername(username string) error {
	c.mu.Lock()
	roomID, playerID := c.roomID, c.playerID
	c.mu.Unlock()
	return c.sendEnvelope(MsgUpdateUsername, UpdateUsernameMsg{
		RoomID:   roomID,
		PlayerID: playerID,
		Username: username,
	})
}

// CycleRadio advances the room radio station.
func (c *SyncClient) CycleRadio() error {
	c.mu.Lock()
	roomID := c.roomID
	c.mu.Unlock()
	return c.sendEnvelope(MsgRadioCycle, RadioCycleMsg{RoomID: roomID})
}

// Close shuts the connection down.
func (c *SyncClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = SyncDisconnected
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Listen reads and dispatches messages until the connection fails or is
// closed. It always leaves the client disconnected.
func (c *SyncClient) Listen() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.state = SyncDisconnected
		c.mu.Unlock()
	}()

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if msgType == websocket.BinaryMessage {
			c.handleBinaryFrame(raw)
		} else {
			c.handleControlMessage(raw)
		}
	}
}

// HandleMessage dispatches one raw frame, exposed for callers that drive
// their own read loop.
func (c *SyncClient) HandleMessage(binary bool, raw []byte) {
	if binary {
		c.handleBinaryFrame(raw)
	} else {
		c.handleControlMessage(raw)
	}
}

func (c *SyncClient) handleBinaryFrame(raw []byte) {
	if len(raw) < 2 {
		return
	}
	switch raw[0] {
	case FrameStateFull:
		var state RoomState
		if err := msgpack.Unmarshal(raw[1:], &state); err != nil {
			c.log.WithError(err).Warn("bad state_full frame")
			return
		}
		c.applyFull(&state)
	case FrameStateDelta:
		var delta RoomStateDelta
		if err := msgpack.Unmarshal(raw[1:], &delta); err != nil {
			c.log.WithError(err).Warn("bad state_delta frame")
			return
		}
		c.applyDelta(&delta)
	}
}

func (c *SyncClient) handleControlMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.WithError(err).Debug("bad control message")
		return
	}

	switch env.T {
	case MsgRoomInfo:
		var info RoomInfoMsg
		if err := json.Unmarshal(env.D, &info); err != nil {
			return
		}
		c.mu.Lock()
		c.roomID = info.RoomID
		c.playerID = info.PlayerID
		c.sessionToken = info.SessionToken
		if c.state == SyncConnecting {
			c.state = SyncJoined
		}
		c.mu.Unlock()
		c.store.SetRoomInfo(info.RoomID, info.PlayerID, info.Track, info.Players)

	case MsgState, MsgStateFull:
		var state RoomState
		if err := json.Unmarshal(env.D, &state); err != nil {
			return
		}
		c.applyFull(&state)

	case MsgStateDelta:
		var delta RoomStateDelta
		if err := json.Unmarshal(env.D, &delta); err != nil {
			return
		}
		c.applyDelta(&delta)

	case MsgPlayerJoined, MsgPlayerUpdated:
		var evt PlayerEventMsg
		if err := json.Unmarshal(env.D, &evt); err != nil {
			return
		}
		c.store.UpdatePlayer(evt.PlayerID, evt.Username)

	case MsgError:
		var errMsg ErrorMsg
		if err := json.Unmarshal(env.D, &errMsg); err != nil {
			return
		}
		c.log.WithField("message", errMsg.Message).Warn("server error")
	}
}

// applyFull re-anchors the stream on a full snapshot.
func (c *SyncClient) applyFull(state *RoomState) {
	c.mu.Lock()
	c.snapshot = state
	c.state = SyncSynchronized
	c.mu.Unlock()
	c.store.UpdateState(state)
}

// applyDelta reconciles a delta against the last full snapshot. A nil
// result means we have nothing to merge onto; request a resync and drop
// the delta.
func (c *SyncClient) applyDelta(delta *RoomStateDelta) {
	c.mu.Lock()
	base := c.snapshot
	c.mu.Unlock()

	next := Reconcile(base, delta)
	if next == nil {
		c.log.Debug("reconcile failed, requesting full state")
		if err := c.RequestResync(); err != nil {
			c.log.WithError(err).Warn("resync request failed")
		}
		return
	}
	c.mu.Lock()
	c.snapshot = next
	c.mu.Unlock()
	c.store.UpdateState(next)
}

func (c *SyncClient) sendEnvelope(msgType string, data interface{}) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	raw, err := json.Marshal(Envelope{T: msgType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, raw)
}
