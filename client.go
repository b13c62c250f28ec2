package main

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 60
	maxNameLen        = 16
)

// Client represents one WebSocket connection on the server side.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	connKey    string // stable key for spectator registrations
	playerID   string
	roomID     string
	role       string
	spectator  bool
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		connKey:    "conn-" + GenerateID(4),
		remoteAddr: remoteAddr,
	}
}

// clientKey returns the key this client occupies in a room's client map.
func (c *Client) clientKey() string {
	if c.spectator {
		return c.connKey
	}
	return c.playerID
}

// ReadPump reads messages from the WebSocket connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.WithError(err).Debug("ws read error")
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.hub.log.WithField("addr", c.remoteAddr).Warn("rate limit exceeded, disconnecting")
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON control message to the client.
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.WithError(err).Error("marshal error")
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client.
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends bytes as a binary WebSocket message. Prefixes with a
// 0xFF marker byte so WritePump can distinguish binary from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes incoming control messages.
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.hub.log.WithError(err).Debug("unmarshal error")
		return
	}

	switch env.T {
	case MsgJoinRoom:
		c.handleJoinRoom(env.D)
	case MsgInput:
		c.handleInput(env.D)
	case MsgRequestStateFull:
		c.handleRequestStateFull(env.D)
	case MsgUpdateUsername:
		c.handleUpdateUsername(env.D)
	case MsgRadioCycle:
		c.handleRadioCycle(env.D)
	case MsgLeave:
		c.handleLeave()
	}
}

func (c *Client) sendError(message string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Message: message}})
}

// sanitizeName truncates on a rune boundary so a multi-byte name never
// turns into invalid UTF-8 on the wire.
func sanitizeName(name string) string {
	runes := []rune(name)
	if len(runes) > maxNameLen {
		return string(runes[:maxNameLen])
	}
	return name
}

func (c *Client) handleJoinRoom(data json.RawMessage) {
	var msg JoinRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	if msg.ProtocolVersion != ProtocolVersion {
		// Warn but keep the connection; the client may still interoperate.
		c.sendError("protocol version mismatch")
	}

	role := msg.Role
	if role != RoleController {
		role = RoleViewer
	}

	// A valid session token overrides the requested identity so a
	// reconnecting client gets its old car back.
	playerID := msg.PlayerID
	roomID := msg.RoomID
	if msg.SessionToken != "" {
		if tokRoom, tokPlayer, err := c.hub.tokens.Validate(msg.SessionToken); err == nil {
			roomID = tokRoom
			playerID = tokPlayer
		}
	}

	var room *Room
	if roomID == "" {
		room = c.hub.rooms.DefaultRoom()
	} else {
		room = c.hub.rooms.GetRoom(roomID)
	}
	if room == nil {
		c.sendError("room not found")
		return
	}

	if role == RoleController {
		if playerID == "" {
			playerID = GenerateID(4)
		}
		username := sanitizeName(msg.Username)
		if username == "" {
			username = "Racer"
		}
		if !room.Game.HasCar(playerID) {
			if room.Game.AddCar(playerID, username) == nil {
				c.sendError("room full")
				return
			}
		}
		c.spectator = false
	} else {
		if playerID == "" {
			playerID = c.connKey
		}
		c.spectator = true
	}

	c.roomID = room.ID
	c.playerID = playerID
	c.role = role
	room.Game.SetClient(c.clientKey(), c)

	token, err := c.hub.tokens.Issue(room.ID, playerID)
	if err != nil {
		c.hub.log.WithError(err).Error("issue session token")
	}

	c.SendJSON(Envelope{T: MsgRoomInfo, Data: RoomInfoMsg{
		RoomID:          room.ID,
		PlayerID:        playerID,
		Role:            role,
		Track:           room.Track.ID,
		Players:         room.Game.Roster(),
		SessionToken:    token,
		ProtocolVersion: ProtocolVersion,
		ServerVersion:   ServerVersion,
	}})

	c.hub.log.WithFields(logrus.Fields{
		"room":   room.ID,
		"player": playerID,
		"role":   role,
	}).Info("client joined room")
}

func (c *Client) handleInput(data json.RawMessage) {
	if c.roomID == "" || c.role != RoleController {
		return
	}
	var input InputMsg
	if err := json.Unmarshal(data, &input); err != nil {
		return
	}
	room := c.hub.rooms.GetRoom(c.roomID)
	if room == nil {
		return
	}
	room.Game.HandleInput(c.playerID, input)
}

func (c *Client) handleRequestStateFull(data json.RawMessage) {
	var msg RequestStateFullMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	roomID := msg.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	room := c.hub.rooms.GetRoom(roomID)
	if room == nil {
		c.sendError("room not found")
		return
	}
	c.hub.telemetry.Track(EvtResyncRequested)
	room.Game.SendStateFull(c)
}

func (c *Client) handleUpdateUsername(data json.RawMessage) {
	if c.roomID == "" {
		return
	}
	var msg UpdateUsernameMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	username := sanitizeName(msg.Username)
	if username == "" || msg.PlayerID != c.playerID {
		return
	}
	room := c.hub.rooms.GetRoom(c.roomID)
	if room == nil {
		return
	}
	room.Game.Rename(c.playerID, username)
}

func (c *Client) handleRadioCycle(data json.RawMessage) {
	if c.roomID == "" {
		return
	}
	room := c.hub.rooms.GetRoom(c.roomID)
	if room == nil {
		return
	}
	room.Game.CycleRadio()
}

func (c *Client) handleLeave() {
	if c.roomID == "" {
		return
	}
	if c.spectator {
		if room := c.hub.rooms.GetRoom(c.roomID); room != nil {
			room.Game.RemoveClient(c.clientKey())
		}
	} else {
		c.hub.rooms.RemovePlayer(c.roomID, c.playerID)
	}
	c.roomID = ""
	c.playerID = ""
	c.spectator = false
}
