// Package signal is the WebSocket transport for group-discussion rooms:
// it upgrades connections, dispatches the client's join/leave envelopes to
// the registry, and delivers registry events back to room members.
package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/misba/aimock/internal/domain"
	"github.com/misba/aimock/internal/gd"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// envelope is the wire frame in both directions: the event name plus its
// payload.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type Connected struct {
	SID string `json:"sid"`
}

type Controller struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]*WsConn

	reg *gd.Registry
}

// NewController builds the transport without a registry; Attach closes the
// loop once the registry exists (the registry needs the controller as its
// emitter first).
func NewController() *Controller {
	return &Controller{conns: make(map[domain.ConnID]*WsConn)}
}

func (ctl *Controller) Attach(reg *gd.Registry) {
	ctl.reg = reg
}

// Emit implements gd.Emitter. Marshals once, fans out without blocking.
func (ctl *Controller) Emit(targets []domain.ConnID, event string, payload any) {
	b, err := json.Marshal(envelope{Type: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("marshal event")
		return
	}

	ctl.mu.RLock()
	defer ctl.mu.RUnlock()
	for _, sid := range targets {
		conn, ok := ctl.conns[sid]
		if !ok {
			continue
		}
		if err := conn.TrySend(b); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("event", event).Msg("dropped event")
		}
	}
}

// HandleGD upgrades one group-discussion client and runs its pumps.
func (ctl *Controller) HandleGD(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	sid := domain.ConnID(uuid.NewString())
	conn := &WsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}
	ctl.register(sid, conn)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new GD connection")

	connCtx, cancel := context.WithCancel(ctx)
	go ctl.writePump(connCtx, conn)
	go ctl.readPump(connCtx, cancel, sid, conn)

	// The client needs to know its own sid before the signaling handshake.
	ctl.sendEvent(conn, "connected", Connected{SID: string(sid)})
}

func (ctl *Controller) register(sid domain.ConnID, conn *WsConn) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.conns[sid] = conn
}

// drop detaches the connection everywhere: transport map, room membership,
// socket. Disconnect implies leave.
func (ctl *Controller) drop(sid domain.ConnID, conn *WsConn) {
	ctl.mu.Lock()
	delete(ctl.conns, sid)
	ctl.mu.Unlock()

	ctl.reg.Leave(sid)
	conn.Close()
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("GD connection dropped")
}

func (ctl *Controller) handleMessage(ctx context.Context, sid domain.ConnID, conn *WsConn, data []byte) {
	var env struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.sendEvent(conn, "error", gin.H{"error": "bad_payload"})
		return
	}

	switch env.Type {
	case "join_room":
		if env.RoomID == "" {
			log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join without roomId")
			return
		}
		ctl.reg.Join(ctx, domain.RoomID(env.RoomID), sid)
	case "leave":
		ctl.reg.Leave(sid)
	case "ping":
		ctl.sendEvent(conn, "pong", nil)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendEvent(conn *WsConn, event string, payload any) {
	b, err := json.Marshal(envelope{Type: event, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("marshal event")
		return
	}
	_ = conn.TrySend(b)
}
