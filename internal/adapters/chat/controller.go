// Package chat runs the per-connection session: handshake, event
// dispatch, presence transitions on disconnect.
package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chat-relay/internal/bridge"
	"chat-relay/internal/core"
	"chat-relay/internal/domain"
)

type Controller struct {
	rooms      core.RoomManager
	fwd        *bridge.Forwarder
	readLimit  int64
	pingPeriod time.Duration
}

func NewController(rooms core.RoomManager, fwd *bridge.Forwarder, readLimit int64, pingPeriod time.Duration) *Controller {
	return &Controller{rooms: rooms, fwd: fwd, readLimit: readLimit, pingPeriod: pingPeriod}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleChat upgrades the transport and runs the session to completion.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	roomName := domain.RoomName(c.Param("room"))
	username, err := domain.NewUsername(c.Query("username"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.chat").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "adapters.chat").Str("room", string(roomName)).
		Str("user", string(username)).Msg("new chat connection")

	ctl.runSession(ctx, roomName, username, ws)
}

// runSession is the Connecting → Joined → Closed state machine.
// Cleanup runs exactly once, whatever ends the read loop.
func (ctl *Controller) runSession(ctx context.Context, roomName domain.RoomName, username domain.Username, ws WSConn) {
	ws.SetReadLimit(ctl.readLimit)
	conn := NewConnection(ws)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	conn.StartWriteLoop(ctx, ctl.pingPeriod)

	room := ctl.rooms.GetOrCreate(roomName)
	// A rejoin under the same name evicts the stale entry; the old
	// transport is left to its own read loop to die naturally.
	_ = room.Join(username, conn)

	online, _ := json.Marshal(domain.OnlineStatus(username))
	room.Broadcast(username, online)

	ctl.readLoop(ctx, room, username, ws)

	// Leave matches by connection identity, so if a newer session has
	// already replaced this one nothing is removed and the user stays
	// online; only a live removal announces the offline transition.
	if _, removed := room.Leave(conn); removed {
		offline, _ := json.Marshal(domain.OfflineStatus(username, time.Now()))
		room.Broadcast(username, offline)
	}
	conn.Close()
}

func (ctl *Controller) readLoop(ctx context.Context, room core.RoomService, username domain.Username, ws WSConn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var env domain.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				// Protocol error: drop this session, not the process.
				log.Warn().Err(err).Str("module", "adapters.chat").
					Str("user", string(username)).Msg("malformed event, closing session")
				return
			}
			ctl.dispatch(ctx, room, username, env.Type, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, room core.RoomService, username domain.Username, tag string, data []byte) {
	switch tag {
	case domain.EventMessage:
		room.Broadcast(username, data)
		var m struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(data, &m)
		ctl.fwd.ForwardText(ctx, m.Text)

	case domain.EventTyping:
		frame, _ := json.Marshal(domain.Typing())
		room.Broadcast(username, frame)

	case domain.EventReaction, domain.EventRead:
		room.Broadcast(username, data)

	case domain.EventImage:
		room.Broadcast(username, data)
		var m struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(data, &m); err != nil || !domain.IsInlineImage(m.URL) {
			return
		}
		raw, err := domain.DecodeInlineImage(m.URL)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.chat").Msg("bad inline image")
			return
		}
		ctl.fwd.ForwardImage(ctx, raw)

	default:
		// Unknown tags are ignored for forward compatibility.
	}
}
