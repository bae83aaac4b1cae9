package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"chat-relay/internal/core"
	"chat-relay/internal/domain"
)

// Source is the pull side of the bridge API, narrowed for testing.
type Source interface {
	DeleteWebhook(ctx context.Context) error
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error)
}

const fallbackSender = "operator"

// Poller is the single background consumer of the external bridge.
// It owns the cursor; nothing else reads or writes it.
type Poller struct {
	src    Source
	rooms  core.RoomManager
	room   domain.RoomName
	chatID string

	cursor      int64
	pollTimeout int
	done        chan struct{}

	conflictDelay time.Duration
	errorDelay    time.Duration
	idleDelay     time.Duration
}

func NewPoller(src Source, rooms core.RoomManager, room domain.RoomName, chatID string, pollTimeout int) *Poller {
	return &Poller{
		src:           src,
		rooms:         rooms,
		room:          room,
		chatID:        chatID,
		pollTimeout:   pollTimeout,
		done:          make(chan struct{}),
		conflictDelay: 5 * time.Second,
		errorDelay:    2 * time.Second,
		idleDelay:     500 * time.Millisecond,
	}
}

// Done is closed once Run has fully unwound; shutdown waits on it.
func (p *Poller) Done() <-chan struct{} { return p.done }

// Run loops until ctx is cancelled. Errors never escape: a conflicting
// consumer backs off longer, anything else backs off briefly.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.done)
	log.Info().Str("module", "bridge.poller").Str("room", string(p.room)).Msg("poller started")

	for {
		if err := p.cycle(ctx); err != nil {
			if ctx.Err() != nil {
				log.Info().Str("module", "bridge.poller").Msg("poller stopped")
				return
			}
			if IsConflict(err) {
				log.Warn().Err(err).Str("module", "bridge.poller").Msg("pull session conflict, backing off")
				if !sleepCtx(ctx, p.conflictDelay) {
					return
				}
			} else {
				log.Error().Err(err).Str("module", "bridge.poller").Msg("poll cycle failed")
				if !sleepCtx(ctx, p.errorDelay) {
					return
				}
			}
		}
		if !sleepCtx(ctx, p.idleDelay) {
			log.Info().Str("module", "bridge.poller").Msg("poller stopped")
			return
		}
	}
}

func (p *Poller) cycle(ctx context.Context) error {
	// Push delivery must stay off or the pull below is starved.
	_ = p.src.DeleteWebhook(ctx)

	before := p.cursor
	updates, err := p.src.GetUpdates(ctx, before+1, p.pollTimeout)
	if err != nil {
		return err
	}
	for _, u := range updates {
		p.consume(u, before)
	}
	return nil
}

func (p *Poller) consume(u Update, before int64) {
	// Cursor only ever advances, even on out-of-order batches.
	if u.UpdateID > p.cursor {
		p.cursor = u.UpdateID
	}
	// Overlapping fetch windows must not replay already-consumed ids.
	if u.UpdateID <= before {
		return
	}

	msg := u.Message
	if msg == nil || strconv.FormatInt(msg.Chat.ID, 10) != p.chatID {
		return
	}

	sender := fallbackSender
	if msg.From != nil && msg.From.FirstName != "" {
		sender = msg.From.FirstName
	}
	id := fmt.Sprintf("tg-%d", u.UpdateID)

	var frame []byte
	switch {
	case msg.Text != "":
		frame, _ = json.Marshal(domain.MessageEvent{
			Type: domain.EventMessage, ID: id, Text: msg.Text, Sender: sender,
		})
	case len(msg.Photo) > 0:
		// Last photo size is the largest rendition.
		photo := msg.Photo[len(msg.Photo)-1]
		frame, _ = json.Marshal(domain.ImageEvent{
			Type: domain.EventImage, ID: id, URL: "/telegram_image/" + photo.FileID, Sender: sender,
		})
	default:
		return
	}

	res := p.rooms.GetOrCreate(p.room).BroadcastAll(core.Frame(frame))
	log.Debug().Str("module", "bridge.poller").Str("id", id).
		Int("sent_to", res.SentTo).Msg("bridge message relayed")
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
