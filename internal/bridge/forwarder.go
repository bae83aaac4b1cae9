package bridge

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Sink is the send side of the bridge API, narrowed for testing.
type Sink interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendPhoto(ctx context.Context, chatID string, photo []byte) error
}

// Forwarder relays room traffic out to the bridge chat. Forwarding is
// a side channel: failures are logged and swallowed, never returned.
type Forwarder struct {
	sink   Sink
	chatID string
}

func NewForwarder(sink Sink, chatID string) *Forwarder {
	return &Forwarder{sink: sink, chatID: chatID}
}

func (f *Forwarder) ForwardText(ctx context.Context, text string) {
	if err := f.sink.SendMessage(ctx, f.chatID, text); err != nil {
		log.Warn().Err(err).Str("module", "bridge.forwarder").Msg("text forward failed")
	}
}

func (f *Forwarder) ForwardImage(ctx context.Context, data []byte) {
	if err := f.sink.SendPhoto(ctx, f.chatID, data); err != nil {
		log.Warn().Err(err).Str("module", "bridge.forwarder").Msg("image forward failed")
	}
}
