package app

import (
	"context"

	"github.com/dkeye/leadrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// MessageSink receives every relayed message after fan-out. Persisting them
// is the sink's business; the relay never reads them back.
type MessageSink interface {
	Record(ctx context.Context, msg domain.Message) error
}

// LogSink writes relayed messages to the debug log. It is the default when no
// chat-history service is wired in.
type LogSink struct{}

func (LogSink) Record(_ context.Context, msg domain.Message) error {
	log.Debug().
		Str("module", "app.sink").
		Str("id", msg.ID).
		Str("lead", string(msg.LeadID)).
		Str("variant", string(msg.Variant)).
		Str("sender", string(msg.Sender)).
		Time("at", msg.Timestamp).
		Msg("message relayed")
	return nil
}
