package notifier

import (
	"context"
	"time"

	"github.com/san928811-pixel/Auto-sender-boat/internal/transport"
)

// Outcome classifies a single welcome delivery attempt.
type Outcome int

const (
	// OutcomeSent: delivered on the first attempt.
	OutcomeSent Outcome = iota
	// OutcomeSkippedByCooldown: the store denied the send; no outbound call.
	OutcomeSkippedByCooldown
	// OutcomeForbidden: the recipient cannot be messaged; not retried.
	OutcomeForbidden
	// OutcomeRetriedSent: rate limited, then delivered on the single retry.
	OutcomeRetriedSent
	// OutcomeRetriedFailed: rate limited and the single retry failed too.
	OutcomeRetriedFailed
	// OutcomeFailed: generic transport error; not retried.
	OutcomeFailed
	// OutcomeStoreError: the cooldown store failed; nothing was sent and
	// the error is surfaced rather than guessed as permit or deny.
	OutcomeStoreError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeSkippedByCooldown:
		return "skipped_by_cooldown"
	case OutcomeForbidden:
		return "forbidden"
	case OutcomeRetriedSent:
		return "retried_sent"
	case OutcomeRetriedFailed:
		return "retried_failed"
	case OutcomeFailed:
		return "failed"
	case OutcomeStoreError:
		return "store_error"
	default:
		return "unknown"
	}
}

// SendGate is the slice of the cooldown store the notifier needs. Tests
// swap in an in-memory fake.
type SendGate interface {
	ShouldSend(ctx context.Context, userID int64, now time.Time) (bool, error)
}

// Sender is the outbound transport primitive.
type Sender interface {
	SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error)
}

// Config is the outbound message surface.
type Config struct {
	Template   string
	Links      []transport.LinkButton
	RatePerSec int
}
