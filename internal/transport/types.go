package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type UpdateKind string

const (
	UpdateJoinRequest UpdateKind = "join_request"
)

type Update struct {
	Kind        UpdateKind
	JoinRequest *JoinRequest
}

// JoinRequest is a pending membership request a user submitted to a
// restricted chat. The request stays pending; the bot only reacts to it.
type JoinRequest struct {
	UserID    int64
	FirstName string
	Username  string

	ChatID       int64
	ChatTitle    string
	ChatUsername string
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

// LinkButton renders as a single inline URL button under the message.
type LinkButton struct {
	Label string
	URL   string
}

type SendOptions struct {
	ParseMode      string
	DisablePreview bool
	Buttons        []LinkButton
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

// ErrForbidden means the recipient cannot currently receive direct messages
// from the bot (never started a chat with it, blocked it, or is deactivated).
// Not retryable.
var ErrForbidden = errors.New("recipient unreachable")

// RetryAfterError is the transport's flood-control signal: pause for After
// before retrying.
type RetryAfterError struct {
	After time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.After)
}

// RetryAfter extracts the advised wait duration if err is a rate-limit signal.
func RetryAfter(err error) (time.Duration, bool) {
	var ra *RetryAfterError
	if errors.As(err, &ra) {
		return ra.After, true
	}
	return 0, false
}
