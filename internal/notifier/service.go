package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/san928811-pixel/Auto-sender-boat/internal/transport"
	logx "github.com/san928811-pixel/Auto-sender-boat/pkg/logx"
)

// Service sends the welcome message for a join request, gated by the
// cooldown store. Safe for concurrent use.
type Service struct {
	gate   SendGate
	sender Sender
	log    logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter

	// retryMargin is added on top of the server-advertised retry-after
	// wait. now is swappable in tests.
	retryMargin time.Duration
	now         func() time.Time
}

func New(cfg Config, gate SendGate, sender Sender, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{gate: gate, sender: sender, log: log, retryMargin: time.Second, now: time.Now}
	s.applyLocked(cfg)
	return s
}

// Apply swaps the message surface at runtime (config hot reload).
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 3
	}
	if len(cfg.Links) == 0 {
		cfg.Links = DefaultLinks
	}
	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't queue hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Notify consults the cooldown store and, if permitted, sends the welcome
// message to the requester with a single bounded retry on flood control.
//
// The permit is recorded before the send and is not rolled back on delivery
// failure, so a failed delivery still consumes the cooldown window. The
// returned error is the underlying transport or store error; the Outcome is
// what the caller should act on.
func (s *Service) Notify(ctx context.Context, req transport.JoinRequest) (Outcome, error) {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	permitted, err := s.gate.ShouldSend(ctx, req.UserID, s.now())
	if err != nil {
		return OutcomeStoreError, fmt.Errorf("cooldown check for user %d: %w", req.UserID, err)
	}
	if !permitted {
		return OutcomeSkippedByCooldown, nil
	}

	text := renderTemplate(cfg.Template, req)
	to := transport.ChatTarget{ChatID: req.UserID}
	opt := &transport.SendOptions{DisablePreview: true, Buttons: cfg.Links}

	if err := lim.Wait(ctx); err != nil {
		return OutcomeFailed, err
	}

	_, err = s.sender.SendText(ctx, to, text, opt)
	if err == nil {
		return OutcomeSent, nil
	}
	if errors.Is(err, transport.ErrForbidden) {
		return OutcomeForbidden, err
	}

	after, ok := transport.RetryAfter(err)
	if !ok {
		return OutcomeFailed, err
	}

	// Flood control: wait the advertised duration plus a margin, then retry
	// exactly once. The outcome reflects the retry's result.
	s.log.Debug("rate limited, waiting before retry",
		logx.Int64("user_id", req.UserID), logx.Duration("retry_after", after))
	if err := sleepCtx(ctx, after+s.retryMargin); err != nil {
		return OutcomeRetriedFailed, err
	}

	_, err = s.sender.SendText(ctx, to, text, opt)
	if err == nil {
		return OutcomeRetriedSent, nil
	}
	return OutcomeRetriedFailed, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
