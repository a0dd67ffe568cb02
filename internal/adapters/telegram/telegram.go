package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/san928811-pixel/Auto-sender-boat/internal/transport"
	logx "github.com/san928811-pixel/Auto-sender-boat/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// Adapter bridges telebot to the transport contract: it long-polls for
// chat join requests and exposes the direct-message send primitive.
type Adapter struct {
	cfg Config
	log logx.Logger

	bot       *tele.Bot
	runCancel context.CancelFunc
	runWG     sync.WaitGroup
	runMu     sync.Mutex
	running   bool

	// droppedUpdates counts join requests dropped because the consumer was
	// slower than the poll loop. Logged periodically, not per update.
	droppedUpdates uint64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token: cfg.Token,
		Poller: &tele.LongPoller{
			Timeout: timeout,
			// Only join requests; the bot has no command surface.
			AllowedUpdates: []string{"chat_join_request"},
		},
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{cfg: cfg, log: log, bot: b}, nil
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runWG.Add(2)
	a.runMu.Unlock()

	// Periodic summary for dropped updates.
	go func() {
		defer a.runWG.Done()
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-rctx.Done():
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn("join requests dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", cap(out)))
				}
				return
			case <-ticker.C:
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn("join requests dropped (channel full)", logx.Uint64("count", n), logx.Int("chan_cap", cap(out)))
				}
			}
		}
	}()

	a.bot.Handle(tele.OnChatJoinRequest, func(c tele.Context) error {
		r := c.Update().ChatJoinRequest
		if r == nil || r.Sender == nil || r.Chat == nil {
			return nil
		}
		up := transport.Update{
			Kind: transport.UpdateJoinRequest,
			JoinRequest: &transport.JoinRequest{
				UserID:       r.Sender.ID,
				FirstName:    r.Sender.FirstName,
				Username:     r.Sender.Username,
				ChatID:       r.Chat.ID,
				ChatTitle:    r.Chat.Title,
				ChatUsername: r.Chat.Username,
			},
		}
		select {
		case out <- up:
		default:
			atomic.AddUint64(&a.droppedUpdates, 1)
		}
		return nil
	})

	go func() {
		defer a.runWG.Done()
		go func() {
			<-rctx.Done()
			a.bot.Stop()
		}()
		a.log.Info("polling started")
		a.bot.Start() // blocks until Stop() called
	}()

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	// Cancelling the run context makes the watcher goroutine from Start
	// call bot.Stop(); it must stay the only caller, since telebot drains
	// its stop signal just once.
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		a.runWG.Wait()
		close(done)
	}()

	// Grace window: keep shutdown snappy even if getUpdates long-poll is
	// still waiting.
	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case <-done:
		a.log.Info("polling stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		a.log.Warn("telegram stop grace elapsed; continuing shutdown")
		return nil
	}
}

func (a *Adapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	if opt == nil {
		opt = &transport.SendOptions{}
	}
	chat := &tele.Chat{ID: to.ChatID}
	sendOpt := &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	}
	if len(opt.Buttons) > 0 {
		sendOpt.ReplyMarkup = linkMarkup(opt.Buttons)
	}

	msg, err := a.bot.Send(chat, text, sendOpt)
	if err != nil {
		return transport.MessageRef{}, classifyError(err)
	}
	return transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
}

// linkMarkup renders the links as a single row of inline URL buttons.
func linkMarkup(buttons []transport.LinkButton) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	row := make(tele.Row, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, markup.URL(b.Label, b.URL))
	}
	markup.Inline(row)
	return markup
}

// classifyError maps telebot errors onto the transport taxonomy so the
// notifier never needs to know about telebot.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var fe tele.FloodError
	if errors.As(err, &fe) {
		return &transport.RetryAfterError{After: time.Duration(fe.RetryAfter) * time.Second}
	}
	var te *tele.Error
	if errors.As(err, &te) && te.Code == 403 {
		// Blocked, never-started, or deactivated recipients all surface as
		// 403 Forbidden.
		return fmt.Errorf("%w: %s", transport.ErrForbidden, te.Description)
	}
	return err
}
