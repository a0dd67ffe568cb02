package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/san928811-pixel/Auto-sender-boat/internal/transport"
	logx "github.com/san928811-pixel/Auto-sender-boat/pkg/logx"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()

	t.Run("flood maps to retry-after", func(t *testing.T) {
		t.Parallel()
		err := classifyError(tele.FloodError{RetryAfter: 5})
		after, ok := transport.RetryAfter(err)
		if !ok {
			t.Fatalf("expected retry-after signal, got %v", err)
		}
		if after != 5*time.Second {
			t.Fatalf("retry-after = %v, want 5s", after)
		}
	})

	t.Run("403 maps to forbidden", func(t *testing.T) {
		t.Parallel()
		cases := []string{
			"Forbidden: bot was blocked by the user",
			"Forbidden: user is deactivated",
			"Forbidden: bot can't initiate conversation with a user",
		}
		for _, desc := range cases {
			err := classifyError(&tele.Error{Code: 403, Description: desc})
			if !errors.Is(err, transport.ErrForbidden) {
				t.Fatalf("%q not classified as forbidden: %v", desc, err)
			}
		}
	})

	t.Run("other errors pass through", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("dial tcp: timeout")
		if got := classifyError(boom); got != boom {
			t.Fatalf("unrelated error rewritten: %v", got)
		}
		badReq := &tele.Error{Code: 400, Description: "Bad Request: chat not found"}
		got := classifyError(badReq)
		if errors.Is(got, transport.ErrForbidden) {
			t.Fatal("400 misclassified as forbidden")
		}
		if _, ok := transport.RetryAfter(got); ok {
			t.Fatal("400 misclassified as rate limit")
		}
	})

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		if err := classifyError(nil); err != nil {
			t.Fatalf("classifyError(nil) = %v", err)
		}
	})
}

func TestLinkMarkupSingleRow(t *testing.T) {
	t.Parallel()
	buttons := []transport.LinkButton{
		{Label: "Rules", URL: "https://example.com/rules"},
		{Label: "Help", URL: "https://example.com/help"},
	}
	markup := linkMarkup(buttons)
	if len(markup.InlineKeyboard) != 1 {
		t.Fatalf("rows = %d, want one row of buttons", len(markup.InlineKeyboard))
	}
	row := markup.InlineKeyboard[0]
	if len(row) != len(buttons) {
		t.Fatalf("buttons in row = %d, want %d", len(row), len(buttons))
	}
	if row[0].Text != "Rules" || row[0].URL != "https://example.com/rules" {
		t.Fatalf("unexpected first button: %+v", row[0])
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestStopWithoutStartIsNoop(t *testing.T) {
	t.Parallel()
	a := &Adapter{log: logx.Nop()}

	// Stop must return immediately without touching the bot: telebot's
	// Stop blocks forever when the poller never ran.
	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := a.Stop(ctx)
		cancel()
		if err != nil {
			t.Fatalf("Stop #%d: %v", i+1, err)
		}
	}
}
