package notifier

import (
	"strings"

	"github.com/san928811-pixel/Auto-sender-boat/internal/transport"
)

// DefaultTemplate is used when the config leaves welcome.template empty.
// Recognized placeholders: {name} (requester first name) and {chat}
// (target chat @username or title).
const DefaultTemplate = "Hello {name} \U0001F44B\n" +
	"Thanks for requesting to join {chat}!\n\n" +
	"Please check these important links before approval:\n"

// DefaultLinks is used when the config leaves welcome.links empty.
var DefaultLinks = []transport.LinkButton{
	{Label: "Rules", URL: "https://example.com/rules"},
	{Label: "Help", URL: "https://example.com/help"},
	{Label: "Info", URL: "https://example.com/info"},
}

// renderTemplate substitutes the recognized placeholders. Unknown braced
// tokens pass through untouched.
func renderTemplate(tpl string, req transport.JoinRequest) string {
	if strings.TrimSpace(tpl) == "" {
		tpl = DefaultTemplate
	}
	return strings.NewReplacer(
		"{name}", displayName(req),
		"{chat}", chatLabel(req),
	).Replace(tpl)
}

func displayName(req transport.JoinRequest) string {
	if n := strings.TrimSpace(req.FirstName); n != "" {
		return n
	}
	if u := strings.TrimSpace(req.Username); u != "" {
		return "@" + u
	}
	return "there"
}

func chatLabel(req transport.JoinRequest) string {
	if u := strings.TrimSpace(req.ChatUsername); u != "" {
		return "@" + u
	}
	if t := strings.TrimSpace(req.ChatTitle); t != "" {
		return t
	}
	return "our channel"
}
