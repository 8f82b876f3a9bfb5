package main

import (
	"chat-relay/domain"
	"fmt"

	"github.com/gookit/color"
)

// Renderer formats incoming messages as terminal lines.
type Renderer struct {
	colours bool
}

func NewRenderer(colours bool) Renderer {
	return Renderer{colours: colours}
}

// Render returns the lines to print for one incoming message. History
// batches expand into one line per replayed message.
func (r Renderer) Render(m domain.ChatMessage) []string {
	kind, payload := domain.ParseNotice(m)
	switch kind {
	case domain.NoticeError:
		return []string{r.paint(color.FgRed, "! "+payload)}
	case domain.NoticeUserCount:
		return []string{r.paint(color.FgYellow, fmt.Sprintf("* %s user(s) in the room", payload))}
	case domain.NoticeHistory:
		messages, err := domain.DecodeHistory(payload)
		if err != nil {
			return []string{r.paint(color.FgRed, "! unreadable history: "+err.Error())}
		}
		if len(messages) == 0 {
			return []string{r.paint(color.FgDarkGray, "--- no earlier messages ---")}
		}
		lines := []string{r.paint(color.FgDarkGray, fmt.Sprintf("--- %d earlier message(s) ---", len(messages)))}
		for _, message := range messages {
			lines = append(lines, r.chatLine(message))
		}
		return append(lines, r.paint(color.FgDarkGray, "--- live ---"))
	}
	if m.UserName == domain.SystemUserName {
		return []string{r.paint(color.FgCyan, "* "+m.Content())}
	}
	return []string{r.chatLine(m)}
}

func (r Renderer) chatLine(m domain.ChatMessage) string {
	return fmt.Sprintf("%s: %s", r.paint(color.FgGreen, m.UserName), m.Content())
}

func (r Renderer) paint(c color.Color, text string) string {
	if !r.colours {
		return text
	}
	return c.Render(text)
}
