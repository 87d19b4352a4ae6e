package client

import (
	"fmt"
	"strings"
	"time"

	"secretheart/internal/models"
)

const previewRunes = 60

// Render draws s as plain text for a terminal.
func Render(s State) string {
	var b strings.Builder

	switch v := s.View.(type) {
	case LandingView:
		b.WriteString("Secret Heart\n")
		b.WriteString("Whisper what you can't say out loud.\n\n")
		b.WriteString("[s] share a secret   [b] browse the wall\n")

	case FormView:
		b.WriteString("New confession\n\n")
		b.WriteString("Type your confession and press enter. An empty line goes back.\n")

	case FeedView:
		b.WriteString("The wall\n\n")
		switch {
		case s.Loading:
			b.WriteString("Loading confessions...\n")
		case len(s.Confessions) == 0:
			b.WriteString("No confessions yet. Be the first.\n")
		default:
			for _, c := range s.Confessions {
				fmt.Fprintf(&b, "#%-5d ♥ %-4d %s\n", c.ID, c.Likes, preview(c.Message))
			}
		}
		b.WriteString("\n[<id>] open   [l <id>] like   [r] refresh   [a] add   [q] back\n")

	case DetailView:
		c := v.Confession
		fmt.Fprintf(&b, "Confession #%d\n\n", c.ID)
		b.WriteString(c.Message)
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "♥ %d   %s\n", c.Likes, humanTime(c))
		b.WriteString("\n[l] like   [q] back\n")
	}

	return b.String()
}

func preview(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	r := []rune(msg)
	if len(r) <= previewRunes {
		return msg
	}
	return string(r[:previewRunes-1]) + "…"
}

func humanTime(c models.Confession) string {
	t, err := time.Parse(time.RFC3339Nano, c.CreatedAt)
	if err != nil {
		return c.CreatedAt
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}
