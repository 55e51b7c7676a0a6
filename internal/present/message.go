// Package present turns reconciled feed items into view models for one
// viewer. Everything here is a pure function of its inputs.
package present

import (
	"sort"
	"unicode/utf8"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
)

const quoteRunes = 80

type Quote struct {
	ID      models.ObjectID `json:"id"`
	Author  string          `json:"author"`
	Snippet string          `json:"snippet"`
}

type Reaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
	Mine  bool   `json:"mine"`
}

type Media struct {
	URL        string `json:"url"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

type MessageView struct {
	ID        models.ObjectID `json:"id"`
	Author    string          `json:"author"`
	Text      string          `json:"text"`
	Image     *Media          `json:"image,omitempty"`
	Voice     *Media          `json:"voice,omitempty"`
	Quote     *Quote          `json:"quote,omitempty"`
	Reactions []Reaction      `json:"reactions"`
	Timestamp string          `json:"timestamp"`
	Relative  string          `json:"relative"`
	Own       bool            `json:"own"`
}

// Messages renders items in their given order. A reply whose target is not
// among items gets no quote.
func Messages(items []models.ChatMessage, viewer string, f Formatter) []MessageView {
	byID := make(map[models.ObjectID]*models.ChatMessage, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	out := make([]MessageView, 0, len(items))
	for _, msg := range items {
		text, atts := media(msg)
		v := MessageView{
			ID:        msg.ID,
			Author:    msg.Author,
			Text:      text,
			Reactions: Reactions(msg.Reactions, viewer),
			Timestamp: f.Timestamp(msg.CreatedAt),
			Relative:  f.Relative(msg.CreatedAt),
			Own:       msg.Author == viewer,
		}
		for _, a := range atts {
			switch a.Kind {
			case models.AttachmentImage:
				if v.Image == nil {
					v.Image = &Media{URL: a.URL}
				}
			case models.AttachmentVoice:
				if v.Voice == nil {
					v.Voice = &Media{URL: a.URL, DurationMs: a.DurationMs}
				}
			}
		}
		if !msg.ReplyTo.IsZero() {
			if target, ok := byID[msg.ReplyTo]; ok {
				v.Quote = &Quote{ID: target.ID, Author: target.Author, Snippet: snippet(*target)}
			}
		}
		out = append(out, v)
	}
	return out
}

// Reactions tallies reaction sets, most used first and then by emoji.
func Reactions(reactions map[string][]string, viewer string) []Reaction {
	out := make([]Reaction, 0, len(reactions))
	for emoji, users := range reactions {
		if len(users) == 0 {
			continue
		}
		out = append(out, Reaction{
			Emoji: emoji,
			Count: len(users),
			Mine:  models.HasReacted(reactions, emoji, viewer),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Emoji < out[j].Emoji
	})
	return out
}

func snippet(msg models.ChatMessage) string {
	text, atts := media(msg)
	if text == "" && len(atts) > 0 {
		if atts[0].Kind == models.AttachmentVoice {
			return "Voice message"
		}
		return "Photo"
	}
	return truncate(text, quoteRunes)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
