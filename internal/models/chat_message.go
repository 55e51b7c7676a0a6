package models

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

const (
	PublicChannel  = "public"
	MaxMessageBody = 500
)

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVoice AttachmentKind = "voice"
)

// MediaToken matches the inline [IMAGE:url] and [VOICE:url] markers that
// rows written by older clients carry in their body.
var MediaToken = regexp.MustCompile(`\[(IMAGE|VOICE):([^\]\s]+)\]`)

// HasMediaToken reports whether body would be read as carrying inline media.
func HasMediaToken(body string) bool {
	return MediaToken.MatchString(body)
}

// MediaURL accepts only absolute http(s) URLs as attachment targets.
func MediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

type Attachment struct {
	Kind       AttachmentKind `bson:"kind" json:"kind"`
	URL        string         `bson:"url" json:"url"`
	DurationMs int64          `bson:"duration_ms,omitempty" json:"duration_ms,omitempty"`
}

// ChatMessage is a row of the public chat or of a private conversation.
type ChatMessage struct {
	ID          ObjectID            `bson:"_id" json:"id"`
	Channel     string              `bson:"channel" json:"channel"`
	Author      string              `bson:"author" json:"author"`
	Body        string              `bson:"body" json:"body"`
	ReplyTo     ObjectID            `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	Reactions   map[string][]string `bson:"reactions,omitempty" json:"reactions,omitempty"`
	Attachments []Attachment        `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Timestamps  `bson:",inline"`
}

func (ChatMessage) CollectionName() string {
	return "chat_messages"
}

func (m ChatMessage) GetObjectID() ObjectID {
	return m.ID
}

func (m ChatMessage) Key() string {
	return string(m.ID)
}

// DirectChannel is the channel key of the conversation between a and b,
// independent of argument order.
func DirectChannel(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return fmt.Sprintf("dm:%s:%s", pair[0], pair[1])
}

// ChannelMembers returns the two participants of a direct channel.
func ChannelMembers(channel string) (string, string, bool) {
	rest, ok := strings.CutPrefix(channel, "dm:")
	if !ok {
		return "", "", false
	}
	a, b, ok := strings.Cut(rest, ":")
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return a, b, true
}

// CanRead reports whether user may see messages of channel.
func CanRead(channel, user string) bool {
	if channel == PublicChannel {
		return true
	}
	a, b, ok := ChannelMembers(channel)
	return ok && (user == a || user == b)
}

// ToggleReaction flips the membership of user in the emoji set and returns
// a new map. Empty sets are removed. It mirrors the update pipeline of
// chatMessageRepo.ToggleReaction in repo/mongodb; in-memory stores use
// this form.
func ToggleReaction(reactions map[string][]string, emoji, user string) map[string][]string {
	out := make(map[string][]string, len(reactions)+1)
	for k, v := range reactions {
		out[k] = append([]string(nil), v...)
	}
	users := out[emoji]
	idx := -1
	for i, u := range users {
		if u == user {
			idx = i
			break
		}
	}
	if idx >= 0 {
		users = append(users[:idx], users[idx+1:]...)
	} else {
		users = uniqueSorted(append(users, user))
	}
	if len(users) == 0 {
		delete(out, emoji)
	} else {
		out[emoji] = users
	}
	return out
}

// HasReacted reports whether user is in the emoji set.
func HasReacted(reactions map[string][]string, emoji, user string) bool {
	for _, u := range reactions[emoji] {
		if u == user {
			return true
		}
	}
	return false
}
