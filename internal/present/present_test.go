package present

import (
	"strings"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var (
	t0  = time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	enFormat = Formatter{Tag: language.English, Location: time.UTC, Now: func() time.Time { return t0.Add(3 * time.Minute) }}
)

func stamp(t time.Time) models.Timestamps {
	return models.Timestamps{CreatedAt: t, UpdatedAt: t}
}

func TestSplitMedia(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		text  string
		kinds []models.AttachmentKind
		urls  []string
	}{
		{"none", "plain text", "plain text", nil, nil},
		{"image", "look [IMAGE:http://x/a.png]", "look", []models.AttachmentKind{models.AttachmentImage}, []string{"http://x/a.png"}},
		{"voice only", "[VOICE:http://x/v.ogg]", "", []models.AttachmentKind{models.AttachmentVoice}, []string{"http://x/v.ogg"}},
		{
			"two in order", "[VOICE:https://x/v1]  between  [IMAGE:http://x/i1] end", "between end",
			[]models.AttachmentKind{models.AttachmentVoice, models.AttachmentImage}, []string{"https://x/v1", "http://x/i1"},
		},
		{"malformed kept", "[IMAGE:] and [AUDIO:x]", "[IMAGE:] and [AUDIO:x]", nil, nil},
		{"script scheme kept as text", "look [IMAGE:javascript:alert(1)]", "look [IMAGE:javascript:alert(1)]", nil, nil},
		{"relative url kept as text", "[VOICE:/blobs/v.ogg] hi", "[VOICE:/blobs/v.ogg] hi", nil, nil},
		{
			"only safe tokens extracted", "[IMAGE:data:image/png;base64,AA] [IMAGE:https://x/ok.png]", "[IMAGE:data:image/png;base64,AA]",
			[]models.AttachmentKind{models.AttachmentImage}, []string{"https://x/ok.png"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, atts := SplitMedia(tt.body)
			assert.Equal(t, tt.text, text)
			require.Len(t, atts, len(tt.urls))
			for i := range atts {
				assert.Equal(t, tt.kinds[i], atts[i].Kind)
				assert.Equal(t, tt.urls[i], atts[i].URL)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	target := models.ChatMessage{
		ID:         models.NewObjectID(),
		Author:     "alice",
		Body:       strings.Repeat("a", 100) + " [IMAGE:http://x/legacy.png]",
		Timestamps: stamp(t0),
	}
	reply := models.ChatMessage{
		ID:      models.NewObjectID(),
		Author:  "bob",
		Body:    "agreed [IMAGE:http://x/ignored.png]",
		ReplyTo: target.ID,
		Attachments: []models.Attachment{
			{Kind: models.AttachmentVoice, URL: "http://x/v.ogg", DurationMs: 2500},
		},
		Reactions: map[string][]string{
			"👍": {"alice"},
			"😂": {"alice", "carol"},
			"🎉": {"bob", "carol"},
			"❤": {},
		},
		Timestamps: stamp(t0.Add(time.Minute)),
	}
	orphan := models.ChatMessage{
		ID:         models.NewObjectID(),
		Author:     "carol",
		Body:       "what?",
		ReplyTo:    models.NewObjectID(),
		Timestamps: stamp(t0.Add(2 * time.Minute)),
	}

	views := Messages([]models.ChatMessage{target, reply, orphan}, "bob", enFormat)
	require.Len(t, views, 3)

	first := views[0]
	assert.Equal(t, strings.Repeat("a", 100), first.Text)
	require.NotNil(t, first.Image)
	assert.Equal(t, "http://x/legacy.png", first.Image.URL)
	assert.Nil(t, first.Quote)
	assert.False(t, first.Own)
	assert.Equal(t, "Mar 5, 2024 2:07 PM", first.Timestamp)
	assert.Equal(t, "3 minutes ago", first.Relative)
	assert.Empty(t, first.Reactions)

	second := views[1]
	assert.True(t, second.Own)
	assert.Equal(t, "agreed", second.Text)
	assert.Nil(t, second.Image)
	require.NotNil(t, second.Voice)
	assert.EqualValues(t, 2500, second.Voice.DurationMs)
	require.NotNil(t, second.Quote)
	assert.Equal(t, "alice", second.Quote.Author)
	assert.Equal(t, 80, len([]rune(second.Quote.Snippet)))
	assert.True(t, strings.HasSuffix(second.Quote.Snippet, "…"))
	assert.Equal(t, []Reaction{
		{Emoji: "🎉", Count: 2, Mine: true},
		{Emoji: "😂", Count: 2, Mine: false},
		{Emoji: "👍", Count: 1, Mine: false},
	}, second.Reactions)

	assert.Nil(t, views[2].Quote)
}

func TestMessages_UnsafeInlineMedia(t *testing.T) {
	msg := models.ChatMessage{ID: models.NewObjectID(), Author: "alice", Body: "look [IMAGE:javascript:alert(1)]"}
	views := Messages([]models.ChatMessage{msg}, "bob", enFormat)
	require.Len(t, views, 1)
	assert.Nil(t, views[0].Image)
	assert.Equal(t, "look [IMAGE:javascript:alert(1)]", views[0].Text)
}

func TestMessages_QuoteOfMediaOnly(t *testing.T) {
	target := models.ChatMessage{ID: models.NewObjectID(), Author: "alice", Body: "[VOICE:http://x/v.ogg]"}
	reply := models.ChatMessage{ID: models.NewObjectID(), Author: "bob", Body: "nice", ReplyTo: target.ID}
	views := Messages([]models.ChatMessage{target, reply}, "bob", enFormat)
	require.NotNil(t, views[1].Quote)
	assert.Equal(t, "Voice message", views[1].Quote.Snippet)
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		accept string
		want   language.Tag
	}{
		{"", language.English},
		{"vi", language.Vietnamese},
		{"de-CH,de;q=0.9,en;q=0.8", language.German},
		{"fr-CA", language.French},
		{"ja-JP", language.Japanese},
		{"xx", language.English},
		{"%%%", language.English},
	}
	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			assert.Equal(t, tt.want, NewFormatter(tt.accept, time.UTC).Tag)
		})
	}

	f := NewFormatter("de", time.UTC)
	assert.Equal(t, "05.03.2024 14:07", f.Timestamp(t0))
	assert.Empty(t, f.Timestamp(time.Time{}))
	assert.Empty(t, f.Relative(time.Time{}))
}

func TestPosts(t *testing.T) {
	p := models.ApplyLikeState(models.Post{ID: models.NewObjectID(), Author: "alice", Title: "T", Timestamps: stamp(t0)}, "bob", models.LikeDislike)
	views := Posts([]models.Post{p}, "bob", enFormat)
	require.Len(t, views, 1)
	assert.Equal(t, models.LikeDislike, views[0].MyState)
	assert.Equal(t, 1, views[0].DislikeCount)
	assert.False(t, views[0].Own)
}

func TestNotifications(t *testing.T) {
	items := []models.Notification{
		{ID: models.NewObjectID(), FromUser: "bob", Kind: models.NotifyFriendRequest},
		{ID: models.NewObjectID(), FromUser: "carol", Kind: models.NotifyFriendAccepted, Read: true},
		{ID: models.NewObjectID(), FromUser: "dave", Kind: models.NotifyChatRequest},
		{ID: models.NewObjectID(), Kind: "poke"},
	}
	views := Notifications(items, enFormat)
	require.Len(t, views, 4)
	assert.Equal(t, "bob sent you a friend request", views[0].Text)
	assert.True(t, views[0].Actionable)
	assert.Equal(t, "carol accepted your friend request", views[1].Text)
	assert.False(t, views[1].Actionable)
	assert.Equal(t, "dave wants to chat with you", views[2].Text)
	assert.Equal(t, "New notification from someone", views[3].Text)
}

func TestNotificationText_Locale(t *testing.T) {
	n := models.Notification{FromUser: "bob", Kind: models.NotifyFriendAccepted}
	assert.Equal(t, "bob hat deine Freundschaftsanfrage angenommen", NotificationText(n, language.German))
	assert.Equal(t, "bob accepted your friend request", NotificationText(n, language.Korean))

	views := Notifications([]models.Notification{n}, NewFormatter("vi-VN,vi;q=0.9", time.UTC))
	assert.Equal(t, "bob đã chấp nhận lời mời kết bạn của bạn", views[0].Text)
}

func TestAnnouncements(t *testing.T) {
	items := []models.Announcement{
		{ID: "a", Title: "old"},
		{ID: "b", Title: "pinned", Pinned: true},
		{ID: "c", Title: "new"},
	}
	views := Announcements(items, enFormat)
	assert.Equal(t, []models.ObjectID{"b", "a", "c"}, []models.ObjectID{views[0].ID, views[1].ID, views[2].ID})
}

func TestReports(t *testing.T) {
	views := Reports([]models.Report{{ID: "r", Status: models.ReportClosed, AdminResponse: "done"}}, enFormat)
	require.Len(t, views, 1)
	assert.Equal(t, models.ReportClosed, views[0].Status)
	assert.Equal(t, "done", views[0].AdminResponse)
}
