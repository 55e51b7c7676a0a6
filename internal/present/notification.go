package present

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/nguyentranbao-ct/kvrp/pkg/logger"
	"github.com/nguyentranbao-ct/kvrp/pkg/tmplx"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed notification_texts.yaml
var notificationTextsData []byte

type notificationTextEntry struct {
	Kind  models.NotificationKind `yaml:"kind"`
	Texts map[string]string       `yaml:"texts"`
}

var notificationTexts = mustLoadNotificationTexts(notificationTextsData)

var fallbackText = tmplx.MustParse("notification", `New notification from {{default "someone" .From}}`)

func mustSenderTemplate(name, text string) *tmplx.Template {
	return tmplx.MustParse(name, text, tmplx.WithSample(notificationData{From: "Guest-0001"}, func(out string) error {
		if !strings.Contains(out, "Guest-0001") {
			return errors.New("text must name the sender")
		}
		return nil
	}))
}

// mustLoadNotificationTexts panics on a text that is not keyed by a
// supported locale or does not name the sender.
func mustLoadNotificationTexts(data []byte) map[models.NotificationKind]map[language.Tag]*tmplx.Template {
	var entries []notificationTextEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		panic(fmt.Errorf("unmarshal notification texts: %w", err))
	}
	out := make(map[models.NotificationKind]map[language.Tag]*tmplx.Template, len(entries))
	for _, e := range entries {
		if _, ok := e.Texts[language.English.String()]; !ok {
			panic(fmt.Errorf("notification %s: missing %s text", e.Kind, language.English))
		}
		byTag := make(map[language.Tag]*tmplx.Template, len(e.Texts))
		for code, text := range e.Texts {
			tag, err := language.Parse(code)
			if err != nil || !slices.Contains(supported, tag) {
				panic(fmt.Errorf("notification %s: unsupported locale %q", e.Kind, code))
			}
			byTag[tag] = mustSenderTemplate(string(e.Kind)+"."+code, text)
		}
		out[e.Kind] = byTag
	}
	return out
}

type notificationData struct {
	From string
	To   string
}

type NotificationView struct {
	ID         models.ObjectID         `json:"id"`
	From       string                  `json:"from"`
	Kind       models.NotificationKind `json:"kind"`
	Text       string                  `json:"text"`
	Read       bool                    `json:"read"`
	Actionable bool                    `json:"actionable"`
	Timestamp  string                  `json:"timestamp"`
	Relative   string                  `json:"relative"`
}

func Notifications(items []models.Notification, f Formatter) []NotificationView {
	out := make([]NotificationView, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationView{
			ID:         n.ID,
			From:       n.FromUser,
			Kind:       n.Kind,
			Text:       NotificationText(n, f.Tag),
			Read:       n.Read,
			Actionable: n.Kind == models.NotifyFriendRequest && !n.Read,
			Timestamp:  f.Timestamp(n.CreatedAt),
			Relative:   f.Relative(n.CreatedAt),
		})
	}
	return out
}

// NotificationText renders n in the viewer's locale, falling back to English.
func NotificationText(n models.Notification, tag language.Tag) string {
	tmpl := fallbackText
	if byTag, ok := notificationTexts[n.Kind]; ok {
		if t, ok := byTag[tag]; ok {
			tmpl = t
		} else {
			tmpl = byTag[language.English]
		}
	}
	text, err := tmpl.Render(notificationData{From: n.FromUser, To: n.ToUser})
	if err != nil {
		logger.MustNamed("present").Warnw("render notification", "kind", n.Kind, "error", err)
		return ""
	}
	return text
}
