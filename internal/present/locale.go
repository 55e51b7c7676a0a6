package present

import (
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
)

var supported = []language.Tag{
	language.English,
	language.Vietnamese,
	language.German,
	language.French,
	language.Japanese,
}

var matcher = language.NewMatcher(supported)

var layouts = map[language.Tag]string{
	language.English:    "Jan 2, 2006 3:04 PM",
	language.Vietnamese: "15:04 02/01/2006",
	language.German:     "02.01.2006 15:04",
	language.French:     "02/01/2006 15:04",
	language.Japanese:   "2006/01/02 15:04",
}

// Formatter renders instants for one viewer locale.
type Formatter struct {
	Tag      language.Tag
	Location *time.Location
	Now      func() time.Time
}

// NewFormatter picks the closest supported locale for an Accept-Language
// header or a bare tag such as "vi". Unknown input falls back to English.
func NewFormatter(accept string, loc *time.Location) Formatter {
	if loc == nil {
		loc = time.Local
	}
	tag := language.English
	if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
		_, idx, conf := matcher.Match(tags...)
		if conf != language.No {
			tag = supported[idx]
		}
	}
	return Formatter{Tag: tag, Location: loc, Now: time.Now}
}

func (f Formatter) Timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	layout, ok := layouts[f.Tag]
	if !ok {
		layout = layouts[language.English]
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}

func (f Formatter) Relative(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return humanize.RelTime(t, now(), "ago", "from now")
}
