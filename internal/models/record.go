package models

import (
	"sort"
	"time"
)

// Record is anything a live feed can hold.
type Record interface {
	Key() string
	Created() time.Time
	Updated() time.Time
}

// Timestamps is embedded by every stored record.
type Timestamps struct {
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (t Timestamps) Created() time.Time { return t.CreatedAt }
func (t Timestamps) Updated() time.Time { return t.UpdatedAt }

// Stamp sets both timestamps for a new record.
func (t *Timestamps) Stamp(now time.Time) {
	now = now.UTC().Truncate(time.Millisecond)
	t.CreatedAt = now
	t.UpdatedAt = now
}

// uniqueSorted returns the distinct values of in, sorted.
func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
