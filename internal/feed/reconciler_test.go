package feed

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, created time.Duration, body string) models.ChatMessage {
	m := models.ChatMessage{ID: models.ObjectID(id), Channel: models.PublicChannel, Body: body}
	m.CreatedAt = t0.Add(created)
	m.UpdatedAt = m.CreatedAt
	return m
}

func ins(m models.ChatMessage) models.ChangeEvent[models.ChatMessage] {
	return models.ChangeEvent[models.ChatMessage]{Op: models.OpInsert, ID: m.Key(), Record: m}
}

func upd(m models.ChatMessage) models.ChangeEvent[models.ChatMessage] {
	return models.ChangeEvent[models.ChatMessage]{Op: models.OpUpdate, ID: m.Key(), Record: m}
}

func del(id string) models.ChangeEvent[models.ChatMessage] {
	return models.ChangeEvent[models.ChatMessage]{Op: models.OpDelete, ID: id}
}

func ids(items []models.ChatMessage) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.Key()
	}
	return out
}

func TestReconcilerSnapshotThenInsertThenDelete(t *testing.T) {
	t.Parallel()

	r := NewReconciler[models.ChatMessage](models.Ascending)
	r.Snapshot([]models.ChatMessage{msg("1", 0, "hi")})
	assert.Equal(t, []string{"1"}, ids(r.Items()))

	assert.Equal(t, Applied, r.Apply(ins(msg("2", time.Second, "yo"))))
	assert.Equal(t, []string{"1", "2"}, ids(r.Items()))

	assert.Equal(t, Applied, r.Apply(del("1")))
	assert.Equal(t, []string{"2"}, ids(r.Items()))
	assert.Equal(t, "yo", r.Items()[0].Body)
}

func TestReconcilerIdempotentInsert(t *testing.T) {
	t.Parallel()

	r := NewReconciler[models.ChatMessage](models.Ascending)
	m := msg("1", 0, "hi")
	r.Apply(ins(m))
	r.Apply(ins(m))
	r.Snapshot([]models.ChatMessage{m, m})
	r.Apply(ins(m))
	assert.Equal(t, 1, r.Len())
}

func TestReconcilerUpdateBeforeInsert(t *testing.T) {
	t.Parallel()

	r := NewReconciler[models.ChatMessage](models.Ascending)
	r.Snapshot([]models.ChatMessage{msg("a", 0, ""), msg("c", 2*time.Second, "")})

	original := msg("b", time.Second, "first")
	edited := original
	edited.Body = "edited"
	edited.UpdatedAt = original.UpdatedAt.Add(time.Second)

	assert.Equal(t, Applied, r.Apply(upd(edited)))
	assert.Equal(t, Stale, r.Apply(ins(original)))

	assert.Equal(t, []string{"a", "b", "c"}, ids(r.Items()))
	got, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "edited", got.Body)
}

func TestReconcilerDelete(t *testing.T) {
	t.Parallel()

	r := NewReconciler[models.ChatMessage](models.Ascending)
	r.Snapshot([]models.ChatMessage{msg("1", 0, "")})

	assert.Equal(t, Ignored, r.Apply(del("nope")))
	assert.Equal(t, []string{"1"}, ids(r.Items()))

	// a duplicate insert delivered after the delete must not resurrect it
	assert.Equal(t, Applied, r.Apply(del("1")))
	assert.Equal(t, Tombstoned, r.Apply(ins(msg("1", 0, ""))))
	assert.Zero(t, r.Len())

	// delete before insert converges too
	assert.Equal(t, Ignored, r.Apply(del("2")))
	assert.Equal(t, Tombstoned, r.Apply(ins(msg("2", 0, ""))))

	// a fresh snapshot is authoritative again
	r.Snapshot([]models.ChatMessage{msg("2", 0, "")})
	assert.Equal(t, []string{"2"}, ids(r.Items()))
}

func TestReconcilerOrdering(t *testing.T) {
	t.Parallel()

	t.Run("ascending", func(t *testing.T) {
		r := NewReconciler[models.ChatMessage](models.Ascending)
		r.Snapshot([]models.ChatMessage{msg("c", 3, ""), msg("a", 1, ""), msg("b", 2, ""), msg("b2", 2, "")})
		assert.Equal(t, []string{"a", "b", "b2", "c"}, ids(r.Items()))

		r.Apply(ins(msg("z", 0, "")))
		r.Apply(ins(msg("b3", 2, "")))
		r.Apply(ins(msg("d", 4, "")))
		assert.Equal(t, []string{"z", "a", "b", "b2", "b3", "c", "d"}, ids(r.Items()))
	})

	t.Run("descending", func(t *testing.T) {
		r := NewReconciler[models.ChatMessage](models.Descending)
		r.Snapshot([]models.ChatMessage{msg("a", 1, ""), msg("c", 3, ""), msg("b", 2, ""), msg("b2", 2, "")})
		assert.Equal(t, []string{"c", "b", "b2", "a"}, ids(r.Items()))

		r.Apply(ins(msg("d", 4, "")))
		r.Apply(ins(msg("b3", 2, "")))
		assert.Equal(t, []string{"d", "c", "b3", "b", "b2", "a"}, ids(r.Items()))
	})

	t.Run("update that moves created-at keeps arrival order", func(t *testing.T) {
		r := NewReconciler[models.ChatMessage](models.Ascending)
		r.Snapshot([]models.ChatMessage{msg("a", 1, ""), msg("b", 2, ""), msg("c", 3, "")})
		moved := msg("a", 5, "")
		moved.UpdatedAt = moved.CreatedAt
		r.Apply(upd(moved))
		assert.Equal(t, []string{"b", "c", "a"}, ids(r.Items()))
		_, ok := r.Get("a")
		assert.True(t, ok)
	})
}

func TestReconcilerOutOfOrderReactions(t *testing.T) {
	t.Parallel()

	base := msg("m", 0, "hi")
	added := base
	added.Reactions = map[string][]string{"👍": {"alice"}}
	added.UpdatedAt = t0.Add(10 * time.Millisecond)
	removed := base
	removed.Reactions = nil
	removed.UpdatedAt = t0.Add(20 * time.Millisecond)

	for name, order := range map[string][]models.ChatMessage{
		"in order":     {added, removed},
		"out of order": {removed, added},
	} {
		t.Run(name, func(t *testing.T) {
			r := NewReconciler[models.ChatMessage](models.Ascending)
			r.Snapshot([]models.ChatMessage{base})
			for _, m := range order {
				r.Apply(upd(m))
			}
			got, ok := r.Get("m")
			require.True(t, ok)
			assert.Empty(t, got.Reactions)
			assert.Equal(t, removed.UpdatedAt, got.UpdatedAt)
		})
	}
}

func TestReconcilerItemsIsACopy(t *testing.T) {
	t.Parallel()

	r := NewReconciler[models.ChatMessage](models.Ascending)
	r.Snapshot([]models.ChatMessage{msg("1", 0, "hi")})
	items := r.Items()
	items[0].Body = "changed"
	got, _ := r.Get("1")
	assert.Equal(t, "hi", got.Body)
}

func TestReconcilerTombstonesAreBounded(t *testing.T) {
	t.Parallel()

	r := NewReconciler[models.ChatMessage](models.Ascending)
	for i := range maxTombstones + 1 {
		r.Apply(del(fmt.Sprintf("gone-%d", i)))
	}
	r.Apply(del("gone-1"))
	assert.Len(t, r.tombstones, maxTombstones)

	assert.Equal(t, Applied, r.Apply(ins(msg("gone-0", 0, "back"))))
	assert.Equal(t, Tombstoned, r.Apply(ins(msg("gone-1", 0, "still gone"))))
	assert.Equal(t, Tombstoned, r.Apply(ins(msg(fmt.Sprintf("gone-%d", maxTombstones), 0, "x"))))
}

// Every record gets an insert and a chain of updates with increasing
// updated-at; some are then deleted. Any permutation of those events, with
// any duplicates, must end in the state of the canonical order.
func TestReconcilerConvergesUnderReorderAndDuplicates(t *testing.T) {
	t.Parallel()

	const (
		records = 12
		rounds  = 500
	)
	rng := rand.New(rand.NewPCG(7, 42))

	var (
		canonical []models.ChangeEvent[models.ChatMessage]
		snapshot  []models.ChatMessage
	)
	for i := range records {
		id := fmt.Sprintf("m%02d", i)
		m := msg(id, time.Duration(rng.IntN(1000))*time.Millisecond+time.Duration(i)*time.Microsecond, "v0")
		if i%3 == 0 {
			snapshot = append(snapshot, m)
		}
		canonical = append(canonical, ins(m))
		versions := rng.IntN(4)
		for v := 1; v <= versions; v++ {
			next := m
			next.Body = fmt.Sprintf("v%d", v)
			next.Reactions = map[string][]string{"👍": {fmt.Sprintf("u%d", v)}}
			next.UpdatedAt = m.CreatedAt.Add(time.Duration(v) * time.Second)
			canonical = append(canonical, upd(next))
		}
		if i%4 == 1 {
			canonical = append(canonical, del(id))
		}
	}

	for _, dir := range []models.Direction{models.Ascending, models.Descending} {
		t.Run(dir.String(), func(t *testing.T) {
			want := NewReconciler[models.ChatMessage](dir)
			want.Snapshot(snapshot)
			for _, ev := range canonical {
				want.Apply(ev)
			}
			expected := want.Items()
			require.NotEmpty(t, expected)

			for round := range rounds {
				events := make([]models.ChangeEvent[models.ChatMessage], 0, 2*len(canonical))
				for _, k := range rng.Perm(len(canonical)) {
					events = append(events, canonical[k])
				}
				for range rng.IntN(len(canonical)) {
					events = append(events, canonical[rng.IntN(len(canonical))])
				}
				rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })

				got := NewReconciler[models.ChatMessage](dir)
				got.Snapshot(snapshot)
				for _, ev := range events {
					got.Apply(ev)
				}
				require.Equal(t, expected, got.Items(), "round %d", round)
			}
		})
	}
}
