package feed

import (
	"sort"

	"github.com/nguyentranbao-ct/kvrp/internal/models"
)

type Result string

const (
	Applied    Result = "applied"
	Stale      Result = "stale"
	Tombstoned Result = "tombstoned"
	Ignored    Result = "ignored"
)

// maxTombstones bounds the deleted ids remembered between snapshots. A
// feed whose source passes every delete of the collection would otherwise
// grow without limit. The oldest id is forgotten first.
const maxTombstones = 4096

type entry[R models.Record] struct {
	rec R
	seq uint64
}

// Reconciler merges a snapshot and a stream of change events into one
// ordered, duplicate-free sequence. Items are ordered by created-at, then
// by arrival; Descending is the exact reverse of Ascending. It is not safe
// for concurrent use.
type Reconciler[R models.Record] struct {
	dir   models.Direction
	items []entry[R]
	pos   map[string]int
	// deleted ids, kept until the next snapshot so a late insert cannot
	// bring a record back
	tombstones map[string]struct{}
	tombOrder  []string
	seq        uint64
}

func NewReconciler[R models.Record](dir models.Direction) *Reconciler[R] {
	return &Reconciler[R]{
		dir:        dir,
		pos:        make(map[string]int),
		tombstones: make(map[string]struct{}),
	}
}

func (r *Reconciler[R]) Len() int {
	return len(r.items)
}

// Items returns a copy of the current sequence.
func (r *Reconciler[R]) Items() []R {
	out := make([]R, len(r.items))
	for i, e := range r.items {
		out[i] = e.rec
	}
	return out
}

func (r *Reconciler[R]) Get(id string) (R, bool) {
	i, ok := r.pos[id]
	if !ok {
		var zero R
		return zero, false
	}
	return r.items[i].rec, true
}

// Snapshot replaces the sequence wholesale. Records sharing a created-at
// keep the order they were loaded in. Duplicate ids keep the last copy.
func (r *Reconciler[R]) Snapshot(recs []R) {
	byID := make(map[string]int, len(recs))
	uniq := make([]R, 0, len(recs))
	for _, rec := range recs {
		if i, ok := byID[rec.Key()]; ok {
			uniq[i] = rec
			continue
		}
		byID[rec.Key()] = len(uniq)
		uniq = append(uniq, rec)
	}

	sort.SliceStable(uniq, func(i, j int) bool {
		a, b := uniq[i].Created(), uniq[j].Created()
		if r.dir == models.Descending {
			return a.After(b)
		}
		return a.Before(b)
	})

	n := uint64(len(uniq))
	base := r.seq
	r.seq += n
	r.items = make([]entry[R], len(uniq))
	for i, rec := range uniq {
		seq := base + uint64(i) + 1
		if r.dir == models.Descending {
			seq = base + n - uint64(i)
		}
		r.items[i] = entry[R]{rec: rec, seq: seq}
	}
	r.reindex(0)
	clear(r.tombstones)
	r.tombOrder = r.tombOrder[:0]
}

func (r *Reconciler[R]) Apply(ev models.ChangeEvent[R]) Result {
	switch ev.Op {
	case models.OpInsert, models.OpUpdate:
		return r.upsert(ev.Record)
	case models.OpDelete:
		return r.delete(ev.ID)
	}
	return Ignored
}

// Insert and Update share one path: both are idempotent and an update for
// an unknown id lands where its created-at says.
func (r *Reconciler[R]) upsert(rec R) Result {
	id := rec.Key()
	if id == "" {
		return Ignored
	}
	if _, dead := r.tombstones[id]; dead {
		return Tombstoned
	}
	i, ok := r.pos[id]
	if !ok {
		r.seq++
		r.insertAt(entry[R]{rec: rec, seq: r.seq})
		return Applied
	}

	held := r.items[i]
	if rec.Updated().Before(held.rec.Updated()) {
		return Stale
	}
	if rec.Created().Equal(held.rec.Created()) {
		r.items[i].rec = rec
		return Applied
	}
	r.removeAt(i)
	r.insertAt(entry[R]{rec: rec, seq: held.seq})
	return Applied
}

func (r *Reconciler[R]) delete(id string) Result {
	r.bury(id)
	i, ok := r.pos[id]
	if !ok {
		return Ignored
	}
	r.removeAt(i)
	return Applied
}

func (r *Reconciler[R]) bury(id string) {
	if _, ok := r.tombstones[id]; ok {
		return
	}
	r.tombstones[id] = struct{}{}
	r.tombOrder = append(r.tombOrder, id)
	if len(r.tombOrder) > maxTombstones {
		delete(r.tombstones, r.tombOrder[0])
		r.tombOrder = r.tombOrder[1:]
	}
}

func (r *Reconciler[R]) less(a, b entry[R]) bool {
	ca, cb := a.rec.Created(), b.rec.Created()
	if !ca.Equal(cb) {
		if r.dir == models.Descending {
			return ca.After(cb)
		}
		return ca.Before(cb)
	}
	if r.dir == models.Descending {
		return a.seq > b.seq
	}
	return a.seq < b.seq
}

func (r *Reconciler[R]) insertAt(e entry[R]) {
	i := sort.Search(len(r.items), func(k int) bool {
		return r.less(e, r.items[k])
	})
	r.items = append(r.items, entry[R]{})
	copy(r.items[i+1:], r.items[i:])
	r.items[i] = e
	r.reindex(i)
}

func (r *Reconciler[R]) removeAt(i int) {
	delete(r.pos, r.items[i].rec.Key())
	r.items = append(r.items[:i], r.items[i+1:]...)
	r.reindex(i)
}

func (r *Reconciler[R]) reindex(from int) {
	if from == 0 {
		clear(r.pos)
	}
	for k := from; k < len(r.items); k++ {
		r.pos[r.items[k].rec.Key()] = k
	}
}
