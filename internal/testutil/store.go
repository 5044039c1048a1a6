// Package testutil provides in-memory repositories and fixtures for service
// and handler tests.
package testutil

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/spec-kit/maintenance-service/pkg/util/idutil"
)

// table is an insertion-ordered map of copies keyed by hex id.
type table[T any] struct {
	mu    sync.Mutex
	rows  map[string]T
	order []string
	id    func(*T) *primitive.ObjectID
}

func newTable[T any](id func(*T) *primitive.ObjectID) *table[T] {
	return &table[T]{rows: map[string]T{}, id: id}
}

func (t *table[T]) put(item *T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	oid := t.id(item)
	if oid.IsZero() {
		*oid = primitive.NewObjectID()
	}
	key := oid.Hex()
	if _, ok := t.rows[key]; !ok {
		t.order = append(t.order, key)
	}
	t.rows[key] = *item
}

func (t *table[T]) get(id string) (*T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, _ := idutil.Normalize(id)
	item, ok := t.rows[key]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &item, nil
}

func (t *table[T]) has(id string) bool {
	_, err := t.get(id)
	return err == nil
}

func (t *table[T]) remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key, _ := idutil.Normalize(id)
	if _, ok := t.rows[key]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(t.rows, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// all returns copies in insertion order that satisfy keep.
func (t *table[T]) all(keep func(*T) bool) []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []T{}
	for _, key := range t.order {
		item := t.rows[key]
		if keep == nil || keep(&item) {
			out = append(out, item)
		}
	}
	return out
}

// newestFirst sorts by created time, breaking ties with reverse insertion
// order so the most recent insert wins.
func newestFirst[T any](items []T, created func(*T) time.Time, limit int64) []T {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := created(&items[idx[a]]), created(&items[idx[b]])
		if ta.Equal(tb) {
			return idx[a] > idx[b]
		}
		return ta.After(tb)
	})
	out := make([]T, 0, len(items))
	for _, i := range idx {
		out = append(out, items[i])
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func refMatch(stored string, ids ...string) bool {
	for _, id := range ids {
		if idutil.Equal(stored, id) {
			return true
		}
	}
	return false
}

func foldEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
