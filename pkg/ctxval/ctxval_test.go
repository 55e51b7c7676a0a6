package ctxval_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nguyentranbao-ct/kvrp/pkg/ctxval"
	"github.com/stretchr/testify/assert"
)

var (
	userKey  = ctxval.NewKey[string]("user")
	countKey = ctxval.NewKey[int]("count")
)

func TestBag(t *testing.T) {
	t.Parallel()

	t.Run("set and get", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		assert.True(t, ctxval.Set(ctx, userKey, "alice"))
		v, ok := ctxval.Get(ctx, userKey)
		assert.True(t, ok)
		assert.Equal(t, "alice", v)
	})

	t.Run("visible to the wrapping context", func(t *testing.T) {
		outer := ctxval.Wrap(context.Background())
		inner, cancel := context.WithCancel(outer)
		defer cancel()
		ctxval.Set(inner, userKey, "bob")
		v, _ := ctxval.Get(outer, userKey)
		assert.Equal(t, "bob", v)
	})

	t.Run("overwrite", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		ctxval.Set(ctx, countKey, 1)
		ctxval.Set(ctx, countKey, 2)
		v, _ := ctxval.Get(ctx, countKey)
		assert.Equal(t, 2, v)
	})

	t.Run("missing", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		_, ok := ctxval.Get(ctx, userKey)
		assert.False(t, ok)
	})

	t.Run("unwrapped context", func(t *testing.T) {
		ctx := context.Background()
		assert.False(t, ctxval.Set(ctx, userKey, "x"))
		_, ok := ctxval.Get(ctx, userKey)
		assert.False(t, ok)
	})

	t.Run("wrap twice keeps values", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		ctxval.Set(ctx, userKey, "carol")
		ctx = ctxval.Wrap(ctx)
		v, _ := ctxval.Get(ctx, userKey)
		assert.Equal(t, "carol", v)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		ctx := ctxval.Wrap(context.Background())
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ctxval.Set(ctx, ctxval.NewKey[int](fmt.Sprint("k", i)), i)
			}(i)
		}
		wg.Wait()
		for i := 0; i < 50; i++ {
			v, ok := ctxval.Get(ctx, ctxval.NewKey[int](fmt.Sprint("k", i)))
			assert.True(t, ok)
			assert.Equal(t, i, v)
		}
	})
}
