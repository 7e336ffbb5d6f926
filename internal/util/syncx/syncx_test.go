// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package syncx

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"go.astrophena.name/logospin/internal/testutil"
)

func TestProtected(t *testing.T) {
	t.Parallel()

	t.Run("read access", func(t *testing.T) {
		p := Protect(42)
		var result int
		p.RAccess(func(val int) {
			result = val
		})
		testutil.AssertEqual(t, result, 42)
	})

	t.Run("write access", func(t *testing.T) {
		var i int
		p := Protect(&i)
		p.Access(func(val *int) {
			*val = 43
		})
		var result int
		p.RAccess(func(val *int) { result = *val })
		testutil.AssertEqual(t, result, 43)
	})

	t.Run("concurrent access", func(t *testing.T) {
		var i int
		p := Protect(&i)
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Access(func(val *int) {
					*val += 1
				})
			}()
		}
		wg.Wait()

		var result int
		p.RAccess(func(val *int) { result = *val })
		testutil.AssertEqual(t, result, 100)
	})
}

func TestLazy(t *testing.T) {
	t.Parallel()

	t.Run("computed once", func(t *testing.T) {
		var calls atomic.Int64
		var l Lazy[int]
		for range 10 {
			got := l.Get(func() int {
				calls.Add(1)
				return 42
			})
			testutil.AssertEqual(t, got, 42)
		}
		testutil.AssertEqual(t, calls.Load(), int64(1))
	})

	t.Run("error preserved", func(t *testing.T) {
		wantErr := errors.New("boom")
		var l Lazy[int]
		_, err := l.GetErr(func() (int, error) {
			return 0, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("got %v, want %v", err, wantErr)
		}
		// The second call must not recompute.
		_, err = l.GetErr(func() (int, error) {
			t.Fatal("recomputed")
			return 0, nil
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("got %v, want %v", err, wantErr)
		}
	})
}

func TestLimitedWaitGroup(t *testing.T) {
	t.Parallel()

	const limit = 4
	lwg := NewLimitedWaitGroup(limit)

	var active, max atomic.Int64
	for range 32 {
		lwg.Go(func() {
			cur := active.Add(1)
			for {
				old := max.Load()
				if cur <= old || max.CompareAndSwap(old, cur) {
					break
				}
			}
			active.Add(-1)
		})
	}
	lwg.Wait()

	if max.Load() > limit {
		t.Fatalf("observed %d concurrent workers, limit is %d", max.Load(), limit)
	}
}
