package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	dedupe "github.com/okian/betti/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("Then it should start empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a key is new", func() {
			owner, seen := d.SeenAndRecord(ctx, "key-1", "job-1")

			Convey("Then it should be recorded for the caller", func() {
				So(seen, ShouldBeFalse)
				So(owner, ShouldEqual, "job-1")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key was already recorded", func() {
			d.SeenAndRecord(ctx, "key-1", "job-1")
			owner, seen := d.SeenAndRecord(ctx, "key-1", "job-2")

			Convey("Then the original owner should be returned", func() {
				So(seen, ShouldBeTrue)
				So(owner, ShouldEqual, "job-1")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a key is unrecorded", func() {
			d.SeenAndRecord(ctx, "key-1", "job-1")
			d.Unrecord(ctx, "key-1")
			owner, seen := d.SeenAndRecord(ctx, "key-1", "job-2")

			Convey("Then it can be claimed again", func() {
				So(seen, ShouldBeFalse)
				So(owner, ShouldEqual, "job-2")
			})
		})

		Convey("When unrecording an unknown key", func() {
			Convey("Then it should be a no-op", func() {
				So(func() { d.Unrecord(ctx, "missing") }, ShouldNotPanic)
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestInMemoryDeduperExpiry(t *testing.T) {
	Convey("Given a deduper with a short TTL", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(
			dedupe.WithTTL(20*time.Millisecond),
			dedupe.WithCleanupInterval(5*time.Millisecond),
		)
		d.SeenAndRecord(ctx, "key-1", "job-1")

		Convey("When the TTL elapses", func() {
			time.Sleep(60 * time.Millisecond)
			owner, seen := d.SeenAndRecord(ctx, "key-1", "job-2")

			Convey("Then the key should be free again", func() {
				So(seen, ShouldBeFalse)
				So(owner, ShouldEqual, "job-2")
			})
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines claiming the same keys", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		const claimers = 32
		const keys = 10
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := make(map[string]int)

		for c := 0; c < claimers; c++ {
			wg.Add(1)
			go func(c int) {
				defer wg.Done()
				for k := 0; k < keys; k++ {
					key := fmt.Sprintf("key-%d", k)
					if _, seen := d.SeenAndRecord(ctx, key, fmt.Sprintf("job-%d", c)); !seen {
						mu.Lock()
						winners[key]++
						mu.Unlock()
					}
				}
			}(c)
		}
		wg.Wait()

		Convey("Then each key should have exactly one owner", func() {
			So(len(winners), ShouldEqual, keys)
			for _, n := range winners {
				So(n, ShouldEqual, 1)
			}
			So(d.Size(), ShouldEqual, keys)
		})
	})
}
