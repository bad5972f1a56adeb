package damage

import (
	"testing"
	"time"

	"vnsee.dev/geom"
	"vnsee.dev/internal/clock"
)

func newTestAccumulator() (*Accumulator, *clock.Fake) {
	fc := clock.NewFake(time.Unix(0, 0))
	scr := geom.Screen{XRes: 1404, YRes: 1872, XResMem: 1408, YResMem: 1872}
	return New(scr, fc), fc
}

func TestRecordCoalescesToBoundingBox(t *testing.T) {
	a, fc := newTestAccumulator()
	a.Record(geom.Rect{X: 10, Y: 10, W: 5, H: 5})
	fc.Advance(100 * time.Millisecond)
	a.Record(geom.Rect{X: 12, Y: 12, W: 5, H: 5})
	fc.Advance(100 * time.Millisecond)
	a.Record(geom.Rect{X: 0, Y: 0, W: 2, H: 2})

	r, ok := a.TakeAndClear()
	if !ok {
		t.Fatal("expected outstanding damage")
	}
	want := geom.Rect{X: 0, Y: 0, W: 17, H: 17}
	if r != want {
		t.Fatalf("got %+v, want %+v", r, want)
	}
	if a.HasUpdate() {
		t.Fatal("expected HasUpdate false after TakeAndClear")
	}
}

func TestRecordIdempotent(t *testing.T) {
	a, _ := newTestAccumulator()
	r := geom.Rect{X: 3, Y: 4, W: 10, H: 8}
	a.Record(r)
	once, _ := a.Peek()
	a.Record(r)
	twice, _ := a.Peek()
	if once != twice {
		t.Fatalf("recording the same rect twice changed state: %+v != %+v", once, twice)
	}
}

func TestRecordClipsToScreen(t *testing.T) {
	a, _ := newTestAccumulator()
	a.Record(geom.Rect{X: -5, Y: -5, W: 10, H: 10})
	r, ok := a.Peek()
	if !ok {
		t.Fatal("expected outstanding damage after clipping")
	}
	if r.X != 0 || r.Y != 0 {
		t.Fatalf("expected clip to clamp origin to zero, got %+v", r)
	}
	if r.W != 5 || r.H != 5 {
		t.Fatalf("expected clip to shrink by the clamped amount, got %+v", r)
	}
}

func TestRecordDropsRectOutsideScreen(t *testing.T) {
	a, _ := newTestAccumulator()
	a.Record(geom.Rect{X: 5000, Y: 5000, W: 10, H: 10})
	if a.HasUpdate() {
		t.Fatal("expected out-of-bounds rectangle to be dropped")
	}
}

func TestRecordDropsEmptyRect(t *testing.T) {
	a, _ := newTestAccumulator()
	a.Record(geom.Rect{X: 10, Y: 10, W: 0, H: 0})
	if a.HasUpdate() {
		t.Fatal("expected empty rectangle to be dropped")
	}
}

func TestClearDropsOutstandingDamage(t *testing.T) {
	a, _ := newTestAccumulator()
	a.Record(geom.Rect{X: 1, Y: 1, W: 1, H: 1})
	a.Clear()
	if a.HasUpdate() {
		t.Fatal("expected HasUpdate false after Clear")
	}
}

func FuzzRecordCoversAllInputs(f *testing.F) {
	f.Add(10, 10, 5, 5, 12, 12, 5, 5)
	f.Fuzz(func(t *testing.T, x1, y1, w1, h1, x2, y2, w2, h2 int) {
		a, _ := newTestAccumulator()
		r1 := geom.Rect{X: x1, Y: y1, W: w1, H: h1}
		r2 := geom.Rect{X: x2, Y: y2, W: w2, H: h2}
		a.Record(r1)
		a.Record(r2)
		merged, ok := a.Peek()
		if !ok {
			return
		}
		for _, r := range []geom.Rect{r1, r2} {
			cr := r.Clip(a.screen)
			if cr.Empty() {
				continue
			}
			if cr.X < merged.X || cr.Y < merged.Y ||
				cr.X+cr.W > merged.X+merged.W || cr.Y+cr.H > merged.Y+merged.H {
				t.Fatalf("merged rect %+v does not contain clipped input %+v", merged, cr)
			}
		}
	})
}
