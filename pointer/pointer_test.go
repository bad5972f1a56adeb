package pointer

import "testing"

type recorder struct {
	sent []Event
}

func (r *recorder) SendPointer(x, y int, mask uint8) error {
	r.sent = append(r.sent, Event{X: x, Y: y, Button: Button(mask)})
	return nil
}

func TestClickEmitsPressThenRelease(t *testing.T) {
	r := &recorder{}
	d := New(r)
	if err := d.Click(300, 400, Left); err != nil {
		t.Fatal(err)
	}
	if len(r.sent) != 2 {
		t.Fatalf("expected 2 events, got %d", len(r.sent))
	}
	if r.sent[0] != (Event{X: 300, Y: 400, Button: Left}) {
		t.Fatalf("unexpected press event: %+v", r.sent[0])
	}
	if r.sent[1] != (Event{X: 300, Y: 400, Button: None}) {
		t.Fatalf("unexpected release event: %+v", r.sent[1])
	}
}

func TestMoveSendsSingleMaskZeroEvent(t *testing.T) {
	r := &recorder{}
	d := New(r)
	if err := d.Move(10, 20); err != nil {
		t.Fatal(err)
	}
	if len(r.sent) != 1 || r.sent[0].Button != None {
		t.Fatalf("expected a single mask-zero event, got %+v", r.sent)
	}
}

func TestButtonStringComposesNames(t *testing.T) {
	got := (Left | ScrollRight).String()
	want := "left|scroll-right"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
