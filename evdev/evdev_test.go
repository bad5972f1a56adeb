package evdev

import "testing"

func TestDecodeEventRoundTrip(t *testing.T) {
	want := Event{Type: EvAbs, Code: AbsMtPositionX, Value: 512}
	buf := make([]byte, eventSize)
	*(*Event)(eventPtr(buf)) = want
	var got Event
	if err := decodeEvent(buf, &got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
