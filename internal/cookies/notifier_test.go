package cookies

import (
	"sync"
	"testing"
)

type recordingListener struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (r *recordingListener) OnChange(ev ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingListener) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Cookie.Name
	}
	return out
}

func TestNotifier_DeliversInOrder(t *testing.T) {
	n := NewNotifier(4)
	l := &recordingListener{}
	n.Subscribe(l)

	want := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, name := range want {
		n.Emit(ChangeEvent{Cookie: &Cookie{Name: name}})
	}
	n.Close()

	got := l.names()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := NewNotifier(0)
	l := &recordingListener{}
	n.Subscribe(l)
	n.Unsubscribe(l)
	n.Unsubscribe(&recordingListener{})

	n.Emit(ChangeEvent{Cookie: &Cookie{Name: "a"}})
	n.Close()

	if got := l.names(); len(got) != 0 {
		t.Errorf("expected no events after unsubscribe, got %v", got)
	}
}

func TestNotifier_EmitAfterClose(t *testing.T) {
	n := NewNotifier(1)
	l := &recordingListener{}
	n.Subscribe(l)
	n.Close()
	n.Close()

	n.Emit(ChangeEvent{Cookie: &Cookie{Name: "late"}})

	if got := l.names(); len(got) != 0 {
		t.Errorf("expected dropped event, got %v", got)
	}
}
