package store

import (
	"testing"

	"github.com/xtxerr/trackside/internal/errors"
)

func TestSessionLifecycle(t *testing.T) {
	st := New()

	sess, err := st.CreateSession("run1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.State() != StateOpen {
		t.Fatalf("expected open state, got %s", sess.State())
	}

	// Reads require a sealed session.
	if _, err := sess.Channels(); !errors.Is(err, errors.ErrSessionOpen) {
		t.Errorf("expected ErrSessionOpen, got %v", err)
	}

	if err := sess.AddSample("speed", 0.0, 100.0); err != nil {
		t.Fatalf("add sample: %v", err)
	}
	if err := sess.AddSample("speed", 0.1, 101.0); err != nil {
		t.Fatalf("add sample: %v", err)
	}
	if err := sess.AddSample("throttle", 0.05, 0.4); err != nil {
		t.Fatalf("add sample: %v", err)
	}

	if err := st.Seal("run1"); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !sess.Sealed() {
		t.Fatal("session must be sealed")
	}

	// Appends after Seal must fail.
	if err := sess.AddSample("speed", 0.2, 102.0); !errors.Is(err, errors.ErrSessionSealed) {
		t.Errorf("expected ErrSessionSealed, got %v", err)
	}
	// Double seal must fail.
	if err := sess.Seal(); !errors.Is(err, errors.ErrSessionSealed) {
		t.Errorf("expected ErrSessionSealed on double seal, got %v", err)
	}

	names, err := sess.Channels()
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	if len(names) != 2 || names[0] != "speed" || names[1] != "throttle" {
		t.Errorf("unexpected channels %v", names)
	}

	start, _ := sess.Start()
	end, _ := sess.End()
	if start != 0.0 || end != 0.1 {
		t.Errorf("unexpected session range [%g, %g]", start, end)
	}

	n, _ := sess.SampleCount()
	if n != 3 {
		t.Errorf("expected 3 samples, got %d", n)
	}
}

func TestSealEmptySession(t *testing.T) {
	st := New()
	if _, err := st.CreateSession("empty"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Seal("empty"); !errors.Is(err, errors.ErrEmptySession) {
		t.Errorf("expected ErrEmptySession, got %v", err)
	}
}

func TestCreateErrors(t *testing.T) {
	st := New()

	if _, err := st.CreateSession(""); !errors.Is(err, errors.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}

	if _, err := st.CreateSession("run1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.CreateSession("run1"); !errors.Is(err, errors.ErrSessionExists) {
		t.Errorf("expected ErrSessionExists, got %v", err)
	}
	if _, err := st.Session("nope"); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestOutOfOrderLeavesSessionUnchanged(t *testing.T) {
	st := New()
	sess, err := st.CreateSession("run1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := sess.AddSample("speed", 1.0, 10.0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := sess.AddSample("speed", 0.5, 11.0); !errors.Is(err, errors.ErrOutOfOrder) {
		t.Fatalf("expected ErrOutOfOrder, got %v", err)
	}

	if err := sess.Seal(); err != nil {
		t.Fatalf("seal: %v", err)
	}
	ch, err := sess.Channel("speed")
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if ch.Len() != 1 {
		t.Errorf("expected 1 sample after rejected append, got %d", ch.Len())
	}
}

func TestDrop(t *testing.T) {
	st := New()
	if _, err := st.CreateSession("run1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.Drop("run1"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if err := st.Drop("run1"); !errors.Is(err, errors.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if st.Len() != 0 {
		t.Errorf("expected empty store, got %d sessions", st.Len())
	}
}

func TestStats(t *testing.T) {
	st := New()
	sess, _ := st.CreateSession("run1")
	sess.AddSample("speed", 0, 1.0)
	st.Seal("run1")
	st.Drop("run1")

	stats := st.Stats()
	if stats.SessionsCreated != 1 || stats.SessionsSealed != 1 || stats.SessionsDropped != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}
