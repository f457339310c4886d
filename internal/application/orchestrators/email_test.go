package orchestrators

import (
	"context"
	"testing"

	"conference/internal/adapters/email"
	"conference/internal/domain/outbox"
)

func TestNotifier_FillsSenderDefaults(t *testing.T) {
	sender := &mockSender{}
	n := testNotifier(sender, newMockOutboxStore())
	var observed []string
	n.Observe = func(kind string, sent bool) {
		if sent {
			observed = append(observed, kind)
		}
	}

	status := n.Deliver(context.Background(), RecordRegistration, "r1", email.SendRequest{
		To: []string{"a@example.org"}, Subject: "Hi", HTML: "<p>x</p>", Kind: email.KindRegistration,
	})
	if status != EmailStatusSent {
		t.Fatalf("status = %q", status)
	}
	got := sender.sent[0]
	if got.From != n.From || got.ReplyTo != n.ReplyTo {
		t.Errorf("defaults not applied: %+v", got)
	}
	if len(observed) != 1 || observed[0] != email.KindRegistration {
		t.Errorf("observed = %v", observed)
	}
}

func TestNotifier_FailureQueuesOutboxEntry(t *testing.T) {
	ob := newMockOutboxStore()
	n := testNotifier(&mockSender{fail: true}, ob)
	failures := 0
	n.Observe = func(_ string, sent bool) {
		if !sent {
			failures++
		}
	}

	status := n.Deliver(context.Background(), RecordCourse, "p1", email.SendRequest{To: []string{"a@example.org"}, Kind: email.KindCourse})
	if status != EmailStatusFailed {
		t.Fatalf("status = %q", status)
	}
	entries := ob.all()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	e := entries[0]
	if e.MaxAttempts != outbox.DefaultMaxAttempts || e.ErrorMessage != "relay unavailable" || !e.NextAttemptAt.Equal(earlyBird) {
		t.Errorf("entry = %+v", e)
	}
	if failures != 1 {
		t.Errorf("failures observed = %d", failures)
	}
}

func TestNotifier_NilSkips(t *testing.T) {
	var n *Notifier
	if got := n.Deliver(context.Background(), RecordRegistration, "r1", email.SendRequest{}); got != EmailStatusSkipped {
		t.Errorf("status = %q, want skipped", got)
	}
}

func TestNotifier_NoOutboxStillReportsFailure(t *testing.T) {
	n := testNotifier(&mockSender{fail: true}, nil)
	if got := n.Deliver(context.Background(), RecordRegistration, "r1", email.SendRequest{To: []string{"a@example.org"}}); got != EmailStatusFailed {
		t.Errorf("status = %q, want failed", got)
	}
}
