package domain

import (
	"testing"

	"github.com/gopcua/opcua/ua"
)

func TestRetransmissionQueue_AckRemovesEntry(t *testing.T) {
	var q RetransmissionQueue
	q.Append(&NotificationRecord{SequenceNumber: 1})
	q.Append(&NotificationRecord{SequenceNumber: 2})

	if status := q.Ack(1); status != ua.StatusOK {
		t.Fatalf("expected StatusOK acking a known sequence number, got %v", status)
	}
	if q.Len() != 1 {
		t.Fatalf("expected len 1 after ack, got %d", q.Len())
	}
	if _, ok := q.Lookup(1); ok {
		t.Fatal("expected acked entry to be gone")
	}
}

func TestRetransmissionQueue_AckUnknownSequence(t *testing.T) {
	var q RetransmissionQueue
	q.Append(&NotificationRecord{SequenceNumber: 1})

	status := q.Ack(99)
	if status != ua.StatusBadSequenceNumberUnknown {
		t.Fatalf("expected BadSequenceNumberUnknown, got %v", status)
	}
	if q.Len() != 1 {
		t.Fatalf("expected ack of unknown seq to have no side effect, len=%d", q.Len())
	}
}

func TestRetransmissionQueue_LookupForRepublish(t *testing.T) {
	var q RetransmissionQueue
	rec := &NotificationRecord{SequenceNumber: 7}
	q.Append(rec)

	found, ok := q.Lookup(7)
	if !ok || found != rec {
		t.Fatal("expected Lookup to return the matching record")
	}
	if q.Len() != 1 {
		t.Fatal("expected Lookup to not remove the entry")
	}
}

func TestRetransmissionQueue_BoundedAt100(t *testing.T) {
	var q RetransmissionQueue
	for i := uint32(1); i <= 150; i++ {
		q.Append(&NotificationRecord{SequenceNumber: i})
	}

	if q.Len() != 100 {
		t.Fatalf("expected queue capped at 100 entries, got %d", q.Len())
	}
	if _, ok := q.Lookup(50); ok {
		t.Fatal("expected the oldest 50 entries to have been evicted")
	}
	if _, ok := q.Lookup(150); !ok {
		t.Fatal("expected the most recent entry to still be present")
	}
}
