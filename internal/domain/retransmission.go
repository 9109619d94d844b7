package domain

import "github.com/gopcua/opcua/ua"

// maxRetransmissionEntries bounds the retransmission queue (spec §3, §4.2).
// The source this core is modeled on guards the eviction with a condition
// that compares an integer to an array reference — almost certainly a
// latent bug. The intent, implemented here, is: once the queue holds more
// than maxRetransmissionEntries, drop the oldest overflow from the head.
const maxRetransmissionEntries = 100

// RetransmissionQueue is the bounded FIFO of previously sent
// NotificationRecords available for client-initiated republish (spec §4.2).
type RetransmissionQueue struct {
	entries []*NotificationRecord
}

// Append adds rec to the tail, evicting from the head if the queue now
// exceeds maxRetransmissionEntries.
func (q *RetransmissionQueue) Append(rec *NotificationRecord) {
	q.entries = append(q.entries, rec)
	if over := len(q.entries) - maxRetransmissionEntries; over > 0 {
		q.entries = q.entries[over:]
	}
}

// Len reports the number of entries currently held.
func (q *RetransmissionQueue) Len() int {
	return len(q.entries)
}

// Ack removes the entry whose SequenceNumber matches seq. Returns
// ua.StatusOK if found, ua.StatusBadSequenceNumberUnknown otherwise. A
// successful ack has no further side effect here; the caller (Subscription)
// is responsible for resetting life-time and keep-alive counters.
func (q *RetransmissionQueue) Ack(seq uint32) ua.StatusCode {
	for i, e := range q.entries {
		if e.SequenceNumber == seq {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return ua.StatusOK
		}
	}
	return ua.StatusBadSequenceNumberUnknown
}

// Lookup returns the record with the given sequence number, used by
// Republish. The caller resets counters on a hit.
func (q *RetransmissionQueue) Lookup(seq uint32) (*NotificationRecord, bool) {
	for _, e := range q.entries {
		if e.SequenceNumber == seq {
			return e, true
		}
	}
	return nil, false
}

// SequenceNumbers returns the sequence numbers currently held, oldest first.
func (q *RetransmissionQueue) SequenceNumbers() []uint32 {
	nums := make([]uint32, len(q.entries))
	for i, e := range q.entries {
		nums[i] = e.SequenceNumber
	}
	return nums
}

// EvictAged drops entries considered aged relative to the given
// publishIntervalCount/maxKeepAliveCount. The 100-entry bound in Append is
// the primary eviction trigger; this is an additional, best-effort pass a
// caller may run periodically.
func (q *RetransmissionQueue) EvictAged(publishIntervalCount uint64, maxKeepAliveCount uint32) int {
	kept := q.entries[:0]
	evicted := 0
	for _, e := range q.entries {
		if e.Aged(publishIntervalCount, maxKeepAliveCount) {
			evicted++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return evicted
}
