package domain

import (
	"time"

	"github.com/gopcua/opcua/ua"
)

// collectNotificationData drains every registered monitored item, in
// insertion order, and concatenates whatever notifications each produced
// (spec §4.7).
func collectNotificationData(registry *Registry) []ExtractedNotification {
	var out []ExtractedNotification
	registry.ForEach(func(_ uint32, item MonitoredItem) {
		out = append(out, item.ExtractNotifications()...)
	})
	return out
}

// chunkNotifications slices a flat notification stream into groups of at
// most maxPerPublish entries. maxPerPublish == 0 means unlimited: the whole
// stream is a single chunk.
func chunkNotifications(items []ExtractedNotification, maxPerPublish uint32) [][]ExtractedNotification {
	if len(items) == 0 {
		return nil
	}
	if maxPerPublish == 0 {
		return [][]ExtractedNotification{items}
	}
	var chunks [][]ExtractedNotification
	size := int(maxPerPublish)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// buildNotificationRecord partitions one chunk into at most one
// DataChangeNotification and at most one EventNotificationList, stamping
// the record with seq and now.
func buildNotificationRecord(chunk []ExtractedNotification, seq uint32, now time.Time, startTick uint64) *NotificationRecord {
	var dataChanges []*ua.MonitoredItemNotification
	var events []*ua.EventFieldList

	for _, n := range chunk {
		if n.DataChange != nil {
			dataChanges = append(dataChanges, n.DataChange)
		}
		if n.Event != nil {
			events = append(events, n.Event)
		}
	}

	rec := &NotificationRecord{
		SequenceNumber: seq,
		PublishTime:    now,
		StartTick:      startTick,
	}
	if len(dataChanges) > 0 {
		rec.DataChange = &ua.DataChangeNotification{MonitoredItems: dataChanges}
	}
	if len(events) > 0 {
		rec.Events = &ua.EventNotificationList{Events: events}
	}
	return rec
}
