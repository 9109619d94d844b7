package domain

import (
	"time"

	"github.com/gopcua/opcua/ua"
)

// NotificationRecord is a notification message assembled by a subscription,
// either waiting in the pending queue or already sent and held in the
// retransmission queue (spec §3).
type NotificationRecord struct {
	// SequenceNumber is unique within the subscription and strictly
	// increasing across every record the subscription ever produces.
	SequenceNumber uint32

	// PublishTime is stamped when the record was assembled.
	PublishTime time.Time

	// DataChange carries the DataChangeNotification payload, if this record
	// has one. An ordinary notification carries DataChange, Events, or both;
	// StatusChange is used alone for the final termination record.
	DataChange *ua.DataChangeNotification

	// Events carries the EventNotificationList payload, if this record has
	// one.
	Events *ua.EventNotificationList

	// StatusChange carries a StatusChangeNotification, used for the single
	// terminal record emitted on life-time expiry or termination.
	StatusChange *ua.StatusChangeNotification

	// StartTick is the value of publishIntervalCount at enqueue time, used
	// to age entries in the retransmission queue.
	StartTick uint64
}

// NotificationDataCount returns how many inner notification entries (1 or 2)
// this record carries, for diagnostics counting that must treat DataChange
// and Event payloads independently (spec §9 design note).
func (r *NotificationRecord) NotificationDataCount() (dataChange, events int) {
	if r.DataChange != nil {
		dataChange = 1
	}
	if r.Events != nil {
		events = 1
	}
	return dataChange, events
}

// ToMessage renders the record as a wire NotificationMessage, concatenating
// whichever of DataChange/Events/StatusChange are present into
// NotificationData.
func (r *NotificationRecord) ToMessage() *ua.NotificationMessage {
	data := make([]*ua.ExtensionObject, 0, 2)
	if r.DataChange != nil {
		data = append(data, &ua.ExtensionObject{Value: r.DataChange})
	}
	if r.Events != nil {
		data = append(data, &ua.ExtensionObject{Value: r.Events})
	}
	if r.StatusChange != nil {
		data = append(data, &ua.ExtensionObject{Value: r.StatusChange})
	}
	return &ua.NotificationMessage{
		SequenceNumber:   r.SequenceNumber,
		PublishTime:      r.PublishTime,
		NotificationData: data,
	}
}

// Aged reports whether this record should be considered for eviction given
// the subscription's current publishIntervalCount and maxKeepAliveCount
// (spec §4.8 "Aging of pending notifications").
func (r *NotificationRecord) Aged(publishIntervalCount uint64, maxKeepAliveCount uint32) bool {
	return r.StartTick+uint64(maxKeepAliveCount) < publishIntervalCount
}
