package domain

import (
	"regexp"
	"sync"

	"github.com/gopcua/opcua/ua"
)

// attributeIDInvalid is the zero value of ua.AttributeID: the OPC UA spec
// never assigns 0 to a real attribute, so it doubles as the "no attribute
// requested" sentinel (spec §4.4 step 3).
const attributeIDInvalid ua.AttributeID = 0

var indexRangePattern = regexp.MustCompile(`^[0-9]+(:[0-9]+)?(,[0-9]+(:[0-9]+)?)*$`)

// validIndexRange reports whether s is a syntactically well-formed
// IndexRange string: empty (whole value), "n", "n:m", or a comma-separated
// list of those, with each range's lower bound strictly less than its
// upper bound.
func validIndexRange(s string) bool {
	if s == "" {
		return true
	}
	if !indexRangePattern.MatchString(s) {
		return false
	}
	for _, part := range splitIndexRange(s) {
		lo, hi, hasHi := parseRangePart(part)
		if hasHi && hi <= lo {
			return false
		}
	}
	return true
}

func splitIndexRange(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ',' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseRangePart(part string) (lo, hi int, hasHi bool) {
	for i := 0; i < len(part); i++ {
		if part[i] == ':' {
			lo = atoiSafe(part[:i])
			hi = atoiSafe(part[i+1:])
			return lo, hi, true
		}
	}
	return atoiSafe(part), 0, false
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// recognisedDataEncodings are the encoding names a data-encoding field may
// legally request (spec §4.4 step 6).
var recognisedDataEncodings = map[string]bool{
	"":              true, // absent means default
	"Default Binary": true,
	"Default XML":    true,
	"Default JSON":   true,
}

// ExtractedNotification is one notification drained from a MonitoredItem:
// exactly one of DataChange or Event is set (spec §4.7).
type ExtractedNotification struct {
	DataChange *ua.MonitoredItemNotification
	Event      *ua.EventFieldList
}

// MonitoredItem is the capability surface this core requires from a
// monitored item (spec §3, §6). Sampling/queueing internals are owned by
// the collaborator that wires the Extractor after monitoredItem-created
// fires; this core only drains whatever batch is ready each tick.
type MonitoredItem interface {
	ID() uint32
	ClientHandle() uint32
	SamplingInterval() float64
	QueueSize() uint32
	MonitoringMode() ua.MonitoringMode
	Node() Node

	// ExtractNotifications drains and returns all notifications pending on
	// this item since the last call.
	ExtractNotifications() []ExtractedNotification

	SetMonitoringMode(mode ua.MonitoringMode)
	Terminate()
}

// Extractor is supplied by the owner of a MonitoredItem (wired from the
// monitoredItem-created hook) to actually drain samples from the address
// space / event queue. A nil extractor yields no notifications, which is a
// safe default for a newly created item.
type Extractor func() []ExtractedNotification

type monitoredItem struct {
	mu               sync.Mutex
	id               uint32
	clientHandle     uint32
	samplingInterval float64
	queueSize        uint32
	mode             ua.MonitoringMode
	node             Node
	extractor        Extractor
	terminated       bool
}

func (m *monitoredItem) ID() uint32                    { return m.id }
func (m *monitoredItem) ClientHandle() uint32          { return m.clientHandle }
func (m *monitoredItem) SamplingInterval() float64     { return m.samplingInterval }
func (m *monitoredItem) QueueSize() uint32             { return m.queueSize }
func (m *monitoredItem) Node() Node                    { return m.node }

func (m *monitoredItem) MonitoringMode() ua.MonitoringMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *monitoredItem) SetMonitoringMode(mode ua.MonitoringMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mode = mode
}

func (m *monitoredItem) SetExtractor(fn Extractor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractor = fn
}

func (m *monitoredItem) ExtractNotifications() []ExtractedNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminated || m.mode == ua.MonitoringModeDisabled || m.extractor == nil {
		return nil
	}
	return m.extractor()
}

func (m *monitoredItem) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminated = true
}

// MonitoredItemCreateResult is returned by Registry.Create (spec §4.4).
type MonitoredItemCreateResult struct {
	StatusCode              ua.StatusCode
	MonitoredItemID         uint32
	RevisedSamplingInterval float64
	RevisedQueueSize        uint32
	FilterResult            any
}

// MonitoredItemCreatedHook is invoked after a new item is registered but
// before its requested monitoring mode is applied (spec §6 "events
// emitted"). The owner uses it to wire an Extractor via SetExtractor.
type MonitoredItemCreatedHook func(item *monitoredItem, itemToMonitor *ua.ReadValueID)

// Registry owns monitoredItems and monitoredItemIdCounter for one
// subscription (spec §4.4).
type Registry struct {
	items        map[uint32]*monitoredItem
	order        []uint32 // insertion order, for notification assembly (spec §4.7)
	idCounter    uint32
	addressSpace AddressSpace
	onCreated    MonitoredItemCreatedHook
}

// NewRegistry constructs an empty registry bound to the given address space
// and creation hook.
func NewRegistry(addressSpace AddressSpace, onCreated MonitoredItemCreatedHook) *Registry {
	return &Registry{
		items:        make(map[uint32]*monitoredItem),
		addressSpace: addressSpace,
		onCreated:    onCreated,
	}
}

// Len reports how many monitored items are registered.
func (r *Registry) Len() int {
	return len(r.items)
}

// Get returns the monitored item for id, if registered.
func (r *Registry) Get(id uint32) (MonitoredItem, bool) {
	item, ok := r.items[id]
	return item, ok
}

// Create validates and, on success, registers a new monitored item (spec
// §4.4). publishingInterval is the owning subscription's current publishing
// interval, used by sampling-interval negotiation when the request omits
// one.
func (r *Registry) Create(timestampsToReturn ua.TimestampsToReturn, req *ua.MonitoredItemCreateRequest, publishingInterval float64) *MonitoredItemCreateResult {
	itemToMonitor := req.ItemToMonitor

	node, found := r.addressSpace.FindNode(itemToMonitor.NodeID)
	if !found {
		return &MonitoredItemCreateResult{StatusCode: ua.StatusBadNodeIDUnknown}
	}

	if itemToMonitor.AttributeID == ua.AttributeIDValue && node.NodeClass() != NodeClassVariable {
		return &MonitoredItemCreateResult{StatusCode: ua.StatusBadAttributeIDInvalid}
	}
	if itemToMonitor.AttributeID == attributeIDInvalid {
		return &MonitoredItemCreateResult{StatusCode: ua.StatusBadAttributeIDInvalid}
	}
	if !validIndexRange(itemToMonitor.IndexRange) {
		return &MonitoredItemCreateResult{StatusCode: ua.StatusBadIndexRangeInvalid}
	}
	if itemToMonitor.DataEncoding != nil && itemToMonitor.DataEncoding.Name != "" && itemToMonitor.AttributeID != ua.AttributeIDValue {
		return &MonitoredItemCreateResult{StatusCode: ua.StatusBadDataEncodingInvalid}
	}
	encodingName := ""
	if itemToMonitor.DataEncoding != nil {
		encodingName = itemToMonitor.DataEncoding.Name
	}
	if !recognisedDataEncodings[encodingName] {
		return &MonitoredItemCreateResult{StatusCode: ua.StatusBadDataEncodingUnsupported}
	}

	filterStatus, filterResult := ValidateFilter(itemToMonitor.AttributeID, node, req.RequestedParameters.Filter, r.addressSpace)
	if filterStatus != ua.StatusOK {
		return &MonitoredItemCreateResult{StatusCode: filterStatus}
	}

	r.idCounter++
	id := r.idCounter

	revisedSampling := NegotiateSamplingInterval(req.RequestedParameters.SamplingInterval, node, publishingInterval)
	revisedQueueSize := req.RequestedParameters.QueueSize
	if revisedQueueSize == 0 {
		revisedQueueSize = 1
	}

	item := &monitoredItem{
		id:               id,
		clientHandle:     req.RequestedParameters.ClientHandle,
		samplingInterval: revisedSampling,
		queueSize:        revisedQueueSize,
		node:             node,
	}

	r.items[id] = item
	r.order = append(r.order, id)

	if r.onCreated != nil {
		r.onCreated(item, itemToMonitor)
	}

	item.SetMonitoringMode(req.MonitoringMode)

	return &MonitoredItemCreateResult{
		StatusCode:              ua.StatusOK,
		MonitoredItemID:         id,
		RevisedSamplingInterval: revisedSampling,
		RevisedQueueSize:        revisedQueueSize,
		FilterResult:            filterResult,
	}
}

// Remove terminates and deregisters the item with the given id (spec
// §4.4). Unknown ids return BadMonitoredItemIdInvalid; the id counter is
// never rolled back.
func (r *Registry) Remove(id uint32) ua.StatusCode {
	item, ok := r.items[id]
	if !ok {
		return ua.StatusBadMonitoredItemIDInvalid
	}
	item.Terminate()
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return ua.StatusOK
}

// TerminateAll terminates every registered item without removing them from
// the map (used during subscription shutdown, where the registry itself is
// about to be discarded).
func (r *Registry) TerminateAll() {
	for _, item := range r.items {
		item.Terminate()
	}
}

// GetMonitoredItems returns parallel arrays of client handles and server
// handles (monitored-item ids), per spec §4.4.
func (r *Registry) GetMonitoredItems() (clientHandles, serverHandles []uint32, status ua.StatusCode) {
	clientHandles = make([]uint32, 0, len(r.items))
	serverHandles = make([]uint32, 0, len(r.items))
	for id, item := range r.items {
		serverHandles = append(serverHandles, id)
		clientHandles = append(clientHandles, item.ClientHandle())
	}
	return clientHandles, serverHandles, ua.StatusOK
}

// ForEach calls fn for every registered item in insertion order, as
// notification assembly requires (spec §4.7). Removed items are skipped.
func (r *Registry) ForEach(fn func(id uint32, item MonitoredItem)) {
	for _, id := range r.order {
		item, ok := r.items[id]
		if !ok {
			continue
		}
		fn(id, item)
	}
}

// IDCounter returns the current value of monitoredItemIdCounter, for the
// "id <= monitoredItemIdCounter" invariant check in tests.
func (r *Registry) IDCounter() uint32 {
	return r.idCounter
}
