package domain

import (
	"testing"

	"github.com/gopcua/opcua/ua"
)

type fakeNode struct {
	id               *ua.NodeID
	class            NodeClass
	dataType         *ua.NodeID
	minSampling      float64
	hasMinSampling   bool
}

func (n *fakeNode) NodeID() *ua.NodeID    { return n.id }
func (n *fakeNode) NodeClass() NodeClass  { return n.class }
func (n *fakeNode) DataType() *ua.NodeID  { return n.dataType }
func (n *fakeNode) MinimumSamplingInterval() (float64, bool) {
	return n.minSampling, n.hasMinSampling
}

type fakeAddressSpace struct {
	nodes          map[string]Node
	numberType     *ua.NodeID
	numberSubtypes []*ua.NodeID
}

func newFakeAddressSpace() *fakeAddressSpace {
	return &fakeAddressSpace{nodes: make(map[string]Node)}
}

func (a *fakeAddressSpace) FindNode(id *ua.NodeID) (Node, bool) {
	n, ok := a.nodes[id.String()]
	return n, ok
}

func (a *fakeAddressSpace) IsSubtypeOfNumber(dataType *ua.NodeID) bool {
	if dataType == nil || a.numberType == nil {
		return false
	}
	if dataType.String() == a.numberType.String() {
		return true
	}
	for _, sub := range a.numberSubtypes {
		if dataType.String() == sub.String() {
			return true
		}
	}
	return false
}

func (a *fakeAddressSpace) addVariable(nodeID string, dataType *ua.NodeID) *fakeNode {
	id := ua.NewStringNodeID(1, nodeID)
	n := &fakeNode{id: id, class: NodeClassVariable, dataType: dataType, minSampling: 100, hasMinSampling: true}
	a.nodes[id.String()] = n
	return n
}

func newCreateRequest(nodeID *ua.NodeID, attr ua.AttributeID, clientHandle uint32) *ua.MonitoredItemCreateRequest {
	return &ua.MonitoredItemCreateRequest{
		ItemToMonitor: &ua.ReadValueID{
			NodeID:      nodeID,
			AttributeID: attr,
		},
		MonitoringMode: ua.MonitoringModeReporting,
		RequestedParameters: &ua.MonitoringParameters{
			ClientHandle:     clientHandle,
			SamplingInterval: 0,
			QueueSize:        1,
		},
	}
}

func TestRegistry_CreateUnknownNode(t *testing.T) {
	as := newFakeAddressSpace()
	r := NewRegistry(as, nil)

	req := newCreateRequest(ua.NewStringNodeID(1, "missing"), ua.AttributeIDValue, 1)
	result := r.Create(ua.TimestampsToReturnBoth, req, 1000)

	if result.StatusCode != ua.StatusBadNodeIDUnknown {
		t.Fatalf("expected BadNodeIDUnknown, got %v", result.StatusCode)
	}
}

func TestRegistry_CreateNonVariableWithValueAttribute(t *testing.T) {
	as := newFakeAddressSpace()
	id := ua.NewStringNodeID(1, "obj")
	as.nodes[id.String()] = &fakeNode{id: id, class: NodeClassUnspecified}
	r := NewRegistry(as, nil)

	req := newCreateRequest(id, ua.AttributeIDValue, 1)
	result := r.Create(ua.TimestampsToReturnBoth, req, 1000)

	if result.StatusCode != ua.StatusBadAttributeIDInvalid {
		t.Fatalf("expected BadAttributeIDInvalid for a non-Variable node, got %v", result.StatusCode)
	}
}

func TestRegistry_CreateSuccessAssignsIncrementingIDs(t *testing.T) {
	as := newFakeAddressSpace()
	v := as.addVariable("v1", nil)
	r := NewRegistry(as, nil)

	req1 := newCreateRequest(v.id, ua.AttributeIDValue, 11)
	res1 := r.Create(ua.TimestampsToReturnBoth, req1, 1000)
	if res1.StatusCode != ua.StatusOK {
		t.Fatalf("expected StatusOK, got %v", res1.StatusCode)
	}
	if res1.MonitoredItemID != 1 {
		t.Fatalf("expected first id to be 1, got %d", res1.MonitoredItemID)
	}

	req2 := newCreateRequest(v.id, ua.AttributeIDValue, 12)
	res2 := r.Create(ua.TimestampsToReturnBoth, req2, 1000)
	if res2.MonitoredItemID != 2 {
		t.Fatalf("expected second id to be 2, got %d", res2.MonitoredItemID)
	}
	if r.IDCounter() != 2 {
		t.Fatalf("expected id counter at 2, got %d", r.IDCounter())
	}
}

func TestRegistry_RemoveUnknownID(t *testing.T) {
	as := newFakeAddressSpace()
	r := NewRegistry(as, nil)
	if status := r.Remove(999); status != ua.StatusBadMonitoredItemIDInvalid {
		t.Fatalf("expected BadMonitoredItemIdInvalid, got %v", status)
	}
}

func TestRegistry_ForEachPreservesInsertionOrder(t *testing.T) {
	as := newFakeAddressSpace()
	v1 := as.addVariable("v1", nil)
	v2 := as.addVariable("v2", nil)
	v3 := as.addVariable("v3", nil)
	r := NewRegistry(as, nil)

	r.Create(ua.TimestampsToReturnBoth, newCreateRequest(v2.id, ua.AttributeIDValue, 1), 1000)
	r.Create(ua.TimestampsToReturnBoth, newCreateRequest(v1.id, ua.AttributeIDValue, 2), 1000)
	r.Create(ua.TimestampsToReturnBoth, newCreateRequest(v3.id, ua.AttributeIDValue, 3), 1000)

	var order []uint32
	r.ForEach(func(id uint32, _ MonitoredItem) {
		order = append(order, id)
	})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected ForEach to visit items in creation order, got %v", order)
	}

	r.Remove(2)
	order = nil
	r.ForEach(func(id uint32, _ MonitoredItem) {
		order = append(order, id)
	})
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Fatalf("expected removed item to drop out of iteration order, got %v", order)
	}
}

func TestValidIndexRange(t *testing.T) {
	cases := map[string]bool{
		"":        true,
		"1":       true,
		"1:2":     true,
		"1,2:4":   true,
		"2:1":     false,
		"abc":     false,
		"1:2:3":   false,
	}
	for input, want := range cases {
		if got := validIndexRange(input); got != want {
			t.Errorf("validIndexRange(%q) = %v, want %v", input, got, want)
		}
	}
}
