// Package addressspace provides a minimal in-memory implementation of
// domain.AddressSpace, seeded from the YAML manifest in internal/adapter/config.
// A real deployment would back this with the actual OPC UA server's node
// database; this core treats it as an opaque read-only collaborator (spec
// §1/§6), so any implementation satisfying domain.AddressSpace plugs in here.
package addressspace

import (
	"sync"

	"github.com/gopcua/opcua/ua"
	"github.com/nexus-edge/opcua-subscriptions/internal/adapter/config"
	"github.com/nexus-edge/opcua-subscriptions/internal/domain"
)

// numberNodeID is the well-known NodeID of the "Number" data type in the
// standard OPC UA namespace (ns=0;i=26). Every numeric data type
// (Int32, Float, Double, ...) is a subtype of it.
var numberNodeID = ua.NewNumericNodeID(0, 26)

type node struct {
	nodeID                  *ua.NodeID
	nodeClass               domain.NodeClass
	dataType                *ua.NodeID
	minimumSamplingInterval float64
	hasMinimumSampling      bool
}

func (n *node) NodeID() *ua.NodeID    { return n.nodeID }
func (n *node) NodeClass() domain.NodeClass { return n.nodeClass }
func (n *node) DataType() *ua.NodeID  { return n.dataType }

func (n *node) MinimumSamplingInterval() (float64, bool) {
	return n.minimumSamplingInterval, n.hasMinimumSampling
}

// Space is a concurrency-safe, in-memory AddressSpace.
type Space struct {
	mu    sync.RWMutex
	nodes map[string]*node
}

// New constructs an empty Space.
func New() *Space {
	return &Space{nodes: make(map[string]*node)}
}

// NewFromManifest builds a Space pre-populated from a config.Manifest's
// node list.
func NewFromManifest(manifest *config.Manifest) (*Space, error) {
	s := New()
	for _, n := range manifest.Nodes {
		if err := s.AddNode(n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddNode registers a node described by a manifest entry.
func (s *Space) AddNode(cfg config.NodeConfig) error {
	id, err := ua.ParseNodeID(cfg.NodeID)
	if err != nil {
		return err
	}

	class := domain.NodeClassUnspecified
	if cfg.NodeClass == "Variable" {
		class = domain.NodeClassVariable
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[id.String()] = &node{
		nodeID:                  id,
		nodeClass:               class,
		minimumSamplingInterval: cfg.MinimumSamplingInterval,
		hasMinimumSampling:      cfg.MinimumSamplingInterval > 0,
	}
	return nil
}

// FindNode implements domain.AddressSpace.
func (s *Space) FindNode(id *ua.NodeID) (domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id.String()]
	return n, ok
}

// IsSubtypeOfNumber implements domain.AddressSpace. This minimal address
// space does not model the full data-type hierarchy, so it only recognises
// the Number type itself and its immediate, most common numeric subtypes by
// well-known NodeID (spec §4.5 only needs this for deadband validation).
func (s *Space) IsSubtypeOfNumber(dataType *ua.NodeID) bool {
	if dataType == nil {
		return false
	}
	if dataType.String() == numberNodeID.String() {
		return true
	}
	for _, id := range commonNumericSubtypes {
		if dataType.String() == id.String() {
			return true
		}
	}
	return false
}

// commonNumericSubtypes are the standard namespace numeric builtin types
// (Integer, UInteger, Int16/32/64, UInt16/32/64, Float, Double, Byte,
// SByte), identified by their well-known numeric ids in namespace 0.
var commonNumericSubtypes = []*ua.NodeID{
	ua.NewNumericNodeID(0, 27), // Integer
	ua.NewNumericNodeID(0, 28), // UInteger
	ua.NewNumericNodeID(0, 4),  // Int16
	ua.NewNumericNodeID(0, 5),  // UInt16
	ua.NewNumericNodeID(0, 6),  // Int32
	ua.NewNumericNodeID(0, 7),  // UInt32
	ua.NewNumericNodeID(0, 8),  // Int64
	ua.NewNumericNodeID(0, 9),  // UInt64
	ua.NewNumericNodeID(0, 10), // Float
	ua.NewNumericNodeID(0, 11), // Double
	ua.NewNumericNodeID(0, 3),  // Byte
	ua.NewNumericNodeID(0, 2),  // SByte
}
