package domain

import "github.com/gopcua/opcua/ua"

// NodeClass mirrors the OPC UA NodeClass values this core needs to
// distinguish. Full node-class semantics live in the Address Space
// collaborator (out of scope per spec §1); the core only needs to tell a
// Variable from everything else.
type NodeClass int

const (
	NodeClassUnspecified NodeClass = iota
	NodeClassVariable
)

// Node is the read-only view of an address-space node this core requires.
type Node interface {
	NodeID() *ua.NodeID
	NodeClass() NodeClass

	// DataType returns the node's DataType attribute. Only meaningful for
	// Variable nodes.
	DataType() *ua.NodeID

	// MinimumSamplingInterval returns the node's MinimumSamplingInterval
	// attribute and whether it is present with Good status (spec §4.6).
	MinimumSamplingInterval() (value float64, ok bool)
}

// AddressSpace is the read-only collaborator consumed by monitored-item
// creation and filter validation (spec §6). The core never mutates it and
// never traverses the data-type hierarchy itself beyond the single
// subtype-of-Number check filter validation requires.
type AddressSpace interface {
	// FindNode resolves a NodeID to a Node, or reports it unknown.
	FindNode(id *ua.NodeID) (Node, bool)

	// IsSubtypeOfNumber reports whether dataType is the Number data type or
	// one of its subtypes, per the hierarchy findDataType(...) would expose.
	// This collapses the Address Space's full supertype-walk into the single
	// boolean the filter validator needs (spec §4.5).
	IsSubtypeOfNumber(dataType *ua.NodeID) bool
}
