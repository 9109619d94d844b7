package domain

import "github.com/gopcua/opcua/ua"

// Deadband type codes as carried on ua.DataChangeFilter.DeadbandType. gopcua
// surfaces these as a plain uint32 rather than a named enum (see the
// teacher's createDeadbandFilter, which switches on raw 1/2 literals); we
// name them locally for readability.
const (
	deadbandTypeNone     uint32 = 0
	deadbandTypeAbsolute uint32 = 1
	deadbandTypePercent  uint32 = 2
)

// ValidateFilter validates the MonitoringFilter carried on a monitored-item
// create/modify request against the target attribute and node (spec §4.5),
// and builds the corresponding filter result.
func ValidateFilter(attributeID ua.AttributeID, node Node, filter any, addressSpace AddressSpace) (ua.StatusCode, any) {
	if filter == nil {
		return ua.StatusOK, nil
	}

	switch f := filter.(type) {
	case *ua.EventFilter:
		if attributeID != ua.AttributeIDEventNotifier {
			return ua.StatusBadFilterNotAllowed, nil
		}
		return ua.StatusOK, buildEventFilterResult(f)

	case *ua.DataChangeFilter:
		if attributeID != ua.AttributeIDValue {
			return ua.StatusBadFilterNotAllowed, nil
		}
		if node.NodeClass() != NodeClassVariable {
			return ua.StatusBadNodeIDInvalid, nil
		}
		if !addressSpace.IsSubtypeOfNumber(node.DataType()) {
			return ua.StatusBadFilterNotAllowed, nil
		}
		if f.DeadbandType == deadbandTypePercent {
			if !(f.DeadbandValue > 0 && f.DeadbandValue < 100) {
				return ua.StatusBadDeadbandFilterInvalid, nil
			}
		}
		return ua.StatusOK, nil

	case *ua.AggregateFilter:
		if attributeID != ua.AttributeIDValue && attributeID != ua.AttributeIDEventNotifier {
			return ua.StatusBadFilterNotAllowed, nil
		}
		return ua.StatusOK, &ua.AggregateFilterResult{}

	default:
		// Unknown filter variant: spec §7 treats this as a fatal programming
		// error, not a reportable status, since it can only arise from a
		// collaborator passing something outside the three recognised
		// variants.
		panic(ErrUnknownNotificationVariant)
	}
}

func buildEventFilterResult(f *ua.EventFilter) *ua.EventFilterResult {
	results := make([]ua.StatusCode, len(f.SelectClauses))
	for i := range f.SelectClauses {
		results[i] = ua.StatusOK
	}
	return &ua.EventFilterResult{
		SelectClauseResults: results,
	}
}
