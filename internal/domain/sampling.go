package domain

// Server-wide sampling interval bounds (spec §4.6 "minSupported"/"maxSupported").
// The spec leaves the concrete values an Open Question; these mirror the
// clamp the rest of this core applies to publishingInterval (100ms floor)
// and give samples a generous ceiling of one day.
const (
	minSupportedSamplingInterval = 100.0
	maxSupportedSamplingInterval = 24 * 60 * 60 * 1000.0
)

// NegotiateSamplingInterval implements spec §4.6: given a client-requested
// sampling interval and the target node, returns the revised interval the
// monitored item will actually use.
func NegotiateSamplingInterval(requested float64, node Node, publishingInterval float64) float64 {
	switch {
	case requested < 0:
		requested = publishingInterval
	case requested == 0:
		if v, ok := node.MinimumSamplingInterval(); ok {
			requested = v
		}
	}

	if requested > 0 && requested < minSupportedSamplingInterval {
		requested = minSupportedSamplingInterval
	}
	if requested > maxSupportedSamplingInterval {
		requested = maxSupportedSamplingInterval
	}

	if nodeMin, ok := node.MinimumSamplingInterval(); ok && nodeMin > requested {
		requested = nodeMin
	}

	return requested
}
