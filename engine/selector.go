// Package engine defines a unified abstraction layer for media playback backends.
package engine

// Strategy determines the order in which backends are attempted for one playback request.
type Strategy int

const (
	// CompatibilityFirst tries the broad-format decoder before the native framework.
	CompatibilityFirst Strategy = iota
	// QualityFirst tries the native framework (better OS power/thermal integration) before the broad-format decoder.
	QualityFirst
)

// String returns the configuration spelling of the strategy.
func (s Strategy) String() string {
	if s == QualityFirst {
		return "quality-first"
	}
	return "compatibility-first"
}

// ParseStrategy maps a configuration string to a Strategy.
// Unknown or empty values fall back to CompatibilityFirst.
func ParseStrategy(value string) Strategy {
	if value == "quality-first" {
		return QualityFirst
	}
	return CompatibilityFirst
}

// Order returns the ordered list of engine identities to attempt.
// Deterministic: the result is always a permutation of the two configured engines,
// and the first element depends solely on the strategy.
func Order(strategy Strategy) []ID {
	if strategy == QualityFirst {
		return []ID{NativeEngine, MPVEngine}
	}
	return []ID{MPVEngine, NativeEngine}
}
