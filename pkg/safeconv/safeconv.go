// Package safeconv converts between integer types and panics when a value
// does not fit. Use it only where the bound follows from the caller's own
// invariants, such as arena indices and subtree heights.
package safeconv

import "fmt"

// Integer is any integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Must converts value to To. It panics if the conversion would wrap or change
// the sign.
func Must[To, From Integer](value From) To {
	converted := To(value)

	if From(converted) != value || (value < 0) != (converted < 0) {
		panic(fmt.Sprintf("safeconv: %d does not fit in %T", value, converted))
	}

	return converted
}
