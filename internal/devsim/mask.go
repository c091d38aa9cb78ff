package devsim

import (
	"strings"

	"rgbctl/pkg/types"
)

// Mask is a bit set over types.KnownTargets.
type Mask uint8

// DefaultMask is used when a client names no known target.
var DefaultMask = maskBit(types.TargetSSE)

func maskBit(name string) Mask {
	for i, t := range types.KnownTargets {
		if t == name {
			return 1 << i
		}
	}
	return 0
}

// LookupTarget returns the mask bit for a target name, case-insensitively.
func LookupTarget(name string) (Mask, bool) {
	m := maskBit(strings.ToLower(strings.TrimSpace(name)))
	return m, m != 0
}

// ParseMask builds a mask from a comma separated targets value. Unknown names
// are ignored; an empty result falls back to DefaultMask.
func ParseMask(csv string) Mask {
	var m Mask
	for _, part := range strings.Split(csv, ",") {
		if bit, ok := LookupTarget(part); ok {
			m |= bit
		}
	}
	if m == 0 {
		return DefaultMask
	}
	return m
}

// Has reports whether the mask includes bit.
func (m Mask) Has(bit Mask) bool { return m&bit != 0 }

// Names lists the targets in the mask.
func (m Mask) Names() []string {
	var out []string
	for i, t := range types.KnownTargets {
		if m&(1<<i) != 0 {
			out = append(out, t)
		}
	}
	return out
}
