package face

import (
	"fmt"
	"strings"
)

// CaptureMode selects the liveness flavour requested from the provider.
type CaptureMode int

const (
	// ActiveLiveness asks the subject to perform gestures during capture.
	ActiveLiveness CaptureMode = iota + 1
	// PassiveLiveness evaluates a single still capture.
	PassiveLiveness
)

// String returns the lowercase name used on the HTTP surface.
func (m CaptureMode) String() string {
	switch m {
	case ActiveLiveness:
		return "active"
	case PassiveLiveness:
		return "passive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseCaptureMode converts "active" or "passive" into a CaptureMode.
func ParseCaptureMode(s string) (CaptureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return ActiveLiveness, nil
	case "passive":
		return PassiveLiveness, nil
	default:
		return 0, fmt.Errorf("unknown capture mode %q", s)
	}
}
