package enums

import "fmt"

// ReturnResolution names what the customer wants out of a return. Only
// refund resolutions move money; a replacement completes without one.
type ReturnResolution string

const (
	ReturnResolutionRefund      ReturnResolution = "refund"
	ReturnResolutionReplacement ReturnResolution = "replacement"
)

var validReturnResolutions = []ReturnResolution{
	ReturnResolutionRefund,
	ReturnResolutionReplacement,
}

// String implements fmt.Stringer.
func (r ReturnResolution) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnResolution.
func (r ReturnResolution) IsValid() bool {
	for _, candidate := range validReturnResolutions {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnResolution converts raw input into a ReturnResolution.
func ParseReturnResolution(value string) (ReturnResolution, error) {
	for _, candidate := range validReturnResolutions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return resolution %q", value)
}
