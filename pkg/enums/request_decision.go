package enums

import "fmt"

// RequestDecision is an admin's verdict on a cancel or return request.
// Cancel requests take approve or reject; returns additionally take complete
// once the goods are back.
type RequestDecision string

const (
	DecisionApprove  RequestDecision = "approve"
	DecisionReject   RequestDecision = "reject"
	DecisionComplete RequestDecision = "complete"
)

var validRequestDecisions = []RequestDecision{
	DecisionApprove,
	DecisionReject,
	DecisionComplete,
}

// String implements fmt.Stringer.
func (r RequestDecision) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RequestDecision.
func (r RequestDecision) IsValid() bool {
	for _, candidate := range validRequestDecisions {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRequestDecision converts raw input into a RequestDecision.
func ParseRequestDecision(value string) (RequestDecision, error) {
	for _, candidate := range validRequestDecisions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request decision %q", value)
}
