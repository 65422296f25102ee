package enums

import "fmt"

// RefundMethod names the channel a refund is paid through.
type RefundMethod string

const (
	RefundMethodWallet RefundMethod = "wallet"
	RefundMethodBank   RefundMethod = "bank"
	RefundMethodSource RefundMethod = "source"
)

var validRefundMethods = []RefundMethod{
	RefundMethodWallet,
	RefundMethodBank,
	RefundMethodSource,
}

// String implements fmt.Stringer.
func (r RefundMethod) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RefundMethod.
func (r RefundMethod) IsValid() bool {
	for _, candidate := range validRefundMethods {
		if candidate == r {
			return true
		}
	}
	return false
}

// RequiresGateway reports whether issuing the refund needs the payment
// gateway rather than the internal wallet ledger.
func (r RefundMethod) RequiresGateway() bool {
	return r == RefundMethodBank || r == RefundMethodSource
}

// ParseRefundMethod converts raw input into a RefundMethod.
func ParseRefundMethod(value string) (RefundMethod, error) {
	for _, candidate := range validRefundMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid refund method %q", value)
}
