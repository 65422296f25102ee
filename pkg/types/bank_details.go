package types

import "strings"

// BankDetails carries the payout destination for bank refunds. Stored as a
// jsonb column on return requests.
type BankDetails struct {
	AccountHolder string `json:"account_holder"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
}

// Complete reports whether every field required to pay out is present.
func (b BankDetails) Complete() bool {
	return strings.TrimSpace(b.AccountHolder) != "" &&
		strings.TrimSpace(b.BankName) != "" &&
		strings.TrimSpace(b.AccountNumber) != "" &&
		strings.TrimSpace(b.IFSC) != ""
}
