package model

// FeePaymentDetail is the auditable breakdown of payments owed for a single
// onboarding event. It is derived, never persisted: the caller consumes it
// immediately to emit transfer instructions.
type FeePaymentDetail struct {
	ScopeAddress string       `json:"scope_address"`
	Payments     []FeePayment `json:"payments"`
}

// FeePayment is one transfer line within a payment detail.
type FeePayment struct {
	Amount    uint64 `json:"amount"`
	Denom     string `json:"denom"`
	Name      string `json:"name"`
	Recipient string `json:"recipient"`
}

// Total sums every payment amount. By construction this always equals the
// cost selected for the classification context.
func (d FeePaymentDetail) Total() uint64 {
	var total uint64
	for _, p := range d.Payments {
		total += p.Amount
	}
	return total
}
