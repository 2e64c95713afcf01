package engine

import "github.com/shopspring/decimal"

// Epsilon is the reconciliation tolerance: sub-cent rounding only.
var Epsilon = decimal.New(1, -2) // 0.01

// Reconcile sums the signed amounts of all line items and compares the
// result to the expected total, when one is known. The comparison is
// advisory: reconciliation never discards, merges or rescales line items.
func Reconcile(items []LineItem, expected *decimal.Decimal) ReconciliationResult {
	computed := decimal.Zero
	for _, li := range items {
		computed = computed.Add(li.Amount)
	}

	res := ReconciliationResult{
		ComputedTotal:   computed,
		ExpectedTotal:   expected,
		WithinTolerance: true,
		Delta:           decimal.Zero,
	}
	if expected != nil {
		res.Delta = computed.Sub(*expected)
		res.WithinTolerance = res.Delta.Abs().Cmp(Epsilon) <= 0
	}
	return res
}
