package core

// Normalize returns a copy of txs with the monetary sign coerced to the
// transaction kind: withdrawals always carry a negative amount and fee, any
// other kind passes through numerically unchanged. Only the sign is coerced,
// the magnitude is never re-derived, so a value the upstream already reports
// as negative stays negative and the function is idempotent.
//
// The input slice and its elements are not mutated.
func Normalize(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	for i, t := range txs {
		if t.Kind == KindWithdrawal {
			t.Amount = t.Amount.NegAbs()
			t.Fee = t.Fee.NegAbs()
		}
		out[i] = t
	}
	return out
}
