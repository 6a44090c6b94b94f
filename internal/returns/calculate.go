// Package returns computes rental late fees and drives the return form.
package returns

import (
	"time"

	"storepos/internal/domain"
)

const day = 24 * time.Hour

// Terms are the parts of a rental the late fee depends on.
type Terms struct {
	RentalID     string
	DueDate      time.Time
	DepositCents int64
}

func TermsOf(r domain.Rental) Terms {
	return Terms{RentalID: r.ID, DueDate: r.DueDate, DepositCents: r.DepositCents}
}

type Policy struct {
	LateFeePerDayCents int64
}

// Calculate is pure. A return at or before the due date is never late.
// Any started day past the due date counts as a full day. The refund is
// not clamped, so a negative value is a balance the customer owes.
func Calculate(terms Terms, returnedAt time.Time, policy Policy) domain.LateFeeQuote {
	q := domain.LateFeeQuote{
		RentalID:           terms.RentalID,
		DueDate:            terms.DueDate,
		ReturnedAt:         returnedAt,
		LateFeePerDayCents: policy.LateFeePerDayCents,
		DepositCents:       terms.DepositCents,
	}
	if returnedAt.After(terms.DueDate) {
		late := returnedAt.Sub(terms.DueDate)
		q.IsLate = true
		q.DaysLate = int((late + day - 1) / day)
		q.LateFeeCents = int64(q.DaysLate) * policy.LateFeePerDayCents
	}
	q.RefundCents = q.DepositCents - q.LateFeeCents
	return q
}
