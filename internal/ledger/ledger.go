// Package ledger folds debt-increase and debt-decrease events into a per-loan
// ledger with imputed interest.
//
// The protocol has no interest field. Interest is realized entirely through
// the movement of the reference (target) price between the moment debt was
// taken and the moment it was repaid, so every repayment slice carries the
// percent change of that price.
//
// Nothing here is cached: a Result is recomputed from the immutable event
// slices on every call.
package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/perpdebt/vault-engine/internal/fixedpoint"
)

// LoanOrigination is a debt increase. LoanNumber is the origination timestamp
// and doubles as the loan identifier; two originations in the same second are
// not distinguished and share one entry in Result maps.
type LoanOrigination struct {
	LoanNumber                uint64       `json:"loan_number"`
	Principal                 *uint256.Int `json:"principal"`
	OriginationReferencePrice *uint256.Int `json:"origination_reference_price"`
}

// RepaymentEvent is a debt decrease.
type RepaymentEvent struct {
	Timestamp                 uint64       `json:"timestamp"`
	Amount                    *uint256.Int `json:"amount"`
	ReferencePriceAtRepayment *uint256.Int `json:"reference_price_at_repayment"`
}

// Application is the part of one repayment applied to one loan.
type Application struct {
	Repayment         RepaymentEvent   `json:"repayment"`
	AppliedAmount     *uint256.Int     `json:"applied_amount"`
	EffectiveInterest fixedpoint.Ratio `json:"effective_interest"`
}

// UnattributedReason says why no loan absorbed a repayment amount.
type UnattributedReason string

const (
	// BeforeLoan marks a repayment dated before the loan it would be applied
	// to, with every earlier loan already repaid: no debt existed to reduce.
	BeforeLoan UnattributedReason = "before_loan"
	// Excess marks the part of a repayment left once every loan is repaid.
	Excess UnattributedReason = "excess"
)

// Unattributed is a repayment amount no loan absorbed. It is reported instead
// of being dropped or assigned to a default bucket.
type Unattributed struct {
	Repayment RepaymentEvent     `json:"repayment"`
	Amount    *uint256.Int       `json:"amount"`
	Reason    UnattributedReason `json:"reason"`
}

// Result is the output of Allocate.
type Result struct {
	PerLoanRepayments map[uint64][]Application `json:"per_loan_repayments"`
	PerLoanRemaining  map[uint64]*uint256.Int  `json:"per_loan_remaining"`
	Unattributed      []Unattributed           `json:"unattributed,omitempty"`
}

// Allocate applies repayments to loans first-in first-out in a single forward
// pass.
//
// Both slices must already be sorted ascending by time. Allocate does not
// check or repair the order; sorting belongs to the caller so this pass stays
// auditable. Output on unsorted input is meaningless.
//
// A repayment that overfills the current loan is split: the part that fits is
// applied, and the remainder carries over to the next loan even when that loan
// was originated later. A repayment not yet split that predates the loan in
// front of the cursor is reported as BeforeLoan and the cursor moves on.
//
// The only error is an interest ratio that overflows 256 bits.
func Allocate(loans []LoanOrigination, repayments []RepaymentEvent) (Result, error) {
	res := Result{
		PerLoanRepayments: make(map[uint64][]Application, len(loans)),
		PerLoanRemaining:  make(map[uint64]*uint256.Int, len(loans)),
	}

	i := 0
	// partial is how much of repayments[i] earlier loans already consumed.
	partial := new(uint256.Int)

	for _, loan := range loans {
		consumed := new(uint256.Int)
		apps := res.PerLoanRepayments[loan.LoanNumber]

		for consumed.Lt(loan.Principal) && i < len(repayments) {
			rep := repayments[i]
			if partial.IsZero() && rep.Timestamp < loan.LoanNumber {
				if !rep.Amount.IsZero() {
					res.Unattributed = append(res.Unattributed, Unattributed{
						Repayment: rep,
						Amount:    new(uint256.Int).Set(rep.Amount),
						Reason:    BeforeLoan,
					})
				}
				i++
				continue
			}

			amount := new(uint256.Int).Sub(rep.Amount, partial)
			room := new(uint256.Int).Sub(loan.Principal, consumed)

			if amount.Gt(room) {
				app, err := apply(loan, rep, room)
				if err != nil {
					return Result{}, err
				}
				apps = append(apps, app)
				partial.Add(partial, room)
				consumed.Set(loan.Principal)
				break
			}

			if !amount.IsZero() {
				app, err := apply(loan, rep, amount)
				if err != nil {
					return Result{}, err
				}
				apps = append(apps, app)
			}
			consumed.Add(consumed, amount)
			i++
			partial.Clear()
		}

		if len(apps) > 0 {
			res.PerLoanRepayments[loan.LoanNumber] = apps
		}
		remaining := new(uint256.Int).Sub(loan.Principal, consumed)
		if prev, ok := res.PerLoanRemaining[loan.LoanNumber]; ok {
			remaining.Add(remaining, prev)
		}
		res.PerLoanRemaining[loan.LoanNumber] = remaining
	}

	for ; i < len(repayments); i++ {
		rep := repayments[i]
		left := new(uint256.Int).Sub(rep.Amount, partial)
		partial.Clear()
		if left.IsZero() {
			continue
		}
		res.Unattributed = append(res.Unattributed, Unattributed{Repayment: rep, Amount: left, Reason: Excess})
	}

	return res, nil
}

func apply(loan LoanOrigination, rep RepaymentEvent, amount *uint256.Int) (Application, error) {
	ratio, err := interest(loan.OriginationReferencePrice, rep.ReferencePriceAtRepayment)
	if err != nil {
		return Application{}, fmt.Errorf("ledger: loan %d repayment at %d: %w", loan.LoanNumber, rep.Timestamp, err)
	}
	return Application{
		Repayment:         rep,
		AppliedAmount:     new(uint256.Int).Set(amount),
		EffectiveInterest: ratio,
	}, nil
}

// interest is the percent change from the origination price. A zero
// origination price yields an undefined ratio; overflow is an error.
func interest(from, to *uint256.Int) (fixedpoint.Ratio, error) {
	return fixedpoint.RatioOf(fixedpoint.PercentChange(from, to))
}

// UnrealizedInterest is the interest accrued on principal that is still
// outstanding, measured against the current reference price.
func UnrealizedInterest(loan LoanOrigination, currentReferencePrice *uint256.Int) (fixedpoint.Ratio, error) {
	return interest(loan.OriginationReferencePrice, currentReferencePrice)
}

// TotalApplied sums every applied amount across loans.
func (r Result) TotalApplied() *uint256.Int {
	total := new(uint256.Int)
	for _, apps := range r.PerLoanRepayments {
		for _, a := range apps {
			total.Add(total, a.AppliedAmount)
		}
	}
	return total
}

// TotalUnattributed sums the amounts no loan could absorb.
func (r Result) TotalUnattributed() *uint256.Int {
	total := new(uint256.Int)
	for _, u := range r.Unattributed {
		total.Add(total, u.Amount)
	}
	return total
}
