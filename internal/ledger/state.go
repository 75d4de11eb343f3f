package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/perpdebt/vault-engine/internal/fixedpoint"
)

// EffectiveLoanState is the derived view of one loan. It is never stored.
type EffectiveLoanState struct {
	LoanNumber                uint64           `json:"loan_number"`
	Principal                 *uint256.Int     `json:"principal"`
	Repaid                    *uint256.Int     `json:"repaid"`
	RemainingPrincipal        *uint256.Int     `json:"remaining_principal"`
	OriginationReferencePrice *uint256.Int     `json:"origination_reference_price"`
	UnrealizedInterestRatio   fixedpoint.Ratio `json:"unrealized_interest_ratio"`
	Repayments                []Application    `json:"repayments"`
}

// Summarize lists one state per distinct loan number in loan order.
// A fully repaid loan has no unrealized interest.
func Summarize(loans []LoanOrigination, res Result, currentReferencePrice *uint256.Int) ([]EffectiveLoanState, error) {
	out := make([]EffectiveLoanState, 0, len(loans))
	seen := make(map[uint64]int, len(loans))

	for _, loan := range loans {
		if idx, ok := seen[loan.LoanNumber]; ok {
			out[idx].Principal = new(uint256.Int).Add(out[idx].Principal, loan.Principal)
			continue
		}
		seen[loan.LoanNumber] = len(out)
		out = append(out, EffectiveLoanState{
			LoanNumber:                loan.LoanNumber,
			Principal:                 new(uint256.Int).Set(loan.Principal),
			OriginationReferencePrice: loan.OriginationReferencePrice,
		})
	}

	for idx := range out {
		st := &out[idx]
		st.Repayments = res.PerLoanRepayments[st.LoanNumber]
		if st.Repayments == nil {
			st.Repayments = []Application{}
		}
		st.RemainingPrincipal = new(uint256.Int)
		if rem, ok := res.PerLoanRemaining[st.LoanNumber]; ok {
			st.RemainingPrincipal.Set(rem)
		}
		st.Repaid = new(uint256.Int).Sub(st.Principal, st.RemainingPrincipal)

		if st.RemainingPrincipal.IsZero() {
			st.UnrealizedInterestRatio = fixedpoint.Defined(new(uint256.Int))
			continue
		}
		ratio, err := interest(st.OriginationReferencePrice, currentReferencePrice)
		if err != nil {
			return nil, fmt.Errorf("ledger: loan %d unrealized interest: %w", st.LoanNumber, err)
		}
		st.UnrealizedInterestRatio = ratio
	}
	return out, nil
}
