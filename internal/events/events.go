// Package events turns indexed debt events into ledger inputs. It owns the
// ordering the ledger relies on.
package events

import (
	"fmt"
	"sort"

	"github.com/perpdebt/vault-engine/internal/ledger"
	"github.com/perpdebt/vault-engine/internal/model"
)

// Split separates increases from decreases and sorts each ascending by
// timestamp. Events with equal timestamps keep their input order. Zero-amount
// events carry nothing to allocate and are dropped.
func Split(records []model.DebtEvent) ([]ledger.LoanOrigination, []ledger.RepaymentEvent, error) {
	sorted := make([]model.DebtEvent, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	var (
		loans      []ledger.LoanOrigination
		repayments []ledger.RepaymentEvent
	)
	for _, ev := range sorted {
		if ev.Amount == nil || ev.Amount.IsZero() {
			continue
		}
		if ev.ReferencePrice == nil {
			return nil, nil, fmt.Errorf("events: %s has no reference price", ev.ID)
		}
		switch ev.Kind {
		case model.DebtIncrease:
			loans = append(loans, ledger.LoanOrigination{
				LoanNumber:                ev.Timestamp,
				Principal:                 ev.Amount,
				OriginationReferencePrice: ev.ReferencePrice,
			})
		case model.DebtDecrease:
			repayments = append(repayments, ledger.RepaymentEvent{
				Timestamp:                 ev.Timestamp,
				Amount:                    ev.Amount,
				ReferencePriceAtRepayment: ev.ReferencePrice,
			})
		default:
			return nil, nil, fmt.Errorf("events: %s has unknown kind %q", ev.ID, ev.Kind)
		}
	}
	return loans, repayments, nil
}
