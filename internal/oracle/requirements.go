package oracle

import "fmt"

// Requirements lists the price kinds a consumer needs. It is declared once at
// construction; there is no registration after the fact.
type Requirements struct {
	types []PriceType
}

// NewRequirements deduplicates types while keeping their order.
func NewRequirements(types ...PriceType) Requirements {
	seen := make(map[PriceType]bool, len(types))
	out := make([]PriceType, 0, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return Requirements{types: out}
}

// Types returns the required kinds in declaration order.
func (r Requirements) Types() []PriceType {
	return append([]PriceType(nil), r.types...)
}

// Has reports whether t is required.
func (r Requirements) Has(t PriceType) bool {
	for _, rt := range r.types {
		if rt == t {
			return true
		}
	}
	return false
}

// Resolved holds one message per required price kind.
type Resolved map[PriceType]*Message

// Resolve picks the message for every required kind out of available.
func (r Requirements) Resolve(available []*Message) (Resolved, error) {
	out := make(Resolved, len(r.types))
	for _, msg := range available {
		if msg == nil || !r.Has(msg.PriceType) {
			continue
		}
		if cur, ok := out[msg.PriceType]; ok && cur.Timestamp >= msg.Timestamp {
			continue
		}
		out[msg.PriceType] = msg
	}
	for _, t := range r.types {
		if _, ok := out[t]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPriceType, t)
		}
	}
	return out, nil
}

// Synced reports whether every resolved message is synced at ref.
func (r Resolved) Synced(ref uint64) bool {
	for _, msg := range r {
		if !IsSynced(msg, ref) {
			return false
		}
	}
	return true
}
