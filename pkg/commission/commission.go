// Package commission implements the platform's tiered commission policy.
// All amounts are integer paise; rates are basis points. The same policy is
// used when the contract snapshot is written and when a capture is settled,
// so the two can never disagree.
package commission

import "github.com/you/eventfoundry/pkg/apperr"

type Tier struct {
	Name     string
	MaxPaise int64 // inclusive upper bound; 0 means no upper bound
	RateBps  int64
}

type Policy struct {
	Tiers       []Tier
	PlatformFee int64 // flat fee in paise, applied once per event
}

// DefaultPolicy: ≤₹5L 12%, ≤₹20L 10%, above 8%, flat ₹500 platform fee.
func DefaultPolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{Name: "standard", MaxPaise: 50_000_000, RateBps: 1200},
			{Name: "premium", MaxPaise: 200_000_000, RateBps: 1000},
			{Name: "luxury", MaxPaise: 0, RateBps: 800},
		},
		PlatformFee: 50_000,
	}
}

type Breakdown struct {
	ProjectValue int64
	RateBps      int64
	Commission   int64
	PlatformFee  int64
	Deduction    int64
	VendorShare  int64
	Tier         string
}

// Breakdown computes the commission split for a project value.
// Commission rounds down to whole paise.
func (p Policy) Breakdown(value int64) (Breakdown, error) {
	if value < 0 {
		return Breakdown{}, apperr.Validationf("project value cannot be negative")
	}
	if value == 0 {
		return Breakdown{Tier: p.tierFor(0).Name}, nil
	}
	t := p.tierFor(value)
	commission := value * t.RateBps / 10_000
	deduction := commission + p.PlatformFee
	return Breakdown{
		ProjectValue: value,
		RateBps:      t.RateBps,
		Commission:   commission,
		PlatformFee:  p.PlatformFee,
		Deduction:    deduction,
		VendorShare:  value - deduction,
		Tier:         t.Name,
	}, nil
}

func (p Policy) tierFor(value int64) Tier {
	for _, t := range p.Tiers {
		if t.MaxPaise == 0 || value <= t.MaxPaise {
			return t
		}
	}
	if len(p.Tiers) == 0 {
		return Tier{Name: "standard"}
	}
	return p.Tiers[len(p.Tiers)-1]
}
