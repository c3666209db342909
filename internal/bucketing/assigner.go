package bucketing

import (
	"fmt"
	"sort"

	pkgerrors "github.com/prepjourney/prepjourney-backend/pkg/errors"

	"github.com/prepjourney/prepjourney-backend/pkg/enums"
)

// Assigner maps buckets onto variants according to a fixed traffic split.
// Thresholds are cumulative over lexicographically sorted variant names, so
// the same split always yields the same bucket ranges regardless of map
// iteration order.
type Assigner struct {
	variants   []string
	thresholds []int
	split      map[string]int
}

// NewAssigner validates the traffic split and builds the threshold table.
// Percentages are whole numbers and must sum to exactly 100; anything else is
// a configuration bug surfaced as a validation error, never silently
// normalized.
func NewAssigner(split map[string]int) (*Assigner, error) {
	if len(split) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "traffic split must name at least one variant")
	}

	total := 0
	variants := make([]string, 0, len(split))
	for variant, pct := range split {
		if pct < 0 || pct > 100 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("variant %q has percentage %d, must be within [0,100]", variant, pct))
		}
		total += pct
		variants = append(variants, variant)
	}
	if total != 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("traffic split percentages sum to %d, must be exactly 100", total))
	}

	sort.Strings(variants)

	thresholds := make([]int, len(variants))
	cumulative := 0
	copied := make(map[string]int, len(split))
	for i, variant := range variants {
		cumulative += split[variant]
		thresholds[i] = cumulative
		copied[variant] = split[variant]
	}

	return &Assigner{variants: variants, thresholds: thresholds, split: copied}, nil
}

// DefaultAssigner returns the canned 25/25/25/25 split over the four paywall
// variants.
func DefaultAssigner() *Assigner {
	split := make(map[string]int, len(enums.DefaultPaywallVariants))
	for _, variant := range enums.DefaultPaywallVariants {
		split[variant] = 25
	}
	assigner, err := NewAssigner(split)
	if err != nil {
		// The canned split is a compile-time constant that sums to 100.
		panic(err)
	}
	return assigner
}

// Assign returns the variant owning the given bucket: the first variant whose
// cumulative threshold exceeds it. Out-of-range buckets fall into the last
// variant rather than failing the visitor path.
func (a *Assigner) Assign(bucket int) string {
	for i, threshold := range a.thresholds {
		if bucket < threshold {
			return a.variants[i]
		}
	}
	return a.variants[len(a.variants)-1]
}

// VariantFor composes Bucket and Assign for the common case.
func (a *Assigner) VariantFor(userID, experimentName string) string {
	return a.Assign(Bucket(userID, experimentName))
}

// Variants returns the variant names in threshold (lexicographic) order.
func (a *Assigner) Variants() []string {
	out := make([]string, len(a.variants))
	copy(out, a.variants)
	return out
}

// Split returns a copy of the validated traffic split.
func (a *Assigner) Split() map[string]int {
	out := make(map[string]int, len(a.split))
	for k, v := range a.split {
		out[k] = v
	}
	return out
}
