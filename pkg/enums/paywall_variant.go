package enums

// Default paywall variant names used by the zero-configuration assigner.
// Experiments may declare arbitrary variant names in their traffic split;
// these four are only the canned even split.
const (
	PaywallVariantDirect   = "direct_paywall"
	PaywallVariantFreemium = "freemium"
	PaywallVariantHard     = "hard_paywall"
	PaywallVariantTeaser   = "teaser"
)

// DefaultPaywallVariants lists the canned variants in their canonical order.
var DefaultPaywallVariants = []string{
	PaywallVariantDirect,
	PaywallVariantFreemium,
	PaywallVariantHard,
	PaywallVariantTeaser,
}
