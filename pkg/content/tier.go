package content

// TrustTier is the caller-asserted provenance level of a content source.
// Higher tiers have stronger authentication behind them; the policy gate
// may relax thresholds for higher tiers but never below the block floor.
type TrustTier int

const (
	// TierUnauthenticated is anonymous inbound traffic. Strictest handling;
	// no configuration can relax its thresholds.
	TierUnauthenticated TrustTier = iota

	// TierSigned is traffic carrying a verified signature (e.g. a webhook
	// HMAC checked by the channel adapter before reaching the pipeline).
	TierSigned

	// TierPaired is an explicitly paired or allowlisted source.
	TierPaired
)

// String returns the tier's configuration key.
func (t TrustTier) String() string {
	switch t {
	case TierUnauthenticated:
		return "unauthenticated"
	case TierSigned:
		return "signed"
	case TierPaired:
		return "paired"
	default:
		return "unknown"
	}
}

// ParseTier maps a tier name to a TrustTier. Unknown names fall back to
// unauthenticated: an adapter that cannot name its tier gets the strictest
// handling, never a relaxed one.
func ParseTier(s string) TrustTier {
	switch s {
	case "signed":
		return TierSigned
	case "paired", "allowlisted":
		return TierPaired
	default:
		return TierUnauthenticated
	}
}
