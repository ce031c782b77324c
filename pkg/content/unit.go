package content

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/moltbot/rampart/pkg/config"
)

// Unit is one message or payload submitted for validation. It is immutable
// once built by Normalize, owned exclusively by the evaluation that created
// it, and discarded after a decision record is produced.
type Unit struct {
	ID            string             // evaluation-scoped identifier
	Raw           []byte             // original payload bytes, untouched
	Original      string             // text before Unicode normalization
	Text          string             // NFKC-normalized text used for analysis
	DeclaredType  string             // untrusted caller-declared content type
	SourceChannel string             // e.g. "whatsapp", "webhook:github"
	SourceClass   config.SourceClass // size-profile class
	Tier          TrustTier
	SizeCap       int // cap that was enforced, for near-limit scoring
}

// Hash returns the hex SHA-256 of the raw payload. Decision records carry
// this instead of the payload itself.
func (u *Unit) Hash() string {
	sum := sha256.Sum256(u.Raw)
	return hex.EncodeToString(sum[:])
}

// NearSizeLimit reports whether the payload is within 10% of its cap.
func (u *Unit) NearSizeLimit() bool {
	if u.SizeCap <= 0 {
		return false
	}
	return len(u.Raw)*10 >= u.SizeCap*9
}

func newUnitID() string {
	return uuid.NewString()
}
