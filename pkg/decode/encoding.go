package decode

// Encoding identifies the reversible transformation that produced a variant.
type Encoding string

const (
	EncodingNone       Encoding = "none"       // the depth-0 input itself
	EncodingBase64     Encoding = "base64"
	EncodingURL        Encoding = "url"        // percent-encoding
	EncodingHex        Encoding = "hex"        // \xNN escapes or bare hex runs
	EncodingUnicode    Encoding = "unicode"    // \uXXXX / \UXXXXXXXX escapes
	EncodingConfusable Encoding = "confusable" // cross-script homoglyph fold
)

// Variant is one reversible-encoding transformation of a unit's text.
// Variants are immutable; a unit's expansion owns them in discovery order.
type Variant struct {
	Kind    Encoding // strategy that produced this text
	Depth   int      // 0 for the original, parent depth + 1 otherwise
	Text    string
	ByteLen int
}

// Expansion is the ordered set of variants discovered for one unit.
// It never represents a failure: content with nothing to decode expands to
// the single depth-0 variant.
type Expansion struct {
	Variants []Variant

	// HitDepthLimit is set when decodable content remained at the maximum
	// depth. This is a DoS control tripping, not an error; the scorer turns
	// it into a structural penalty.
	HitDepthLimit bool

	// HitVariantLimit is set when the total variant cap stopped expansion.
	HitVariantLimit bool

	// Layers lists the distinct encodings that fired, in discovery order.
	Layers []Encoding
}

// MaxDepth returns the deepest depth reached by any variant.
func (e *Expansion) MaxDepth() int {
	max := 0
	for _, v := range e.Variants {
		if v.Depth > max {
			max = v.Depth
		}
	}
	return max
}

// Texts returns every variant's text in discovery order.
func (e *Expansion) Texts() []string {
	out := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		out[i] = v.Text
	}
	return out
}
