// Package content turns raw external payloads into normalized, bounded
// units for analysis. All downstream scanning operates on the NFKC text a
// normalizer produces; the pre-normalization original is retained on the
// unit for the decision record.
package content

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/moltbot/rampart/pkg/config"
)

// invisibleRanges defines Unicode ranges stripped before analysis:
// zero-width characters, bidi controls, the Tags block, and variation
// selectors. All are steganography or evasion vectors with no legitimate
// use in gateway message bodies.
var invisibleRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00AD, Hi: 0x00AD, Stride: 1}, // soft hyphen
		{Lo: 0x200B, Hi: 0x200F, Stride: 1}, // zero-width space through RTL mark
		{Lo: 0x202A, Hi: 0x202E, Stride: 1}, // bidi embedding controls
		{Lo: 0x2060, Hi: 0x2064, Stride: 1}, // word joiner through invisible plus
		{Lo: 0x2066, Hi: 0x2069, Stride: 1}, // bidi isolate controls
		{Lo: 0xFE00, Hi: 0xFE0F, Stride: 1}, // variation selectors 1-16
		{Lo: 0xFEFF, Hi: 0xFEFF, Stride: 1}, // BOM / ZWNBSP
		{Lo: 0xFFF9, Hi: 0xFFFB, Stride: 1}, // interlinear annotation anchors
	},
	R32: []unicode.Range32{
		{Lo: 0xE0000, Hi: 0xE007F, Stride: 1}, // Tags block
		{Lo: 0xE0100, Hi: 0xE01EF, Stride: 1}, // variation selectors supplement
	},
}

// Normalizer canonicalizes raw payloads into Units under the configured
// size caps. It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	cfg *config.Config
}

func NewNormalizer(cfg *config.Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Input is the boundary contract handed over by channel adapters and
// webhook receivers.
type Input struct {
	RawBytes      []byte
	DeclaredType  string // optional, untrusted
	SourceChannel string
	SourceClass   config.SourceClass
	Tier          TrustTier
}

// Normalize builds a Unit from an external input.
//
// The size cap for the input's source class is enforced first: an oversized
// payload fails with a SizeError before any decoding work, and is never
// truncated. Content that does not decode as its declared type fails with
// an EncodingError. On success the unit carries both the original text and
// the NFKC-folded text with invisible characters stripped.
func (n *Normalizer) Normalize(in Input) (*Unit, error) {
	limit := n.cfg.MaxBytesFor(in.SourceClass)
	if len(in.RawBytes) > limit {
		return nil, &SizeError{Size: len(in.RawBytes), Cap: limit}
	}

	original := string(in.RawBytes)
	if !utf8.ValidString(original) {
		return nil, &EncodingError{Declared: in.DeclaredType, Detail: "not valid UTF-8"}
	}

	if isJSONType(in.DeclaredType) && !json.Valid(in.RawBytes) {
		return nil, &EncodingError{Declared: in.DeclaredType, Detail: "not well-formed JSON"}
	}

	return &Unit{
		ID:            newUnitID(),
		Raw:           in.RawBytes,
		Original:      original,
		Text:          Fold(original),
		DeclaredType:  in.DeclaredType,
		SourceChannel: in.SourceChannel,
		SourceClass:   in.SourceClass,
		Tier:          in.Tier,
		SizeCap:       limit,
	}, nil
}

// Fold applies the canonical text transform used by every scanning path:
// strip invisible characters, then NFKC. NFKC collapses full-width digits,
// ligatures, and mathematical styled letters into their plain forms so that
// one signature matches all visual spellings.
func Fold(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.Is(invisibleRanges, r) {
			return -1
		}
		return r
	}, s)
	return norm.NFKC.String(stripped)
}

func isJSONType(declared string) bool {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
