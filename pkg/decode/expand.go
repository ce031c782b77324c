// Package decode reverses common obfuscation encodings on untrusted text,
// producing the set of revealed variants the pattern matcher scans.
//
// Expansion is breadth-first and strictly bounded: a configured maximum
// depth and a total variant cap are hard ceilings, so one adversarial
// payload ("encoding bomb") cannot starve concurrent evaluations. Hitting a
// bound is never an error: it is recorded on the result and scored as a
// structural signal.
package decode

import "github.com/moltbot/rampart/pkg/config"

// Expander applies every registered strategy at each depth level. It holds
// only configuration and is safe for concurrent use.
type Expander struct {
	maxDepth    int
	maxVariants int
}

func NewExpander(cfg *config.Config) *Expander {
	return &Expander{
		maxDepth:    cfg.MaxDecodeDepth,
		maxVariants: cfg.MaxVariants,
	}
}

// Expand produces the ordered variant set for the given normalized text.
// It never fails: text with nothing to decode yields the single depth-0
// variant. Variants with identical text are produced once, which bounds
// memory under adversarial nested-encoding inputs.
func (e *Expander) Expand(text string) *Expansion {
	exp := &Expansion{
		Variants: []Variant{{Kind: EncodingNone, Depth: 0, Text: text, ByteLen: len(text)}},
	}

	seen := map[string]bool{text: true}
	layerSeen := map[Encoding]bool{}

	// Breadth-first: frontier holds the variants discovered at the current
	// depth; each pass expands them all before moving deeper.
	frontier := []Variant{exp.Variants[0]}

	for depth := 1; depth <= e.maxDepth && len(frontier) > 0; depth++ {
		var next []Variant

		for _, v := range frontier {
			for _, s := range strategies {
				for _, candidate := range s.fn(v.Text) {
					if candidate == "" || seen[candidate] {
						continue
					}
					if len(exp.Variants) >= e.maxVariants {
						exp.HitVariantLimit = true
						return exp
					}
					seen[candidate] = true
					nv := Variant{Kind: s.kind, Depth: depth, Text: candidate, ByteLen: len(candidate)}
					exp.Variants = append(exp.Variants, nv)
					next = append(next, nv)
					if !layerSeen[s.kind] {
						layerSeen[s.kind] = true
						exp.Layers = append(exp.Layers, s.kind)
					}
				}
			}
		}

		frontier = next
	}

	// Decodable content that survives at the depth ceiling means the input
	// was nested deeper than we are willing to follow.
	if len(frontier) > 0 {
		for _, v := range frontier {
			if v.Depth == e.maxDepth && stillDecodable(v.Text, seen) {
				exp.HitDepthLimit = true
				break
			}
		}
	}

	return exp
}

// stillDecodable reports whether any strategy would produce a new variant
// from the given text.
func stillDecodable(text string, seen map[string]bool) bool {
	for _, s := range strategies {
		for _, candidate := range s.fn(text) {
			if candidate != "" && !seen[candidate] {
				return true
			}
		}
	}
	return false
}
