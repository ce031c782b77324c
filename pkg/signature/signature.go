// Package signature provides the versioned detection-rule registry.
//
// All patterns are compiled when a snapshot is built: at startup for the
// builtin set, at artifact load for configured sets. A malformed signature
// is a load-time configuration error and can never reach live evaluation.
// Snapshots are immutable; evaluation reads never block on registry state.
package signature

import (
	"fmt"
	"regexp"
)

// Category classifies what a signature detects.
type Category string

const (
	CategoryCommandInjection Category = "command_injection"
	CategoryPromptInjection  Category = "prompt_injection"
	CategoryObfuscationMark  Category = "obfuscation_marker"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryCommandInjection,
	CategoryPromptInjection,
	CategoryObfuscationMark,
}

// Valid reports whether the category is a known one.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Signature is one named detection rule. The pattern is compiled exactly
// once, when the owning snapshot is built.
type Signature struct {
	ID       string
	Category Category
	Pattern  string
	Weight   int // positive score contribution, counted once per unit

	regex *regexp.Regexp
}

// Match reports whether the signature fires against the text, returning
// the byte offset and matched substring of the first occurrence.
func (s *Signature) Match(text string) (offset int, matched string, ok bool) {
	loc := s.regex.FindStringIndex(text)
	if loc == nil {
		return 0, "", false
	}
	return loc[0], text[loc[0]:loc[1]], true
}

// FindAll returns the byte offsets of every occurrence in the text.
func (s *Signature) FindAll(text string) [][2]int {
	locs := s.regex.FindAllStringIndex(text, -1)
	if locs == nil {
		return nil
	}
	out := make([][2]int, len(locs))
	for i, l := range locs {
		out[i] = [2]int{l[0], l[1]}
	}
	return out
}

// compile validates and compiles a signature definition.
func (s *Signature) compile() error {
	if s.ID == "" {
		return fmt.Errorf("signature with empty id")
	}
	if !s.Category.Valid() {
		return fmt.Errorf("signature %s: unknown category %q", s.ID, s.Category)
	}
	if s.Weight <= 0 {
		return fmt.Errorf("signature %s: weight must be positive, got %d", s.ID, s.Weight)
	}
	re, err := regexp.Compile(s.Pattern)
	if err != nil {
		return fmt.Errorf("signature %s: %w", s.ID, err)
	}
	s.regex = re
	return nil
}
