package decode

import (
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Compiled once at package init; shared across all evaluations.
var (
	// 16+ chars of base64 alphabet, standard or URL-safe, with optional
	// padding. Shorter runs are too likely to be ordinary words.
	reBase64Run = regexp.MustCompile(`[A-Za-z0-9+/_-]{16,}={0,2}`)

	reHexEscaped = regexp.MustCompile(`(?:\\x[0-9a-fA-F]{2})+`)
	rePureHex    = regexp.MustCompile(`\b[0-9a-fA-F]{12,}\b`)

	reUnicodeEscape = regexp.MustCompile(`\\u([0-9a-fA-F]{4})|\\U([0-9a-fA-F]{8})`)
)

// strategy attempts one reversible decoding of the input text. It returns
// zero or more candidate texts; candidates that fail the plausibility
// filter are discarded by the expander.
type strategy struct {
	kind Encoding
	fn   func(string) []string
}

// strategies is the ordered list applied at every depth level.
var strategies = []strategy{
	{EncodingBase64, tryBase64},
	{EncodingURL, tryURL},
	{EncodingHex, tryHex},
	{EncodingUnicode, tryUnicodeEscapes},
	{EncodingConfusable, tryConfusableFold},
}

// tryBase64 decodes the whole trimmed text when it is a single base64 run
// (how nested encodings chain), and otherwise extracts embedded runs.
func tryBase64(text string) []string {
	var out []string

	trimmed := strings.TrimSpace(text)
	if reBase64Run.FindString(trimmed) == trimmed && trimmed != "" {
		if decoded := decodeBase64(trimmed); decoded != "" {
			return []string{decoded}
		}
	}

	for _, match := range reBase64Run.FindAllString(text, -1) {
		if decoded := decodeBase64(match); decoded != "" {
			out = append(out, decoded)
		}
	}
	return out
}

// base64Alphabets are tried in order; standard and URL-safe runs both
// appear in the wild and a mismatched alphabet fails cleanly.
var base64Alphabets = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

func decodeBase64(s string) string {
	for _, enc := range base64Alphabets {
		decoded, err := enc.DecodeString(s)
		if err != nil {
			continue
		}
		if !isPlausible(string(decoded)) {
			return ""
		}
		return string(decoded)
	}
	return ""
}

func tryURL(text string) []string {
	if !strings.Contains(text, "%") {
		return nil
	}
	decoded, err := url.QueryUnescape(text)
	if err != nil || decoded == text || !isPlausible(decoded) {
		return nil
	}
	return []string{decoded}
}

func tryHex(text string) []string {
	var out []string

	// \x69\x67\x6e\x6f\x72\x65 style escapes
	for _, match := range reHexEscaped.FindAllString(text, -1) {
		clean := strings.ReplaceAll(match, `\x`, "")
		if decoded, err := hex.DecodeString(clean); err == nil && isPlausible(string(decoded)) {
			out = append(out, string(decoded))
		}
	}

	// bare hex runs (69676e6f7265...)
	for _, match := range rePureHex.FindAllString(text, -1) {
		if len(match)%2 != 0 {
			continue
		}
		if decoded, err := hex.DecodeString(match); err == nil && isPlausible(string(decoded)) {
			out = append(out, string(decoded))
		}
	}
	return out
}

func tryUnicodeEscapes(text string) []string {
	if !reUnicodeEscape.MatchString(text) {
		return nil
	}
	result := reUnicodeEscape.ReplaceAllStringFunc(text, func(match string) string {
		codePoint, err := strconv.ParseInt(match[2:], 16, 32)
		if err != nil || codePoint < 0 || codePoint > 0x10FFFF {
			return match
		}
		return string(rune(codePoint))
	})
	if result == text || !isPlausible(result) {
		return nil
	}
	return []string{result}
}

// confusables maps non-Latin characters that are visually identical to
// Latin letters. NFKC does not touch cross-script lookalikes, so this fold
// is a decoding strategy rather than part of normalization. Focused on
// characters that appear in English injection phrasing; not exhaustive.
var confusables = map[rune]rune{
	// Cyrillic lowercase
	'а': 'a', 'е': 'e', 'і': 'i', 'о': 'o', 'р': 'p', 'с': 'c', 'у': 'y', 'х': 'x',
	// Cyrillic uppercase
	'А': 'A', 'В': 'B', 'С': 'C', 'Е': 'E', 'Н': 'H', 'І': 'I', 'К': 'K',
	'М': 'M', 'О': 'O', 'Р': 'P', 'Т': 'T', 'Х': 'X',
	// Greek
	'α': 'a', 'β': 'b', 'ε': 'e', 'η': 'n', 'ι': 'i', 'κ': 'k', 'ν': 'v',
	'ο': 'o', 'ρ': 'p', 'τ': 't', 'υ': 'u', 'χ': 'x',
	// IPA and small caps
	'ɑ': 'a', 'ɡ': 'g', 'ɩ': 'i', 'ɪ': 'i',
}

func tryConfusableFold(text string) []string {
	folded := strings.Map(func(r rune) rune {
		if mapped, ok := confusables[r]; ok {
			return mapped
		}
		return r
	}, text)
	if folded == text {
		return nil
	}
	return []string{folded}
}

// isPlausible accepts decoded output only when it is human-readable text:
// valid UTF-8, printable, and long enough to carry meaning. This is the
// filter that keeps random binary from spawning variants.
func isPlausible(s string) bool {
	if len(s) < 3 || !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r == unicode.ReplacementChar {
			return false
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
