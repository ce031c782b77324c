package content

import (
	"errors"
	"strings"
	"testing"

	"github.com/moltbot/rampart/pkg/config"
)

func testNormalizer(chatCap int) *Normalizer {
	cfg := config.New()
	cfg.MaxBytes[config.SourceChat] = chatCap
	return NewNormalizer(cfg)
}

func chatIn(raw string) Input {
	return Input{
		RawBytes:      []byte(raw),
		SourceChannel: "telegram",
		SourceClass:   config.SourceChat,
		Tier:          TierUnauthenticated,
	}
}

func TestNormalize_SizeCap(t *testing.T) {
	n := testNormalizer(64)

	if _, err := n.Normalize(chatIn(strings.Repeat("a", 64))); err != nil {
		t.Errorf("payload at cap rejected: %v", err)
	}

	_, err := n.Normalize(chatIn(strings.Repeat("a", 65)))
	if err == nil {
		t.Fatal("payload one byte over cap accepted")
	}
	if !errors.Is(err, ErrSizeExceeded) {
		t.Errorf("err = %v, want ErrSizeExceeded", err)
	}
	var sizeErr *SizeError
	if !errors.As(err, &sizeErr) {
		t.Fatalf("err type = %T", err)
	}
	if sizeErr.Size != 65 || sizeErr.Cap != 64 {
		t.Errorf("SizeError = %+v", sizeErr)
	}
}

func TestNormalize_InvalidUTF8(t *testing.T) {
	n := testNormalizer(1024)
	in := chatIn("ok")
	in.RawBytes = []byte{0xff, 0xfe, 'h', 'i'}

	_, err := n.Normalize(in)
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("err = %v, want ErrInvalidEncoding", err)
	}
}

func TestNormalize_DeclaredJSON(t *testing.T) {
	n := testNormalizer(1024)

	in := chatIn(`{"ok": true}`)
	in.DeclaredType = "application/json"
	if _, err := n.Normalize(in); err != nil {
		t.Errorf("valid JSON rejected: %v", err)
	}

	in = chatIn(`{broken`)
	in.DeclaredType = "application/json"
	if _, err := n.Normalize(in); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("err = %v, want ErrInvalidEncoding", err)
	}

	// +json suffix types get the same check.
	in = chatIn(`not json at all`)
	in.DeclaredType = "application/vnd.github+json"
	if _, err := n.Normalize(in); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("err = %v, want ErrInvalidEncoding", err)
	}

	// Malformed JSON with a non-JSON declared type is fine; the declared
	// type is untrusted either way.
	in = chatIn(`{broken`)
	in.DeclaredType = "text/plain"
	if _, err := n.Normalize(in); err != nil {
		t.Errorf("text/plain rejected: %v", err)
	}
}

func TestNormalize_UnitFields(t *testing.T) {
	n := testNormalizer(1024)
	in := chatIn("hello")
	in.DeclaredType = "text/plain"

	unit, err := n.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if unit.ID == "" {
		t.Error("empty unit ID")
	}
	if unit.Original != "hello" || unit.Text != "hello" {
		t.Errorf("texts = %q / %q", unit.Original, unit.Text)
	}
	if unit.SizeCap != 1024 {
		t.Errorf("SizeCap = %d", unit.SizeCap)
	}
	if len(unit.Hash()) != 64 {
		t.Errorf("hash length = %d", len(unit.Hash()))
	}
}

func TestFold_StripsInvisibles(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"zero-width space", "ig\u200bnore", "ignore"},
		{"zero-width joiner", "ig\u200dnore", "ignore"},
		{"bom", "\ufeffignore", "ignore"},
		{"soft hyphen", "ig\u00adnore", "ignore"},
		{"bidi override", "ig\u202enore", "ignore"},
		{"word joiner", "ig\u2060nore", "ignore"},
		{"variation selector", "ig\ufe0fnore", "ignore"},
		{"tag characters", "ig\U000E0041nore", "ignore"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fold(tc.in); got != tc.want {
				t.Errorf("Fold(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFold_NFKC(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"fullwidth", "ｉｇｎｏｒｅ", "ignore"},
		{"ligature", "ﬁle", "file"},
		{"mathematical bold", "𝐢𝐠𝐧𝐨𝐫𝐞", "ignore"},
		{"circled digits", "①②③", "123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Fold(tc.in); got != tc.want {
				t.Errorf("Fold(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNearSizeLimit(t *testing.T) {
	u := &Unit{Raw: make([]byte, 90), SizeCap: 100}
	if !u.NearSizeLimit() {
		t.Error("90% of cap should be near limit")
	}
	u = &Unit{Raw: make([]byte, 89), SizeCap: 100}
	if u.NearSizeLimit() {
		t.Error("89% of cap should not be near limit")
	}
	u = &Unit{Raw: make([]byte, 10), SizeCap: 0}
	if u.NearSizeLimit() {
		t.Error("zero cap should never be near limit")
	}
}

func TestParseTier(t *testing.T) {
	cases := []struct {
		in   string
		want TrustTier
	}{
		{"signed", TierSigned},
		{"paired", TierPaired},
		{"allowlisted", TierPaired},
		{"unauthenticated", TierUnauthenticated},
		{"", TierUnauthenticated},
		{"admin", TierUnauthenticated},
	}
	for _, tc := range cases {
		if got := ParseTier(tc.in); got != tc.want {
			t.Errorf("ParseTier(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
