package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// Snapshot is an immutable compiled signature set. Evaluations hold a
// snapshot for their full duration, so a concurrent reload never changes
// the rules mid-evaluation.
type Snapshot struct {
	version    string
	all        []*Signature
	byCategory map[Category][]*Signature
}

func newSnapshot(defs []Signature, version string) (*Snapshot, error) {
	snap := &Snapshot{
		version:    version,
		all:        make([]*Signature, 0, len(defs)),
		byCategory: make(map[Category][]*Signature),
	}

	seen := make(map[string]bool, len(defs))
	var problems []string
	for i := range defs {
		sig := defs[i]
		if err := sig.compile(); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if seen[sig.ID] {
			problems = append(problems, fmt.Sprintf("signature %s: duplicate id", sig.ID))
			continue
		}
		seen[sig.ID] = true
		snap.all = append(snap.all, &sig)
		snap.byCategory[sig.Category] = append(snap.byCategory[sig.Category], &sig)
	}

	// All-or-nothing: a partially valid artifact is a configuration error,
	// not a degraded rule set.
	if len(problems) > 0 {
		return nil, fmt.Errorf("registry: %s", strings.Join(problems, "; "))
	}
	if len(snap.all) == 0 {
		return nil, fmt.Errorf("registry: no signatures defined")
	}
	return snap, nil
}

// Version identifies the artifact this snapshot was compiled from:
// "builtin", or "sha256:<prefix>" of the artifact bytes.
func (s *Snapshot) Version() string { return s.version }

// All returns every signature. Callers must not mutate the slice.
func (s *Snapshot) All() []*Signature { return s.all }

// ByCategory returns the signatures in one category (never nil).
func (s *Snapshot) ByCategory(cat Category) []*Signature {
	if sigs, ok := s.byCategory[cat]; ok {
		return sigs
	}
	return []*Signature{}
}

// Len returns the total signature count.
func (s *Snapshot) Len() int { return len(s.all) }

// artifact is the YAML shape of a registry file.
type artifact struct {
	Signatures []struct {
		ID       string `yaml:"id"`
		Category string `yaml:"category"`
		Pattern  string `yaml:"pattern"`
		Weight   int    `yaml:"weight"`
	} `yaml:"signatures"`
}

// LoadFile compiles a snapshot from a YAML registry artifact. Any invalid
// signature fails the whole load; the caller keeps its previous snapshot.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}

	var art artifact
	if err := yaml.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}

	defs := make([]Signature, 0, len(art.Signatures))
	for _, s := range art.Signatures {
		defs = append(defs, Signature{
			ID:       s.ID,
			Category: Category(s.Category),
			Pattern:  s.Pattern,
			Weight:   s.Weight,
		})
	}

	sum := sha256.Sum256(data)
	return newSnapshot(defs, "sha256:"+hex.EncodeToString(sum[:8]))
}

// Registry hands out the current snapshot and accepts whole-snapshot
// swaps. Reads are lock-free; evaluation latency never depends on reload
// activity.
type Registry struct {
	current atomic.Pointer[Snapshot]
}

// NewRegistry creates a registry serving the given initial snapshot.
func NewRegistry(initial *Snapshot) *Registry {
	r := &Registry{}
	r.current.Store(initial)
	return r
}

// Snapshot returns the current compiled signature set.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Swap atomically replaces the served snapshot.
func (r *Registry) Swap(snap *Snapshot) {
	r.current.Store(snap)
}
