package policy

// Sealed is the only form in which content leaves the pipeline. Downstream
// consumers depend on this type instead of raw payloads, so a call site
// that skipped validation cannot exist: the fields are unexported and the
// only constructor is the gate's decision path.
type Sealed struct {
	body       string
	annotated  string
	categories []string
	warned     bool
}

// Body returns the validated content exactly as analyzed.
func (s *Sealed) Body() string { return s.body }

// Annotated returns the content as it should be handed downstream: the
// plain body on allow, the wrapped body on warn.
func (s *Sealed) Annotated() string { return s.annotated }

// Categories lists the matched signature categories, never raw matched
// text. Empty on a clean allow.
func (s *Sealed) Categories() []string { return s.categories }

// Warned reports whether the content carries the untrusted-content wrapper.
func (s *Sealed) Warned() bool { return s.warned }
