package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidSpec is returned for a spec without keywords or factory.
var ErrInvalidSpec = errors.New("invalid command spec")

// DuplicateKeywordError is returned when two specs claim one keyword.
type DuplicateKeywordError struct {
	Keyword string
}

func (e *DuplicateKeywordError) Error() string {
	return fmt.Sprintf("keyword %q registered twice", e.Keyword)
}

// Registry maps keywords to command specs. It is immutable after
// construction.
type Registry struct {
	specs    []Spec
	byWord   map[string]int
	keywords []string
}

// NewRegistry validates specs and indexes their keywords.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{
		specs:  make([]Spec, 0, len(specs)),
		byWord: make(map[string]int),
	}
	for _, spec := range specs {
		if len(spec.Keywords) == 0 {
			return nil, fmt.Errorf("%w: no keywords (%q)", ErrInvalidSpec, spec.Description)
		}
		if spec.New == nil {
			return nil, fmt.Errorf("%w: %q has no factory", ErrInvalidSpec, spec.Keywords[0])
		}
		for _, kw := range spec.Keywords {
			if kw == "" || strings.ContainsAny(kw, " =") {
				return nil, fmt.Errorf("%w: bad keyword %q", ErrInvalidSpec, kw)
			}
			if _, dup := r.byWord[kw]; dup {
				return nil, &DuplicateKeywordError{Keyword: kw}
			}
			r.byWord[kw] = len(r.specs)
			r.keywords = append(r.keywords, kw)
		}
		r.specs = append(r.specs, spec)
	}
	sort.Strings(r.keywords)
	return r, nil
}

// Lookup returns the spec owning word. Matching is exact and
// case-sensitive.
func (r *Registry) Lookup(word string) (Spec, bool) {
	i, ok := r.byWord[word]
	if !ok {
		return Spec{}, false
	}
	return r.specs[i], true
}

// Keywords returns every keyword, sorted.
func (r *Registry) Keywords() []string {
	out := make([]string, len(r.keywords))
	copy(out, r.keywords)
	return out
}

// Complete returns the sorted keywords starting with prefix.
func (r *Registry) Complete(prefix string) []string {
	i := sort.SearchStrings(r.keywords, prefix)
	var out []string
	for ; i < len(r.keywords) && strings.HasPrefix(r.keywords[i], prefix); i++ {
		out = append(out, r.keywords[i])
	}
	return out
}

// Specs returns the specs in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}
