// Package fragments reassembles a value that was split across numbered named slots
// (FRAGMENT_1, FRAGMENT_2, ...) and performs the inverse split.
package fragments

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Lookup returns the value stored under name. Empty values report ok == false.
type Lookup func(name string) (value string, ok bool)

// NameFunc maps a 1-based index to a slot name.
type NameFunc func(index int) string

// IndexFunc inverts a NameFunc. ok is false for names that are not slots.
type IndexFunc func(name string) (index int, ok bool)

// Lister enumerates every name a source holds.
type Lister func() []string

// GapPolicy decides what happens when a slot is missing but a later one is present.
type GapPolicy int

const (
	// StopAtGap ends assembly at the first missing index and ignores anything after it.
	StopAtGap GapPolicy = iota
	// FailOnGap reports a *GapError when a later slot is present after a missing one.
	FailOnGap
)

// ErrNoFragments is returned when the first slot is missing.
var ErrNoFragments = errors.New("no fragments found")

// GapError describes fragments found past a numbering gap.
type GapError struct {
	Missing string // First missing slot name
	Found   string // Slot found after the gap
}

func (e *GapError) Error() string {
	return fmt.Sprintf("fragment %s is missing but %s is set", e.Missing, e.Found)
}

// Result is an assembled value.
type Result struct {
	Value string
	Count int    // Number of fragments concatenated
	Gap   string // Name of a slot found after the stop index (StopAtGap only)
}

// Resolver assembles numbered fragments.
//
// With Index and List set, every slot past the gap is checked. Otherwise only the
// Probe indices right after it are.
type Resolver struct {
	Name   NameFunc
	Index  IndexFunc
	List   Lister
	Policy GapPolicy
	Probe  int // How many indices past the first gap to check when List is nil
}

// Numbered names slots as prefix + index, e.g. Numbered("RAG_KNOWLEDGE_CONTENT_")(2).
func Numbered(prefix string) NameFunc {
	return func(index int) string {
		return prefix + strconv.Itoa(index)
	}
}

// NumberedIndex inverts Numbered(prefix). "PREFIX_07" and "PREFIX_0" are not slots.
func NumberedIndex(prefix string) IndexFunc {
	return func(name string) (int, bool) {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 || strconv.Itoa(n) != rest {
			return 0, false
		}
		return n, true
	}
}

// EnvLookup reads process environment variables.
func EnvLookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	return v, ok && v != ""
}

// EnvNames lists the process environment variables that have a value.
func EnvNames() []string {
	env := os.Environ()
	names := make([]string, 0, len(env))
	for _, kv := range env {
		name, value, _ := strings.Cut(kv, "=")
		if name != "" && value != "" {
			names = append(names, name)
		}
	}
	return names
}

// MapLookup reads from a map.
func MapLookup(m map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok && v != ""
	}
}

// MapNames lists the keys of m that have a value.
func MapNames(m map[string]string) Lister {
	return func() []string {
		names := make([]string, 0, len(m))
		for k, v := range m {
			if v != "" {
				names = append(names, k)
			}
		}
		return names
	}
}

// Resolve concatenates slots 1, 2, ... with no separator until the first missing index.
func (r Resolver) Resolve(lookup Lookup) (Result, error) {
	var sb strings.Builder
	index := 1
	for {
		chunk, ok := lookup(r.Name(index))
		if !ok {
			break
		}
		sb.WriteString(chunk)
		index++
	}

	count := index - 1
	if count == 0 {
		return Result{}, ErrNoFragments
	}

	res := Result{Value: sb.String(), Count: count}
	if stray := r.stray(lookup, index); stray != "" {
		if r.Policy == FailOnGap {
			return Result{}, &GapError{Missing: r.Name(index), Found: stray}
		}
		res.Gap = stray
	}
	return res, nil
}

// stray returns the lowest-numbered slot past missing that holds a value, or "".
func (r Resolver) stray(lookup Lookup, missing int) string {
	if r.Index == nil || r.List == nil {
		return r.probe(lookup, missing)
	}
	lowest := 0
	for _, name := range r.List() {
		n, ok := r.Index(name)
		if !ok || n <= missing || (lowest != 0 && n >= lowest) {
			continue
		}
		if _, set := lookup(name); set {
			lowest = n
		}
	}
	if lowest == 0 {
		return ""
	}
	return r.Name(lowest)
}

// probe looks just past the missing index for a fragment that would have been dropped.
func (r Resolver) probe(lookup Lookup, missing int) string {
	for i := missing + 1; i <= missing+r.Probe; i++ {
		name := r.Name(i)
		if _, ok := lookup(name); ok {
			return name
		}
	}
	return ""
}
