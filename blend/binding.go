// Package blend turns per-frame phoneme scores into smoothed blendshape
// weights and pushes them to a render target.
package blend

import "github.com/rs/zerolog"

// Unbound is the phoneme index of a binding whose name did not resolve.
// Such a binding always contributes zero.
const Unbound = -1

// Entry maps one blendshape slot to a phoneme by name.
type Entry struct {
	Slot    int    `yaml:"slot" mapstructure:"slot"`
	Phoneme string `yaml:"phoneme" mapstructure:"phoneme"`
}

// Binding is an Entry with its phoneme resolved to an index.
type Binding struct {
	Slot    int
	Phoneme int
	Name    string
}

// Resolver looks up phoneme names. *analysis.Context implements it.
type Resolver interface {
	Index(name string) (int, bool)
}

// Resolve maps every entry through r. Unknown names become Unbound and are
// logged once each at warn level; negative slots are dropped.
func Resolve(entries []Entry, r Resolver, log zerolog.Logger) []Binding {
	out := make([]Binding, 0, len(entries))
	warned := make(map[string]bool)
	for _, e := range entries {
		if e.Slot < 0 {
			log.Warn().Int("slot", e.Slot).Str("phoneme", e.Phoneme).Msg("negative blendshape slot ignored")
			continue
		}
		idx := Unbound
		if r != nil {
			if i, ok := r.Index(e.Phoneme); ok {
				idx = i
			}
		}
		if idx == Unbound && !warned[e.Phoneme] {
			warned[e.Phoneme] = true
			log.Warn().Str("phoneme", e.Phoneme).Int("slot", e.Slot).Msg("phoneme not in profile, binding inert")
		}
		out = append(out, Binding{Slot: e.Slot, Phoneme: idx, Name: e.Phoneme})
	}
	return out
}

// SlotCount returns one past the highest slot named by entries. Entries whose
// phoneme does not resolve still occupy their slot.
func SlotCount(entries []Entry) int {
	n := 0
	for _, e := range entries {
		n = max(n, e.Slot+1)
	}
	return n
}
