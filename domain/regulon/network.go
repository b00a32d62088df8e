package regulon

import (
	"fmt"
	"sort"

	"goviper/domain/core"
)

// Network is an insertion-ordered set of regulators keyed by name.
type Network struct {
	regulators []*Regulator
	index      map[string]int
}

// NewNetwork builds a Network, rejecting duplicate regulator names.
func NewNetwork(regulators ...*Regulator) (*Network, error) {
	n := &Network{index: make(map[string]int, len(regulators))}
	for _, r := range regulators {
		if err := n.Add(r); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Add appends a regulator.
func (n *Network) Add(r *Regulator) error {
	if r == nil {
		return core.NewRegulonError("<nil>", "nil regulator")
	}
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if _, dup := n.index[r.Name()]; dup {
		return core.NewRegulonError(r.Name(), "duplicate regulator name")
	}
	n.index[r.Name()] = len(n.regulators)
	n.regulators = append(n.regulators, r)
	return nil
}

// Len returns the number of regulators.
func (n *Network) Len() int { return len(n.regulators) }

// Regulators returns regulators in insertion order.
func (n *Network) Regulators() []*Regulator { return n.regulators }

// Names returns regulator names in insertion order.
func (n *Network) Names() []string {
	names := make([]string, len(n.regulators))
	for i, r := range n.regulators {
		names[i] = r.Name()
	}
	return names
}

// Get returns the named regulator.
func (n *Network) Get(name string) (*Regulator, bool) {
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.regulators[i], true
}

// Position returns the insertion position of name, or -1.
func (n *Network) Position(name string) int {
	if i, ok := n.index[name]; ok {
		return i
	}
	return -1
}

// TargetUniverse returns the sorted union of all targets.
func (n *Network) TargetUniverse() []string {
	seen := make(map[string]struct{})
	for _, r := range n.regulators {
		for _, t := range r.Targets() {
			seen[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Replace returns a copy of the network where regulators present in
// replacements substitute the originals at the same position.
func (n *Network) Replace(replacements map[string]*Regulator) *Network {
	out := &Network{
		regulators: make([]*Regulator, len(n.regulators)),
		index:      make(map[string]int, len(n.regulators)),
	}
	for i, r := range n.regulators {
		if rep, ok := replacements[r.Name()]; ok {
			r = rep
		}
		out.regulators[i] = r
		out.index[r.Name()] = i
	}
	return out
}

// Subset returns the regulators named in names, in network order.
func (n *Network) Subset(names map[string]bool) *Network {
	out := &Network{index: make(map[string]int)}
	for _, r := range n.regulators {
		if names[r.Name()] {
			out.index[r.Name()] = len(out.regulators)
			out.regulators = append(out.regulators, r)
		}
	}
	return out
}

func (n *Network) String() string {
	return fmt.Sprintf("Network(%d regulators, %d targets)", n.Len(), len(n.TargetUniverse()))
}
