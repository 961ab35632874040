package aggregates

import "strings"

// ReadPolicy limits which reads an aggregate may expose. Listing and board
// views stay on table repos.
type ReadPolicy string

const ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"

// Contract names an aggregate and the write operations it owns. Each
// operation opens its own transaction.
type Contract struct {
	Name       string
	ReadPolicy ReadPolicy
	Ops        []string
}

type Aggregate interface {
	Contract() Contract
}

// Op returns the qualified operation label used in errors, logs and
// metrics. It panics on an operation the contract does not declare.
func (c Contract) Op(name string) string {
	for _, op := range c.Ops {
		if op == name {
			return c.Name + "." + name
		}
	}
	panic("aggregate " + c.Name + " has no operation " + name)
}

// Owns reports whether a qualified label belongs to this contract.
func (c Contract) Owns(label string) bool {
	name, ok := strings.CutPrefix(label, c.Name+".")
	if !ok {
		return false
	}
	for _, op := range c.Ops {
		if op == name {
			return true
		}
	}
	return false
}
