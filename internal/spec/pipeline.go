package spec

import "strings"

// Pipeline is an ordered, immutable list of operations.
type Pipeline struct {
	ops []Operation
}

// NewPipeline stores ops in the given order. No reordering or deduplication
// happens; the slice is copied so later changes by the caller are not seen.
func NewPipeline(ops ...Operation) Pipeline {
	if len(ops) == 0 {
		return Pipeline{}
	}
	return Pipeline{ops: append([]Operation(nil), ops...)}
}

// Operations returns a copy of the pipeline's operations.
func (p Pipeline) Operations() []Operation {
	return append([]Operation(nil), p.ops...)
}

// Len returns the number of operations.
func (p Pipeline) Len() int { return len(p.ops) }

// Equal reports whether both pipelines hold the same operations in the same order.
func (p Pipeline) Equal(other Pipeline) bool {
	if len(p.ops) != len(other.ops) {
		return false
	}
	for i := range p.ops {
		if p.ops[i] != other.ops[i] {
			return false
		}
	}
	return true
}

// String joins the operations' text forms with spaces.
func (p Pipeline) String() string {
	parts := make([]string, len(p.ops))
	for i, op := range p.ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, " ")
}
