package state

import "time"

// MutationContext carries metadata about a mutation attempt through the
// middleware pipeline.
type MutationContext struct {
	// HasPrior is true when a value already existed at the path.
	HasPrior bool

	// Time is when the mutation attempt entered the pipeline.
	Time time.Time
}

// Middleware is one entry in the mutation pipeline. It receives the path,
// the prior value, and the incoming value (already transformed by earlier
// entries), and returns the value to hand to the next entry.
//
// Returning ErrMutationVetoed rejects the mutation: the store keeps its
// prior value and no re-runs are triggered. Any other non-nil error is
// treated the same way but is also reported to the diagnostic log.
//
// Middleware may perform side effects such as logging, but must not call
// Set on the same path synchronously; doing so re-enters the pipeline on
// the path being decided.
type Middleware func(path string, old, next any, mc *MutationContext) (any, error)

// pipeline applies middleware in registration order. The output of each
// entry is the input of the next; the first error short-circuits.
type pipeline struct {
	entries []Middleware
}

func (p *pipeline) register(m Middleware) {
	p.entries = append(p.entries, m)
}

func (p *pipeline) run(path string, old, next any, mc *MutationContext) (any, error) {
	v := next
	for _, m := range p.entries {
		out, err := m(path, old, v, mc)
		if err != nil {
			return nil, err
		}
		v = out
	}
	return v, nil
}
