package expressions

import "context"

// Engine evaluates expressions against graph data.
// Three implementations: CEL and Expr for branch-slot routing conditions,
// GoJQ for snapshot queries.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Checker compile-checks an expression without evaluating it. Both condition
// engines implement it; validation uses it to vet slot conditions in a plan.
type Checker interface {
	Check(expression string) error
}
