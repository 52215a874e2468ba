package flyt

import (
	"context"
	"fmt"
	"time"
)

// NodeG is a generic version of Node interface for type-safe implementations
type NodeG[S, P, E any] interface {
	// PrepG reads and preprocesses data from shared state with typed result
	PrepG(ctx context.Context, shared *S) (P, error)

	// ExecG executes the main logic with typed input and output
	ExecG(ctx context.Context, prepResult P) (E, error)

	// PostG processes results with typed inputs
	PostG(ctx context.Context, shared *S, prepResult P, execResult E) (Action, error)
}

// BaseNodeG provides a generic base implementation
type BaseNodeG[S, P, E any] struct {
	*BaseNode
}

// NewBaseNodeG creates a new generic BaseNode
func NewBaseNodeG[S, P, E any](opts ...NodeOption) *BaseNodeG[S, P, E] {
	return &BaseNodeG[S, P, E]{
		BaseNode: NewBaseNode(opts...),
	}
}

// PrepG default implementation
func (n *BaseNodeG[S, P, E]) PrepG(ctx context.Context, shared *S) (P, error) {
	var zero P
	return zero, nil
}

// ExecG default implementation
func (n *BaseNodeG[S, P, E]) ExecG(ctx context.Context, prepResult P) (E, error) {
	var zero E
	return zero, nil
}

// PostG default implementation
func (n *BaseNodeG[S, P, E]) PostG(ctx context.Context, shared *S, prepResult P, execResult E) (Action, error) {
	return DefaultAction, nil
}

// NodeAdapter adapts a generic node to the standard Node interface.
// Retry settings, fallback, declared outcomes and name are forwarded
// when the wrapped node provides them.
type NodeAdapter[S, P, E any] struct {
	node NodeG[S, P, E]
}

// NewNodeAdapter creates an adapter from generic to standard node
func NewNodeAdapter[S, P, E any](node NodeG[S, P, E]) *NodeAdapter[S, P, E] {
	return &NodeAdapter[S, P, E]{node: node}
}

// Unwrap returns the wrapped generic node
func (a *NodeAdapter[S, P, E]) Unwrap() NodeG[S, P, E] {
	return a.node
}

func (a *NodeAdapter[S, P, E]) Prep(ctx context.Context, shared *S) (any, error) {
	return a.node.PrepG(ctx, shared)
}

func (a *NodeAdapter[S, P, E]) Exec(ctx context.Context, prepResult any) (any, error) {
	typed, err := assertAs[P](prepResult, "prep")
	if err != nil {
		return nil, err
	}
	return a.node.ExecG(ctx, typed)
}

func (a *NodeAdapter[S, P, E]) Post(ctx context.Context, shared *S, prepResult, execResult any) (Action, error) {
	p, err := assertAs[P](prepResult, "prep")
	if err != nil {
		return "", err
	}
	e, err := assertAs[E](execResult, "exec")
	if err != nil {
		return "", err
	}
	return a.node.PostG(ctx, shared, p, e)
}

// GetMaxRetries forwards to the wrapped node, defaulting to a single attempt
func (a *NodeAdapter[S, P, E]) GetMaxRetries() int {
	if r, ok := a.node.(RetryableNode); ok {
		return r.GetMaxRetries()
	}
	return 1
}

// GetWait forwards to the wrapped node
func (a *NodeAdapter[S, P, E]) GetWait() time.Duration {
	if r, ok := a.node.(RetryableNode); ok {
		return r.GetWait()
	}
	return 0
}

// ExecFallback forwards to the wrapped node, or returns err unchanged
func (a *NodeAdapter[S, P, E]) ExecFallback(prepResult any, err error) (any, error) {
	if f, ok := a.node.(FallbackNode); ok {
		return f.ExecFallback(prepResult, err)
	}
	return nil, err
}

// Outcomes forwards to the wrapped node
func (a *NodeAdapter[S, P, E]) Outcomes() []Action {
	if d, ok := a.node.(OutcomeDeclarer); ok {
		return d.Outcomes()
	}
	return nil
}

// Name forwards to the wrapped node
func (a *NodeAdapter[S, P, E]) Name() string {
	return NodeName(a.node)
}

// assertAs converts a phase result back to its static type. A nil value
// becomes the zero value so nodes with empty phases still run.
func assertAs[T any](v any, phase string) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("flyt: %s result has type %T, want %T", phase, v, zero)
	}
	return typed, nil
}

// RunG executes a generic node with type safety
func RunG[S, P, E any](ctx context.Context, node NodeG[S, P, E], shared *S) (Action, error) {
	return Run[S](ctx, NewNodeAdapter(node), shared)
}
