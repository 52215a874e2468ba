package flyt

import (
	"context"
	"time"
)

// CustomNode is a node implementation that uses custom functions
type CustomNode[S any] struct {
	*BaseNode
	name         string
	outcomes     []Action
	prepFunc     func(context.Context, *S) (any, error)
	execFunc     func(context.Context, any) (any, error)
	postFunc     func(context.Context, *S, any, any) (Action, error)
	fallbackFunc func(any, error) (any, error)
}

// Prep implements Node.Prep by calling the custom prepFunc if provided
func (n *CustomNode[S]) Prep(ctx context.Context, shared *S) (any, error) {
	if n.prepFunc != nil {
		return n.prepFunc(ctx, shared)
	}
	return nil, nil
}

// Exec implements Node.Exec by calling the custom execFunc if provided
func (n *CustomNode[S]) Exec(ctx context.Context, prepResult any) (any, error) {
	if n.execFunc != nil {
		return n.execFunc(ctx, prepResult)
	}
	return nil, nil
}

// Post implements Node.Post by calling the custom postFunc if provided
func (n *CustomNode[S]) Post(ctx context.Context, shared *S, prepResult, execResult any) (Action, error) {
	if n.postFunc != nil {
		return n.postFunc(ctx, shared, prepResult, execResult)
	}
	return DefaultAction, nil
}

// ExecFallback implements FallbackNode by calling the custom fallbackFunc if provided
func (n *CustomNode[S]) ExecFallback(prepResult any, err error) (any, error) {
	if n.fallbackFunc != nil {
		return n.fallbackFunc(prepResult, err)
	}
	return n.BaseNode.ExecFallback(prepResult, err)
}

// Outcomes implements OutcomeDeclarer. It is nil unless WithOutcomes was used.
func (n *CustomNode[S]) Outcomes() []Action {
	return n.outcomes
}

// Name implements Namer
func (n *CustomNode[S]) Name() string {
	if n.name == "" {
		return "CustomNode"
	}
	return n.name
}

// NodeBuilder provides a fluent interface for creating and configuring nodes.
// It implements the Node interface while also providing chainable methods
// for configuration:
//
//	flyt.NewNode[State](flyt.WithMaxRetries(3)).WithExecFunc(...).WithName("fetch")
type NodeBuilder[S any] struct {
	*CustomNode[S]
}

// NewNode creates a new node builder. Base options configure retries.
func NewNode[S any](opts ...NodeOption) *NodeBuilder[S] {
	return &NodeBuilder[S]{
		CustomNode: &CustomNode[S]{BaseNode: NewBaseNode(opts...)},
	}
}

// WithName sets the name used in logs and validation errors.
// Returns the builder for method chaining.
func (b *NodeBuilder[S]) WithName(name string) *NodeBuilder[S] {
	b.name = name
	return b
}

// WithOutcomes declares the actions the node's Post may return.
// Returns the builder for method chaining.
func (b *NodeBuilder[S]) WithOutcomes(actions ...Action) *NodeBuilder[S] {
	b.outcomes = append([]Action{}, actions...)
	return b
}

// WithMaxRetries sets the maximum number of attempts for the node's Exec phase.
// Returns the builder for method chaining.
func (b *NodeBuilder[S]) WithMaxRetries(retries int) *NodeBuilder[S] {
	b.BaseNode.mu.Lock()
	b.BaseNode.maxRetries = retries
	b.BaseNode.mu.Unlock()
	return b
}

// WithWait sets the wait duration between retries.
// Returns the builder for method chaining.
func (b *NodeBuilder[S]) WithWait(wait time.Duration) *NodeBuilder[S] {
	b.BaseNode.mu.Lock()
	b.BaseNode.wait = wait
	b.BaseNode.mu.Unlock()
	return b
}

// WithPrepFunc sets a custom Prep implementation.
// Returns the builder for method chaining.
func (b *NodeBuilder[S]) WithPrepFunc(fn func(context.Context, *S) (any, error)) *NodeBuilder[S] {
	b.prepFunc = fn
	return b
}

// WithExecFunc sets a custom Exec implementation.
// Returns the builder for method chaining.
func (b *NodeBuilder[S]) WithExecFunc(fn func(context.Context, any) (any, error)) *NodeBuilder[S] {
	b.execFunc = fn
	return b
}

// WithPostFunc sets a custom Post implementation.
// Returns the builder for method chaining.
func (b *NodeBuilder[S]) WithPostFunc(fn func(context.Context, *S, any, any) (Action, error)) *NodeBuilder[S] {
	b.postFunc = fn
	return b
}

// WithExecFallbackFunc sets a custom ExecFallback implementation.
// Returns the builder for method chaining.
func (b *NodeBuilder[S]) WithExecFallbackFunc(fn func(any, error) (any, error)) *NodeBuilder[S] {
	b.fallbackFunc = fn
	return b
}
