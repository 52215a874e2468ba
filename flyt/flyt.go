// Package flyt is a minimalist workflow framework for Go, inspired by Pocket Flow.
// It provides a simple graph-based abstraction for orchestrating tasks.
//
// A flow is a set of nodes connected by labelled transitions. Each node runs
// a three phase life cycle (Prep, Exec, Post) against a shared state value of
// type S, and Post returns the Action that selects the next node. A node whose
// Action has no registered transition ends the flow.
//
// The shared state is owned by the goroutine running the flow. Nodes run one
// at a time, so S needs no locking.
//
// Example:
//
//	type counter struct{ n int }
//
//	inc := flyt.NewNode[counter]().
//	    WithPrepFunc(func(ctx context.Context, s *counter) (any, error) {
//	        s.n++
//	        return nil, nil
//	    })
//
//	flow := flyt.NewFlow[counter](inc)
//	if err := flow.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	var state counter
//	if err := flow.Run(context.Background(), &state); err != nil {
//	    log.Fatal(err)
//	}
package flyt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Action represents the next action to take after a node executes
type Action string

// DefaultAction is the default action if none is specified
const DefaultAction Action = "default"

var (
	// ErrNoStartNode is returned when a flow has no start node.
	ErrNoStartNode = errors.New("flyt: no start node configured")
	// ErrNilNode is returned when a transition names a nil node.
	ErrNilNode = errors.New("flyt: nil node in transition")
	// ErrDuplicateTransition is returned when the same (node, action) pair is connected twice.
	ErrDuplicateTransition = errors.New("flyt: duplicate transition")
	// ErrUndeclaredOutcome is returned when a transition uses an action the source node never returns.
	ErrUndeclaredOutcome = errors.New("flyt: transition on undeclared outcome")
	// ErrMaxVisitsExceeded is returned when a flow configured with WithMaxVisits
	// would run a node more often than allowed.
	ErrMaxVisitsExceeded = errors.New("flyt: maximum node visits exceeded")
)

// Node is the interface that all nodes must implement.
//
// Important: Nodes should not be shared across concurrent flow executions.
// If you need to run the same logic concurrently, create separate node instances.
type Node[S any] interface {
	// Prep reads and preprocesses data from shared state
	Prep(ctx context.Context, shared *S) (any, error)

	// Exec executes the main logic with optional retries
	Exec(ctx context.Context, prepResult any) (any, error)

	// Post processes results and writes back to shared state
	Post(ctx context.Context, shared *S, prepResult, execResult any) (Action, error)
}

// OutcomeDeclarer is implemented by nodes that list every Action their Post
// can return. Flow.Validate rejects transitions on any other Action.
// A nil slice means the node does not declare its outcomes.
type OutcomeDeclarer interface {
	Outcomes() []Action
}

// Namer is implemented by nodes that want a readable name in logs and errors.
type Namer interface {
	Name() string
}

// NodeName returns the node's Name if it has one, or its dynamic type.
func NodeName(node any) string {
	if n, ok := node.(Namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", node)
}

// BaseNode carries the retry settings shared by node implementations.
// Embed it to get RetryableNode and FallbackNode behaviour.
type BaseNode struct {
	mu         sync.RWMutex
	maxRetries int
	wait       time.Duration
}

// NewBaseNode creates a new BaseNode with options
func NewBaseNode(opts ...NodeOption) *BaseNode {
	n := &BaseNode{
		maxRetries: 1,
		wait:       0,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// NodeOption is a function that configures a BaseNode
type NodeOption func(*BaseNode)

// WithMaxRetries sets the maximum number of Exec attempts
func WithMaxRetries(retries int) NodeOption {
	return func(n *BaseNode) {
		n.maxRetries = retries
	}
}

// WithWait sets the wait duration between retries
func WithWait(wait time.Duration) NodeOption {
	return func(n *BaseNode) {
		n.wait = wait
	}
}

// GetMaxRetries returns the maximum number of Exec attempts
func (n *BaseNode) GetMaxRetries() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.maxRetries
}

// GetWait returns the wait duration between retries
func (n *BaseNode) GetWait() time.Duration {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.wait
}

// ExecFallback handles errors after all retries are exhausted
func (n *BaseNode) ExecFallback(prepResult any, err error) (any, error) {
	return nil, err
}

// RetryableNode is a node that supports retries
type RetryableNode interface {
	GetMaxRetries() int
	GetWait() time.Duration
}

// FallbackNode is a node that supports fallback on error
type FallbackNode interface {
	ExecFallback(prepResult any, err error) (any, error)
}

// Run executes the node with the prep->exec->post lifecycle
func Run[S any](ctx context.Context, node Node[S], shared *S) (Action, error) {
	// Check context before each phase
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("run: context cancelled: %w", err)
	}

	prepResult, err := node.Prep(ctx, shared)
	if err != nil {
		return "", fmt.Errorf("run: prep failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("run: context cancelled after prep: %w", err)
	}

	maxRetries := 1
	var wait time.Duration

	if retryable, ok := node.(RetryableNode); ok {
		maxRetries = retryable.GetMaxRetries()
		wait = retryable.GetWait()
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	var execResult any
	var execErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("run: context cancelled during retry: %w", err)
		}

		if attempt > 0 && wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", fmt.Errorf("run: context cancelled during wait: %w", ctx.Err())
			}
		}

		execResult, execErr = node.Exec(ctx, prepResult)
		if execErr == nil {
			break
		}
	}

	if execErr != nil {
		if fallback, ok := node.(FallbackNode); ok {
			execResult, execErr = fallback.ExecFallback(prepResult, execErr)
		}
		if execErr != nil {
			return "", fmt.Errorf("run: exec failed after %d attempts: %w", maxRetries, execErr)
		}
	}

	action, err := node.Post(ctx, shared, prepResult, execResult)
	if err != nil {
		return "", fmt.Errorf("run: post failed: %w", err)
	}

	if action == "" {
		action = DefaultAction
	}

	return action, nil
}

// FlowOption configures a Flow
type FlowOption func(*flowOptions)

type flowOptions struct {
	logger    *zap.Logger
	maxVisits int
}

// WithLogger sets the logger used to trace flow steps at debug level
func WithLogger(logger *zap.Logger) FlowOption {
	return func(o *flowOptions) {
		o.logger = logger
	}
}

// WithMaxVisits caps how many times any single node may run in one Run.
// Zero, the default, leaves the flow unbounded.
func WithMaxVisits(n int) FlowOption {
	return func(o *flowOptions) {
		o.maxVisits = n
	}
}

// Flow represents a workflow of connected nodes
type Flow[S any] struct {
	*BaseNode
	start       Node[S]
	transitions map[Node[S]]map[Action]Node[S]
	buildErrs   []error
	opts        flowOptions
}

// NewFlow creates a new Flow with a start node
func NewFlow[S any](start Node[S], opts ...FlowOption) *Flow[S] {
	f := &Flow[S]{
		BaseNode:    NewBaseNode(),
		start:       start,
		transitions: make(map[Node[S]]map[Action]Node[S]),
	}
	for _, opt := range opts {
		opt(&f.opts)
	}
	if f.opts.logger == nil {
		f.opts.logger = zap.NewNop()
	}
	return f
}

// Connect adds a transition from one node to another based on an action.
// Problems are recorded and reported by Validate.
func (f *Flow[S]) Connect(from Node[S], action Action, to Node[S]) *Flow[S] {
	if from == nil || to == nil {
		f.buildErrs = append(f.buildErrs, fmt.Errorf("%w: action %q", ErrNilNode, action))
		return f
	}
	if action == "" {
		action = DefaultAction
	}
	if f.transitions[from] == nil {
		f.transitions[from] = make(map[Action]Node[S])
	}
	if _, exists := f.transitions[from][action]; exists {
		f.buildErrs = append(f.buildErrs, fmt.Errorf("%w: %s on %q", ErrDuplicateTransition, NodeName(from), action))
		return f
	}
	f.transitions[from][action] = to
	return f
}

// Validate checks the transition table. It reports every problem found.
func (f *Flow[S]) Validate() error {
	errs := append([]error(nil), f.buildErrs...)
	if f.start == nil {
		errs = append(errs, ErrNoStartNode)
	}
	for from, edges := range f.transitions {
		declarer, ok := from.(OutcomeDeclarer)
		if !ok {
			continue
		}
		declared := declarer.Outcomes()
		if declared == nil {
			continue
		}
		for action := range edges {
			if !containsAction(declared, action) {
				errs = append(errs, fmt.Errorf("%w: %s never returns %q", ErrUndeclaredOutcome, NodeName(from), action))
			}
		}
	}
	return errors.Join(errs...)
}

func containsAction(actions []Action, want Action) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}

// Next returns the node registered for (from, action), if any
func (f *Flow[S]) Next(from Node[S], action Action) (Node[S], bool) {
	next, ok := f.transitions[from][action]
	return next, ok
}

// Run executes the flow starting from the start node
func (f *Flow[S]) Run(ctx context.Context, shared *S) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("flow: run failed: %w", err)
	}
	logger := f.opts.logger
	current := f.start
	visits := make(map[Node[S]]int)
	steps := 0

	for current != nil {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("flow: run cancelled: %w", err)
		}
		if f.opts.maxVisits > 0 && visits[current] >= f.opts.maxVisits {
			return fmt.Errorf("flow: %w: %s ran %d times", ErrMaxVisitsExceeded, NodeName(current), visits[current])
		}
		visits[current]++
		steps++

		var action Action
		var err error

		if subFlow, ok := current.(*Flow[S]); ok {
			if err = subFlow.Run(ctx, shared); err != nil {
				return err
			}
			action, err = subFlow.Post(ctx, shared, nil, nil)
			if err != nil {
				return err
			}
		} else {
			action, err = Run(ctx, current, shared)
			if err != nil {
				return fmt.Errorf("flow: node %s: %w", NodeName(current), err)
			}
		}

		next, ok := f.Next(current, action)
		logger.Debug("flow step",
			zap.Int("step", steps),
			zap.String("node", NodeName(current)),
			zap.String("action", string(action)),
			zap.Bool("terminal", !ok),
		)
		if !ok {
			break
		}
		current = next
	}

	return nil
}

// Prep implements Node interface for Flow
func (f *Flow[S]) Prep(ctx context.Context, shared *S) (any, error) {
	return nil, nil
}

// Exec implements Node interface for Flow (not used)
func (f *Flow[S]) Exec(ctx context.Context, prepResult any) (any, error) {
	return nil, nil
}

// Post implements Node interface for Flow
func (f *Flow[S]) Post(ctx context.Context, shared *S, prepResult, execResult any) (Action, error) {
	return DefaultAction, nil
}
