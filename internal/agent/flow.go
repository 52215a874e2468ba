package agent

import (
	"context"
	"fmt"

	"github.com/mark3labs/qaflow/flyt"
	"github.com/mark3labs/qaflow/internal/llm"
	"go.uber.org/zap"
)

const (
	// DefaultAnswerModel answers the question.
	DefaultAnswerModel = "deepseek-chat"
	// DefaultValidatorModel judges the answer.
	DefaultValidatorModel = "deepseek-reasoner"
)

// Options configures a QA flow.
type Options struct {
	AnswerModel    string
	ValidatorModel string
	// MaxRounds caps answer/validate rounds. Zero keeps the loop unbounded:
	// a validator that never approves keeps the flow running.
	MaxRounds int
	Logger    *zap.Logger
}

// NewFlow wires answer -> validate, validate -"incorrect"-> answer and
// validate -"correct"-> finish, and validates the transition table.
func NewFlow(caller llm.Caller, opts Options) (*flyt.Flow[State], error) {
	if caller == nil {
		return nil, fmt.Errorf("agent: nil llm caller")
	}
	if opts.AnswerModel == "" {
		opts.AnswerModel = DefaultAnswerModel
	}
	if opts.ValidatorModel == "" {
		opts.ValidatorModel = DefaultValidatorModel
	}
	if opts.MaxRounds < 0 {
		return nil, fmt.Errorf("agent: max rounds must not be negative, got %d", opts.MaxRounds)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	answer := flyt.NewNodeAdapter[State, string, string](
		NewAnswerNode(caller, opts.AnswerModel, logger.Named("answer")))
	validate := flyt.NewNodeAdapter[State, validateInput, Verdict](
		NewValidateNode(caller, opts.ValidatorModel, logger.Named("validate")))
	finish := NewFinishNode()

	flow := flyt.NewFlow[State](answer,
		flyt.WithLogger(logger.Named("flow")),
		flyt.WithMaxVisits(opts.MaxRounds),
	).
		Connect(answer, OutcomeContinue, validate).
		Connect(validate, OutcomeCorrect, finish).
		Connect(validate, OutcomeIncorrect, answer)

	if err := flow.Validate(); err != nil {
		return nil, fmt.Errorf("agent: build flow: %w", err)
	}
	return flow, nil
}

// Run builds a flow, runs it for question and returns the final state. On
// error the state reflects the last completed node and is still returned.
func Run(ctx context.Context, caller llm.Caller, question string, opts Options) (*State, error) {
	state, err := NewState(question)
	if err != nil {
		return nil, err
	}
	flow, err := NewFlow(caller, opts)
	if err != nil {
		return nil, err
	}
	if err := flow.Run(ctx, state); err != nil {
		return state, fmt.Errorf("agent: run: %w", err)
	}
	return state, nil
}
