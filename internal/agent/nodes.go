package agent

import (
	"context"
	"fmt"

	"github.com/mark3labs/qaflow/flyt"
	"github.com/mark3labs/qaflow/internal/llm"
	"go.uber.org/zap"
)

// Outcomes returned by the nodes. The answer node has a single outcome that
// always leads to validation; the validator picks between finishing and
// answering again.
const (
	OutcomeContinue  = flyt.DefaultAction
	OutcomeCorrect   = flyt.Action("correct")
	OutcomeIncorrect = flyt.Action("incorrect")
)

// AnswerNode asks the model to answer the question, or to correct its last
// answer after an incorrect verdict.
type AnswerNode struct {
	*flyt.BaseNodeG[State, string, string]
	llm    llm.Caller
	model  string
	logger *zap.Logger
}

// NewAnswerNode creates the answer node. Exec runs once: transport retries
// belong to the llm client.
func NewAnswerNode(caller llm.Caller, model string, logger *zap.Logger) *AnswerNode {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerNode{
		BaseNodeG: flyt.NewBaseNodeG[State, string, string](),
		llm:       caller,
		model:     model,
		logger:    logger,
	}
}

func (n *AnswerNode) Name() string { return "AnswerNode" }

func (n *AnswerNode) Outcomes() []flyt.Action {
	return []flyt.Action{OutcomeContinue}
}

func (n *AnswerNode) PrepG(ctx context.Context, shared *State) (string, error) {
	n.logger.Info("AnswerNode: Reading question from shared")
	if shared.Rejected() {
		return RetryPrompt(shared.Question, shared.Answer), nil
	}
	return shared.Question, nil
}

func (n *AnswerNode) ExecG(ctx context.Context, prompt string) (string, error) {
	n.logger.Info("AnswerNode: Calling LLM", zap.String("model", n.model))
	answer, err := n.llm.Call(ctx, prompt, n.model)
	if err != nil {
		return "", fmt.Errorf("agent: answer: %w", err)
	}
	return answer, nil
}

func (n *AnswerNode) PostG(ctx context.Context, shared *State, prompt, answer string) (flyt.Action, error) {
	n.logger.Info("AnswerNode: Storing answer in shared")
	shared.Answer = answer
	return OutcomeContinue, nil
}

type validateInput struct {
	Question string
	Answer   string
}

// ValidateNode asks a second model whether the current answer is correct.
// A verdict that cannot be parsed aborts the flow.
type ValidateNode struct {
	*flyt.BaseNodeG[State, validateInput, Verdict]
	llm    llm.Caller
	model  string
	logger *zap.Logger
}

// NewValidateNode creates the validator node.
func NewValidateNode(caller llm.Caller, model string, logger *zap.Logger) *ValidateNode {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidateNode{
		BaseNodeG: flyt.NewBaseNodeG[State, validateInput, Verdict](),
		llm:       caller,
		model:     model,
		logger:    logger,
	}
}

func (n *ValidateNode) Name() string { return "ValidateAnswerNode" }

func (n *ValidateNode) Outcomes() []flyt.Action {
	return []flyt.Action{OutcomeCorrect, OutcomeIncorrect}
}

func (n *ValidateNode) PrepG(ctx context.Context, shared *State) (validateInput, error) {
	n.logger.Info("ValidateAnswerNode: Reading question and answer from shared")
	return validateInput{Question: shared.Question, Answer: shared.Answer}, nil
}

func (n *ValidateNode) ExecG(ctx context.Context, in validateInput) (Verdict, error) {
	n.logger.Info("ValidateAnswerNode: Calling LLM", zap.String("model", n.model))
	response, err := n.llm.Call(ctx, ValidatePrompt(in.Question, in.Answer), n.model)
	if err != nil {
		return Verdict{}, fmt.Errorf("agent: validate: %w", err)
	}

	verdict, err := ParseVerdict(response).Unwrap()
	if err != nil {
		n.logger.Error("ValidateAnswerNode: unusable verdict", zap.String("response", response), zap.Error(err))
		return Verdict{}, fmt.Errorf("agent: validate: %w", err)
	}

	if !verdict.IsCorrect {
		n.logger.Info("ValidateAnswerNode: Given the following answer, but not correct",
			zap.String("answer", in.Answer),
			zap.String("reason", verdict.Reason),
		)
	}
	return verdict, nil
}

func (n *ValidateNode) PostG(ctx context.Context, shared *State, in validateInput, verdict Verdict) (flyt.Action, error) {
	n.logger.Info("ValidateAnswerNode: Storing verdict in shared")
	isCorrect := verdict.IsCorrect
	shared.IsCorrect = &isCorrect
	shared.Reason = verdict.Reason

	if !isCorrect {
		return OutcomeIncorrect, nil
	}
	return OutcomeCorrect, nil
}

// NewFinishNode creates the terminal node. It declares no outcomes, so the
// flow rejects any transition out of it.
func NewFinishNode() *flyt.NodeBuilder[State] {
	return flyt.NewNode[State]().WithName("FinishNode").WithOutcomes()
}
