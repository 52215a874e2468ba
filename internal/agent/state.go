// Package agent implements the question answering loop: an answer node asks
// a model, a validator node asks a second model to judge the answer, and an
// incorrect verdict sends control back to the answer node.
package agent

import (
	"errors"
	"strings"
)

// ErrEmptyQuestion is returned when a run is started without a question.
var ErrEmptyQuestion = errors.New("agent: question is empty")

// State is the record shared by every node of the flow. Question is set once
// before the run; Answer is replaced on every answer round; IsCorrect and
// Reason are replaced on every validation round. Only the latest round is kept.
type State struct {
	Question  string
	Answer    string
	IsCorrect *bool
	Reason    string
}

// NewState creates the state for a run.
func NewState(question string) (*State, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	return &State{Question: question}, nil
}

// Rejected reports whether the last verdict marked the answer incorrect.
func (s *State) Rejected() bool {
	return s.IsCorrect != nil && !*s.IsCorrect
}
