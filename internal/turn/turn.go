// Package turn is the boundary to the external voice/NLU turn-processing
// engine. The portal forwards the citizen's utterance together with the
// current step and stores the structured answer the engine returns.
package turn

import (
	"context"

	id "sevasetu/pkg/domain"
)

// Input is one citizen turn in the guided application flow.
type Input struct {
	ApplicationID id.ApplicationID `json:"application_id"`
	StepID        string           `json:"step_id"`
	Utterance     string           `json:"utterance"`
	Language      id.Language      `json:"language"`
}

// Result is the engine's interpretation of the turn.
type Result struct {
	// Answer is the normalized value to store for the step.
	Answer string `json:"answer"`
	// NextStepID is the step the flow should advance to; empty means stay.
	NextStepID string `json:"next_step_id,omitempty"`
	// Prompt is the localized reply to speak or render.
	Prompt string `json:"prompt,omitempty"`
	// Complete marks the flow as finished.
	Complete bool `json:"complete"`
}

// Processor is the engine port.
type Processor interface {
	ProcessTurn(ctx context.Context, input Input) (*Result, error)
}

// Echo is a trivial Processor for development: it accepts every utterance as
// the literal answer and never advances the flow on its own.
type Echo struct{}

func (Echo) ProcessTurn(_ context.Context, input Input) (*Result, error) {
	return &Result{Answer: input.Utterance, NextStepID: input.StepID}, nil
}
