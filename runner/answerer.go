package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/topicmesh/model"
)

// Answerer produces the answer to a question received in a query.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// AnswererFunc adapts a function to Answerer.
type AnswererFunc func(ctx context.Context, question string) (string, error)

// Answer implements Answerer.
func (f AnswererFunc) Answer(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// ModelAnswerer answers questions with a language model.
type ModelAnswerer struct {
	model        model.Model
	instructions string
}

// NewModelAnswerer creates an Answerer backed by m. Instructions are passed
// as the system prompt of every request.
func NewModelAnswerer(m model.Model, instructions string) *ModelAnswerer {
	return &ModelAnswerer{model: m, instructions: instructions}
}

// Answer implements Answerer.
func (a *ModelAnswerer) Answer(ctx context.Context, question string) (string, error) {
	resp, err := a.model.Generate(ctx, model.Request{Instructions: a.instructions, Prompt: question})
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.model.Info().Name, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// CanHandlePrompt phrases a capability question so that the answer is a
// plain yes or no.
func CanHandlePrompt(question string) string {
	return fmt.Sprintf("Provide a plain \"Yes\" or \"No\" response to this query: Can do this: %s?", question)
}

// IsYes reports whether an answer to a CanHandlePrompt is affirmative.
func IsYes(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "yes")
}
