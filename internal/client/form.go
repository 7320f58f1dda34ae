package client

import (
	"context"
	"errors"
	"sync"

	"message-board/internal/model"
	"message-board/internal/schema"
)

var ErrSubmitting = errors.New("form: submission already in flight")

type FormState int

const (
	FormIdle FormState = iota
	FormSubmitting
)

func (s FormState) String() string {
	if s == FormSubmitting {
		return "submitting"
	}
	return "idle"
}

// Poster is what a Form submits to. *MessageFeed implements it.
type Poster interface {
	CreateMessage(ctx context.Context, content string) (model.Message, error)
}

// Form is the single-field message composer. A successful submit clears the
// input unless it was edited meanwhile; a failed one keeps it so the user can
// retry.
type Form struct {
	mu    sync.Mutex
	feed  Poster
	input string
	state FormState
}

func NewForm(feed Poster) *Form {
	return &Form{feed: feed}
}

func (f *Form) SetInput(s string) {
	f.mu.Lock()
	f.input = s
	f.mu.Unlock()
}

func (f *Form) Input() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.input
}

func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Validation returns the inline error for the current input, if any.
func (f *Form) Validation() *schema.ValidationError {
	return schema.Validate(model.NewMessageFrom(f.Input()))
}

func (f *Form) CanSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == FormIdle && schema.Validate(model.NewMessageFrom(f.input)) == nil
}

func (f *Form) Submit(ctx context.Context) (model.Message, error) {
	f.mu.Lock()
	if f.state == FormSubmitting {
		f.mu.Unlock()
		return model.Message{}, ErrSubmitting
	}
	content := f.input
	if verr := schema.Validate(model.NewMessageFrom(content)); verr != nil {
		f.mu.Unlock()
		return model.Message{}, verr
	}
	f.state = FormSubmitting
	f.mu.Unlock()

	m, err := f.feed.CreateMessage(ctx, content)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = FormIdle
	if err != nil {
		return model.Message{}, err
	}
	if f.input == content {
		f.input = ""
	}
	return m, nil
}
