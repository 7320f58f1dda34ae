// internal/model/message.go
package model

import "github.com/samber/lo"

// Message is a persisted post on the board. ID is assigned by the store.
type Message struct {
	ID      int64  `db:"id" json:"id"`
	Content string `db:"content" json:"content"`
}

// NewMessage is the create payload. Content is a pointer so a missing field
// can be told apart from an empty one.
type NewMessage struct {
	Content *string `json:"content" validate:"required,min=1"`
}

// NewMessageFrom builds a create payload from a plain string.
func NewMessageFrom(content string) NewMessage {
	return NewMessage{Content: lo.ToPtr(content)}
}

// SeedContents are inserted, in order, into an empty store at startup.
var SeedContents = []string{
	"Welcome to your new project!",
	"This is a full-stack starter.",
}
