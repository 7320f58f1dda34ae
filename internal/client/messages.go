package client

import (
	"context"

	"message-board/internal/model"
	"message-board/internal/schema"
)

var (
	ToastPosted = Toast{
		Title:       "Message Posted",
		Description: "Your message has been added to the feed.",
	}
	ToastPostFailed = Toast{
		Title:       "Error",
		Description: "Failed to post message. Please try again.",
		Variant:     VariantDestructive,
	}
)

// MessageAPI is the remote side of the feed. *API implements it.
type MessageAPI interface {
	ListMessages(ctx context.Context) ([]model.Message, error)
	CreateMessage(ctx context.Context, in model.NewMessage) (model.Message, error)
}

// MessageFeed owns the cached message list and the create mutation.
// The cache is only ever written by list fetches; a create never inserts
// into it directly.
type MessageFeed struct {
	api      MessageAPI
	cache    *QueryCache[[]model.Message]
	notifier Notifier
}

func NewMessageFeed(api MessageAPI, notifier Notifier) *MessageFeed {
	if notifier == nil {
		notifier = NotifierFunc(func(Toast) {})
	}
	return &MessageFeed{
		api:      api,
		cache:    NewQueryCache[[]model.Message](),
		notifier: notifier,
	}
}

// Messages runs the list query.
func (f *MessageFeed) Messages(ctx context.Context) QueryState[[]model.Message] {
	return f.cache.Query(ctx, MessagesPath, f.api.ListMessages)
}

// Watch mounts an observer on the list query. Mounted lists are refetched
// after every successful create.
func (f *MessageFeed) Watch(fn func(QueryState[[]model.Message])) func() {
	return f.cache.Subscribe(MessagesPath, fn)
}

// Snapshot returns the cached list state without fetching.
func (f *MessageFeed) Snapshot() QueryState[[]model.Message] {
	return f.cache.Peek(MessagesPath)
}

// CreateMessage validates content locally, posts it and, on a confirmed
// success, invalidates the list and waits for the refetch before returning.
// Invalid input returns a *schema.ValidationError without any request.
func (f *MessageFeed) CreateMessage(ctx context.Context, content string) (model.Message, error) {
	in := model.NewMessageFrom(content)
	if verr := schema.Validate(in); verr != nil {
		return model.Message{}, verr
	}

	m, err := f.api.CreateMessage(ctx, in)
	if err != nil {
		f.notifier.Notify(ToastPostFailed)
		return model.Message{}, err
	}

	// the refetch outlives ctx; its outcome shows up in the list state
	_ = f.cache.Invalidate(ctx, MessagesPath)
	f.notifier.Notify(ToastPosted)
	return m, nil
}
