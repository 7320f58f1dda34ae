package client

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"message-board/internal/model"
	"message-board/internal/schema"
)

type toasts struct {
	mu   sync.Mutex
	seen []Toast
}

func (t *toasts) Notify(toast Toast) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = append(t.seen, toast)
}

func (t *toasts) all() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Toast(nil), t.seen...)
}

type fakeAPI struct {
	mu        sync.Mutex
	messages  []model.Message
	createErr error
	lists     int
	creates   int
	onCreate  func()
}

func (f *fakeAPI) ListMessages(context.Context) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return append([]model.Message{}, f.messages...), nil
}

func (f *fakeAPI) CreateMessage(_ context.Context, in model.NewMessage) (model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.onCreate != nil {
		f.onCreate()
	}
	if f.createErr != nil {
		return model.Message{}, f.createErr
	}
	m := model.Message{ID: int64(len(f.messages) + 1), Content: *in.Content}
	f.messages = append(f.messages, m)
	return m, nil
}

func TestFeedCreateRefetchesMountedList(t *testing.T) {
	srv := newServer(t)
	notes := &toasts{}
	feed := NewMessageFeed(NewAPI(srv.URL), notes)
	ctx := context.Background()

	defer feed.Watch(func(QueryState[[]model.Message]) {})()
	s := feed.Messages(ctx)
	require.Equal(t, StatusSuccess, s.Status)
	require.Len(t, s.Data, 2)

	m, err := feed.CreateMessage(ctx, "fresh")
	require.NoError(t, err)

	// refetch has completed by the time CreateMessage returns
	s = feed.Snapshot()
	require.Len(t, s.Data, 3)
	require.Equal(t, m, s.Data[2])
	require.Equal(t, []Toast{ToastPosted}, notes.all())
}

func TestFeedCreateWithoutObserversMarksStale(t *testing.T) {
	fake := &fakeAPI{messages: []model.Message{{ID: 1, Content: "a"}}}
	feed := NewMessageFeed(fake, nil)
	ctx := context.Background()

	feed.Messages(ctx)
	_, err := feed.CreateMessage(ctx, "b")
	require.NoError(t, err)
	require.True(t, feed.Snapshot().Stale)
	require.Equal(t, 1, fake.lists)

	s := feed.Messages(ctx)
	require.Len(t, s.Data, 2)
	require.Equal(t, 2, fake.lists)
}

func TestFeedCreateThenCancelStillRefreshesList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeAPI{messages: []model.Message{{ID: 1, Content: "a"}}, onCreate: cancel}
	notes := &toasts{}
	feed := NewMessageFeed(fake, notes)

	defer feed.Watch(func(QueryState[[]model.Message]) {})()
	feed.Messages(context.Background())

	_, err := feed.CreateMessage(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, []Toast{ToastPosted}, notes.all())

	require.Eventually(t, func() bool {
		s := feed.Snapshot()
		return s.Status == StatusSuccess && !s.Fetching && len(s.Data) == 2
	}, time.Second, time.Millisecond)
	require.NoError(t, feed.Snapshot().Err)
}

func TestFeedCreateFailureLeavesCacheUntouched(t *testing.T) {
	fake := &fakeAPI{
		messages:  []model.Message{{ID: 1, Content: "a"}},
		createErr: errors.New("503"),
	}
	notes := &toasts{}
	feed := NewMessageFeed(fake, notes)
	ctx := context.Background()

	defer feed.Watch(func(QueryState[[]model.Message]) {})()
	feed.Messages(ctx)
	before := feed.Snapshot()

	_, err := feed.CreateMessage(ctx, "lost")
	require.Error(t, err)

	require.Equal(t, before, feed.Snapshot())
	require.Equal(t, 1, fake.lists)
	require.Equal(t, []Toast{ToastPostFailed}, notes.all())
}

func TestFeedRejectsInvalidContentLocally(t *testing.T) {
	fake := &fakeAPI{}
	notes := &toasts{}
	feed := NewMessageFeed(fake, notes)

	_, err := feed.CreateMessage(context.Background(), "")
	var verr *schema.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "content", verr.Field)
	require.Zero(t, fake.creates)
	require.Empty(t, notes.all())
}

func TestFeedServerValidationError(t *testing.T) {
	srv := newServer(t)
	notes := &toasts{}
	feed := NewMessageFeed(NewAPI(srv.URL), notes)

	defer feed.Watch(func(QueryState[[]model.Message]) {})()
	before := feed.Messages(context.Background())

	// bypass local validation to hit the server rule
	_, err := feed.api.CreateMessage(context.Background(), model.NewMessageFrom(""))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "content", apiErr.Validation.Field)
	require.Equal(t, before, feed.Snapshot())
}

func TestConsoleNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)
	n.Notify(ToastPosted)
	n.Notify(ToastPostFailed)

	out := buf.String()
	require.Contains(t, out, "Message Posted")
	require.Contains(t, out, "Your message has been added to the feed.")
	require.Contains(t, out, "Failed to post message. Please try again.")
}
