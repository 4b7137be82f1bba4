package client

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"quickchat/domain"
)

type fakeAPI struct {
	history    []domain.Message
	historyErr error
	marked     []string
	markErr    error
}

func (f *fakeAPI) FetchHistory(_ context.Context, _ string) ([]domain.Message, error) {
	return f.history, f.historyErr
}

func (f *fakeAPI) MarkSeen(_ context.Context, messageID string) error {
	f.marked = append(f.marked, messageID)
	return f.markErr
}

func message(sender string) domain.Message {
	return domain.Message{ID: uuid.New(), SenderID: sender, ReceiverID: "self", Text: "hey"}
}

func Test_Open_Conversation_Resets_Unseen(t *testing.T) {
	req := require.New(t)
	api := &fakeAPI{history: []domain.Message{message("peer")}}
	reconciler := NewReconciler(api, slog.Default(), "self")

	reconciler.SeedUnseen(map[string]int{"peer": 3})
	messages, err := reconciler.OpenConversation(context.Background(), "peer")
	req.NoError(err)
	req.Len(messages, 1)
	req.Zero(reconciler.UnseenCount("peer"))
}

func Test_Pushed_Message_While_Open_Is_Acked(t *testing.T) {
	req := require.New(t)
	api := &fakeAPI{}
	reconciler := NewReconciler(api, slog.Default(), "self")

	_, err := reconciler.OpenConversation(context.Background(), "peer")
	req.NoError(err)

	pushed := message("peer")
	reconciler.HandleMessage(context.Background(), pushed)

	req.Equal([]string{pushed.ID.String()}, api.marked)
	req.Zero(reconciler.UnseenCount("peer"))

	shown := reconciler.Messages()
	req.Len(shown, 1)
	req.True(shown[0].Seen)
}

func Test_Mark_Seen_Failure_Is_Not_Retried(t *testing.T) {
	req := require.New(t)
	api := &fakeAPI{markErr: fmt.Errorf("network down")}
	reconciler := NewReconciler(api, slog.Default(), "self")

	_, err := reconciler.OpenConversation(context.Background(), "peer")
	req.NoError(err)

	reconciler.HandleMessage(context.Background(), message("peer"))
	req.Len(api.marked, 1)
}

func Test_Pushed_Message_From_Closed_Peer_Bumps_Counter(t *testing.T) {
	req := require.New(t)
	api := &fakeAPI{}
	reconciler := NewReconciler(api, slog.Default(), "self")

	reconciler.HandleMessage(context.Background(), message("other"))
	reconciler.HandleMessage(context.Background(), message("other"))

	req.Equal(2, reconciler.UnseenCount("other"))
	// No server round-trip for closed conversations
	req.Empty(api.marked)
}

func Test_Presence_Snapshots_Replace_The_Set(t *testing.T) {
	req := require.New(t)
	reconciler := NewReconciler(&fakeAPI{}, slog.Default(), "self")

	reconciler.HandlePresence([]string{"alice", "bob"})
	req.True(reconciler.IsOnline("alice"))
	req.True(reconciler.IsOnline("bob"))

	reconciler.HandlePresence([]string{"bob"})
	req.False(reconciler.IsOnline("alice"))
	req.True(reconciler.IsOnline("bob"))
}
