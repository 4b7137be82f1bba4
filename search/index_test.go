package search

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"quickchat/domain"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	index, err := Open(t.TempDir(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func Test_Search_Scoped_To_Participant(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.IndexMessage(domain.Message{
		ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", Text: "lunch tomorrow?",
	}))
	req.NoError(index.IndexMessage(domain.Message{
		ID: uuid.New(), SenderID: "clara", ReceiverID: "dave", Text: "lunch was great",
	}))

	hits, err := index.Search(context.Background(), "bob", "lunch", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("alice", hits[0].SenderID)
	req.Equal("lunch tomorrow?", hits[0].Text)

	// A stranger to both conversations sees nothing
	hits, err = index.Search(context.Background(), "eve", "lunch", 10)
	req.NoError(err)
	req.Empty(hits)
}

func Test_Search_Ignores_Image_Only_Messages(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	req.NoError(index.IndexMessage(domain.Message{
		ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", ImageRef: "uploads/cat.png",
	}))

	hits, err := index.Search(context.Background(), "bob", "cat", 10)
	req.NoError(err)
	req.Empty(hits)
}

func Test_Search_Returns_Message_Ids(t *testing.T) {
	req := require.New(t)
	index := openTestIndex(t)

	ids := lo.Times(3, func(_ int) uuid.UUID { return uuid.New() })
	for _, id := range ids {
		req.NoError(index.IndexMessage(domain.Message{
			ID: id, SenderID: "alice", ReceiverID: "bob", Text: "standup notes",
		}))
	}

	hits, err := index.Search(context.Background(), "alice", "standup", 10)
	req.NoError(err)
	req.Len(hits, 3)
	for _, hit := range hits {
		req.NotEmpty(hit.MessageID)
	}
}
