// Package search maintains a full-text index of message text, queried by
// the history search endpoint. Indexing is best-effort: the badger store
// stays the source of truth and a failed index write never fails a send.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"

	"quickchat/domain"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

type Hit struct {
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// IndexMessage adds one message to the index. Image-only messages carry no
// searchable text and are skipped.
func (i *Index) IndexMessage(message domain.Message) error {
	if message.Text == "" {
		return nil
	}

	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("text", message.Text).StoreValue()).
		AddField(bluge.NewKeywordField("sender", message.SenderID).StoreValue()).
		// Both parties under the same field name, so one term query
		// scopes results to the caller's conversations.
		AddField(bluge.NewKeywordField("participant", message.SenderID)).
		AddField(bluge.NewKeywordField("participant", message.ReceiverID))

	return i.writer.Update(doc.ID(), doc)
}

// Search matches the query against message text, restricted to messages the
// given user sent or received.
func (i *Index) Search(ctx context.Context, selfID, query string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("Closing index reader failed", "error", err)
		}
	}()

	boolean := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(query).SetField("text")).
		AddMust(bluge.NewTermQuery(selfID).SetField("participant"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, boolean))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "sender":
				hit.SenderID = string(value)
			case "text":
				hit.Text = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
