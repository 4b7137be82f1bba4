package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"quickchat/domain"
	"quickchat/errors"
)

type IMessageRepository interface {
	Append(message domain.Message) (domain.Message, error)
	Conversation(userA, userB string) ([]domain.Message, error)
	MarkSeen(messageID string) error
	MarkAllSeenFrom(senderID, receiverID string) (int, error)
	CountUnseenFrom(senderID, receiverID string) (int, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger

	mu       sync.Mutex
	lastNano int64
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, log: log}
}

// conversationKey joins both participant ids in lexicographical order so
// that either direction of a conversation lands under the same prefix.
func conversationKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + "|" + userB
}

// messageKey formats the primary key as "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		conversationKey(message.SenderID, message.ReceiverID),
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

// indexKey maps a message id back to its primary key, so seen-marking can
// find a message without knowing the conversation it belongs to.
func indexKey(id uuid.UUID) []byte {
	return []byte("idx:msg:" + id.String())
}

// stamp assigns creation time, strictly increasing per repository instance
// even when the wall clock stalls within a nanosecond.
func (m *MessageRepository) stamp() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if now.UnixNano() <= m.lastNano {
		now = time.Unix(0, m.lastNano+1).UTC()
	}
	m.lastNano = now.UnixNano()
	return now
}

// Append assigns the id and creation time, then persists the message and its
// id index in a single transaction. Nothing is written on failure.
func (m *MessageRepository) Append(message domain.Message) (domain.Message, error) {
	message.ID = uuid.New()
	message.CreatedAt = m.stamp()
	message.Seen = false

	data, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, errors.Storagef("marshal message: %v", err)
	}

	key := messageKey(message)
	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), key)
	})
	if err != nil {
		return domain.Message{}, errors.Storagef("append message: %v", err)
	}
	return message, nil
}

// Conversation retrieves every message exchanged between both users, in
// either direction, ascending by creation time. The padded timestamp in the
// key makes the natural iteration order chronological.
func (m *MessageRepository) Conversation(userA, userB string) ([]domain.Message, error) {
	prefix := []byte("msg:" + conversationKey(userA, userB) + ":")
	var messages []domain.Message

	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var message domain.Message
				if err := json.Unmarshal(value, &message); err != nil {
					return err
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storagef("read conversation: %v", err)
	}
	return messages, nil
}

// MarkSeen flips the seen flag of one message. Unknown and already-seen ids
// are no-ops; only a malformed id is an error.
func (m *MessageRepository) MarkSeen(messageID string) error {
	id, err := uuid.Parse(messageID)
	if err != nil {
		return errors.Validationf("malformed message id %q", messageID)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		primaryKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return markSeenByKey(txn, primaryKey)
	})
	if err != nil {
		return errors.Storagef("mark seen: %v", err)
	}
	return nil
}

func markSeenByKey(txn *badger.Txn, key []byte) error {
	item, err := txn.Get(key)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var message domain.Message
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &message)
	})
	if err != nil {
		return err
	}
	if message.Seen {
		return nil
	}

	message.Seen = true
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// MarkAllSeenFrom bulk-marks every unseen message from senderID to
// receiverID and returns how many were affected. Zero is a valid outcome.
func (m *MessageRepository) MarkAllSeenFrom(senderID, receiverID string) (int, error) {
	prefix := []byte("msg:" + conversationKey(senderID, receiverID) + ":")
	affected := 0

	err := m.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		type pending struct {
			key  []byte
			data []byte
		}
		var updates []pending

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var message domain.Message
			err := item.Value(func(value []byte) error {
				return json.Unmarshal(value, &message)
			})
			if err != nil {
				return err
			}
			if message.Seen || message.SenderID != senderID || message.ReceiverID != receiverID {
				continue
			}
			message.Seen = true
			data, err := json.Marshal(message)
			if err != nil {
				return err
			}
			updates = append(updates, pending{key: item.KeyCopy(nil), data: data})
		}

		// Writes happen after iteration: badger forbids Set while an
		// iterator is open on the same transaction.
		for _, u := range updates {
			if err := txn.Set(u.key, u.data); err != nil {
				return err
			}
		}
		affected = len(updates)
		if affected > 0 {
			m.log.Debug("Marked messages as seen", "sender", senderID, "receiver", receiverID, "count", affected)
		}
		return nil
	})
	if err != nil {
		return 0, errors.Storagef("mark all seen: %v", err)
	}
	return affected, nil
}

// CountUnseenFrom counts unseen messages from senderID to receiverID.
// Values are skipped entirely when only the direction matters, so the scan
// stays cheap for long conversations.
func (m *MessageRepository) CountUnseenFrom(senderID, receiverID string) (int, error) {
	prefix := []byte("msg:" + conversationKey(senderID, receiverID) + ":")
	count := 0

	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message domain.Message
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &message)
			})
			if err != nil {
				return err
			}
			if !message.Seen && message.SenderID == senderID && message.ReceiverID == receiverID {
				count++
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Storagef("count unseen: %v", err)
	}
	return count, nil
}

// KeyPrefixFor exposes the scan prefix of a conversation for tooling
// (cmd/inspect filters on it).
func KeyPrefixFor(userA, userB string) string {
	return "msg:" + conversationKey(userA, userB) + ":"
}

var _ IMessageRepository = (*MessageRepository)(nil)
