package repositories

import (
	"chat-relay/contract"
	"chat-relay/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const historyPrefix = "history/"

// HistoryRepository stores the message log of every room in BadgerDB.
// Keys are formatted as "history/{room}/{key}". Room names come from a single
// path segment and never contain a slash, so each room owns a disjoint prefix
// and badger's lexicographical order is the chronological order of the keys.
type HistoryRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewHistoryRepository(db *badger.DB, log *slog.Logger) HistoryRepository {
	return HistoryRepository{db: db, log: log}
}

// ForRoom returns the partition of a single room.
func (r HistoryRepository) ForRoom(room string) *RoomHistory {
	return &RoomHistory{
		db:     r.db,
		log:    r.log.With("room", room),
		prefix: []byte(historyPrefix + room + "/"),
	}
}

// Rooms lists every room that has at least one persisted entry.
func (r HistoryRepository) Rooms() ([]string, error) {
	var rooms []string
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		prefix := []byte(historyPrefix)
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); {
			room, _, _ := strings.Cut(strings.TrimPrefix(string(it.Item().Key()), historyPrefix), "/")
			rooms = append(rooms, room)
			// Jump over the remaining entries of this room
			it.Seek([]byte(historyPrefix + room + "/\xff"))
		}
		return nil
	})
	return rooms, err
}

// RoomHistory is the HistoryStore partition of one room.
type RoomHistory struct {
	db     *badger.DB
	log    *slog.Logger
	prefix []byte
}

var _ contract.HistoryStore = (*RoomHistory)(nil)

// Put appends an entry. An existing key is never overwritten.
func (h *RoomHistory) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return errors.ErrEmptyHistoryKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fullKey := append(append([]byte{}, h.prefix...), key...)
	return h.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(fullKey)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", errors.ErrHistoryKeyExists, key)
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(fullKey, value)
	})
}

// List returns the entries of the room in key order, or in reverse key order
// when opts.Reverse is set, stopping after opts.Limit entries.
func (h *RoomHistory) List(ctx context.Context, opts contract.ListOptions) ([]contract.HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var entries []contract.HistoryEntry
	err := h.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = opts.Reverse
		options.Prefix = h.prefix
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := h.prefix
		if opts.Reverse {
			// Reverse iteration starts from the greatest key of the prefix
			seekKey = append(append([]byte{}, h.prefix...), 0xFF)
		}

		for it.Seek(seekKey); it.ValidForPrefix(h.prefix); it.Next() {
			if opts.Limit > 0 && len(entries) == opts.Limit {
				h.log.Debug(fmt.Sprintf("Maximum of %d entries reached", opts.Limit))
				break
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries = append(entries, contract.HistoryEntry{
				Key:   string(item.Key()[len(h.prefix):]),
				Value: value,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
