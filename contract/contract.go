//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Close codes sent to peers, as defined by RFC 6455.
const (
	CloseNormal        = 1000
	CloseGoingAway     = 1001
	CloseInternalError = 1011
)

// Connection is one accepted client connection.
// Send must fail fast when the peer is gone instead of blocking.
// Attachments are bound to the connection itself, so they outlive the room
// actor that wrote them.
type Connection interface {
	ID() string
	Send(ctx context.Context, payload []byte) error
	Close(code int, reason string) error
	SetAttachment(key, value string)
	Attachment(key string) (string, bool)
}

type ListOptions struct {
	Reverse bool
	Limit   int // 0 means no limit
}

type HistoryEntry struct {
	Key   string
	Value []byte
}

// HistoryStore is the ordered key-value log of one room.
type HistoryStore interface {
	Put(ctx context.Context, key string, value []byte) error
	List(ctx context.Context, opts ListOptions) ([]HistoryEntry, error)
}
