package errors

import "fmt"

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrHistoryKeyExists   = fmt.Errorf("history key already exists")
	ErrEmptyHistoryKey    = fmt.Errorf("history key is empty")
	ErrConnectionClosed   = fmt.Errorf("connection closed")
	ErrResolverNotStarted = fmt.Errorf("room resolver not started")
)
