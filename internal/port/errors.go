package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrRunNotFound       = errors.New("audit run not found")
	ErrRunCompleted      = errors.New("audit run already completed")
	ErrAuditInFlight     = errors.New("an audit is already running for this scope")
	ErrIssueNotFound     = errors.New("audit issue not found")
	ErrRecordNotFound    = errors.New("record not found")
	ErrAttemptNotFound   = errors.New("remediation attempt not found")
	ErrQueueItemNotFound = errors.New("queue item not found")
	ErrAlreadyResolved   = errors.New("queue item already resolved")
	ErrInvalidAction     = errors.New("invalid resolution action")
	ErrDetectorNotFound  = errors.New("detector not found")
)
