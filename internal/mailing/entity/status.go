package entity

import "strings"

type Status int16

const (
	StatusUnknown Status = 0
	// StatusPending is a stored submission not yet handed to Docmail.
	StatusPending   Status = 1
	StatusSubmitted Status = 2
	// StatusRejected means a step answered without success and the mailing was rolled back.
	StatusRejected        Status = 3
	StatusFailed          Status = 4
	StatusCompleted       Status = 5
	StatusProcessingError Status = 6
	StatusTimedOut        Status = 7
	StatusDeleted         Status = 8
)

func StatusFromString(raw string) Status {
	switch strings.TrimSpace(raw) {
	case "pending":
		return StatusPending
	case "submitted":
		return StatusSubmitted
	case "rejected":
		return StatusRejected
	case "failed":
		return StatusFailed
	case "completed":
		return StatusCompleted
	case "processing_error":
		return StatusProcessingError
	case "timed_out":
		return StatusTimedOut
	case "deleted":
		return StatusDeleted
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSubmitted:
		return "submitted"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	case StatusCompleted:
		return "completed"
	case StatusProcessingError:
		return "processing_error"
	case StatusTimedOut:
		return "timed_out"
	case StatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Remote reports whether a mailing with this status still exists at Docmail.
func (s Status) Remote() bool {
	switch s {
	case StatusSubmitted, StatusCompleted, StatusProcessingError, StatusTimedOut:
		return true
	default:
		return false
	}
}
