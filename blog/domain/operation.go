package domain

// Operation names a lifecycle operation.
type Operation string

const (
	OpCreate         Operation = "create"
	OpUpdate         Operation = "update"
	OpCancelSchedule Operation = "cancel-schedule"
	OpReschedule     Operation = "reschedule"
	OpPublishNow     Operation = "publish-now"
	OpDelete         Operation = "delete"
)

// Rate classes group operations that share a rate limit bucket.
const (
	RateClassCreate   = "create-post"
	RateClassUpdate   = "update-post"
	RateClassDelete   = "delete-post"
	RateClassSchedule = "schedule-post"
)

// RateClass returns the bucket op is counted against.
func (op Operation) RateClass() string {
	switch op {
	case OpCreate:
		return RateClassCreate
	case OpUpdate:
		return RateClassUpdate
	case OpDelete:
		return RateClassDelete
	default:
		return RateClassSchedule
	}
}
