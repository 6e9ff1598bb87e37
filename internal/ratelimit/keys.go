package ratelimit

import "fmt"

// guardKey is the Redis key for a job's cross-process stage guard.
// Job-scoped rather than queue-scoped, since this runtime's exclusion
// unit is a jobId, not a queue.
func guardKey(jobID int64) string {
	return fmt.Sprintf("acp:seller:job:%d:guard", jobID)
}
