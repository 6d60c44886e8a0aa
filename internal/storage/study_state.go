package storage

import "time"

// StudyState is the in-memory record of one study's reception activity,
// keyed by its original (pre-anonymisation) StudyInstanceUID.
type StudyState struct {
	StudyNumber  int
	LastReceived time.Time
	Completed    bool
}

// Snapshot is a read-only copy of one study's state, keyed by the original
// StudyInstanceUID, handed to the completion tracker.
type Snapshot struct {
	StudyUID string
	State    StudyState
}
