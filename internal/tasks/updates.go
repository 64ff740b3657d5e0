package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLiked Phase = iota
	Shuffle
)

func (p Phase) String() string {
	switch p {
	case FetchLiked:
		return "fetch_liked"
	case Shuffle:
		return "shuffle"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// fetchPageUpdate carries the pool size in Data.
func fetchPageUpdate(attempt, maxAttempts, pooled int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLiked,
		Step:    attempt,
		Total:   maxAttempts,
		Message: fmt.Sprintf("Fetched page %d, %d liked tracks so far...", attempt, pooled),
		Data:    pooled,
	}
}

func shuffleUpdate(pooled, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Shuffle,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Drawing %d of %d tracks...", min(pooled, count), pooled),
		Data:    count,
	}
}
