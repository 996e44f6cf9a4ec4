package generation

// Status is the pipeline position of a generation. Non-failed statuses only move
// forward along pending -> reasoning -> generating -> validating -> completed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusReasoning  Status = "reasoning"
	StatusGenerating Status = "generating"
	StatusValidating Status = "validating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var order = map[Status]int{
	StatusPending:    0,
	StatusReasoning:  1,
	StatusGenerating: 2,
	StatusValidating: 3,
	StatusCompleted:  4,
}

func (s Status) Valid() bool {
	_, ok := order[s]
	return ok || s == StatusFailed
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanMoveTo reports whether storing next after s keeps the status monotonic.
func (s Status) CanMoveTo(next Status) bool {
	if s == next {
		return true
	}
	if next == StatusFailed {
		return !s.Terminal()
	}
	from, ok1 := order[s]
	to, ok2 := order[next]
	return ok1 && ok2 && to > from
}

func (s Status) in(set ...Status) bool {
	for _, c := range set {
		if s == c {
			return true
		}
	}
	return false
}
