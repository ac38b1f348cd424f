package ai

// EventKind tags a reactive event.
type EventKind int

const (
	// EventHoardAlert asks listeners to target the EntityID carried in Data.
	EventHoardAlert EventKind = iota + 1
)

func (k EventKind) String() string {
	switch k {
	case EventHoardAlert:
		return "hoard_alert"
	}
	return "unknown"
}

// Event is broadcast to every node of a tree by BehaviorTree.Dispatch.
// Data is only valid for the duration of the dispatch call.
type Event struct {
	Kind EventKind
	Data any
}
