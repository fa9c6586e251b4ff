package ingestion

// State is a document's position in the processing pipeline. Transitions
// are one-way; a caller that wants a retry re-submits the whole document
// from StateReceived.
type State int

const (
	// StateReceived is the entry state: a raw candidate has arrived.
	StateReceived State = iota
	// StateValidated means the candidate passed schema validation.
	StateValidated
	// StateQCChecked means the quality-control decision has been derived.
	StateQCChecked
	// StateStored means an immutable version has been appended to the
	// record store. Documents left here are recovered by Reindex.
	StateStored
	// StateIndexed is the terminal success state: chunks are queryable.
	StateIndexed
	// StateRejected is the terminal failure state, reached only from
	// StateReceived on schema failure.
	StateRejected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateValidated:
		return "validated"
	case StateQCChecked:
		return "qcChecked"
	case StateStored:
		return "stored"
	case StateIndexed:
		return "indexed"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateIndexed || s == StateRejected
}
