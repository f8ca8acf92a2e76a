package transaction

// State is the transaction's lifecycle state.
// InProgress is initial; Committed and Aborted are terminal. Committing and
// Aborting are the windows between the decision and its publication; a
// transaction stays in Committing when the commit log flush fails, since the
// decision was made but never became durable.
type State uint

const (
	StateInProgress State = iota
	StateCommitting
	StateCommitted
	StateAborting
	StateAborted
)

// IsCompleted checks whether the transaction has reached a terminal state
func IsCompleted(state State) bool {
	return state == StateCommitted || state == StateAborted
}

// String makes states readable in logs and test failures
func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in progress"
	case StateCommitting:
		return "committing"
	case StateCommitted:
		return "committed"
	case StateAborting:
		return "aborting"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
