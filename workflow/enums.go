package workflow

// StateFlow identifies a state variable of an object.
type StateFlow string

const (
	Review       StateFlow = "review_state"
	Inactive     StateFlow = "inactive_state"
	Cancellation StateFlow = "cancellation_state"
)

type InactiveState string

const (
	InactiveActive   InactiveState = "active"
	InactiveInactive InactiveState = "inactive"
)

type BatchState string

const (
	BatchOpen      BatchState = "open"
	BatchClosed    BatchState = "closed"
	BatchCancelled BatchState = "cancelled"
)

type BatchTransition string

const (
	BatchTransitionOpen  BatchTransition = "open"
	BatchTransitionClose BatchTransition = "close"
)

type CancellationState string

const (
	CancellationActive    CancellationState = "active"
	CancellationCancelled CancellationState = "cancelled"
)

type CancellationTransition string

const (
	Cancel    CancellationTransition = "cancel"
	Reinstate CancellationTransition = "reinstate"
)
