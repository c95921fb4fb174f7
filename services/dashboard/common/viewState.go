package common

import "fmt"

// ViewStateKind enumerates the states of the query-and-render cycle
type ViewStateKind int

const (
	// Idle is the state before any refresh was requested
	Idle ViewStateKind = iota
	// Loading means a request is in flight
	Loading
	// Success means at least one point was loaded
	Success
	// Empty means the query was valid but yielded zero points
	Empty
	// Error means the query or the catalog load failed
	Error
)

// String returns the lower case name of the state
func (k ViewStateKind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Empty:
		return "empty"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MarshalText encodes the state kind as its name
func (k ViewStateKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ViewState drives the status indicator
type ViewState struct {
	Kind    ViewStateKind `json:"kind"`
	Count   int           `json:"count,omitempty"`
	Message string        `json:"message"`
}

// NewIdleState creates the initial state
func NewIdleState() ViewState {
	return ViewState{Kind: Idle}
}

// NewLoadingState creates the in-flight state
func NewLoadingState() ViewState {
	return ViewState{
		Kind:    Loading,
		Message: "Loading data...",
	}
}

// NewSuccessState creates the state for a non-empty result
func NewSuccessState(count int) ViewState {
	return ViewState{
		Kind:    Success,
		Count:   count,
		Message: fmt.Sprintf("Loaded %d data points", count),
	}
}

// NewEmptyState creates the state for a well-formed result without points
func NewEmptyState(description string) ViewState {
	return ViewState{
		Kind:    Empty,
		Message: description,
	}
}

// NewErrorState creates the error state. The message is prefixed with "Error: "
func NewErrorState(message string) ViewState {
	return ViewState{
		Kind:    Error,
		Message: "Error: " + message,
	}
}

// StatusClass returns the style class of the status region
func (vs ViewState) StatusClass() string {
	switch vs.Kind {
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	case Empty:
		return "empty"
	default:
		return ""
	}
}

// AutoDismiss returns true if the status indicator hides itself after a delay
func (vs ViewState) AutoDismiss() bool {
	return vs.Kind == Success
}
