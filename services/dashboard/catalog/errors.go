package catalog

import (
	"errors"
	"fmt"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
)

// ErrEmptyCatalog signals that the query service returned no metric at all
var ErrEmptyCatalog = errors.New("empty catalog")

// ErrPolicyFilteredEmpty signals that the allow-list excluded every metric of a non-empty catalog
var ErrPolicyFilteredEmpty = errors.New("no metric matches the allow-list")

// EmptyCatalogError carries the record count of a catalog without metrics
type EmptyCatalogError struct {
	TotalRecords int64
}

// Error returns the string representation of the error
func (e *EmptyCatalogError) Error() string {
	return ErrEmptyCatalog.Error() + ": " + e.Detail()
}

// Detail tells apart a store without records from a store whose records have no metric name
func (e *EmptyCatalogError) Detail() string {
	if e.TotalRecords == 0 {
		return "the store has no records"
	}

	return fmt.Sprintf("the store holds %d records but no distinct metrics", e.TotalRecords)
}

// Unwrap returns ErrEmptyCatalog
func (e *EmptyCatalogError) Unwrap() error {
	return ErrEmptyCatalog
}

// PolicyFilteredError is returned when the allow-list excluded every available metric
type PolicyFilteredError struct {
	NumAvailable int
}

// Error returns the string representation of the error
func (e *PolicyFilteredError) Error() string {
	return fmt.Sprintf("%s: none of the %d available metrics is allowed", ErrPolicyFilteredEmpty.Error(), e.NumAvailable)
}

// Unwrap returns ErrPolicyFilteredEmpty
func (e *PolicyFilteredError) Unwrap() error {
	return ErrPolicyFilteredEmpty
}

// StateForError converts a catalog load failure into the state shown to the user. The two
// empty outcomes are not failures of the query service and use the neutral empty state.
func StateForError(err error) common.ViewState {
	var emptyErr *EmptyCatalogError
	if errors.As(err, &emptyErr) {
		return common.NewEmptyState("No metrics available: " + emptyErr.Detail())
	}

	var policyErr *PolicyFilteredError
	if errors.As(err, &policyErr) {
		return common.NewEmptyState(fmt.Sprintf("No metrics match the configured allow-list (%d metrics available)", policyErr.NumAvailable))
	}

	return common.NewErrorState("loading metrics failed: " + err.Error())
}
