// Package apierrors defines the sentinel errors that cross the boundary
// between the query engine and its callers. Callers are expected to use
// errors.Is against these values rather than matching on message text.
package apierrors

import "errors"

var (
	// ErrNoMatchingData is returned when a query's predicates provably
	// exclude every file in the catalog (or the catalog is empty).
	ErrNoMatchingData = errors.New("no matching data")

	// ErrRetryLater is returned when the caller should try again later:
	// a query arrives before any update pass has published a catalog, an
	// update pass is requested while another is in flight, or a file
	// read fails twice during a query.
	ErrRetryLater = errors.New("dataset busy, retry later")

	// ErrBadRequest is returned when a query references an unknown
	// column, an invalid operator, or a malformed value.
	ErrBadRequest = errors.New("bad request")
)
