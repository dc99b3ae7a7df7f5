package gateway

import "errors"

var (
	// ErrMutatingQuery is returned when Query is given a write template.
	ErrMutatingQuery = errors.New("gateway: template mutates data; use Mutate")

	// ErrNotMutating is returned when Mutate is given a read template.
	ErrNotMutating = errors.New("gateway: template does not mutate data; use Query")

	// ErrMissingCategory is returned for a query with no cache category.
	ErrMissingCategory = errors.New("gateway: query has no cache category")

	// ErrBackpressure wraps local rejections: a full bulkhead or an
	// exhausted write rate.
	ErrBackpressure = errors.New("gateway: too many executions in progress")
)
