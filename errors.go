package ostiary

import "errors"

var (
	// ErrAccessDenied is returned by Enforce when a check was denied.
	ErrAccessDenied = errors.New("ostiary: access denied")

	// ErrUnauthenticated is returned when no user identity is present on
	// the request context. Never treated as "no permissions".
	ErrUnauthenticated = errors.New("ostiary: unauthenticated")

	// ErrStoreUnavailable marks an infrastructure fault in the backing
	// store. It is distinct from an authorization decision: the guard
	// propagates it instead of defaulting to allow or deny.
	ErrStoreUnavailable = errors.New("ostiary: permission store unavailable")

	// ErrMalformedRequirement marks a programmer error in a declared
	// requirement (e.g. a resource-scoped check without an owner source).
	ErrMalformedRequirement = errors.New("ostiary: malformed requirement")

	// ErrPermissionNotFound is returned when a named permission row does
	// not exist in the backing store.
	ErrPermissionNotFound = errors.New("ostiary: permission not found")

	// ErrHierarchyCycle is returned by store-side integrity checks when a
	// parent assignment would create a cycle. Hierarchy walks never return
	// it: a revisit stops the walk and is surfaced as a warning.
	ErrHierarchyCycle = errors.New("ostiary: permission hierarchy cycle")
)
