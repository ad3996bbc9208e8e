// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the auth
// service to distinguish between different failure scenarios without
// parsing driver error strings themselves. Lookup misses are reported as
// sql.ErrNoRows straight from the driver; only semantic conflicts get
// dedicated sentinels.
package repository

import "errors"

// ErrUserExists is returned when an insert collides with the unique
// username or email index. The auth service translates it into a
// field-level registration error.
var ErrUserExists = errors.New("username or email already exists")

// ErrPlanTokenExists is returned when a plan insert collides with the
// unique main_token index.
var ErrPlanTokenExists = errors.New("plan secret key already exists")
