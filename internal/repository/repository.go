// internal/repository/repository.go
package repository

import "errors"

// ErrNotFound is returned when a queried entity does not exist. Services map
// it to their own error taxonomy.
var ErrNotFound = errors.New("not found")
