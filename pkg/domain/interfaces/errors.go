package interfaces

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound is returned by repositories when a requested record does not
// exist, regardless of backend.
var ErrNotFound = goerr.New("record not found")
