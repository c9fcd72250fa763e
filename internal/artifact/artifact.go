// Package artifact stores rendered chart files and serves them back for
// the /static endpoint.
package artifact

import (
	"context"
	"errors"
	"io"
)

// ErrArtifactNotFound reports a missing artifact.
var ErrArtifactNotFound = errors.New("artifact not found")

// Store persists named artifacts. Names are flat, no directories.
type Store interface {
	Put(ctx context.Context, name, contentType string, body io.Reader) error
	Get(ctx context.Context, name string) (io.ReadCloser, error)
}
