// Package filesource abstracts the remote drop location trade files arrive
// in. Implementations list pending files, fetch them to a local path and
// relocate them to a processed area after successful ingestion. Relocation is
// the sole mechanism preventing a file from being ingested twice.
package filesource

import "context"

// Source is the capability the sync worker runs against.
type Source interface {
	// List returns the names of files currently pending in the drop location.
	List(ctx context.Context) ([]string, error)

	// Fetch downloads the named file to localPath.
	Fetch(ctx context.Context, name, localPath string) error

	// Relocate moves the named file to the processed area. localPath points
	// at the already-fetched local copy so implementations can upload it
	// instead of re-reading the remote file when a server-side rename is not
	// possible.
	Relocate(ctx context.Context, name, localPath string) error
}
