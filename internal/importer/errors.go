package importer

import "fmt"

// ClassificationError aborts an upload before any row is processed.
type ClassificationError struct {
	Msg string
	Err error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classification failed: %s: %v", e.Msg, e.Err)
	}
	return "classification failed: " + e.Msg
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// CommitError reports the chunk whose batch the store rejected. Chunks
// before it stay committed.
type CommitError struct {
	Chunk int
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit of chunk %d failed: %v", e.Chunk, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
