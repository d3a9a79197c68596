// Package watcher keeps the index in sync with the corpus directory by
// reacting to file system events.
package watcher

import (
	"time"
)

// Operation is a file system operation type.
type Operation int

const (
	// OpCreate indicates a new document appeared.
	OpCreate Operation = iota
	// OpModify indicates an existing document changed.
	OpModify
	// OpDelete indicates a document was removed.
	OpDelete
	// OpMetadataChange indicates the corpus sidecar file changed, which
	// can retitle or rescope every document.
	OpMetadataChange
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpMetadataChange:
		return "METADATA_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one corpus file system event.
type FileEvent struct {
	// Path is the corpus-relative path of the document.
	Path string

	// Operation is the type of file system operation.
	Operation Operation

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Options configures the corpus watcher.
type Options struct {
	// DebounceWindow is the time to wait before emitting coalesced events.
	DebounceWindow time.Duration

	// EventBufferSize is the size of the event channel buffer.
	EventBufferSize int
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow:  500 * time.Millisecond,
		EventBufferSize: 1000,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.DebounceWindow == 0 {
		o.DebounceWindow = defaults.DebounceWindow
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
