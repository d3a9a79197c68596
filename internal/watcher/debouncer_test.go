package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectBatch(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_CoalescesSamePath(t *testing.T) {
	// Given: a burst of writes to the same document
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "lease.txt", Operation: OpModify})
	d.Add(FileEvent{Path: "lease.txt", Operation: OpModify})
	d.Add(FileEvent{Path: "lease.txt", Operation: OpModify})

	// Then: one event survives
	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "tmp.txt", Operation: OpCreate})
	d.Add(FileEvent{Path: "tmp.txt", Operation: OpDelete})
	d.Add(FileEvent{Path: "other.txt", Operation: OpModify})

	// Then: only the surviving path is emitted
	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, "other.txt", batch[0].Path)
}

func TestDebouncer_DeleteThenCreateIsModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "lease.txt", Operation: OpDelete})
	d.Add(FileEvent{Path: "lease.txt", Operation: OpCreate})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_CreateThenModifyStaysCreate(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "new.txt", Operation: OpCreate})
	d.Add(FileEvent{Path: "new.txt", Operation: OpModify})

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Stop()
	d.Stop()

	// Adds after stop are dropped without panicking
	d.Add(FileEvent{Path: "late.txt", Operation: OpModify})

	_, open := <-d.Output()
	assert.False(t, open)
}
