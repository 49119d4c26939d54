package transcript

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/inquire/inquire"
)

// Writer appends records to a transcript stream. Safe for concurrent use;
// records get consecutive sequence numbers in write order.
type Writer struct {
	runID  string
	closer io.Closer

	mu  sync.Mutex
	w   io.Writer
	seq int64
	err error
}

// NewWriter creates a writer over w.
func NewWriter(w io.Writer, runID string) *Writer {
	return &Writer{w: w, runID: runID}
}

// Create creates (or truncates) the transcript file at path.
func Create(path, runID string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}
	w := NewWriter(f, runID)
	w.closer = f
	return w, nil
}

// Write appends rec, assigning its sequence number and run ID.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	rec.Seq = w.seq
	rec.RunID = w.runID

	payload, err := msgpack.Marshal(&rec)
	if err != nil {
		return w.fail(fmt.Errorf("encode record: %w", err))
	}
	if err := writeFrame(w.w, payload); err != nil {
		return w.fail(err)
	}
	return nil
}

// fail remembers the first error. Caller must hold mu.
func (w *Writer) fail(err error) error {
	if w.err == nil {
		w.err = err
	}
	return err
}

// Observe records ex. Errors are kept for Err so it can serve as an
// inquire.Observer, which has no error return.
func (w *Writer) Observe(ex inquire.Exchange) {
	_ = w.Write(FromExchange(ex, w.runID, 0))
}

// Observer returns Observe as an inquire.Observer.
func (w *Writer) Observer() inquire.Observer {
	return w.Observe
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Count returns the number of records written.
func (w *Writer) Count() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.seq
}

// Close closes the underlying file when the writer owns one.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
