package transcript

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/inquire/iox"
)

// Reader decodes records from a transcript stream.
type Reader struct {
	r io.Reader
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Next returns the next record, or io.EOF at the clean end of the stream.
// A decode error is not fatal: the next call reads the following frame.
func (r *Reader) Next() (*Record, error) {
	payload, err := readFrame(r.r)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode record", Err: err}
	}
	return &rec, nil
}

// ReadAll reads every record. Undecodable frames are skipped and counted;
// fatal frame errors stop reading and are returned with the records read
// so far.
func ReadAll(r io.Reader) (records []Record, skipped int, err error) {
	reader := NewReader(r)
	for {
		rec, nextErr := reader.Next()
		if errors.Is(nextErr, io.EOF) {
			return records, skipped, nil
		}
		if nextErr != nil {
			if IsFatalFrameError(nextErr) {
				return records, skipped, nextErr
			}
			skipped++
			continue
		}
		records = append(records, *rec)
	}
}

// ReadFile reads every record of the transcript at path.
func ReadFile(path string) ([]Record, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open transcript: %w", err)
	}
	defer iox.DiscardClose(f)
	return ReadAll(f)
}
