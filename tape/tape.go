package tape

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/logbook/types"
)

// Magic identifies a tape header.
const Magic = "logbook-tape"

// FormatVersion is the tape format revision.
const FormatVersion = 1

// Header is the first frame of every tape.
type Header struct {
	Magic            string    `msgpack:"magic"`
	FormatVersion    int       `msgpack:"format_version"`
	CatalogueVersion string    `msgpack:"catalogue_version"`
	SessionID        string    `msgpack:"session_id"`
	StartedAt        time.Time `msgpack:"started_at"`
}

// NewHeader returns a header for the current catalogue.
func NewHeader(sessionID string, startedAt time.Time) Header {
	return Header{
		Magic:            Magic,
		FormatVersion:    FormatVersion,
		CatalogueVersion: types.CatalogueVersion,
		SessionID:        sessionID,
		StartedAt:        startedAt.UTC(),
	}
}

// Writer appends exchanges to a tape. Safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	closer io.Closer
	count  int
}

// NewWriter writes the header to w and returns a Writer.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	tw := &Writer{buf: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		tw.closer = c
	}
	payload, err := msgpack.Marshal(&h)
	if err != nil {
		return nil, fmt.Errorf("tape: encode header: %w", err)
	}
	if err := writeFrame(tw.buf, payload); err != nil {
		return nil, err
	}
	return tw, nil
}

// Create creates (or truncates) the tape file at path.
func Create(path string, h Header) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("tape: create %s: %w", path, err)
	}
	w, err := NewWriter(f, h)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// Write appends one exchange and flushes it, so a crash loses at most the
// frame being written.
func (w *Writer) Write(ex *types.Exchange) error {
	payload, err := msgpack.Marshal(ex)
	if err != nil {
		return fmt.Errorf("tape: encode exchange %s: %w", ex.ID, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := writeFrame(w.buf, payload); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("tape: flush: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of exchanges written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes and closes the underlying writer if it is closable.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("tape: flush: %w", err)
	}
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}

// Reader reads exchanges back from a tape.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
	header Header
}

// NewReader reads and validates the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	tr := &Reader{r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		tr.closer = c
	}

	payload, err := readFrame(tr.r)
	if err != nil {
		if err == io.EOF {
			return nil, &FrameError{Kind: FrameErrorHeader, Msg: "empty tape"}
		}
		return nil, err
	}
	if err := msgpack.Unmarshal(payload, &tr.header); err != nil {
		return nil, &FrameError{Kind: FrameErrorHeader, Msg: "failed to decode header", Err: err}
	}
	if tr.header.Magic != Magic {
		return nil, &FrameError{Kind: FrameErrorHeader, Msg: fmt.Sprintf("bad magic %q", tr.header.Magic)}
	}
	if tr.header.FormatVersion != FormatVersion {
		return nil, &FrameError{
			Kind: FrameErrorHeader,
			Msg:  fmt.Sprintf("unsupported format version %d", tr.header.FormatVersion),
		}
	}
	return tr, nil
}

// Open opens the tape file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tape: open %s: %w", path, err)
	}
	r, err := NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// Header returns the tape header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next exchange, or io.EOF at the end of the tape.
func (r *Reader) Next() (*types.Exchange, error) {
	payload, err := readFrame(r.r)
	if err != nil {
		return nil, err
	}
	var ex types.Exchange
	if err := msgpack.Unmarshal(payload, &ex); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode exchange", Err: err}
	}
	return &ex, nil
}

// Close closes the underlying reader if it is closable.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
