package telemetry

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
)

// Reader yields frames from a transport. The sequence is lazy and cannot be
// restarted; once the transport ends every Poll reports end of stream.
//
// A background goroutine only moves raw lines; parsing happens in Poll on the
// caller's goroutine.
type Reader struct {
	cfg   Config
	lines chan string
	done  chan struct{}
	once  sync.Once
	err   error // written before lines is closed
}

// NewReader starts reading src. The caller keeps ownership of src and must
// close it to unblock a pending read.
func NewReader(src io.Reader, cfg Config) *Reader {
	r := &Reader{
		cfg:   cfg,
		lines: make(chan string),
		done:  make(chan struct{}),
	}

	go r.scan(src)

	return r
}

func (r *Reader) scan(src io.Reader) {
	defer close(r.lines)

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, min(256, r.cfg.MaxLineLength)), r.cfg.MaxLineLength)

	for scanner.Scan() {
		select {
		case r.lines <- scanner.Text():
		case <-r.done:
			return
		}
	}

	r.err = scanner.Err()
}

// Poll waits at most PollTimeout for the next line. A timeout yields an idle
// frame and no error. Parse errors are returned together with the offending
// line and leave the reader usable.
func (r *Reader) Poll(ctx context.Context) (Frame, error) {
	errFactory := errors.New()

	timer := time.NewTimer(r.cfg.PollTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-timer.C:
		return Frame{Kind: FrameIdle}, nil
	case line, ok := <-r.lines:
		if !ok {
			if r.err != nil {
				return Frame{}, errFactory.Wrap(ErrTransport, r.err)
			}
			return Frame{}, errFactory.New(ErrEndOfStream)
		}

		sample, isSample, err := ParseLine(line)
		if err != nil {
			return Frame{Kind: FrameNoise, Line: line}, err
		}
		if !isSample {
			return Frame{Kind: FrameNoise, Line: line}, nil
		}

		return Frame{Kind: FrameSample, Line: line, Sample: sample}, nil
	}
}

// Close stops the scanning goroutine once its current read returns. The
// goroutine only exits early if the caller also closes the transport, which
// unblocks the read for network connections and serial ports. A pending read
// on stdin cannot be interrupted: there the goroutine stays parked until
// input arrives or the process exits.
func (r *Reader) Close() {
	r.once.Do(func() { close(r.done) })
}
