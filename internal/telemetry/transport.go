package telemetry

import (
	"context"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"go.bug.st/serial"
)

const (
	stdinSource = "-"
	tcpScheme   = "tcp://"

	// DefaultBaudRate matches the acquisition board's firmware.
	DefaultBaudRate = 9600

	portReadTimeout = 500 * time.Millisecond
)

// Open acquires the telemetry transport named by source: "-" for stdin,
// "tcp://host:port" for a serial-to-network bridge, a character device such
// as /dev/ttyACM0 (opened as a serial port at baud, 8N1), or a regular file
// holding a recorded capture.
//
// settle delays the first read; boards that reset on connect need it. Bytes
// a serial port buffered during the delay are discarded.
func Open(ctx context.Context, source string, baud int, settle time.Duration) (io.ReadCloser, error) {
	errFactory := errors.New()

	var (
		rc   io.ReadCloser
		port serial.Port
		err  error
	)

	switch {
	case source == "":
		return nil, errFactory.WithMessage(ErrOpen, "no telemetry source configured")
	case source == stdinSource:
		// closing does not interrupt a pending read on stdin
		rc = io.NopCloser(os.Stdin)
	case strings.HasPrefix(source, tcpScheme):
		var d net.Dialer
		rc, err = d.DialContext(ctx, "tcp", strings.TrimPrefix(source, tcpScheme))
	case isCharDevice(source):
		port, err = openPort(source, baud)
		if err == nil {
			rc = &portReader{port: port}
		}
	default:
		rc, err = os.Open(source)
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrOpen, err)
	}

	if settle > 0 {
		timer := time.NewTimer(settle)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			rc.Close()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if port != nil {
		if err := port.ResetInputBuffer(); err != nil {
			rc.Close()
			return nil, errFactory.Wrap(ErrOpen, err)
		}
	}

	return rc, nil
}

func isCharDevice(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}

	return fi.Mode()&os.ModeCharDevice != 0
}

func openPort(path string, baud int) (serial.Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}

	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(portReadTimeout); err != nil {
		port.Close()
		return nil, err
	}

	return port, nil
}

// portReader hides read timeouts from the line scanner, which treats
// repeated empty reads as an error. The timeout bounds how long a read
// outlives Close.
type portReader struct {
	port serial.Port
}

func (r *portReader) Read(b []byte) (int, error) {
	for {
		n, err := r.port.Read(b)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

func (r *portReader) Close() error {
	return r.port.Close()
}
