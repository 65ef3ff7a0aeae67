package codplayer

import (
	"encoding/binary"
	"errors"
	"io"
	"time"
	"unsafe"
)

// errReadTimeout is returned by timeoutReader.Read when no data
// arrived within the configured deadline. It is not a stream error:
// callers should treat it as "nothing to report right now" and try
// again, matching the radio source's read-timeout-yields-nothing
// contract (§4.2, §5).
var errReadTimeout = errors.New("codplayer: read timeout")

// timeoutReader wraps an io.Reader that offers no deadline support
// (such as an http.Response.Body) with one, by running the
// underlying reads on a background goroutine and bounding how long
// the caller waits for a result.
type timeoutReader struct {
	r       io.Reader
	timeout time.Duration

	results chan readResult
	pending bool
}

type readResult struct {
	buf []byte
	n   int
	err error
}

func newTimeoutReader(r io.Reader, timeout time.Duration) *timeoutReader {
	return &timeoutReader{r: r, timeout: timeout, results: make(chan readResult, 1)}
}

func (t *timeoutReader) Read(p []byte) (int, error) {
	if !t.pending {
		t.pending = true
		go func() {
			buf := make([]byte, len(p))
			n, err := t.r.Read(buf)
			t.results <- readResult{buf: buf, n: n, err: err}
		}()
	}

	select {
	case res := <-t.results:
		t.pending = false
		copy(p, res.buf[:res.n])
		return res.n, res.err
	case <-time.After(t.timeout):
		return 0, errReadTimeout
	}
}

// isBigEndianHost reports whether the current process is running on
// a big-endian architecture; used to tag the radio source's
// negotiated format in host byte order, per §4.2.
func isBigEndianHost() bool {
	var x uint16 = 1
	buf := (*[2]byte)(unsafe.Pointer(&x))[:]
	return binary.BigEndian.Uint16(buf) == 1
}
