// Package wire implements the length-prefixed framing used on the
// controller↔worker pipe (component C2 of the worker controller design).
//
// One call yields exactly one Request and one Response frame. Because this
// is a same-host, Go-to-Go protocol — never a portable wire format — frame
// payloads are encoded with encoding/gob, the same choice the retrieval
// pack's pre-forked daemon examples make for same-host control protocols.
// Framing itself (a 4-byte big-endian length prefix ahead of the gob
// payload) is explicit so a short read or truncated frame is detectable
// before gob ever sees the bytes.
package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// maxFrameSize bounds a single frame to guard against a corrupted length
// prefix turning into an unbounded allocation.
const maxFrameSize = 256 << 20 // 256 MiB

// Mode selects how the child should execute the job carried by a Request.
type Mode uint8

const (
	// ModeImmediate executes the job in the long-lived child process itself.
	ModeImmediate Mode = iota
	// ModeClonePerCall tells the child it is a disposable, single-job process:
	// run the job once, write the response, then exit.
	ModeClonePerCall
)

// Request is the controller-to-child frame: a registered entry-point tag
// (the closure-shipping substitute, see entrypoint.Register), the
// gob-encoded job argument, whether a call wrapper should be applied, and
// the dispatch mode.
type Request struct {
	EntryTag   string
	Arg        []byte
	UseWrapper bool
	Mode       Mode
}

// FailureKind classifies why a child-side execution failed.
type FailureKind uint8

const (
	// FailureUser means the job function itself returned/panicked with an
	// application error; Detail carries its wrapped message.
	FailureUser FailureKind = iota
	// FailureOOM means the runtime detected an out-of-memory condition.
	FailureOOM
)

// Failure describes a `failed` response payload.
type Failure struct {
	Kind   FailureKind
	Detail string
}

// Response is the child-to-controller frame: exactly one per Request.
type Response struct {
	OK      bool
	Value   []byte
	Failure *Failure
}

// WriteRequest frames and writes req to w.
func WriteRequest(w io.Writer, req *Request) error {
	return writeFrame(w, req)
}

// ReadRequest reads and decodes one Request frame from r.
func ReadRequest(r io.Reader) (*Request, error) {
	var req Request
	if err := readFrame(r, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// WriteResponse frames and writes resp to w.
func WriteResponse(w io.Writer, resp *Response) error {
	return writeFrame(w, resp)
}

// ReadResponse reads and decodes one Response frame from r. Returns
// io.ErrUnexpectedEOF if the peer closed mid-frame or io.EOF if the peer
// closed cleanly before sending anything — both are terminal channel
// errors per §4.1 and should be mapped to a worker failure by the caller.
func ReadResponse(r io.Reader) (*Response, error) {
	var resp Response
	if err := readFrame(r, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func writeFrame(w io.Writer, v any) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(v); err != nil {
		return fmt.Errorf("wire: encode frame: %w", err)
	}

	if payload.Len() > maxFrameSize {
		return fmt.Errorf("wire: frame of %d bytes exceeds max %d", payload.Len(), maxFrameSize)
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(payload.Len()))

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(header[:]); err != nil {
		return fmt.Errorf("wire: write frame header: %w", err)
	}
	if _, err := bw.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("wire: write frame body: %w", err)
	}
	return bw.Flush()
}

func readFrame(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return io.ErrUnexpectedEOF
	}

	n := binary.BigEndian.Uint32(header[:])
	if n > maxFrameSize {
		return fmt.Errorf("wire: frame of %d bytes exceeds max %d", n, maxFrameSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return io.ErrUnexpectedEOF
	}

	if err := gob.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return fmt.Errorf("wire: decode frame: %w", err)
	}
	return nil
}
