package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize bounds a single encoded line.
const MaxMessageSize = 1 << 20

// MalformedError reports a line that could not be decoded into a message.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return "malformed message: " + e.Err.Error()
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

type flusher interface {
	Flush() error
}

// Write encodes msg as a single JSON line. Buffered writers are flushed.
func Write(w io.Writer, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if f, ok := w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush message: %w", err)
		}
	}
	return nil
}

// ReadRequest reads one request line. A clean end of stream is io.EOF.
func ReadRequest(r *bufio.Reader) (Request, error) {
	line, err := readLine(r)
	if err != nil {
		return Request{}, err
	}
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, &MalformedError{Err: err}
	}
	if req.Body.Kind == "" {
		return Request{}, &MalformedError{Err: errors.New("request has no body")}
	}
	return req, nil
}

// ReadResponse reads one response line. A clean end of stream is io.EOF.
func ReadResponse(r *bufio.Reader) (Response, error) {
	line, err := readLine(r)
	if err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, &MalformedError{Err: err}
	}
	return resp, nil
}

// readLine returns one line without its terminator. A final line without a
// trailing newline is still returned.
func readLine(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		buf = append(buf, chunk...)
		if len(buf) > MaxMessageSize {
			return nil, &MalformedError{Err: fmt.Errorf("message exceeds %d bytes", MaxMessageSize)}
		}
		switch {
		case err == nil:
			return bytes.TrimRight(buf, "\r\n"), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(bytes.TrimSpace(buf)) == 0 {
				return nil, io.EOF
			}
			return buf, nil
		default:
			return nil, fmt.Errorf("read message: %w", err)
		}
	}
}
