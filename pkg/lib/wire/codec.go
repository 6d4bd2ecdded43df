// Package wire implements the LabVIEW listener framing: one BSON document per
// frame, where the document's own little-endian int32 length (header included)
// doubles as the frame length prefix.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ni/labview-automation/pkg/lib"
)

const (
	headerSize = 4
	// minFrameSize is the size of an empty BSON document.
	minFrameSize = 5
	// MaxFrameSize bounds a single frame so a corrupt header cannot make us allocate gigabytes.
	MaxFrameSize = 64 << 20
)

// Encode serializes v as a BSON document. The result is a complete frame.
func Encode(v any) ([]byte, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, &lib.ProtocolError{Op: "encode", Err: err}
	}
	if n := binary.LittleEndian.Uint32(data[:headerSize]); int(n) != len(data) {
		return nil, &lib.ProtocolError{Op: "encode", Err: fmt.Errorf("length prefix %d does not match document size %d", n, len(data))}
	}
	return data, nil
}

// WriteFrame encodes v and writes every byte of the frame to w.
func WriteFrame(w io.Writer, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. Partial reads are retried until the
// declared length is met; an early close is reported as lib.ErrTruncated.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, truncated("read header", err)
	}

	size := binary.LittleEndian.Uint32(header)
	if size < minFrameSize || size > MaxFrameSize {
		return nil, &lib.ProtocolError{Op: "read header", Err: fmt.Errorf("invalid frame length %d", size)}
	}

	frame := make([]byte, size)
	copy(frame, header)
	if _, err := io.ReadFull(r, frame[headerSize:]); err != nil {
		return nil, truncated("read body", err)
	}
	return frame, nil
}

// Decode reads one frame from r and parses it as a document.
func Decode(r io.Reader) (Document, error) {
	frame, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	return Parse(frame)
}

// Parse decodes a complete frame into a Document.
func Parse(frame []byte) (Document, error) {
	var doc bson.D
	if err := bson.Unmarshal(frame, &doc); err != nil {
		return nil, &lib.ProtocolError{Op: "decode", Err: err}
	}
	return Document(doc), nil
}

func truncated(op string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &lib.ProtocolError{Op: op, Err: fmt.Errorf("%w: %w", lib.ErrTruncated, err)}
	}
	return err
}
