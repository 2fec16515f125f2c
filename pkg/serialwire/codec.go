package serialwire

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
)

const (
	framePrefix = "START"
	frameSuffix = "END"
)

var ErrEmptyFrame = errors.New("frame has no fields")

// Frame is one device record: the device id followed by its per-kind
// state fields.
type Frame struct {
	Fields []string
}

// Encode renders one frame as the microcontroller wire line:
//
//	START<csv record>END\n
//
// Fields containing the delimiter or quotes are escaped per standard
// CSV quoting.
func Encode(frame Frame) ([]byte, error) {
	if len(frame.Fields) == 0 {
		return nil, ErrEmptyFrame
	}
	var record bytes.Buffer
	w := csv.NewWriter(&record)
	if err := w.Write(frame.Fields); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString(framePrefix)
	out.WriteString(strings.TrimRight(record.String(), "\r\n"))
	out.WriteString(frameSuffix)
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// DecodeAck extracts acknowledgment text from a raw line. Acks are
// free-form diagnostics, not a typed protocol, so this is a trim only.
func DecodeAck(line []byte) string {
	return strings.TrimSpace(string(line))
}
