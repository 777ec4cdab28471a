package stream

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Message tags for TLV protocol
const (
	TagPass    = 'P' // Passing check result (JSON)
	TagFail    = 'F' // Failing check result (JSON)
	TagHeader  = 'H' // Report section name
	TagSummary = 'S' // Run summary (JSON)
	TagError   = 'E' // Error messages
)

const headerLen = 5

// IsValidTag reports whether tag is one of the known message tags.
func IsValidTag(tag byte) bool {
	switch tag {
	case TagPass, TagFail, TagHeader, TagSummary, TagError:
		return true
	}
	return false
}

// WriteTLV writes a TLV message to the output
func WriteTLV(output Output, tag byte, value string) error {
	data := []byte(value)
	length := int32(len(data))

	// Build complete message: tag (1) + length (4) + value
	msg := make([]byte, headerLen+length)
	msg[0] = tag
	binary.BigEndian.PutUint32(msg[1:], uint32(length))
	copy(msg[headerLen:], data)

	// Write complete message in one call
	_, err := output.Write(msg)
	return err
}

// WriteJSON encodes v as JSON and writes it as a single TLV message.
func WriteJSON(output Output, tag byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %c message: %w", tag, err)
	}
	return WriteTLV(output, tag, string(data))
}

// ReadTLV reads a TLV message from the input
// Returns tag, value, and error
func ReadTLV(input Input) (byte, string, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(input, header); err != nil {
		return 0, "", err
	}
	length := binary.BigEndian.Uint32(header[1:])

	value := make([]byte, length)
	if _, err := io.ReadFull(input, value); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, "", err
	}

	return header[0], string(value), nil
}

// Frame is one decoded TLV message.
type Frame struct {
	Tag   byte
	Value string
}

// Decoder reassembles frames from arbitrarily split writes.
type Decoder struct {
	buffer []byte
}

// Feed appends p to the pending buffer and returns every complete frame.
// Bytes that do not start a known tag are returned as a frame with tag 0.
func (d *Decoder) Feed(p []byte) []Frame {
	d.buffer = append(d.buffer, p...)

	var frames []Frame
	for len(d.buffer) >= headerLen {
		tag := d.buffer[0]
		if !IsValidTag(tag) {
			frames = append(frames, Frame{Value: string(d.buffer[0])})
			d.buffer = d.buffer[1:]
			continue
		}

		length := int(binary.BigEndian.Uint32(d.buffer[1:headerLen]))
		if len(d.buffer) < headerLen+length {
			break
		}

		frames = append(frames, Frame{Tag: tag, Value: string(d.buffer[headerLen : headerLen+length])})
		d.buffer = d.buffer[headerLen+length:]
	}
	return frames
}

// Pending returns the number of buffered bytes not yet forming a frame.
func (d *Decoder) Pending() int {
	return len(d.buffer)
}
