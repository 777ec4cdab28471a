package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadTLV(t *testing.T) {
	var buf bytes.Buffer
	out := &GenericWriter{Writer: &buf}

	require.NoError(t, WriteTLV(out, TagHeader, "skills"))
	require.NoError(t, WriteJSON(out, TagPass, map[string]string{"rule_id": "skills/yt-brief/dir"}))
	require.NoError(t, WriteTLV(out, TagError, ""))

	tag, value, err := ReadTLV(&buf)
	require.NoError(t, err)
	assert.Equal(t, byte(TagHeader), tag)
	assert.Equal(t, "skills", value)

	tag, value, err = ReadTLV(&buf)
	require.NoError(t, err)
	assert.Equal(t, byte(TagPass), tag)
	assert.JSONEq(t, `{"rule_id":"skills/yt-brief/dir"}`, value)

	tag, value, err = ReadTLV(&buf)
	require.NoError(t, err)
	assert.Equal(t, byte(TagError), tag)
	assert.Empty(t, value)

	_, _, err = ReadTLV(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadTLVTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTLV(&GenericWriter{Writer: &buf}, TagFail, "truncated"))
	data := buf.Bytes()[:buf.Len()-3]

	_, _, err := ReadTLV(bytes.NewReader(data))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecoderSplitWrites(t *testing.T) {
	var buf bytes.Buffer
	out := &GenericWriter{Writer: &buf}
	require.NoError(t, WriteTLV(out, TagHeader, "metadata"))
	require.NoError(t, WriteTLV(out, TagFail, "missing"))
	data := buf.Bytes()

	var d Decoder
	var frames []Frame
	for _, b := range data {
		frames = append(frames, d.Feed([]byte{b})...)
	}

	require.Len(t, frames, 2)
	assert.Equal(t, Frame{Tag: TagHeader, Value: "metadata"}, frames[0])
	assert.Equal(t, Frame{Tag: TagFail, Value: "missing"}, frames[1])
	assert.Zero(t, d.Pending())
}

func TestDecoderUnknownTag(t *testing.T) {
	var d Decoder
	frames := d.Feed([]byte("xyzab"))
	require.Len(t, frames, 1)
	assert.Equal(t, byte(0), frames[0].Tag)
	assert.Equal(t, "x", frames[0].Value)
	assert.Equal(t, 4, d.Pending())
}

// failingOutput rejects every write, like a closed client
type failingOutput struct{}

func (f *failingOutput) Write(p []byte) (int, error) {
	return 0, errors.New("closed")
}

func (f *failingOutput) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *failingOutput) Flush() error {
	return nil
}

func TestBroadcastDropsFailedOutputs(t *testing.T) {
	var a, b bytes.Buffer
	bc := NewBroadcast()
	bc.Subscribe(&GenericWriter{Writer: &a})
	bc.Subscribe(&GenericWriter{Writer: &b})
	bc.Subscribe(&failingOutput{})
	require.Equal(t, 3, bc.Len())

	require.NoError(t, WriteTLV(bc, TagSummary, "{}"))
	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.Equal(t, 2, bc.Len())
}
