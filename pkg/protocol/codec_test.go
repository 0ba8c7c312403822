package protocol_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josenovais97/distributed-systems/pkg/protocol"
)

func TestWriterReader_Values(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)

	require.NoError(t, w.WriteString("multiGet"))
	require.NoError(t, w.WriteInt32(-7))
	require.NoError(t, w.WriteBlob([]byte{1, 2, 3}))
	require.NoError(t, w.WriteBlob(nil))
	require.NoError(t, w.WriteMessage(protocol.StatusWaiting, "waiting for a free slot, position 2"))
	assert.Zero(t, buf.Len(), "nothing is written before Flush")
	require.NoError(t, w.Flush())

	r := protocol.NewReader(&buf)
	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "multiGet", s)

	n, err := r.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), n)

	b, err := r.ReadBlob()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	empty, err := r.ReadBlob()
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, protocol.StatusWaiting, msg.Status)
	assert.Equal(t, "waiting for a free slot, position 2", msg.Text)

	_, err = r.ReadString()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriter_StringLimit(t *testing.T) {
	t.Parallel()
	w := protocol.NewWriter(io.Discard)

	assert.NoError(t, w.WriteString(strings.Repeat("a", protocol.MaxStringLength)))
	assert.ErrorIs(t, w.WriteString(strings.Repeat("a", protocol.MaxStringLength+1)), protocol.ErrStringTooLong)
	// Three encoded bytes per rune pushes this over the limit.
	assert.ErrorIs(t, w.WriteString(strings.Repeat("€", protocol.MaxStringLength/3+1)), protocol.ErrStringTooLong)
}

func TestChecks(t *testing.T) {
	t.Parallel()
	assert.NoError(t, protocol.CheckString(""))
	assert.ErrorIs(t, protocol.CheckString(strings.Repeat("k", protocol.MaxStringLength+1)), protocol.ErrStringTooLong)
	assert.NoError(t, protocol.CheckBlob(nil))
	assert.NoError(t, protocol.CheckCount(0))
	assert.ErrorIs(t, protocol.CheckCount(-1), protocol.ErrBatchTooLarge)
}

func TestWriter_DiscardDropsUnflushedData(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)

	require.NoError(t, w.WriteString(protocol.CmdPut))
	assert.Positive(t, w.Buffered())
	w.Discard()
	assert.Zero(t, w.Buffered())

	require.NoError(t, w.WriteString(protocol.CmdGet))
	require.NoError(t, w.Flush())

	s, err := protocol.NewReader(&buf).ReadString()
	require.NoError(t, err)
	assert.Equal(t, protocol.CmdGet, s)
}

func TestWriter_InvalidStatus(t *testing.T) {
	t.Parallel()
	w := protocol.NewWriter(io.Discard)
	assert.ErrorIs(t, w.WriteMessage(protocol.Status(0), "x"), protocol.ErrInvalidStatus)
	assert.ErrorIs(t, w.WriteMessage(protocol.Status(200), "x"), protocol.ErrInvalidStatus)
}

func TestReader_InvalidStatus(t *testing.T) {
	t.Parallel()
	r := protocol.NewReader(bytes.NewReader([]byte{0x00, 0x00, 0x00}))
	_, err := r.ReadMessage()
	assert.ErrorIs(t, err, protocol.ErrInvalidStatus)
}

func int32Bytes(v int32) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(v))
}

func TestReader_NegativeBlobLengthKeepsStreamAligned(t *testing.T) {
	t.Parallel()
	var in []byte
	in = append(in, int32Bytes(-1)...)
	in = append(in, int32Bytes(2)...)
	in = append(in, 'h', 'i')

	r := protocol.NewReader(bytes.NewReader(in))
	_, err := r.ReadBlob()
	assert.ErrorIs(t, err, protocol.ErrNegativeLength)

	b, err := r.ReadBlob()
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), b)
}

func TestReader_BlobSizeLimit(t *testing.T) {
	t.Parallel()
	in := append(int32Bytes(5), "hello"...)

	r := protocol.NewReader(bytes.NewReader(in), protocol.WithMaxBlobSize(4))
	_, err := r.ReadBlob()
	assert.ErrorIs(t, err, protocol.ErrValueTooLarge)

	r = protocol.NewReader(bytes.NewReader(in), protocol.WithMaxBlobSize(5))
	b, err := r.ReadBlob()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)
}

func TestReader_ReadCount(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		value   int32
		limit   int
		want    int
		wantErr error
	}{
		{"zero", 0, 10, 0, nil},
		{"within limit", 10, 10, 10, nil},
		{"over limit", 11, 10, 0, protocol.ErrBatchTooLarge},
		{"no limit", 1 << 20, 0, 1 << 20, nil},
		{"negative", -3, 10, 0, protocol.ErrNegativeLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := protocol.NewReader(bytes.NewReader(int32Bytes(tt.value)))
			got, err := r.ReadCount(tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReader_TruncatedInput(t *testing.T) {
	t.Parallel()

	// Length prefix promises 4 bytes, only 2 follow.
	r := protocol.NewReader(bytes.NewReader([]byte{0x00, 0x04, 'a', 'b'}))
	_, err := r.ReadString()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	r = protocol.NewReader(bytes.NewReader(append(int32Bytes(3), 'x')))
	_, err = r.ReadBlob()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReader_AwaitData(t *testing.T) {
	t.Parallel()
	r := protocol.NewReader(bytes.NewReader([]byte{0x00, 0x01, 'k'}))
	require.NoError(t, r.AwaitData())
	assert.Equal(t, 3, r.Buffered())

	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "k", s, "AwaitData does not consume input")

	assert.ErrorIs(t, r.AwaitData(), io.EOF)
}

func TestStatus_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "not_found", protocol.StatusNotFound.String())
	assert.Equal(t, "status(99)", protocol.Status(99).String())
}
