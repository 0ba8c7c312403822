package protocol

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

// Reader decodes protocol values from a byte stream.
// It is not safe for concurrent use.
type Reader struct {
	br          *bufio.Reader
	maxBlobSize int
	buf         [4]byte
}

type ReaderOption func(*Reader)

// WithMaxBlobSize caps the length accepted by ReadBlob. Zero means no cap.
func WithMaxBlobSize(n int) ReaderOption {
	return func(r *Reader) {
		if n >= 0 {
			r.maxBlobSize = n
		}
	}
}

func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{br: bufio.NewReader(r)}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// ReadString reads a u16 length prefix followed by that many bytes of
// modified UTF-8.
func (r *Reader) ReadString() (string, error) {
	if _, err := io.ReadFull(r.br, r.buf[:2]); err != nil {
		return "", err
	}
	n := int(binary.BigEndian.Uint16(r.buf[:2]))
	if n == 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.br, b); err != nil {
		return "", unexpectedEOF(err)
	}
	return decodeModifiedUTF8(b)
}

func (r *Reader) ReadInt32() (int32, error) {
	if _, err := io.ReadFull(r.br, r.buf[:4]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(r.buf[:4])), nil
}

// readLength reads an int32 length or count and checks it against limit.
// A negative value yields ErrNegativeLength, a value above a positive limit
// yields tooLarge. The stream stays aligned after ErrNegativeLength since no
// payload follows a negative length.
func (r *Reader) readLength(limit int, tooLarge error) (int, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ErrNegativeLength
	}
	if limit > 0 && int(v) > limit {
		return 0, tooLarge
	}
	return int(v), nil
}

// ReadCount reads the element count that precedes a batch. limit of zero
// disables the ErrBatchTooLarge check.
func (r *Reader) ReadCount(limit int) (int, error) {
	return r.readLength(limit, ErrBatchTooLarge)
}

// ReadBlob reads an int32 length followed by that many bytes. The returned
// slice is never nil on success.
func (r *Reader) ReadBlob() ([]byte, error) {
	n, err := r.readLength(r.maxBlobSize, ErrValueTooLarge)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.br, b); err != nil {
		return nil, unexpectedEOF(err)
	}
	return b, nil
}

// ReadMessage reads a status byte and its text.
func (r *Reader) ReadMessage() (Message, error) {
	c, err := r.br.ReadByte()
	if err != nil {
		return Message{}, err
	}
	status := Status(c)
	if !status.Valid() {
		return Message{}, ErrInvalidStatus
	}
	text, err := r.ReadString()
	if err != nil {
		return Message{}, unexpectedEOF(err)
	}
	return Message{Status: status, Text: text}, nil
}

// AwaitData blocks until at least one byte can be read without consuming
// it, or the underlying reader fails. It lets a caller notice a peer
// closing the stream while it is not expecting input.
func (r *Reader) AwaitData() error {
	_, err := r.br.Peek(1)
	return err
}

// Buffered returns the number of bytes already read from the stream but not
// yet consumed.
func (r *Reader) Buffered() int {
	return r.br.Buffered()
}

func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
