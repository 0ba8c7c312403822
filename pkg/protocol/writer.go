package protocol

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

// Writer encodes protocol values into a buffered stream. Small writes reach the
// underlying writer on Flush; large ones may go out as soon as the buffer
// fills. It is not safe for concurrent use.
type Writer struct {
	dst io.Writer
	bw  *bufio.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{dst: w, bw: bufio.NewWriter(w)}
}

// CheckString returns ErrStringTooLong if s cannot be written by WriteString.
func CheckString(s string) error {
	if modifiedUTF8Len(s) > MaxStringLength {
		return ErrStringTooLong
	}
	return nil
}

// CheckBlob returns ErrValueTooLarge if b cannot be written by WriteBlob.
func CheckBlob(b []byte) error {
	if len(b) > math.MaxInt32 {
		return ErrValueTooLarge
	}
	return nil
}

// CheckCount returns ErrBatchTooLarge if n does not fit the int32 count of a batch.
func CheckCount(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return ErrBatchTooLarge
	}
	return nil
}

// WriteString writes s as a u16 length followed by modified UTF-8.
func (w *Writer) WriteString(s string) error {
	n := modifiedUTF8Len(s)
	if n > MaxStringLength {
		return ErrStringTooLong
	}
	w.buf = binary.BigEndian.AppendUint16(w.buf[:0], uint16(n))
	w.buf = appendModifiedUTF8(w.buf, s)
	_, err := w.bw.Write(w.buf)
	return err
}

func (w *Writer) WriteInt32(v int32) error {
	w.buf = binary.BigEndian.AppendUint32(w.buf[:0], uint32(v))
	_, err := w.bw.Write(w.buf)
	return err
}

// WriteBlob writes an int32 length followed by b.
func (w *Writer) WriteBlob(b []byte) error {
	if err := CheckBlob(b); err != nil {
		return err
	}
	if err := w.WriteInt32(int32(len(b))); err != nil {
		return err
	}
	_, err := w.bw.Write(b)
	return err
}

// WriteMessage writes a status byte followed by text.
func (w *Writer) WriteMessage(status Status, text string) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if err := w.bw.WriteByte(byte(status)); err != nil {
		return err
	}
	return w.WriteString(text)
}

func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// Buffered returns the number of bytes written but not yet flushed.
func (w *Writer) Buffered() int {
	return w.bw.Buffered()
}

// Discard drops unflushed data so a half-encoded request never reaches the peer.
func (w *Writer) Discard() {
	w.bw.Reset(w.dst)
}
