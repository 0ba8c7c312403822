package protocol

import (
	"unicode/utf16"
	"unicode/utf8"
)

// MaxStringLength is the largest encoded string the u16 length prefix can describe.
const MaxStringLength = 1<<16 - 1

// appendModifiedUTF8 encodes s the way java.io.DataOutput.writeUTF does:
// NUL becomes the two-byte form C0 80 and runes outside the BMP are written
// as a UTF-16 surrogate pair, each half in three-byte form.
func appendModifiedUTF8(dst []byte, s string) []byte {
	for _, r := range s {
		switch {
		case r == 0:
			dst = append(dst, 0xC0, 0x80)
		case r < 0x80:
			dst = append(dst, byte(r))
		case r < 0x800:
			dst = append(dst, 0xC0|byte(r>>6), 0x80|byte(r&0x3F))
		case r <= 0xFFFF:
			dst = appendThreeByte(dst, r)
		default:
			hi, lo := utf16.EncodeRune(r)
			dst = appendThreeByte(dst, hi)
			dst = appendThreeByte(dst, lo)
		}
	}
	return dst
}

func appendThreeByte(dst []byte, r rune) []byte {
	return append(dst,
		0xE0|byte(r>>12),
		0x80|byte((r>>6)&0x3F),
		0x80|byte(r&0x3F),
	)
}

// modifiedUTF8Len returns the encoded size of s without allocating.
func modifiedUTF8Len(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case r == 0:
			n += 2
		case r < 0x80:
			n++
		case r < 0x800:
			n += 2
		case r <= 0xFFFF:
			n += 3
		default:
			n += 6
		}
	}
	return n
}

// decodeModifiedUTF8 reverses appendModifiedUTF8. Unpaired surrogates decode
// to utf8.RuneError.
func decodeModifiedUTF8(b []byte) (string, error) {
	// Fast path for plain ASCII, the common case for keys and commands.
	ascii := true
	for _, c := range b {
		if c == 0 || c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b), nil
	}

	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", ErrMalformedString
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", ErrMalformedString
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", ErrMalformedString
		}
	}

	runes := utf16.Decode(units)
	out := make([]byte, 0, len(b))
	for _, r := range runes {
		out = utf8.AppendRune(out, r)
	}
	return string(out), nil
}
