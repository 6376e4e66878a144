package extract

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"cvanalyzer/internal/errors"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText accepts UTF-8 (with or without BOM) and BOM-marked UTF-16.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeUTF16(data, unicode.LittleEndian)
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeUTF16(data, unicode.BigEndian)
	}

	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", errors.NewFormatError(errors.ErrCodeUnsupportedEncoding,
			"text file is not valid UTF-8 or UTF-16", nil)
	}
	return string(data), nil
}

func decodeUTF16(data []byte, order unicode.Endianness) (string, error) {
	if len(data)%2 != 0 {
		return "", errors.NewFormatError(errors.ErrCodeUnsupportedEncoding,
			"text file has a UTF-16 byte order mark but an odd length", nil)
	}
	decoder := unicode.UTF16(order, unicode.ExpectBOM).NewDecoder()
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", errors.NewFormatError(errors.ErrCodeUnsupportedEncoding, "failed to decode UTF-16 text", err)
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", errors.NewFormatError(errors.ErrCodeUnsupportedEncoding,
			"text file contains invalid UTF-16 sequences", nil)
	}
	return string(out), nil
}
