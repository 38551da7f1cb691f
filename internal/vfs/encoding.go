package vfs

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding represents a character encoding.
type Encoding string

const (
	// EncodingUTF8 is UTF-8 encoding (default).
	EncodingUTF8 Encoding = "utf-8"

	// EncodingUTF8BOM is UTF-8 encoding with BOM.
	EncodingUTF8BOM Encoding = "utf-8-bom"

	// EncodingUTF16LE is UTF-16 Little Endian with BOM.
	EncodingUTF16LE Encoding = "utf-16le"

	// EncodingUTF16BE is UTF-16 Big Endian with BOM.
	EncodingUTF16BE Encoding = "utf-16be"

	// EncodingUnknown indicates content that is neither valid UTF-8 nor
	// carries a recognized BOM.
	EncodingUnknown Encoding = "unknown"
)

// BOM (Byte Order Mark) constants
var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectEncoding attempts to detect the encoding of file content.
// It checks for BOM markers first, then validates UTF-8.
func DetectEncoding(content []byte) Encoding {
	if len(content) == 0 {
		return EncodingUTF8
	}

	if bytes.HasPrefix(content, bomUTF8) {
		return EncodingUTF8BOM
	}
	if bytes.HasPrefix(content, bomUTF16LE) {
		return EncodingUTF16LE
	}
	if bytes.HasPrefix(content, bomUTF16BE) {
		return EncodingUTF16BE
	}

	if utf8.Valid(content) {
		return EncodingUTF8
	}

	return EncodingUnknown
}

// Decode converts raw file bytes to UTF-8 text for editing.
// UTF-16 content is transformed; BOMs are stripped. The returned encoding
// lets Encode restore the original representation byte-for-byte for
// unmodified text.
func Decode(content []byte) ([]byte, Encoding, error) {
	enc := DetectEncoding(content)

	switch enc {
	case EncodingUTF8:
		return content, enc, nil
	case EncodingUTF8BOM:
		return content[len(bomUTF8):], enc, nil
	case EncodingUTF16LE, EncodingUTF16BE:
		// ExpectBOM consumes the marker during decoding.
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		text, _, err := transform.Bytes(dec, content)
		if err != nil {
			return nil, enc, err
		}
		return text, enc, nil
	default:
		return content, EncodingUnknown, nil
	}
}

// Encode converts UTF-8 text back to the given encoding, restoring the
// BOM where the original carried one.
func Encode(text []byte, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingUTF8BOM:
		return append(append([]byte{}, bomUTF8...), text...), nil
	case EncodingUTF16LE:
		e := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		out, _, err := transform.Bytes(e, text)
		return out, err
	case EncodingUTF16BE:
		e := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
		out, _, err := transform.Bytes(e, text)
		return out, err
	default:
		return text, nil
	}
}

// IsBinary attempts to detect if content is binary (not text).
// Uses heuristics: presence of null bytes outside a UTF-16 stream, high
// ratio of non-printable characters.
func IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	// UTF-16 text is full of null bytes but is not binary.
	if bytes.HasPrefix(content, bomUTF16LE) || bytes.HasPrefix(content, bomUTF16BE) {
		return false
	}

	// Check first 8KB at most
	checkLen := len(content)
	if checkLen > 8192 {
		checkLen = 8192
	}

	sample := content[:checkLen]

	// Null bytes are a strong indicator of binary
	if bytes.Contains(sample, []byte{0}) {
		return true
	}

	// Count non-text bytes (control characters except tab, newline, carriage return)
	nonText := 0
	for _, b := range sample {
		if b < 32 && b != '\t' && b != '\n' && b != '\r' {
			nonText++
		}
	}

	// If more than 10% are non-text, consider it binary
	return float64(nonText)/float64(checkLen) > 0.1
}

// CountLines counts the number of lines in content.
func CountLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}

	lines := 1
	for i := 0; i < len(content); i++ {
		if content[i] == '\r' {
			lines++
			if i+1 < len(content) && content[i+1] == '\n' {
				i++ // Skip the \n in CRLF
			}
		} else if content[i] == '\n' {
			lines++
		}
	}

	// Don't count trailing newline as extra line
	lastByte := content[len(content)-1]
	if lastByte == '\n' || lastByte == '\r' {
		lines--
	}

	return lines
}
