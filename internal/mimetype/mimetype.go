// Package mimetype detects content types from leading bytes.
//
// Detection is magic-number based; the client-declared Content-Type is
// advisory and never consulted. The filename participates only to
// disambiguate OOXML spreadsheets from plain zip archives when the central
// directory marker is out of reach of the sniffed prefix.
package mimetype

import (
	"bytes"
	"unicode/utf8"
)

const (
	PDF  = "application/pdf"
	PNG  = "image/png"
	JPEG = "image/jpeg"
	XLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ZIP  = "application/zip"
	JSON = "application/json"
	XML  = "application/xml"
	CSV  = "text/csv"

	Binary = "application/octet-stream"
)

// SniffLen is the number of leading bytes Detect needs for a stable verdict.
const SniffLen = 512

var (
	magicPDF  = []byte("%PDF-")
	magicPNG  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicZIP  = []byte{'P', 'K', 0x03, 0x04}

	ooxmlMarker = []byte("[Content_Types].xml")
)

// Detect returns the MIME type for the given content prefix. head should
// carry at least SniffLen bytes when available; shorter inputs are sniffed
// as-is.
func Detect(head []byte, filename string) string {
	switch {
	case bytes.HasPrefix(head, magicPDF):
		return PDF
	case bytes.HasPrefix(head, magicPNG):
		return PNG
	case bytes.HasPrefix(head, magicJPEG):
		return JPEG
	case bytes.HasPrefix(head, magicZIP):
		return detectZip(head, filename)
	}

	trimmed := bytes.TrimLeft(head, " \t\r\n")
	switch {
	case looksLikeJSON(trimmed):
		return JSON
	case looksLikeXML(trimmed):
		return XML
	case looksLikeCSV(head):
		return CSV
	}
	return Binary
}

// detectZip narrows a zip container down to XLSX. OOXML archives store
// [Content_Types].xml as their first entry, so its name appears in the first
// local file header, within the sniffed prefix.
func detectZip(head []byte, filename string) string {
	if bytes.Contains(head, ooxmlMarker) {
		return XLSX
	}
	if hasSuffixFold(filename, ".xlsx") {
		return XLSX
	}
	return ZIP
}

func looksLikeJSON(trimmed []byte) bool {
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '{', '[':
		return true
	}
	return false
}

func looksLikeXML(trimmed []byte) bool {
	if bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return true
	}
	if len(trimmed) >= 2 && trimmed[0] == '<' && isASCIILetter(trimmed[1]) {
		return true
	}
	return false
}

// looksLikeCSV accepts printable text whose first lines carry a consistent
// non-zero comma count. Single-line inputs qualify with one comma or more.
func looksLikeCSV(head []byte) bool {
	if len(head) == 0 || !utf8.Valid(head) {
		return false
	}
	lines := bytes.SplitN(head, []byte("\n"), 4)
	commas := -1
	checked := 0
	for i, line := range lines {
		// The tail of the sniffed prefix is usually a truncated line; only
		// judge it when it is the sole line we have.
		if i == len(lines)-1 && i > 0 {
			break
		}
		line = bytes.TrimSuffix(line, []byte("\r"))
		if !printableASCII(line) {
			return false
		}
		n := bytes.Count(line, []byte(","))
		if n == 0 {
			return false
		}
		if commas == -1 {
			commas = n
		} else if n != commas {
			return false
		}
		checked++
	}
	return checked > 0
}

func printableASCII(line []byte) bool {
	for _, b := range line {
		if b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return false
		}
	}
	return true
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	for i := 0; i < len(suffix); i++ {
		a, b := tail[i], suffix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}

// Extension returns the canonical file extension (with dot) for a detected
// MIME type, used by the content store to name blobs.
func Extension(mime string) string {
	switch mime {
	case PDF:
		return ".pdf"
	case PNG:
		return ".png"
	case JPEG:
		return ".jpg"
	case XLSX:
		return ".xlsx"
	case ZIP:
		return ".zip"
	case JSON:
		return ".json"
	case XML:
		return ".xml"
	case CSV:
		return ".csv"
	default:
		return ".bin"
	}
}
