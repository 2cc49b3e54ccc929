// Package parser turns raw document bytes into structured payloads.
//
// Parsers are pure functions over bytes: no I/O, no clock, no randomness, so
// the same input always yields the same payload. Routing goes through the
// DocKind sum type; every admissible MIME maps to exactly one kind and one
// parser capability. Extraction depth is deliberately shallow (billing
// fields and structural metadata): there is no OCR and no layout analysis.
package parser

import (
	"github.com/docflow-io/docflow/internal/mimetype"
)

// DocKind identifies the document family a parser understands.
type DocKind string

const (
	KindPDF  DocKind = "pdf"
	KindPNG  DocKind = "png"
	KindJPEG DocKind = "jpeg"
	KindXLSX DocKind = "xlsx"
	KindJSON DocKind = "json"
	KindXML  DocKind = "xml"
	KindCSV  DocKind = "csv"
)

// KindForMIME routes a detected MIME type to its DocKind. The second return
// is false for types no parser understands.
func KindForMIME(mime string) (DocKind, bool) {
	switch mime {
	case mimetype.PDF:
		return KindPDF, true
	case mimetype.PNG:
		return KindPNG, true
	case mimetype.JPEG:
		return KindJPEG, true
	case mimetype.XLSX:
		return KindXLSX, true
	case mimetype.JSON:
		return KindJSON, true
	case mimetype.XML:
		return KindXML, true
	case mimetype.CSV:
		return KindCSV, true
	}
	return "", false
}

// Payload is the structured result of one parse. DocType is always set; the
// billing fields are present only when the document carries them.
type Payload struct {
	DocType   string                 `json:"doc_type"`
	InvoiceNo string                 `json:"invoice_no,omitempty"`
	Amount    string                 `json:"amount,omitempty"`
	DueDate   string                 `json:"due_date,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// Summary returns the billing fields present in the payload, for the
// InboxItemParsed event.
func (p Payload) Summary() map[string]interface{} {
	s := make(map[string]interface{})
	if p.InvoiceNo != "" {
		s["invoice_no"] = p.InvoiceNo
	}
	if p.Amount != "" {
		s["amount"] = p.Amount
	}
	if p.DueDate != "" {
		s["due_date"] = p.DueDate
	}
	if len(s) == 0 {
		return nil
	}
	return s
}

// Parser extracts a Payload from document bytes.
type Parser interface {
	Parse(data []byte) (Payload, error)
}

// ForKind returns the parser capability for a kind. The second return is
// false for unknown kinds.
func ForKind(kind DocKind) (Parser, bool) {
	switch kind {
	case KindPDF:
		return pdfParser{}, true
	case KindPNG:
		return pngParser{}, true
	case KindJPEG:
		return jpegParser{}, true
	case KindXLSX:
		return xlsxParser{}, true
	case KindJSON:
		return jsonParser{}, true
	case KindXML:
		return xmlParser{}, true
	case KindCSV:
		return csvParser{}, true
	}
	return nil, false
}
