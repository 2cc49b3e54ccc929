package parser

import (
	"bytes"
	"fmt"
)

var pdfHeader = []byte("%PDF-")

// pdfParser reads the header version, counts page objects and scans printable
// runs for billing fields. It does not decode content streams.
type pdfParser struct{}

func (pdfParser) Parse(data []byte) (Payload, error) {
	if !bytes.HasPrefix(data, pdfHeader) {
		return Payload{}, fmt.Errorf("pdf: missing %%PDF header")
	}
	version := pdfVersion(data)
	pages := pdfPageCount(data)

	p := Payload{
		DocType: "document",
		Meta: map[string]interface{}{
			"pdf_version": version,
			"pages":       pages,
		},
	}
	applyBillingFields(&p, asciiRuns(data, 4))
	return p, nil
}

func pdfVersion(data []byte) string {
	rest := data[len(pdfHeader):]
	end := 0
	for end < len(rest) && end < 8 {
		c := rest[end]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		end++
	}
	return string(rest[:end])
}

// pdfPageCount counts /Type /Page object markers. "/Type /Pages" (the page
// tree node) shares the prefix, so its occurrences are subtracted back out.
func pdfPageCount(data []byte) int {
	n := bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages"))
	n += bytes.Count(data, []byte("/Type/Page")) - bytes.Count(data, []byte("/Type/Pages"))
	if n < 0 {
		n = 0
	}
	return n
}
