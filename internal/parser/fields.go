package parser

import (
	"regexp"
	"strings"
)

// Billing-field extraction shared by the text-bearing parsers. First match
// wins; the regexes are anchored on label words so arbitrary numbers in the
// document body do not get picked up.
var (
	invoiceNoRe = regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#)?\s*[:#-]?\s*([A-Z]{0,4}-?\d{3,}[A-Z0-9-]*)`)
	amountRe    = regexp.MustCompile(`(?i)(?:total|amount)(?:\s+due)?\s*[:=]?\s*\$?\s*(\d[\d,]*(?:\.\d{1,2})?)`)
	dueDateRe   = regexp.MustCompile(`(?i)due\s*(?:date|by|on)?\s*[:=]?\s*(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})`)
)

// applyBillingFields scans text for invoice fields and writes any found into
// p. Finding an invoice number upgrades DocType to "invoice".
func applyBillingFields(p *Payload, text string) {
	if m := invoiceNoRe.FindStringSubmatch(text); m != nil {
		p.InvoiceNo = m[1]
		p.DocType = "invoice"
	}
	if m := amountRe.FindStringSubmatch(text); m != nil {
		p.Amount = strings.ReplaceAll(m[1], ",", "")
	}
	if m := dueDateRe.FindStringSubmatch(text); m != nil {
		p.DueDate = m[1]
	}
}

// asciiRuns extracts printable ASCII runs of at least min bytes from data,
// joined by newlines. Good enough to surface labelled fields from formats
// that interleave text with binary structure.
func asciiRuns(data []byte, min int) string {
	var b strings.Builder
	start := -1
	flush := func(end int) {
		if start >= 0 && end-start >= min {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.Write(data[start:end])
		}
		start = -1
	}
	for i, c := range data {
		if c >= 0x20 && c < 0x7f {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(data))
	return b.String()
}
