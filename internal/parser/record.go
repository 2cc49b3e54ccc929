package parser

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// jsonParser decodes the document and lifts well-known top-level fields from
// object roots. Array roots are summarized by length only.
type jsonParser struct{}

func (jsonParser) Parse(data []byte) (Payload, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Payload{}, fmt.Errorf("json: decode: %w", err)
	}
	p := Payload{DocType: "record", Meta: map[string]interface{}{}}
	switch v := doc.(type) {
	case map[string]interface{}:
		p.Meta["keys"] = len(v)
		if dt := liftString(v, "doc_type"); dt != "" {
			p.DocType = dt
		}
		p.InvoiceNo = liftString(v, "invoice_no")
		p.Amount = liftString(v, "amount")
		p.DueDate = liftString(v, "due_date")
	case []interface{}:
		p.Meta["items"] = len(v)
	default:
		p.Meta["scalar"] = true
	}
	if p.InvoiceNo != "" && p.DocType == "record" {
		p.DocType = "invoice"
	}
	return p, nil
}

func liftString(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// xmlParser walks the token stream, recording the root element and the text
// content of billing-named elements anywhere in the tree.
type xmlParser struct{}

func (xmlParser) Parse(data []byte) (Payload, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	p := Payload{DocType: "record", Meta: map[string]interface{}{}}
	elements := 0
	var root string
	var field string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Payload{}, fmt.Errorf("xml: decode: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			elements++
			if root == "" {
				root = t.Name.Local
			}
			field = normalizeFieldName(t.Name.Local)
		case xml.EndElement:
			field = ""
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch field {
			case "invoiceno":
				if p.InvoiceNo == "" {
					p.InvoiceNo = text
				}
			case "amount", "total":
				if p.Amount == "" {
					p.Amount = text
				}
			case "duedate":
				if p.DueDate == "" {
					p.DueDate = text
				}
			case "doctype":
				p.DocType = text
			}
		}
	}
	if elements == 0 {
		return Payload{}, fmt.Errorf("xml: no elements")
	}
	p.Meta["root"] = root
	p.Meta["elements"] = elements
	if p.InvoiceNo != "" && p.DocType == "record" {
		p.DocType = "invoice"
	}
	return p, nil
}

// csvParser treats the first row as the header and lifts billing columns
// from the first data row.
type csvParser struct{}

func (csvParser) Parse(data []byte) (Payload, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return Payload{}, fmt.Errorf("csv: decode: %w", err)
	}
	if len(records) == 0 {
		return Payload{}, fmt.Errorf("csv: empty document")
	}
	header := records[0]
	p := Payload{
		DocType: "table",
		Meta: map[string]interface{}{
			"columns": len(header),
			"rows":    len(records) - 1,
		},
	}
	if len(records) > 1 {
		row := records[1]
		for i, name := range header {
			if i >= len(row) || row[i] == "" {
				continue
			}
			switch normalizeFieldName(name) {
			case "invoiceno":
				p.InvoiceNo = row[i]
			case "amount", "total":
				p.Amount = row[i]
			case "duedate":
				p.DueDate = row[i]
			}
		}
	}
	if p.InvoiceNo != "" {
		p.DocType = "invoice"
	}
	return p, nil
}

// normalizeFieldName lowercases and strips separators so "Invoice_No",
// "invoice-no" and "InvoiceNo" all compare equal.
func normalizeFieldName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "")
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, " ", "")
	return name
}
