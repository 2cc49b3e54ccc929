package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Cap on decompressed bytes read from any single archive part, so a
// crafted workbook cannot balloon past the raw-size admission check.
const maxXLSXPartBytes = 4 << 20

// xlsxParser opens the OOXML container, lists sheet names from the workbook
// part and scans the shared-string table for billing fields. Cell-level
// decoding is out of scope.
type xlsxParser struct{}

func (xlsxParser) Parse(data []byte) (Payload, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Payload{}, fmt.Errorf("xlsx: open container: %w", err)
	}

	sheets, err := xlsxSheetNames(zr)
	if err != nil {
		return Payload{}, err
	}
	strs, err := xlsxSharedStrings(zr)
	if err != nil {
		return Payload{}, err
	}

	p := Payload{
		DocType: "spreadsheet",
		Meta: map[string]interface{}{
			"sheets":         sheets,
			"shared_strings": len(strs),
		},
	}
	applyBillingFields(&p, strings.Join(strs, "\n"))
	return p, nil
}

func xlsxPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("xlsx: open part %s: %w", name, err)
		}
		defer rc.Close()
		raw, err := io.ReadAll(io.LimitReader(rc, maxXLSXPartBytes))
		if err != nil {
			return nil, fmt.Errorf("xlsx: read part %s: %w", name, err)
		}
		return raw, nil
	}
	return nil, nil
}

func xlsxSheetNames(zr *zip.Reader) ([]string, error) {
	raw, err := xlsxPart(zr, "xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("xlsx: workbook part missing")
	}
	var names []string
	dec := xml.NewDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xlsx: decode workbook: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "sheet" {
			continue
		}
		for _, attr := range se.Attr {
			if attr.Name.Local == "name" {
				names = append(names, attr.Value)
			}
		}
	}
	return names, nil
}

func xlsxSharedStrings(zr *zip.Reader) ([]string, error) {
	raw, err := xlsxPart(zr, "xl/sharedStrings.xml")
	if err != nil {
		return nil, err
	}
	// The shared-string part is optional; numeric-only workbooks omit it.
	if raw == nil {
		return nil, nil
	}
	var strs []string
	dec := xml.NewDecoder(bytes.NewReader(raw))
	inT := 0
	var cur strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xlsx: decode shared strings: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inT++
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inT--
			}
			if t.Name.Local == "si" && cur.Len() > 0 {
				strs = append(strs, cur.String())
				cur.Reset()
			}
		case xml.CharData:
			if inT > 0 {
				cur.Write(t)
			}
		}
	}
	if cur.Len() > 0 {
		strs = append(strs, cur.String())
	}
	return strs, nil
}
