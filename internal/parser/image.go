package parser

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

// pngParser reads dimensions and pixel format from the IHDR chunk, which the
// PNG format requires to come first.
type pngParser struct{}

func (pngParser) Parse(data []byte) (Payload, error) {
	if len(data) < 26 || !bytes.HasPrefix(data, pngSignature) {
		return Payload{}, fmt.Errorf("png: missing signature")
	}
	if !bytes.Equal(data[12:16], []byte("IHDR")) {
		return Payload{}, fmt.Errorf("png: first chunk is not IHDR")
	}
	width := binary.BigEndian.Uint32(data[16:20])
	height := binary.BigEndian.Uint32(data[20:24])
	return Payload{
		DocType: "image",
		Meta: map[string]interface{}{
			"format":    "png",
			"width":     int(width),
			"height":    int(height),
			"bit_depth": int(data[24]),
		},
	}, nil
}

// jpegParser walks marker segments until it hits a start-of-frame, which
// carries the image dimensions.
type jpegParser struct{}

func (jpegParser) Parse(data []byte) (Payload, error) {
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 {
		return Payload{}, fmt.Errorf("jpeg: missing SOI marker")
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xff {
			return Payload{}, fmt.Errorf("jpeg: corrupt marker stream at offset %d", i)
		}
		marker := data[i+1]
		// Fill bytes and standalone markers carry no length field.
		if marker == 0xff {
			i++
			continue
		}
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd9) {
			i += 2
			continue
		}
		segLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if segLen < 2 {
			return Payload{}, fmt.Errorf("jpeg: invalid segment length at offset %d", i)
		}
		if isJPEGFrameMarker(marker) {
			if i+9 > len(data) {
				return Payload{}, fmt.Errorf("jpeg: truncated frame header")
			}
			height := binary.BigEndian.Uint16(data[i+5 : i+7])
			width := binary.BigEndian.Uint16(data[i+7 : i+9])
			return Payload{
				DocType: "image",
				Meta: map[string]interface{}{
					"format": "jpeg",
					"width":  int(width),
					"height": int(height),
				},
			}, nil
		}
		i += 2 + segLen
	}
	return Payload{}, fmt.Errorf("jpeg: no frame header found")
}

// isJPEGFrameMarker reports whether marker is one of the SOF0..SOF15 family.
// C4, C8 and CC sit in the same range but are tables, not frames.
func isJPEGFrameMarker(marker byte) bool {
	if marker < 0xc0 || marker > 0xcf {
		return false
	}
	return marker != 0xc4 && marker != 0xc8 && marker != 0xcc
}
