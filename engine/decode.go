package engine

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// pdfDataURIPrefix is the recognized data-URI prefix on base64 payloads.
// Its absence is not an error.
const pdfDataURIPrefix = "data:application/pdf;base64,"

// DecodePDFBase64 normalizes a base64 payload into raw PDF bytes,
// stripping the data-URI prefix when present. Malformed base64 or an
// empty payload is a client fault.
func DecodePDFBase64(payload string) ([]byte, error) {
	payload = strings.TrimPrefix(payload, pdfDataURIPrefix)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty base64 payload", ErrInvalidInput)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed base64: %v", ErrInvalidInput, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: decoded payload is empty", ErrInvalidInput)
	}
	return data, nil
}
