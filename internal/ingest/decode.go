package ingest

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeText normalizes upload bytes to UTF-8. Spreadsheet exports are the
// common source here: a UTF-8 BOM is stripped, and payloads that are not
// valid UTF-8 are re-decoded as Windows-1252 before giving up.
func decodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("undecodable text encoding: %w", err)
	}
	return string(decoded), nil
}
