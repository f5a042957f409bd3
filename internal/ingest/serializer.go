package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeRecord renders a record as pretty-printed UTF-8 JSON. Every
// field is emitted even when empty: the stored object doubles as the
// audit artifact read back by the simplification endpoint, so the
// shape must be stable regardless of which fields the feed supplied.
func EncodeRecord(record ArticleRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return nil, fmt.Errorf("encode record %q: %w", record.Identifier, err)
	}
	return buf.Bytes(), nil
}

// DecodeRecord parses a stored article object back into a record.
func DecodeRecord(data []byte) (ArticleRecord, error) {
	var record ArticleRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return ArticleRecord{}, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}

// EncodeSummary renders a run summary with the same formatting rules
// as article records.
func EncodeSummary(summary RunSummary) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	return buf.Bytes(), nil
}
