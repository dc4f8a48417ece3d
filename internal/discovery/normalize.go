package discovery

import (
	"bytes"
	"encoding/json"
	"fmt"

	"voyago-client/internal/seed"
)

// envelope is the wrapped response form: {"data": <array|object>, "meta"?: {...}}.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// NormalizeRecords turns a response body into a uniform record list. The
// accepted shapes, tried in order:
//
//  1. a bare JSON array of records
//  2. an envelope {"data": [...]} with an array payload
//  3. an envelope {"data": {...}} with a single-object payload
//  4. a bare JSON object, treated as a single record
//
// Anything else is a malformed response.
func NormalizeRecords(body []byte) ([]seed.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return []seed.Record{}, nil
	}

	if trimmed[0] == '[' {
		return decodeList(trimmed)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Data != nil {
		inner := bytes.TrimSpace(env.Data)
		if len(inner) > 0 && inner[0] == '[' {
			return decodeList(inner)
		}
		return decodeSingle(inner)
	}

	return decodeSingle(trimmed)
}

func decodeList(data []byte) ([]seed.Record, error) {
	var records []seed.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode record list: %w", err)
	}
	if records == nil {
		records = []seed.Record{}
	}
	return records, nil
}

func decodeSingle(data []byte) ([]seed.Record, error) {
	var record seed.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if record == nil {
		return []seed.Record{}, nil
	}
	return []seed.Record{record}, nil
}
