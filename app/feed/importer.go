package feed

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ParseExclusionFile extracts item ids from an uploaded exclusion list. The
// format is chosen by the file extension: json, csv or txt.
func ParseExclusionFile(filename string, data []byte) ([]string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	switch ext {
	case "json":
		return parseJSONExclusions(data)
	case "csv", "txt":
		return parseCSVExclusions(data)
	default:
		return nil, &UnsupportedFormatError{Extension: ext}
	}
}

func parseJSONExclusions(data []byte) ([]string, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, NewValidationError("file", fmt.Sprintf("invalid JSON: %v", err))
	}

	var wrapped struct {
		ExcludedItemIDs []json.RawMessage `json:"excludedItemIds"`
	}
	var entries []json.RawMessage

	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, NewValidationError("file", fmt.Sprintf("invalid JSON array: %v", err))
		}
	case bytes.HasPrefix(trimmed, []byte("{")):
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, NewValidationError("file", fmt.Sprintf("invalid JSON object: %v", err))
		}
		if wrapped.ExcludedItemIDs == nil {
			return nil, NewValidationError("excludedItemIds", "JSON object has no excludedItemIds array")
		}
		entries = wrapped.ExcludedItemIDs
	default:
		return nil, NewValidationError("file", "JSON must be an array or an object with excludedItemIds")
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if id := jsonID(entry); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// jsonID accepts a string, a number or an object carrying an id field.
func jsonID(entry json.RawMessage) string {
	var s string
	if err := json.Unmarshal(entry, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(entry, &n); err == nil {
		return n.String()
	}

	var obj struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(entry, &obj); err == nil && obj.ID != nil {
		return jsonID(obj.ID)
	}

	return ""
}

func parseCSVExclusions(data []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var ids []string
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewValidationError("file", fmt.Sprintf("invalid CSV: %v", err))
		}

		if first {
			first = false
			if strings.Contains(strings.ToLower(strings.Join(record, ",")), "id") {
				continue
			}
		}

		if len(record) == 0 {
			continue
		}
		if id := strings.TrimSpace(record[0]); id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// ImportResult reports how an imported id list matched the current snapshot.
type ImportResult struct {
	Imported  int      `json:"imported"`
	Matched   int      `json:"matched"`
	Unmatched []string `json:"unmatched"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("imported %d, matched %d, unmatched %d", r.Imported, r.Matched, len(r.Unmatched))
}
