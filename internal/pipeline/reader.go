package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ReadCSV loads a delimited text file into records. Headers are cleaned
// (trimmed, quotes stripped) or replaced positionally by fmt.Renames. Cells in
// fmt.NumericColumns that fail to parse as numbers are stored as nil and
// counted in the returned dropped total; the row itself is kept.
func ReadCSV(path string, format Format) ([]Record, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open delimited file: %w", err)
	}
	if format.Latin1Fallback && !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to decode latin1 file: %w", err)
		}
		data = decoded
	}

	csvReader := csv.NewReader(bytes.NewReader(data))
	csvReader.Comma = format.comma()
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1

	headers, err := csvReader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	headers = cleanHeaders(headers, format.Renames)

	numeric := make(map[string]bool, len(format.NumericColumns))
	for _, col := range format.NumericColumns {
		numeric[col] = true
	}
	raw := make(map[string]bool, len(format.RawColumns))
	for _, col := range format.RawColumns {
		raw[col] = true
	}

	var records []Record
	dropped := 0
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, dropped, fmt.Errorf("read error at row %d: %w", len(records)+2, err)
		}

		rec := make(Record, len(headers))
		for i, h := range headers {
			if i >= len(row) {
				break
			}
			if raw[h] {
				rec[h] = row[i]
				continue
			}
			if numeric[h] {
				if strings.TrimSpace(row[i]) == "" {
					rec[h] = nil
					continue
				}
				if v, ok := format.ParseNumber(row[i]); ok {
					rec[h] = v
				} else {
					rec[h] = nil
					dropped++
				}
				continue
			}
			rec[h] = format.ParseValue(row[i])
		}
		records = append(records, rec)
	}

	return records, dropped, nil
}

// cleanHeaders trims whitespace and strips quotes; renames, when given,
// replace headers positionally (extra source columns keep their own name).
func cleanHeaders(headers, renames []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		clean := strings.TrimSpace(h)
		clean = strings.ReplaceAll(clean, `"`, "")
		if i < len(renames) {
			clean = renames[i]
		}
		out[i] = clean
	}
	return out
}
