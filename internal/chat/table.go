package chat

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
)

// NoDataPlaceholder stands in for the data table when no rows were sent.
const NoDataPlaceholder = "No additional data context provided."

// Cell is one key/value pair of a data row.
type Cell struct {
	Key   string
	Value json.RawMessage
}

// ScalarColumn is the column name given to data rows that are not objects.
const ScalarColumn = "value"

// Row is a JSON object whose key order is preserved, so the rendered table
// columns follow the order the client sent.
type Row []Cell

// UnmarshalJSON decodes an object, keeping the first position of each key
// and the last value for duplicates. Any other JSON value becomes a single
// cell under ScalarColumn.
func (r *Row) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return errors.New("empty row")
	}
	if trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return errors.New("row is not valid JSON")
		}
		*r = Row{{Key: ScalarColumn, Value: append(json.RawMessage(nil), trimmed...)}}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return err
	}

	row := Row{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		if i, ok := index[key]; ok {
			row[i].Value = value
			continue
		}
		index[key] = len(row)
		row = append(row, Cell{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = row
	return nil
}

// MarshalJSON writes the row back as an object in key order.
func (r Row) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(c.Key)
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		if len(c.Value) == 0 {
			b.WriteString("null")
		} else {
			b.Write(c.Value)
		}
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// Keys returns the column names in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, c := range r {
		keys[i] = c.Key
	}
	return keys
}

// Text returns the cell rendered for the table, or "" when the key is missing.
func (r Row) Text(key string) string {
	for _, c := range r {
		if c.Key == key {
			return cellText(c.Value)
		}
	}
	return ""
}

// cellText renders a JSON value as table text: strings unquoted, numbers
// verbatim, true as "1", false and null as "", nested values as compact JSON.
func cellText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	case 'n':
		return ""
	case 't':
		return "1"
	case 'f':
		return ""
	case '{', '[':
		var b bytes.Buffer
		if err := json.Compact(&b, raw); err == nil {
			return b.String()
		}
	}
	return string(raw)
}

// RenderTable writes rows as CSV with a header taken from the first row's
// keys. Later rows missing a column get an empty cell; extra keys are ignored.
func RenderTable(rows []Row) string {
	if len(rows) == 0 {
		return NoDataPlaceholder
	}

	headers := rows[0].Keys()
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Write(headers) //nolint:errcheck // strings.Builder never fails; flushed below
	for _, row := range rows {
		record := make([]string, len(headers))
		for i, h := range headers {
			record[i] = row.Text(h)
		}
		w.Write(record) //nolint:errcheck // see above
	}
	w.Flush()
	return b.String()
}
