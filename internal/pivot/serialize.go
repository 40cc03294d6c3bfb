// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package pivot

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrNonFinite is returned when a table holds NaN or an infinity.
var ErrNonFinite = errors.New("pivot: non-finite value")

// MarshalJSON writes the table as an array of records whose keys follow
// ColumnNames. Null cells are written as null. Output for equal tables is
// byte-identical.
func (t Table) MarshalJSON() ([]byte, error) {
	columns := t.ColumnNames()

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')

			v := Text(row.Label)
			if col != t.Label || t.Label == "" {
				v = row.Get(col)
			}
			if err := writeValue(&buf, v); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, col, err)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value) error {
	if !v.finite() {
		return ErrNonFinite
	}
	var (
		b   []byte
		err error
	)
	switch v.Kind {
	case KindNumber:
		b, err = json.Marshal(v.Num)
	case KindText:
		b, err = json.Marshal(v.Str)
	default:
		b = []byte("null")
	}
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
