// Package snapshot reads and writes the column-oriented JSON mirror of the
// shipping_costs table.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/bher20/shipratemanager/pkg/fileutil"
	"github.com/bher20/shipratemanager/pkg/shipping"
)

const lastChangedKey = "last_changed"

var ErrNoSnapshot = errors.New("snapshot not found")

// Document maps each carrier to its costs, index-aligned with desi, plus the
// timestamp of the source document.
type Document struct {
	Costs       map[string][]float64
	LastChanged string
}

// FromTable transposes a row-major table into a Document.
func FromTable(t shipping.Table, lastChanged string) Document {
	return Document{Costs: t.Columns(), LastChanged: lastChanged}
}

// Table rebuilds the row-major form. Desi values are the list positions.
func (d Document) Table() shipping.Table {
	n := d.Len()
	out := make(shipping.Table, n)
	for r := range out {
		out[r].Desi = r
	}
	for i, key := range shipping.CarrierKeys() {
		for r, v := range d.Costs[key] {
			if r < n {
				out[r].Costs[i] = v
			}
		}
	}
	return out
}

// Len returns the length of the longest carrier list.
func (d Document) Len() int {
	n := 0
	for _, col := range d.Costs {
		if len(col) > n {
			n = len(col)
		}
	}
	return n
}

// MarshalJSON emits carriers in column order followed by last_changed.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, key := range shipping.CarrierKeys() {
		col := d.Costs[key]
		if col == nil {
			col = []float64{}
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(col)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		buf.WriteByte(',')
	}
	lc, err := json.Marshal(d.LastChanged)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"` + lastChangedKey + `":`)
	buf.Write(lc)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Costs = make(map[string][]float64, shipping.NumCarriers)
	for _, key := range shipping.CarrierKeys() {
		msg, ok := raw[key]
		if !ok {
			continue
		}
		var col []float64
		if err := json.Unmarshal(msg, &col); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		d.Costs[key] = col
	}
	if msg, ok := raw[lastChangedKey]; ok {
		if err := json.Unmarshal(msg, &d.LastChanged); err != nil {
			return fmt.Errorf("decode %s: %w", lastChangedKey, err)
		}
	}
	return nil
}

// Encode renders the document with a four-space indent.
func Encode(d Document) ([]byte, error) {
	compact, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Write replaces the file at path with the encoded document.
func Write(path string, d Document) error {
	data, err := Encode(d)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := fileutil.WriteFileAtomically(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// Read loads the document at path. A missing file yields ErrNoSnapshot.
func Read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, ErrNoSnapshot
		}
		return Document{}, fmt.Errorf("read snapshot: %w", err)
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return d, nil
}
