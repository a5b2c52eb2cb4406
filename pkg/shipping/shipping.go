// Package shipping holds the carrier list and the rate-table types shared by
// the extractor, the stores and the HTTP API.
package shipping

import "errors"

// NumCarriers is the number of price columns in every row of the rate table.
const NumCarriers = 10

// Carrier identifies one price column.
type Carrier struct {
	// Key is the column name used in the database and the JSON snapshot.
	Key string `json:"key"`
	// Name is the human-readable carrier name.
	Name string `json:"name"`
}

// carriers is in document column order. Column order in the database and
// key order in the JSON snapshot both follow it.
var carriers = [NumCarriers]Carrier{
	{Key: "aras", Name: "Aras Kargo"},
	{Key: "mng", Name: "MNG Kargo"},
	{Key: "ptt", Name: "PTT Kargo"},
	{Key: "sendeo", Name: "Sendeo"},
	{Key: "surat", Name: "Sürat Kargo"},
	{Key: "tex", Name: "Trendyol Express"},
	{Key: "yurtici", Name: "Yurtiçi Kargo"},
	{Key: "borusan", Name: "Borusan Lojistik"},
	{Key: "ceva", Name: "CEVA Lojistik"},
	{Key: "horoz", Name: "Horoz Lojistik"},
}

var ErrUnknownCarrier = errors.New("unknown carrier")

// Carriers returns the carriers in column order.
func Carriers() []Carrier {
	out := make([]Carrier, NumCarriers)
	copy(out, carriers[:])
	return out
}

// CarrierKeys returns the carrier column names in column order.
func CarrierKeys() []string {
	keys := make([]string, NumCarriers)
	for i, c := range carriers {
		keys[i] = c.Key
	}
	return keys
}

// CarrierIndex returns the column index of a carrier key.
func CarrierIndex(key string) (int, error) {
	for i, c := range carriers {
		if c.Key == key {
			return i, nil
		}
	}
	return -1, ErrUnknownCarrier
}

// Row is one line of the rate table: a desi value and one cost per carrier.
type Row struct {
	Desi  int                  `json:"desi"`
	Costs [NumCarriers]float64 `json:"costs"`
}

// Values returns the row as {desi, cost_1..cost_10}, the shape used for
// positional inserts.
func (r Row) Values() []any {
	out := make([]any, 0, NumCarriers+1)
	out = append(out, r.Desi)
	for _, c := range r.Costs {
		out = append(out, c)
	}
	return out
}

// Table is an ordered list of rows, desi ascending.
type Table []Row

// Column returns the costs of one carrier, index-aligned with the rows.
func (t Table) Column(carrier string) ([]float64, error) {
	i, err := CarrierIndex(carrier)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(t))
	for r, row := range t {
		out[r] = row.Costs[i]
	}
	return out, nil
}

// Columns transposes the table into carrier key -> costs.
func (t Table) Columns() map[string][]float64 {
	out := make(map[string][]float64, NumCarriers)
	for i, c := range carriers {
		col := make([]float64, len(t))
		for r, row := range t {
			col[r] = row.Costs[i]
		}
		out[c.Key] = col
	}
	return out
}
