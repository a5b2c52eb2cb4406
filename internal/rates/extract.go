package rates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

// DefaultRowLimit is the number of rows kept from the rate document. Past
// row 100 the document renders empty cells whose neighbours still match the
// price pattern.
const DefaultRowLimit = 101

var (
	ErrNoRows       = errors.New("no prices found in document")
	ErrMalformedRow = errors.New("malformed rate row")
)

// pricePattern matches decimal-comma prices such as "12,50".
var pricePattern = regexp.MustCompile(`\d+,\d{2}`)

var wholePrice = regexp.MustCompile(`^\d+,\d{2}$`)

// ExtractText opens the PDF at path and returns the plain text of every page,
// concatenated in page order.
func ExtractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract pdf text page %d: %w", i, err)
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// ParseTablePDF extracts text from the PDF at path and delegates to ParseTable.
func ParseTablePDF(path string, rowLimit int) (shipping.Table, error) {
	text, err := ExtractText(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(text, rowLimit)
}

// ParseTable scans text for prices, groups them ten per row, keeps the first
// rowLimit rows and assigns each its desi (the row index). A rowLimit of zero
// or less means DefaultRowLimit.
func ParseTable(text string, rowLimit int) (shipping.Table, error) {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}

	matches := pricePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil, ErrNoRows
	}

	groups := chunk(matches, shipping.NumCarriers)
	if len(groups) > rowLimit {
		groups = groups[:rowLimit]
	}

	table := make(shipping.Table, 0, len(groups))
	for desi, g := range groups {
		if len(g) != shipping.NumCarriers {
			return nil, fmt.Errorf("%w: desi %d has %d prices, want %d",
				ErrMalformedRow, desi, len(g), shipping.NumCarriers)
		}
		row := shipping.Row{Desi: desi}
		for i, raw := range g {
			if i == 0 {
				raw = stripDesiPrefix(raw, desi)
			}
			v, err := parsePrice(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: desi %d column %s: %v",
					ErrMalformedRow, desi, shipping.CarrierKeys()[i], err)
			}
			row.Costs[i] = v
		}
		table = append(table, row)
	}
	return table, nil
}

func chunk(s []string, size int) [][]string {
	out := make([][]string, 0, (len(s)+size-1)/size)
	for i := 0; i < len(s); i += size {
		end := i + size
		if end > len(s) {
			end = len(s)
		}
		out = append(out, s[i:end])
	}
	return out
}

// stripDesiPrefix removes the desi digits that the text layer glues onto the
// first price of each row ("12" + "45,90" reads as "1245,90"). The prefix is
// only dropped when the price starts with the desi and what remains is still
// a price, so an unglued "5,00" on row 0 is kept as is.
func stripDesiPrefix(price string, desi int) string {
	prefix := strconv.Itoa(desi)
	if !strings.HasPrefix(price, prefix) {
		return price
	}
	if rest := price[len(prefix):]; wholePrice.MatchString(rest) {
		return rest
	}
	return price
}

func parsePrice(s string) (float64, error) {
	if s == "" || strings.HasPrefix(s, ",") {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}
