package storage

import (
	"fmt"
	"strings"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

const tableName = "shipping_costs"

// createTableSQL builds the shipping_costs DDL with realType as the type of
// every carrier column.
func createTableSQL(realType string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE " + tableName + " (\n\tdesi INTEGER PRIMARY KEY")
	for _, key := range shipping.CarrierKeys() {
		b.WriteString(",\n\t" + key + " " + realType)
	}
	b.WriteString("\n)")
	return b.String()
}

func dropTableSQL() string {
	return "DROP TABLE IF EXISTS " + tableName
}

// insertSQL builds a positional insert; placeholder renders the i-th (1-based)
// parameter marker for the target dialect.
func insertSQL(placeholder func(i int) string) string {
	cols := append([]string{"desi"}, shipping.CarrierKeys()...)
	marks := make([]string, len(cols))
	for i := range cols {
		marks[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func selectSQL() string {
	cols := append([]string{"desi"}, shipping.CarrierKeys()...)
	return fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), tableName)
}

// scanDest returns the scan targets for one row in select order.
func scanDest(r *shipping.Row) []any {
	dest := make([]any, 0, shipping.NumCarriers+1)
	dest = append(dest, &r.Desi)
	for i := range r.Costs {
		dest = append(dest, &r.Costs[i])
	}
	return dest
}

func questionMark(int) string { return "?" }

func dollarN(i int) string { return fmt.Sprintf("$%d", i) }
