package storage

import (
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/bher20/shipratemanager/pkg/shipping"
)

// Cost is a carrier column. It maps to the same column type the SQL
// backends create: REAL on SQLite, DOUBLE PRECISION on Postgres.
type Cost float64

func (Cost) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "double precision"
	}
	return "real"
}

// ShippingCost is the GORM model of one shipping_costs row.
type ShippingCost struct {
	Desi    int  `gorm:"primaryKey;autoIncrement:false;type:integer;column:desi"`
	Aras    Cost `gorm:"column:aras"`
	Mng     Cost `gorm:"column:mng"`
	Ptt     Cost `gorm:"column:ptt"`
	Sendeo  Cost `gorm:"column:sendeo"`
	Surat   Cost `gorm:"column:surat"`
	Tex     Cost `gorm:"column:tex"`
	Yurtici Cost `gorm:"column:yurtici"`
	Borusan Cost `gorm:"column:borusan"`
	Ceva    Cost `gorm:"column:ceva"`
	Horoz   Cost `gorm:"column:horoz"`
}

func (ShippingCost) TableName() string { return tableName }

func shippingCostFromRow(r shipping.Row) ShippingCost {
	c := r.Costs
	return ShippingCost{
		Desi: r.Desi,
		Aras: Cost(c[0]), Mng: Cost(c[1]), Ptt: Cost(c[2]), Sendeo: Cost(c[3]), Surat: Cost(c[4]),
		Tex: Cost(c[5]), Yurtici: Cost(c[6]), Borusan: Cost(c[7]), Ceva: Cost(c[8]), Horoz: Cost(c[9]),
	}
}

func (m ShippingCost) row() shipping.Row {
	return shipping.Row{
		Desi: m.Desi,
		Costs: [shipping.NumCarriers]float64{
			float64(m.Aras), float64(m.Mng), float64(m.Ptt), float64(m.Sendeo), float64(m.Surat),
			float64(m.Tex), float64(m.Yurtici), float64(m.Borusan), float64(m.Ceva), float64(m.Horoz),
		},
	}
}

// DuplicateDesiError reports a primary key collision on insert.
type DuplicateDesiError struct {
	Desi int
}

func (e *DuplicateDesiError) Error() string {
	return fmt.Sprintf("duplicate desi %d", e.Desi)
}

func sortByDesi(t shipping.Table) {
	sort.SliceStable(t, func(i, j int) bool { return t[i].Desi < t[j].Desi })
}
