package models

import "time"

// Kind names one of the persisted record collections.
type Kind string

const (
	KindMaterial     Kind = "material"
	KindFormula      Kind = "formula"
	KindManufacturer Kind = "manufacturer"
	KindPerfume      Kind = "perfume"
)

// Kinds lists every collection in snapshot order.
var Kinds = []Kind{KindFormula, KindMaterial, KindManufacturer, KindPerfume}

// Entity is implemented by every record the store persists.
type Entity interface {
	Kind() Kind
	PrimaryKey() uint
	CreatedTime() time.Time
	Touch(created, updated time.Time)
}
