package models

// SaleCounter backs the per-tenant sale numbering sequence. Incremented via
// an upsert inside the sale-creation transaction so numbers cannot collide
// under concurrent writes.
type SaleCounter struct {
	TenantID string `gorm:"column:tenant_id;type:uuid;primaryKey"`
	Seq      int64  `gorm:"column:seq;not null;default:0"`
}
