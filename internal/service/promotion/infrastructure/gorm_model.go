package infrastructure

import (
	"time"

	"gorm.io/gorm"
)

// DiscountModel 对应数据库中的 discount_code 表。
type DiscountModel struct {
	gorm.Model
	Code              string  `gorm:"uniqueIndex;size:64"`
	Description       string  `gorm:"type:text"`
	DiscountPercent   float64 `gorm:"type:decimal(5,2)"`
	MaxDiscountAmount int64
	MinOrderValue     int64
	ExpireDate        time.Time
	UsageLimit        int64
	UsedCount         int64
	IsActive          bool   `gorm:"default:true"`
	EligibilityRule   string `gorm:"type:text"`
}

// TableName 指定 GORM 应该使用的表名。
func (DiscountModel) TableName() string {
	return "discount_code"
}
