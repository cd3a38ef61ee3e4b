package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryTextbook ProductCategory = "textbook"
	CategoryGadget   ProductCategory = "gadget"
	CategoryNotes    ProductCategory = "notes"
	CategoryOther    ProductCategory = "other"
)

// 商品の状態
type ProductCondition string

const (
	ConditionNew     ProductCondition = "New"
	ConditionLikeNew ProductCondition = "Like New"
	ConditionGood    ProductCondition = "Good"
	ConditionFair    ProductCondition = "Fair"
	ConditionDigital ProductCondition = "Digital"
)

func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryTextbook, CategoryGadget, CategoryNotes, CategoryOther:
		return true
	}
	return false
}

func (c ProductCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionDigital:
		return true
	}
	return false
}

// 出品商品。stockはDB制約でも0以上
type Product struct {
	ID            int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string           `gorm:"type:varchar(255);not null" json:"name"`
	Slug          string           `gorm:"type:varchar(300);index" json:"slug"`
	Description   string           `gorm:"type:text" json:"description"`
	Price         int64            `gorm:"not null;check:price >= 0" json:"price"`
	OriginalPrice *int64           `gorm:"check:original_price >= 0" json:"original_price,omitempty"`
	Category      ProductCategory  `gorm:"type:varchar(20);not null;index" json:"category"`
	Image         string           `gorm:"type:text" json:"image"`
	Images        pq.StringArray   `gorm:"type:text[]" json:"images"`
	Condition     ProductCondition `gorm:"type:varchar(20);not null" json:"condition"`
	Stock         int64            `gorm:"not null;default:1;check:stock >= 0" json:"stock"`
	Rating        float64          `gorm:"not null;default:0" json:"rating"`
	NumReviews    int64            `gorm:"not null;default:0" json:"num_reviews"`
	SellerID      int64            `gorm:"not null;index" json:"seller_id"`
	SellerName    string           `gorm:"type:varchar(255);not null" json:"seller_name"`
	Campus        string           `gorm:"type:varchar(255)" json:"campus"`
	Tags          pq.StringArray   `gorm:"type:text[]" json:"tags"`
	IsActive      bool             `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt     time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}
