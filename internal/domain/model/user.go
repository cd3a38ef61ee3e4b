package model

import "time"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleBuyer || r == RoleSeller || r == RoleAdmin
}

// 非正規化カウンタ。更新はUserRepository.AdjustCounterだけで行う
type UserCounter string

const (
	CounterTotalOrders    UserCounter = "total_orders"
	CounterTotalSales     UserCounter = "total_sales"
	CounterListedProducts UserCounter = "listed_products"
)

func (c UserCounter) Valid() bool {
	return c == CounterTotalOrders || c == CounterTotalSales || c == CounterListedProducts
}

type User struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string     `gorm:"type:varchar(255);not null" json:"name"`
	Email          string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash   string     `gorm:"column:password_hash;not null" json:"-"`
	Phone          string     `gorm:"type:varchar(30)" json:"phone"`
	Campus         string     `gorm:"type:varchar(255)" json:"campus"`
	Role           Role       `gorm:"type:varchar(20);not null;default:'buyer'" json:"role"`
	Rating         float64    `gorm:"not null;default:0" json:"rating"`
	TotalSales     int64      `gorm:"not null;default:0" json:"total_sales"`
	TotalOrders    int64      `gorm:"not null;default:0" json:"total_orders"`
	ListedProducts int64      `gorm:"not null;default:0" json:"listed_products"`
	TokenVersion   int        `gorm:"not null;default:0" json:"-"`
	IsActive       bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
