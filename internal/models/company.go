package models

import (
	"gorm.io/gorm"
)

// Company is the scoping boundary for users and tasks.
// UserCount is computed by the server and never persisted.
type Company struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"unique;not null"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	IsActive bool   `json:"isActive" gorm:"column:is_active;default:true"`
	UserCount int64 `json:"userCount" gorm:"-"`
	gorm.Model
}

// TableName specifies the table name for Company Model
func (Company) TableName() string {
	return "companies"
}
