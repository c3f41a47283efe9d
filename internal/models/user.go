package models

import (
	"gorm.io/gorm"
)

// Role represents a user's role in the system
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// Valid reports whether the role is one of the enumerated values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	ID        string `json:"id" gorm:"primaryKey"`
	Name      string `json:"name" gorm:"not null"`
	Email     string `json:"email" gorm:"unique;not null"`
	Password  string `json:"-" gorm:"not null"`
	Role      Role   `json:"role" gorm:"not null;default:'staff'"`
	CompanyID string `json:"company" gorm:"column:company_id;index"`
	ManagerID string `json:"manager,omitempty" gorm:"column:manager_id;index"`
	IsActive  bool   `json:"isActive" gorm:"column:is_active;default:true"`
	gorm.Model
}

// TableName specifies the table name for User Model
func (User) TableName() string {
	return "users"
}
