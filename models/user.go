package models

import (
	"time"
)

const (
	RoleFaculty = 1
	RoleStudent = 2
	RoleAdmin   = 3
)

// Account is a login-capable identity. Accounts created by the offer workflow
// carry the id of the application that was accepted.
type Account struct {
	UserID        int        `gorm:"primaryKey;autoIncrement;column:user_id" json:"user_id"`
	UserFname     string     `gorm:"column:user_fname;size:255" json:"user_fname"`
	UserLname     string     `gorm:"column:user_lname;size:255" json:"user_lname"`
	Email         string     `gorm:"column:email;size:255;uniqueIndex" json:"email"`
	Password      string     `gorm:"column:password;size:255" json:"-"`
	RoleID        int        `gorm:"column:role_id" json:"role_id"`
	ApplicationID *string    `gorm:"column:application_id;size:36;uniqueIndex" json:"application_id,omitempty"`
	CreateAt      *time.Time `gorm:"column:create_at" json:"create_at"`
	UpdateAt      *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt      *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (Account) TableName() string {
	return "users"
}

// FullName joins the stored name parts.
func (a Account) FullName() string {
	if a.UserLname == "" {
		return a.UserFname
	}
	return a.UserFname + " " + a.UserLname
}
