package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // account role

const (
	RoleDonor    UserRole = "donor"    // blood donor
	RoleHospital UserRole = "hospital" // hospital staff account
	RoleAdmin    UserRole = "admin"    // system administrator
)

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleDonor, RoleHospital, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`                        // user ID
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`           // login email
	PasswordHash string         `gorm:"not null" json:"-"`                           // bcrypt hash
	Name         string         `gorm:"not null" json:"name"`                        // display name (hospital name for hospitals)
	Role         UserRole       `gorm:"type:varchar(20);not null;index" json:"role"` // role
	IsVerified   bool           `gorm:"not null" json:"is_verified"`                 // email verified through OTP
	CreatedAt    time.Time      `json:"created_at"`                                  // created at
	UpdatedAt    time.Time      `json:"updated_at"`                                  // updated at
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                              // soft delete

	Donor    *Donor    `gorm:"foreignKey:UserID" json:"donor,omitempty"`    // donor profile
	Hospital *Hospital `gorm:"foreignKey:UserID" json:"hospital,omitempty"` // hospital profile
}

func (User) TableName() string {
	return "users"
}

// HasProfile reports whether the role specific profile was completed.
func (u *User) HasProfile() bool {
	switch u.Role {
	case RoleDonor:
		return u.Donor != nil
	case RoleHospital:
		return u.Hospital != nil
	}
	return true
}
