package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleEndUser Role = "end_user"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

// roleが選択肢に含まれるか。
func (r Role) Valid() bool {
	switch r {
	case RoleEndUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string     `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	Username     string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Phone        string     `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	FirstName    string     `gorm:"type:varchar(50)" json:"first_name"`
	LastName     string     `gorm:"type:varchar(50)" json:"last_name"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'end_user'" json:"role"`
	IsStaff      bool       `gorm:"not null;default:false" json:"-"`
	IsSuperuser  bool       `gorm:"not null;default:false" json:"-"`
	IsVerified   bool       `gorm:"not null;default:false" json:"is_verified"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"-"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// 姓名をまとめて返す。
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// 保存前に姓名の先頭を大文字に揃える。
func (u *User) NormalizeNames() {
	u.FirstName = titleCase(u.FirstName)
	u.LastName = titleCase(u.LastName)
}

// 名前はアルファベットのみ（validation側で保証）なので先頭1byteで良い。
func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
