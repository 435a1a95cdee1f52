package models

import "time"

// UserRecord is the caller identity resolved from a token subject.
// Roles are loaded for the business layer but never interpreted here.
// UserRecord 是从令牌主体解析出的调用者身份。
type UserRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex" json:"username"`
	Email     string    `gorm:"size:254" json:"email"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	Roles     []Role    `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table name used by gorm.
func (UserRecord) TableName() string { return "users" }

// Role is an opaque role label attached to a user.
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex" json:"name"`
}

// TableName pins the table name used by gorm.
func (Role) TableName() string { return "roles" }
