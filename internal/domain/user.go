package domain

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Permission names, as checked by the web application.
const (
	PermissionFollow     = "FOLLOW"
	PermissionCollect    = "COLLECT"
	PermissionComment    = "COMMENT"
	PermissionUpload     = "UPLOAD"
	PermissionModerate   = "MODERATE"
	PermissionAdminister = "ADMINISTER"
)

// Role names.
const (
	RoleLocked        = "Locked"
	RoleUser          = "User"
	RoleModerator     = "Moderator"
	RoleAdministrator = "Administrator"
)

// RolePermissions maps every built-in role to its permissions.
var RolePermissions = map[string][]string{
	RoleLocked:        {PermissionFollow, PermissionCollect},
	RoleUser:          {PermissionFollow, PermissionCollect, PermissionComment, PermissionUpload},
	RoleModerator:     {PermissionFollow, PermissionCollect, PermissionComment, PermissionUpload, PermissionModerate},
	RoleAdministrator: {PermissionFollow, PermissionCollect, PermissionComment, PermissionUpload, PermissionModerate, PermissionAdminister},
}

type Permission struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:text;uniqueIndex;not null" json:"name"`
}

func (Permission) TableName() string {
	return "permissions"
}

type Role struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"type:text;uniqueIndex;not null" json:"name"`
	Permissions []*Permission `gorm:"many2many:roles_permissions;" json:"permissions,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:text;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"type:text" json:"name"`
	PasswordHash string    `gorm:"type:text;not null" json:"-"`
	Bio          string    `gorm:"type:text" json:"bio,omitempty"`
	Website      string    `gorm:"type:text" json:"website,omitempty"`
	Location     string    `gorm:"type:text" json:"location,omitempty"`
	MemberSince  time.Time `json:"member_since"`
	Confirmed    bool      `gorm:"default:false" json:"confirmed"`
	Active       bool      `gorm:"default:true" json:"active"`
	RoleID       uint      `gorm:"index" json:"role_id"`
	Role         *Role     `json:"role,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword hashes the given password and sets it on the user.
func (u *User) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashed)
	return nil
}

// CheckPassword verifies password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
