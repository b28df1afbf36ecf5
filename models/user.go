package models

import "time"

// AuthUser is a credential record. Identity and profile live in separate
// tables, joined by email, so a login can fail either because the
// credentials are wrong or because the profile row is missing.
type AuthUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
}

// TableName overrides the table name
func (AuthUser) TableName() string {
	return "auth_users"
}

// User is the profile attached to each authenticated principal.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	Role      string    `gorm:"size:20;default:'user'" json:"role"` // admin, user
	CompanyID uint      `gorm:"index;not null" json:"company_id"`
}

// TableName overrides the table name
func (User) TableName() string {
	return "users"
}

// Principal is the authenticated identity carried by a verified token.
// Tenant scope for every ledger operation comes from here, never from
// request input.
type Principal struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	CompanyID uint   `json:"company_id"`
}
