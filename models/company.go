package models

import "time"

// Company is the tenant boundary. Every invoice, item, payment and user
// belongs to exactly one company and is never visible outside it.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `gorm:"size:255;not null" json:"name"`
}

// TableName overrides the table name
func (Company) TableName() string {
	return "companies"
}
