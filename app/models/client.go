package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a customer of a business. Referenced by invoices and used to
// build settlement notification content.
type Client struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string    `gorm:"type:char(36);not null;index" json:"user_id" validate:"required"`
	Name      string    `gorm:"type:varchar(150);not null" json:"name" validate:"required,max=150"`
	Email     string    `gorm:"type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	Phone     string    `gorm:"type:varchar(30)" json:"phone" validate:"max=30"`
	Address   string    `gorm:"type:varchar(255)" json:"address" validate:"max=255"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (c *Client) Validate() error {
	v := validator.New()

	return v.Struct(c)
}
