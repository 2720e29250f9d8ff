package support

import (
	"time"

	"github.com/google/uuid"
)

// Request is a support ticket raised by any authenticated user and triaged
// by admins.
type Request struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	// National id number of the requester.
	UserID      string `gorm:"column:user_id;type:varchar(9);not null;index" json:"userId"`
	Description string `gorm:"column:description;type:text;not null" json:"description"`

	Date string `gorm:"column:date;type:varchar(10);not null" json:"date"`
	Time string `gorm:"column:time;type:varchar(8);not null" json:"time"`

	Completed bool `gorm:"column:completed;default:false;index" json:"completed"`
}

func (Request) TableName() string {
	return "support.requests"
}
