package model

import "time"

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

type UserStatus string

const (
	StatusPending  UserStatus = "pending"
	StatusApproved UserStatus = "approved"
	StatusRejected UserStatus = "rejected"
)

// swagger:model User
type User struct {
	BaseModel
	Name         string     `gorm:"size:100;not null" json:"name"`
	Email        string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"size:255;not null" json:"-"`
	College      string     `gorm:"size:255" json:"college"`
	Degree       string     `gorm:"size:255" json:"degree"`
	Phone        string     `gorm:"size:30" json:"phone"`
	PaymentProof string     `gorm:"size:512" json:"-"` // 私有桶中的对象路径
	Status       UserStatus `gorm:"size:20;default:'pending';index" json:"status"`
	Role         UserRole   `gorm:"size:20;default:'student'" json:"role"`
	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty"`
}

func (User) TableName() string {
	return "users"
}
