package models

import "gorm.io/datatypes"

// AuditLog records consent and media actions taken on behalf of an account.
type AuditLog struct {
	BaseModel

	UserID    *string        `gorm:"size:191;index" json:"user_id"`
	Action    string         `gorm:"not null;index" json:"action"`
	Resource  string         `gorm:"index" json:"resource"`
	Result    string         `gorm:"not null" json:"result"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent"`
	Metadata  datatypes.JSON `json:"metadata"`
}
