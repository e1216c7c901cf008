package models

import (
	"time"
)

// RequestLog is one relay outcome. Only normalized codes are stored, never
// provider error text or request bodies.
type RequestLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RequestID  string    `gorm:"index;size:64" json:"request_id"`
	Timestamp  time.Time `gorm:"index" json:"timestamp"`
	ClientKey  string    `gorm:"size:255" json:"client_key"`
	Method     string    `gorm:"size:8" json:"method"`
	Endpoint   string    `gorm:"index;size:128" json:"endpoint"`
	StatusCode int       `gorm:"index" json:"status_code"`
	Code       string    `gorm:"index;size:64" json:"code,omitempty"`
	Streamed   bool      `json:"streamed"`
	LatencyMs  int       `json:"latency_ms"`
	UserAgent  string    `json:"user_agent"`
	Browser    string    `gorm:"size:64" json:"browser,omitempty"`
	Bot        bool      `json:"bot"`
}

func (RequestLog) TableName() string {
	return "relay_request_logs"
}
