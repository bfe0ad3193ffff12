package models

import (
	"time"
)

// LocationFix представляет последнюю позицию устройства, которую сообщил клиент
type LocationFix struct {
	UserID     string     `json:"user_id"`
	Coordinate Coordinate `json:"coordinate"`
	ReportedAt time.Time  `json:"reported_at"`
}
