package v1

import (
	"time"

	"github.com/google/uuid"
)

// SelectTypeRequest DTO для выбора типа экстренной ситуации
// @Description DTO для выбора типа экстренной ситуации
type SelectTypeRequest struct {
	TypeID string `json:"type" validate:"required,max=64"`
}

// DescriptionRequest DTO для описания ситуации
// @Description DTO для описания ситуации
type DescriptionRequest struct {
	Description string `json:"description" validate:"max=2000"`
}

// PresetRequest DTO для выбора известного места
// @Description DTO для выбора известного места
type PresetRequest struct {
	PresetID string `json:"preset_id" validate:"required,max=64"`
}

// LocationRequest DTO с позицией устройства
// @Description DTO с позицией устройства
type LocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// CoordinateResponse DTO координат
// @Description DTO координат
type CoordinateResponse struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AttachmentResponse DTO вложения без содержимого
// @Description DTO вложения без содержимого
type AttachmentResponse struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// DraftResponse DTO черновика активации
// @Description DTO черновика активации
type DraftResponse struct {
	ID               string               `json:"id"`
	Mode             string               `json:"mode,omitempty"`
	Type             string               `json:"type,omitempty"`
	Services         []string             `json:"services"`
	Description      string               `json:"description"`
	Attachments      []AttachmentResponse `json:"attachments"`
	LocationOverride string               `json:"location_override,omitempty"`
	DeviceLocation   *CoordinateResponse  `json:"device_location,omitempty"`
	Countdown        int                  `json:"countdown"`
}

// ActivationResponse DTO состояния активации
// @Description DTO состояния активации
type ActivationResponse struct {
	Seq       uint64          `json:"seq"`
	Phase     string          `json:"phase"`
	Remaining int             `json:"remaining"`
	Reason    string          `json:"reason,omitempty"`
	Redirect  string          `json:"redirect,omitempty"`
	Record    *RecordResponse `json:"record,omitempty"`
	Draft     DraftResponse   `json:"draft"`
}

// RecordResponse DTO записи истории
// @Description DTO записи истории
type RecordResponse struct {
	ID          string              `json:"id"`
	Timestamp   time.Time           `json:"timestamp"`
	TimeAgo     string              `json:"time_ago"`
	Type        string              `json:"type"`
	Location    string              `json:"location"`
	MapLink     string              `json:"map_link,omitempty"`
	Coordinates *CoordinateResponse `json:"coordinates,omitempty"`
	State       string              `json:"state"`
	Services    []string            `json:"services"`
	Description string              `json:"description"`
	Priority    string              `json:"priority,omitempty"`
	Origin      string              `json:"origin,omitempty"`
}

// HistoryPageResponse DTO страницы истории
// @Description DTO страницы истории
type HistoryPageResponse struct {
	Items      []*RecordResponse `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Total      int               `json:"total"`
	TotalPages int               `json:"total_pages"`
}

// AttemptResponse DTO записи журнала попыток
// @Description DTO записи журнала попыток
type AttemptResponse struct {
	ID        uuid.UUID `json:"id"`
	DraftID   string    `json:"draft_id"`
	Mode      string    `json:"mode"`
	Type      string    `json:"type"`
	Services  []string  `json:"services"`
	RecordID  string    `json:"record_id,omitempty"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StatsResponse DTO для ответа со статистикой
// @Description DTO для ответа со статистикой
type StatsResponse struct {
	UserCount     int `json:"user_count"`
	WindowMinutes int `json:"window_minutes"`
}
