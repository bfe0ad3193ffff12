// Package dispatch описывает границу с REST-бэкендом: две формы запроса на создание
// экстренной ситуации и единственную точку входа для их отправки.
package dispatch

import (
	"encoding/json"
	"errors"

	"github.com/rociobottinelli/citypass-emergency/internal/catalog"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/rociobottinelli/citypass-emergency/internal/normalize"
)

const (
	// ContextPublicSpace - использовано известное общественное место
	ContextPublicSpace = "lugar_publico"
	// ContextCitizen - координаты сообщило устройство гражданина
	ContextCitizen = "ciudadano"
)

// ErrEmptyDraft - черновик без выбранного режима нельзя отправить
var ErrEmptyDraft = errors.New("draft has no mode selected")

// Request - запрос на создание экстренной ситуации: QuickRequest или DetailedRequest
type Request interface {
	Mode() models.Mode
	isRequest()
}

// QuickRequest - компактный JSON быстрой активации, без описания и вложений
type QuickRequest struct {
	UserID   string
	Type     string
	Location *models.Coordinate
}

func (QuickRequest) Mode() models.Mode { return models.ModeQuick }
func (QuickRequest) isRequest()        {}

type wireLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type quickWire struct {
	UserID   string        `json:"userId"`
	Type     string        `json:"tipoEmergencia"`
	Location *wireLocation `json:"location"`
	Origin   models.Origin `json:"origen"`
}

// MarshalJSON формирует тело запроса в формате бэкенда
func (r QuickRequest) MarshalJSON() ([]byte, error) {
	w := quickWire{
		UserID: r.UserID,
		Type:   r.Type,
		Origin: models.OriginButton,
	}
	if r.Location != nil {
		w.Location = &wireLocation{Lat: r.Location.Lat, Lon: r.Location.Lng}
	}
	return json.Marshal(w)
}

// DetailedRequest - multipart-запрос подробного отчета
type DetailedRequest struct {
	UserID      string
	Type        string
	Description string
	Location    *models.Coordinate
	Services    []models.ServiceID
	Attachments []models.Attachment
	Context     string
	PresetID    string
}

func (DetailedRequest) Mode() models.Mode { return models.ModeDetailed }
func (DetailedRequest) isRequest()        {}

// BuildRequest строит запрос из черновика. quickType - тип, под которым бэкенд
// регистрирует быстрые активации.
func BuildRequest(user models.User, d models.ActivationDraft, quickType string) (Request, error) {
	switch d.Mode {
	case models.ModeQuick:
		return QuickRequest{
			UserID:   user.ID,
			Type:     quickType,
			Location: copyCoordinate(d.DeviceLocation),
		}, nil
	case models.ModeDetailed:
		req := DetailedRequest{
			UserID:      user.ID,
			Type:        d.SelectedType,
			Description: normalize.DescriptionOrDefault(d.Description, models.ModeDetailed),
			Location:    copyCoordinate(d.DeviceLocation),
			Services:    append([]models.ServiceID(nil), d.SelectedServices...),
			Attachments: append([]models.Attachment(nil), d.Attachments...),
			Context:     ContextCitizen,
		}
		// Известное место применяется только для текущего чувствительного типа
		if preset, ok := ResolveOverride(d); ok {
			loc := preset.Coordinate
			req.Location = &loc
			req.Context = ContextPublicSpace
			req.PresetID = preset.ID
		}
		return req, nil
	}
	return nil, ErrEmptyDraft
}

// ResolveOverride возвращает известное место, если оно должно заменить позицию устройства
func ResolveOverride(d models.ActivationDraft) (models.LocationPreset, bool) {
	if d.LocationOverride == "" || !catalog.IsLocationSensitive(d.SelectedType) {
		return models.LocationPreset{}, false
	}
	return catalog.PresetByID(d.LocationOverride)
}

func copyCoordinate(c *models.Coordinate) *models.Coordinate {
	if c == nil {
		return nil
	}
	cc := *c
	return &cc
}
