package models

import (
	"time"
)

// RecordState - статус экстренной ситуации на стороне бэкенда
type RecordState string

const (
	StatePending     RecordState = "Pendiente"
	StateInTreatment RecordState = "En Tratamiento"
	StateResolved    RecordState = "Resuelta"
	StateNotResolved RecordState = "No Resuelta"
	StateCancelled   RecordState = "Cancelada"
)

// Origin - канал, через который была создана запись
type Origin string

const (
	OriginButton Origin = "Boton"
	OriginForm   Origin = "Formulario"
)

// EmergencyRecord - нормализованная запись истории
type EmergencyRecord struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Type        string      `json:"type"`
	Location    string      `json:"location"`
	Coordinates *Coordinate `json:"coordinates,omitempty"`
	State       RecordState `json:"state"`
	Services    []string    `json:"services"`
	Description string      `json:"description"`
	Priority    string      `json:"priority,omitempty"`
	Origin      Origin      `json:"origin,omitempty"`
}
