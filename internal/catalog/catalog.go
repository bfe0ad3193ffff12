// Package catalog содержит фиксированные справочники: службы, типы экстренных ситуаций
// и известные общественные места.
package catalog

import (
	"github.com/rociobottinelli/citypass-emergency/internal/models"
)

const (
	// QuickTypeID - обобщенный тип, который получает черновик при быстрой активации
	QuickTypeID = "emergencia_general"

	TypeAccident = "Accidente"
	TypeFire     = "Incendio"
	TypeRobbery  = "Robo/Violencia"
	TypeDomestic = "ViolenciaFamiliar"
	TypeHealth   = "Salud"
	TypeFlood    = "Inundacion"
	TypeOther    = "Otro"
)

var services = []models.Service{
	{ID: models.ServiceAmbulance, Name: "Ambulancia", Description: "Servicio médico de emergencia", Icon: "🚑", Color: "red", Priority: "high", ResponseTime: "5-10 min", Phone: "911"},
	{ID: models.ServicePolice, Name: "Policía", Description: "Fuerzas de seguridad", Icon: "👮", Color: "blue", Priority: "high", ResponseTime: "3-8 min", Phone: "911"},
	{ID: models.ServiceFire, Name: "Bomberos", Description: "Servicio contra incendios", Icon: "🚒", Color: "orange", Priority: "high", ResponseTime: "4-7 min", Phone: "911"},
	{ID: models.ServiceRescue, Name: "Rescatistas", Description: "Equipos de rescate especializado", Icon: "🆘", Color: "yellow", Priority: "medium", ResponseTime: "10-15 min", Phone: "911"},
	{ID: models.ServiceCivilDefense, Name: "Defensa Civil", Description: "Protección civil y emergencias", Icon: "🛡️", Color: "green", Priority: "medium", ResponseTime: "8-12 min", Phone: "911"},
	{ID: models.ServicePsychologist, Name: "Apoyo Psicológico", Description: "Atención psicológica de emergencia", Icon: "🧠", Color: "purple", Priority: "low", ResponseTime: "15-30 min", Phone: "911"},
}

var types = []models.EmergencyType{
	{ID: TypeAccident, Name: "Accidente", Description: "Accidente de tránsito o laboral",
		DefaultServices: []models.ServiceID{models.ServiceAmbulance, models.ServicePolice, models.ServiceFire}},
	{ID: TypeFire, Name: "Incendio", Description: "Fuego en edificio, vehículo o área",
		DefaultServices: []models.ServiceID{models.ServiceFire, models.ServicePolice, models.ServiceAmbulance}},
	{ID: TypeRobbery, Name: "Robo/Violencia", Description: "Acto delictivo o violencia en curso",
		DefaultServices: []models.ServiceID{models.ServicePolice, models.ServiceAmbulance}},
	{ID: TypeDomestic, Name: "Violencia Familiar", Description: "Situación de violencia en el hogar",
		DefaultServices: []models.ServiceID{models.ServicePolice, models.ServicePsychologist, models.ServiceAmbulance}},
	{ID: TypeHealth, Name: "Salud", Description: "Emergencia médica o psicológica",
		DefaultServices: []models.ServiceID{models.ServiceAmbulance, models.ServicePsychologist}},
	{ID: TypeFlood, Name: "Inundación", Description: "Inundaciones o desbordes de agua",
		DefaultServices: []models.ServiceID{models.ServiceCivilDefense, models.ServiceRescue, models.ServiceFire}},
	{ID: TypeOther, Name: "Otro", Description: "Otra situación de emergencia",
		DefaultServices: []models.ServiceID{models.ServiceAmbulance, models.ServicePolice}},
}

var presets = []models.LocationPreset{
	{ID: "plaza-viva", Name: "Plaza Viva", Coordinate: models.Coordinate{Lat: -34.608300, Lng: -58.371200}},
	{ID: "plaza-de-mayo", Name: "Plaza de Mayo", Coordinate: models.Coordinate{Lat: -34.608100, Lng: -58.370300}},
	{ID: "parque-central", Name: "Parque Central", Coordinate: models.Coordinate{Lat: -34.603700, Lng: -58.381600}},
	{ID: "parque-tres-de-febrero", Name: "Parque Tres de Febrero", Coordinate: models.Coordinate{Lat: -34.571500, Lng: -58.417800}},
}

// Типы, для которых можно указать известное место вместо позиции устройства
var locationSensitive = map[string]bool{
	TypeFire:    true,
	TypeRobbery: true,
}

// Таблица "тип -> службы" для истории, в отображаемых названиях.
// Бэкенд не всегда возвращает список служб.
var historyServices = map[string][]string{
	"Accidente":         {"Ambulancia", "Policía", "Bomberos"},
	"Incendio":          {"Bomberos", "Ambulancia", "Policía"},
	"Robo/Violencia":    {"Policía", "Ambulancia"},
	"ViolenciaFamiliar": {"Policía", "Apoyo Psicológico", "Ambulancia"},
	"Inundacion":        {"Defensa Civil", "Rescatistas", "Bomberos"},
	"Inundación":        {"Defensa Civil", "Rescatistas", "Bomberos"},
	"Salud":             {"Ambulancia", "Apoyo Psicológico"},
	"Otro":              {"Ambulancia", "Policía"},
}

var defaultHistoryServices = []string{"Ambulancia", "Policía"}

// Services возвращает каталог служб
func Services() []models.Service {
	return append([]models.Service(nil), services...)
}

// Types возвращает каталог типов экстренных ситуаций
func Types() []models.EmergencyType {
	out := make([]models.EmergencyType, len(types))
	for i, t := range types {
		t.DefaultServices = append([]models.ServiceID(nil), t.DefaultServices...)
		out[i] = t
	}
	return out
}

// Presets возвращает каталог известных мест
func Presets() []models.LocationPreset {
	return append([]models.LocationPreset(nil), presets...)
}

// ServiceByID ищет службу по идентификатору
func ServiceByID(id models.ServiceID) (models.Service, bool) {
	for _, s := range services {
		if s.ID == id {
			return s, true
		}
	}
	return models.Service{}, false
}

// TypeByID ищет тип по идентификатору. Возвращаемый DefaultServices можно изменять.
func TypeByID(id string) (models.EmergencyType, bool) {
	for _, t := range types {
		if t.ID == id {
			t.DefaultServices = append([]models.ServiceID(nil), t.DefaultServices...)
			return t, true
		}
	}
	return models.EmergencyType{}, false
}

// PresetByID ищет известное место по идентификатору
func PresetByID(id string) (models.LocationPreset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return models.LocationPreset{}, false
}

// IsLocationSensitive сообщает, допускает ли тип выбор известного места
func IsLocationSensitive(typeID string) bool {
	return locationSensitive[typeID]
}

// QuickServices - службы по умолчанию для быстрой активации
func QuickServices() []models.ServiceID {
	return []models.ServiceID{models.ServiceAmbulance, models.ServicePolice}
}

// ServiceNamesForType возвращает отображаемые названия служб для типа из истории
func ServiceNamesForType(typeID string) []string {
	if names, ok := historyServices[typeID]; ok {
		return append([]string(nil), names...)
	}
	return append([]string(nil), defaultHistoryServices...)
}

// ServiceNames переводит идентификаторы служб в отображаемые названия.
// Неизвестные идентификаторы передаются как есть.
func ServiceNames(ids []models.ServiceID) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := ServiceByID(id); ok {
			names = append(names, s.Name)
			continue
		}
		names = append(names, string(id))
	}
	return names
}
