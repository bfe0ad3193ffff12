package models

// ServiceID - идентификатор службы экстренного реагирования
type ServiceID string

const (
	ServiceAmbulance    ServiceID = "ambulancia"
	ServicePolice       ServiceID = "policia"
	ServiceFire         ServiceID = "bomberos"
	ServiceRescue       ServiceID = "rescatistas"
	ServiceCivilDefense ServiceID = "defensa_civil"
	ServicePsychologist ServiceID = "psicologo"
)

// Service - запись каталога служб с метаданными для отображения
type Service struct {
	ID           ServiceID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	Color        string    `json:"color"`
	Priority     string    `json:"priority"`
	ResponseTime string    `json:"response_time"`
	Phone        string    `json:"phone"`
}

// EmergencyType - тип экстренной ситуации. DefaultServices задает начальный набор служб.
type EmergencyType struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	DefaultServices []ServiceID `json:"default_services"`
}
