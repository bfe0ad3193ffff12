package models

// Coordinate - пара координат устройства или заранее известного места
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationPreset - известное общественное место (площадь, парк) со стабильным идентификатором
type LocationPreset struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
}
