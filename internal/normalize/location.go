// Package normalize приводит разнородные данные бэкенда о местоположении и экстренных
// ситуациях к единому виду для отображения и отправки. Все функции без побочных эффектов.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rociobottinelli/citypass-emergency/internal/models"
)

// LocationUnavailable - строка-маркер отсутствующего местоположения.
// Участвует в классификации IsCoordinateShaped.
const LocationUnavailable = "Ubicación no disponible"

const coordinateSeparator = ", "

// Порядок важен: описательные поля всегда имеют приоритет над координатами
var descriptiveKeys = []string{
	"direccion", "address",
	"descripcion", "description",
	"nombre", "name",
	"texto", "text",
}

// LocationForDisplay возвращает человекочитаемую строку местоположения
func LocationForDisplay(raw any) string {
	switch v := raw.(type) {
	case nil:
		return LocationUnavailable
	case string:
		if strings.TrimSpace(v) == "" {
			return LocationUnavailable
		}
		return v
	case *models.Coordinate:
		if v == nil {
			return LocationUnavailable
		}
		return FormatCoordinate(*v)
	case models.Coordinate:
		return FormatCoordinate(v)
	case map[string]any:
		for _, key := range descriptiveKeys {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
		if c, ok := CoordinateFromMap(v); ok {
			return FormatCoordinate(*c)
		}
	}
	return LocationUnavailable
}

// FormatCoordinate форматирует координаты как "<lat>, <lon>" с шестью знаками
func FormatCoordinate(c models.Coordinate) string {
	return fmt.Sprintf("%.6f%s%.6f", c.Lat, coordinateSeparator, c.Lng)
}

// CoordinateFromMap извлекает числовые lat и lon (или lng) из произвольного объекта
func CoordinateFromMap(m map[string]any) (*models.Coordinate, bool) {
	if m == nil {
		return nil, false
	}
	lat, ok := toFloat(m["lat"])
	if !ok {
		return nil, false
	}
	lon, ok := toFloat(m["lon"])
	if !ok {
		lon, ok = toFloat(m["lng"])
	}
	if !ok {
		return nil, false
	}
	return &models.Coordinate{Lat: lat, Lng: lon}, true
}

// IsCoordinateShaped сообщает, содержит ли строка координаты, пригодные для ссылки на карту
func IsCoordinateShaped(s string) bool {
	return strings.Contains(s, ",") && !strings.Contains(s, LocationUnavailable)
}

// SplitCoordinates разбирает строку, полученную из FormatCoordinate
func SplitCoordinates(s string) (lat, lon float64, ok bool) {
	if !IsCoordinateShaped(s) {
		return 0, 0, false
	}
	parts := strings.Split(s, coordinateSeparator)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// MapLink строит ссылку на карту для строки с координатами, иначе возвращает пустую строку
func MapLink(s string) string {
	if !IsCoordinateShaped(s) {
		return ""
	}
	parts := strings.Split(s, coordinateSeparator)
	if len(parts) != 2 {
		return ""
	}
	return fmt.Sprintf("https://maps.google.com/?q=%s,%s", strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
