package normalize

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rociobottinelli/citypass-emergency/internal/catalog"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
)

const (
	// NoDescription подставляется в историю, если бэкенд не вернул описание
	NoDescription = "Sin descripción"
	// FormDescription - описание по умолчанию для подробного отчета
	FormDescription = "Emergencia reportada desde formulario"
	// ButtonDescription - описание по умолчанию для быстрой активации
	ButtonDescription = "Emergencia reportada desde botón antipánico"
)

// RecordForHistory переводит сырой объект бэкенда в EmergencyRecord.
// Отсутствующие поля допустимы.
func RecordForHistory(raw map[string]any) models.EmergencyRecord {
	rec := models.EmergencyRecord{
		ID:          firstString(raw, "_id", "id"),
		Type:        firstString(raw, "tipoEmergencia", "tipo", "type"),
		Description: firstString(raw, "descripcion", "description"),
		Priority:    firstString(raw, "prioridad", "priority"),
		Origin:      models.Origin(firstString(raw, "origen", "origin")),
		State:       models.RecordState(firstString(raw, "estado", "state")),
	}

	rec.Timestamp = firstTime(raw, "timestamp", "createdAt")

	loc, ok := raw["ubicacion"]
	if !ok || loc == nil {
		loc = raw["location"]
	}
	rec.Location = LocationForDisplay(loc)
	// Координаты для карты берутся из того же источника, но независимо от строки отображения
	if m, ok := loc.(map[string]any); ok {
		if c, ok := CoordinateFromMap(m); ok {
			rec.Coordinates = c
		}
	}

	rec.Services = servicesFromRaw(raw["servicios"])
	if len(rec.Services) == 0 {
		rec.Services = catalog.ServiceNamesForType(rec.Type)
	}

	if strings.TrimSpace(rec.Description) == "" {
		rec.Description = NoDescription
	}
	if rec.State == "" {
		rec.State = models.StatePending
	}
	return rec
}

// RecordsForHistory нормализует список записей и сортирует его
func RecordsForHistory(raw []map[string]any) []models.EmergencyRecord {
	records := make([]models.EmergencyRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, RecordForHistory(r))
	}
	SortHistory(records)
	return records
}

// SortHistory сортирует записи по убыванию времени. При равенстве сохраняется порядок вставки.
func SortHistory(records []models.EmergencyRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

// TimeAgo возвращает грубую относительную метку времени
func TimeAgo(ts, now time.Time) string {
	diff := now.Sub(ts)
	if diff < 0 {
		diff = 0
	}
	minutes := int(diff / time.Minute)
	hours := int(diff / time.Hour)

	if minutes < 60 {
		return fmt.Sprintf("Hace %d min", minutes)
	}
	if hours < 24 {
		return fmt.Sprintf("Hace %dh", hours)
	}
	return ts.Format("02/01/2006")
}

// DescriptionOrDefault возвращает описание или значение по умолчанию для канала
func DescriptionOrDefault(description string, mode models.Mode) string {
	if strings.TrimSpace(description) != "" {
		return description
	}
	if mode == models.ModeDetailed {
		return FormDescription
	}
	return ButtonDescription
}

func servicesFromRaw(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok || s == "" {
			continue
		}
		if svc, ok := catalog.ServiceByID(models.ServiceID(s)); ok {
			s = svc.Name
		}
		names = append(names, s)
	}
	return names
}

func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func firstTime(raw map[string]any, keys ...string) time.Time {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return t
			}
		case float64:
			return time.UnixMilli(int64(v)).UTC()
		}
	}
	return time.Time{}
}
