// Package history хранит локальную историю экстренных вызовов пользователя.
// Запись в историю возможна только двумя способами: добавление после успешной отправки
// и полная замена после обновления с бэкенда.
package history

import (
	"sync"

	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/rociobottinelli/citypass-emergency/internal/normalize"
)

// PageSize - количество записей на странице истории
const PageSize = 4

// Page - страница истории
type Page struct {
	Items      []models.EmergencyRecord `json:"items"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	Total      int                      `json:"total"`
	TotalPages int                      `json:"total_pages"`
}

// Store - история, разделенная по пользователям
type Store struct {
	mu      sync.RWMutex
	records map[string][]models.EmergencyRecord
}

func NewStore() *Store {
	return &Store{records: make(map[string][]models.EmergencyRecord)}
}

// Append добавляет запись. Запись с уже известным ID заменяет прежнюю на ее месте.
func (s *Store) Append(userID string, rec models.EmergencyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.records[userID]
	if rec.ID != "" {
		for i := range list {
			if list[i].ID == rec.ID {
				list[i] = rec
				return
			}
		}
	}
	s.records[userID] = append(list, rec)
}

// Replace полностью заменяет историю пользователя
func (s *Store) Replace(userID string, recs []models.EmergencyRecord) {
	list := make([]models.EmergencyRecord, len(recs))
	copy(list, recs)

	s.mu.Lock()
	s.records[userID] = list
	s.mu.Unlock()
}

// SetState меняет статус записи. Возвращает false, если запись не найдена.
func (s *Store) SetState(userID, id string, state models.RecordState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.records[userID] {
		if rec.ID == id {
			s.records[userID][i].State = state
			return true
		}
	}
	return false
}

// Get ищет запись по ID
func (s *Store) Get(userID, id string) (models.EmergencyRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.records[userID] {
		if rec.ID == id {
			return rec, true
		}
	}
	return models.EmergencyRecord{}, false
}

// All возвращает отсортированную копию истории
func (s *Store) All(userID string) []models.EmergencyRecord {
	s.mu.RLock()
	list := make([]models.EmergencyRecord, len(s.records[userID]))
	copy(list, s.records[userID])
	s.mu.RUnlock()

	normalize.SortHistory(list)
	return list
}

// Page возвращает страницу истории, начиная с 1. Номер вне диапазона приводится к ближайшей странице.
func (s *Store) Page(userID string, page int) Page {
	all := s.All(userID)
	total := len(all)
	totalPages := (total + PageSize - 1) / PageSize

	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * PageSize
	end := min(start+PageSize, total)
	items := []models.EmergencyRecord{}
	if start < end {
		items = all[start:end]
	}
	return Page{
		Items:      items,
		Page:       page,
		PageSize:   PageSize,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Forget удаляет историю пользователя
func (s *Store) Forget(userID string) {
	s.mu.Lock()
	delete(s.records, userID)
	s.mu.Unlock()
}
