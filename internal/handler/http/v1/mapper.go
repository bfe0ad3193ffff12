package v1

import (
	"time"

	"github.com/rociobottinelli/citypass-emergency/internal/activation"
	"github.com/rociobottinelli/citypass-emergency/internal/history"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/rociobottinelli/citypass-emergency/internal/normalize"
)

func coordinateResponse(c *models.Coordinate) *CoordinateResponse {
	if c == nil {
		return nil
	}
	return &CoordinateResponse{Lat: c.Lat, Lng: c.Lng}
}

// ModelToDraftResponse преобразует черновик в DTO. Содержимое вложений не отдается.
func ModelToDraftResponse(d models.ActivationDraft) DraftResponse {
	resp := DraftResponse{
		ID:               d.ID,
		Mode:             string(d.Mode),
		Type:             d.SelectedType,
		Services:         make([]string, 0, len(d.SelectedServices)),
		Description:      d.Description,
		Attachments:      make([]AttachmentResponse, 0, len(d.Attachments)),
		LocationOverride: d.LocationOverride,
		DeviceLocation:   coordinateResponse(d.DeviceLocation),
		Countdown:        d.Countdown,
	}
	for _, id := range d.SelectedServices {
		resp.Services = append(resp.Services, string(id))
	}
	for _, a := range d.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			Name:        a.Name,
			Kind:        string(a.Kind),
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return resp
}

// SnapshotToResponse преобразует снимок машины состояний в DTO
func SnapshotToResponse(s activation.Snapshot, now time.Time) *ActivationResponse {
	resp := &ActivationResponse{
		Seq:       s.Seq,
		Phase:     string(s.Phase),
		Remaining: s.Remaining,
		Reason:    s.Reason,
		Redirect:  s.Redirect,
		Draft:     ModelToDraftResponse(s.Draft),
	}
	if s.Record != nil {
		resp.Record = ModelToRecordResponse(*s.Record, now)
	}
	return resp
}

// ModelToRecordResponse преобразует запись истории в DTO с вычисленными полями отображения
func ModelToRecordResponse(r models.EmergencyRecord, now time.Time) *RecordResponse {
	resp := &RecordResponse{
		ID:          r.ID,
		Timestamp:   r.Timestamp,
		TimeAgo:     normalize.TimeAgo(r.Timestamp, now),
		Type:        r.Type,
		Location:    r.Location,
		Coordinates: coordinateResponse(r.Coordinates),
		State:       string(r.State),
		Services:    r.Services,
		Description: r.Description,
		Priority:    r.Priority,
		Origin:      string(r.Origin),
	}
	if resp.Services == nil {
		resp.Services = []string{}
	}
	// Ссылка на карту только для строк вида "lat, lon"
	resp.MapLink = normalize.MapLink(r.Location)
	return resp
}

// PageToResponse преобразует страницу истории в DTO
func PageToResponse(p history.Page, now time.Time) *HistoryPageResponse {
	resp := &HistoryPageResponse{
		Items:      make([]*RecordResponse, len(p.Items)),
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
	}
	for i, r := range p.Items {
		resp.Items[i] = ModelToRecordResponse(r, now)
	}
	return resp
}

// ModelsToAttemptResponses преобразует слайс попыток в слайс DTO
func ModelsToAttemptResponses(attempts []*models.ActivationAttempt) []*AttemptResponse {
	responses := make([]*AttemptResponse, len(attempts))
	for i, a := range attempts {
		responses[i] = &AttemptResponse{
			ID:        a.ID,
			DraftID:   a.DraftID,
			Mode:      string(a.Mode),
			Type:      a.Type,
			Services:  a.Services,
			RecordID:  a.RecordID,
			Outcome:   string(a.Outcome),
			Error:     a.Error,
			CreatedAt: a.CreatedAt,
		}
	}
	return responses
}
