package models

// Mode - способ отправки активации
type Mode string

const (
	ModeQuick    Mode = "quick"
	ModeDetailed Mode = "detailed"
)

// AttachmentKind - тип медиа вложения
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentVideo AttachmentKind = "video"
	AttachmentAudio AttachmentKind = "audio"
)

// Attachment - файл, прикрепленный к подробному отчету
type Attachment struct {
	Name        string         `json:"name"`
	Kind        AttachmentKind `json:"kind"`
	ContentType string         `json:"content_type"`
	Size        int            `json:"size"`
	Data        []byte         `json:"-"`
}

// ActivationDraft - изменяемое состояние одной попытки сообщить об экстренной ситуации.
// Жизненный цикл управляется пакетом activation.
type ActivationDraft struct {
	ID               string       `json:"id"`
	Mode             Mode         `json:"mode,omitempty"`
	SelectedType     string       `json:"selected_type,omitempty"`
	SelectedServices []ServiceID  `json:"selected_services"`
	Description      string       `json:"description,omitempty"`
	Attachments      []Attachment `json:"attachments"`
	LocationOverride string       `json:"location_override,omitempty"`
	DeviceLocation   *Coordinate  `json:"device_location,omitempty"`
	Countdown        int          `json:"countdown"`
}

// HasService сообщает, выбрана ли служба
func (d *ActivationDraft) HasService(id ServiceID) bool {
	for _, s := range d.SelectedServices {
		if s == id {
			return true
		}
	}
	return false
}

// Clone возвращает копию черновика, не разделяющую слайсы с оригиналом
func (d ActivationDraft) Clone() ActivationDraft {
	c := d
	c.SelectedServices = make([]ServiceID, len(d.SelectedServices))
	copy(c.SelectedServices, d.SelectedServices)
	c.Attachments = make([]Attachment, len(d.Attachments))
	copy(c.Attachments, d.Attachments)
	if d.DeviceLocation != nil {
		loc := *d.DeviceLocation
		c.DeviceLocation = &loc
	}
	return c
}
