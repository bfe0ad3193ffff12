package activation

import (
	"github.com/rociobottinelli/citypass-emergency/internal/catalog"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
)

// Settings - параметры редьюсера
type Settings struct {
	CountdownSeconds int
	MaxAttachments   int
}

// Result - итог применения события. Changed=false означает, что событие проигнорировано.
type Result struct {
	Model   Model
	Effects []Effect
	Changed bool
}

// NewModel возвращает начальную модель с пустым черновиком
func NewModel(draftID string) (Model, []Effect) {
	m := Model{
		State: Idle{},
		Draft: emptyDraft(draftID),
	}
	return m, []Effect{RequestLocation{DraftID: draftID}}
}

// Reduce - единственная функция переходов. Не имеет побочных эффектов;
// newID вызывается только при создании нового черновика.
func Reduce(m Model, ev Event, s Settings, newID func() string) (Result, error) {
	switch e := ev.(type) {
	case QuickActivate:
		return reduceQuick(m, s, newID)
	case ConfirmDetailed:
		return reduceConfirm(m, s)
	case Retry:
		if _, ok := m.State.(Failed); !ok {
			return Result{Model: m}, ErrNotFailed
		}
		return rearm(m, s)
	case Cancel:
		return reduceCancel(m, newID)
	case Discard:
		next, effects := reset(m, newID)
		return Result{Model: next, Effects: append([]Effect{StopCountdown{}}, effects...), Changed: true}, nil
	case Tick:
		return reduceTick(m, e), nil
	case DispatchSucceeded:
		if _, ok := m.State.(Dispatching); !ok || e.Epoch != m.Epoch {
			return Result{Model: m}, nil
		}
		m.State = Succeeded{Record: e.Record}
		return Result{Model: m, Effects: []Effect{ScheduleReset{Epoch: m.Epoch}}, Changed: true}, nil
	case DispatchFailed:
		if _, ok := m.State.(Dispatching); !ok || e.Epoch != m.Epoch {
			return Result{Model: m}, nil
		}
		reason := "dispatch failed"
		if e.Err != nil {
			reason = e.Err.Error()
		}
		// Черновик остается как есть: описание и вложения не теряются
		m.State = Failed{Reason: reason}
		m.Draft.Countdown = 0
		return Result{Model: m, Changed: true}, nil
	case ResetAfterSuccess:
		if _, ok := m.State.(Succeeded); !ok || e.Epoch != m.Epoch {
			return Result{Model: m}, nil
		}
		next, effects := reset(m, newID)
		return Result{Model: next, Effects: effects, Changed: true}, nil
	case LocationResolved:
		if e.Coordinate == nil || e.DraftID != m.Draft.ID || m.Draft.DeviceLocation != nil {
			return Result{Model: m}, nil
		}
		m.Draft = m.Draft.Clone()
		c := *e.Coordinate
		m.Draft.DeviceLocation = &c
		return Result{Model: m, Changed: true}, nil
	}
	return reduceEdit(m, ev, s)
}

func reduceQuick(m Model, s Settings, newID func() string) (Result, error) {
	switch m.State.(type) {
	case Idle:
		d := m.Draft.Clone()
		d.Mode = models.ModeQuick
		d.SelectedType = catalog.QuickTypeID
		d.SelectedServices = catalog.QuickServices()
		d.Description = ""
		d.Attachments = []models.Attachment{}
		d.LocationOverride = ""
		m.Draft = d
		return arm(m, s), nil
	case Armed:
		// Кнопка во время отсчета работает как отмена
		return reduceCancel(m, newID)
	case Failed:
		return Result{Model: m}, ErrRetryRequired
	}
	return Result{Model: m}, ErrActivationInProgress
}

func reduceConfirm(m Model, s Settings) (Result, error) {
	switch m.State.(type) {
	case Idle, Failed:
	default:
		return Result{Model: m}, ErrActivationInProgress
	}
	if len(m.Draft.SelectedServices) == 0 {
		return Result{Model: m}, ErrNoServicesSelected
	}
	d := m.Draft.Clone()
	d.Mode = models.ModeDetailed
	if d.SelectedType == "" || d.SelectedType == catalog.QuickTypeID {
		d.SelectedType = catalog.TypeOther
	}
	m.Draft = d
	return arm(m, s), nil
}

// rearm повторно запускает отсчет для сохраненного черновика
func rearm(m Model, s Settings) (Result, error) {
	if m.Draft.Mode == models.ModeDetailed && len(m.Draft.SelectedServices) == 0 {
		return Result{Model: m}, ErrNoServicesSelected
	}
	return arm(m, s), nil
}

func arm(m Model, s Settings) Result {
	m.Epoch++
	m.State = Armed{Remaining: s.CountdownSeconds}
	m.Draft.Countdown = s.CountdownSeconds
	return Result{Model: m, Effects: []Effect{StartCountdown{Epoch: m.Epoch}}, Changed: true}
}

func reduceCancel(m Model, newID func() string) (Result, error) {
	switch m.State.(type) {
	case Dispatching:
		return Result{Model: m}, ErrActivationInProgress
	case Armed:
		next, effects := reset(m, newID)
		return Result{Model: next, Effects: append([]Effect{StopCountdown{}}, effects...), Changed: true}, nil
	}
	next, effects := reset(m, newID)
	return Result{Model: next, Effects: effects, Changed: true}, nil
}

func reduceTick(m Model, e Tick) Result {
	armed, ok := m.State.(Armed)
	// Тик, пришедший после отмены или от старого таймера, игнорируется
	if !ok || e.Epoch != m.Epoch {
		return Result{Model: m}
	}
	remaining := armed.Remaining - 1
	m.Draft.Countdown = max(remaining, 0)
	if remaining > 0 {
		m.State = Armed{Remaining: remaining}
		return Result{Model: m, Changed: true}
	}
	m.State = Dispatching{}
	return Result{
		Model: m,
		Effects: []Effect{
			StopCountdown{},
			StartDispatch{Epoch: m.Epoch, Draft: m.Draft.Clone()},
		},
		Changed: true,
	}
}

func reduceEdit(m Model, ev Event, s Settings) (Result, error) {
	switch m.State.(type) {
	case Idle, Failed:
	default:
		return Result{Model: m}, ErrDraftLocked
	}

	d := m.Draft.Clone()
	switch e := ev.(type) {
	case SelectType:
		t, ok := catalog.TypeByID(e.TypeID)
		if !ok {
			return Result{Model: m}, ErrUnknownType
		}
		// Замена, а не объединение: службы прошлого типа не сохраняются
		d.Mode = models.ModeDetailed
		d.SelectedType = t.ID
		d.SelectedServices = t.DefaultServices
	case ToggleService:
		if _, ok := catalog.ServiceByID(e.ServiceID); !ok {
			return Result{Model: m}, ErrUnknownService
		}
		if d.HasService(e.ServiceID) {
			kept := d.SelectedServices[:0]
			for _, id := range d.SelectedServices {
				if id != e.ServiceID {
					kept = append(kept, id)
				}
			}
			d.SelectedServices = kept
		} else {
			d.SelectedServices = append(d.SelectedServices, e.ServiceID)
		}
	case SetDescription:
		d.Description = e.Text
	case AddAttachment:
		switch e.Attachment.Kind {
		case models.AttachmentImage, models.AttachmentVideo, models.AttachmentAudio:
		default:
			return Result{Model: m}, ErrUnsupportedAttachment
		}
		if s.MaxAttachments > 0 && len(d.Attachments) >= s.MaxAttachments {
			return Result{Model: m}, ErrTooManyAttachments
		}
		d.Attachments = append(d.Attachments, e.Attachment)
	case RemoveAttachment:
		if e.Index < 0 || e.Index >= len(d.Attachments) {
			return Result{Model: m}, nil
		}
		d.Attachments = append(d.Attachments[:e.Index], d.Attachments[e.Index+1:]...)
	case SelectPreset:
		if e.PresetID != "" {
			if _, ok := catalog.PresetByID(e.PresetID); !ok {
				return Result{Model: m}, ErrUnknownPreset
			}
		}
		d.LocationOverride = e.PresetID
	default:
		return Result{Model: m}, nil
	}

	m.Draft = d
	return Result{Model: m, Changed: true}, nil
}

// reset уничтожает черновик и начинает новый
func reset(m Model, newID func() string) (Model, []Effect) {
	id := newID()
	return Model{
		State: Idle{},
		Draft: emptyDraft(id),
		Epoch: m.Epoch + 1,
	}, []Effect{RequestLocation{DraftID: id}}
}

func emptyDraft(id string) models.ActivationDraft {
	return models.ActivationDraft{
		ID:               id,
		SelectedServices: []models.ServiceID{},
		Attachments:      []models.Attachment{},
	}
}
