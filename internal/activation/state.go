// Package activation реализует машину состояний активации экстренного вызова:
// обратный отсчет, выбор режима и ровно одну отправку на подтвержденную активацию.
package activation

import (
	"errors"

	"github.com/rociobottinelli/citypass-emergency/internal/models"
)

var (
	ErrNoServicesSelected    = errors.New("select at least one emergency service")
	ErrDraftLocked           = errors.New("draft cannot be edited in the current state")
	ErrActivationInProgress  = errors.New("an activation is already in progress")
	ErrRetryRequired         = errors.New("failed activation must be retried or cancelled")
	ErrNotFailed             = errors.New("there is no failed activation to retry")
	ErrTooManyAttachments    = errors.New("too many attachments")
	ErrUnsupportedAttachment = errors.New("attachment must be an image, video or audio file")
	ErrUnknownType           = errors.New("unknown emergency type")
	ErrUnknownService        = errors.New("unknown emergency service")
	ErrUnknownPreset         = errors.New("unknown location preset")
)

// Phase - имя варианта состояния
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseArmed       Phase = "armed"
	PhaseDispatching Phase = "dispatching"
	PhaseSucceeded   Phase = "succeeded"
	PhaseFailed      Phase = "failed"
)

// State - одно из Idle, Armed, Dispatching, Succeeded, Failed
type State interface {
	Phase() Phase
}

type Idle struct{}

// Armed - идет обратный отсчет
type Armed struct {
	Remaining int
}

// Dispatching - запрос к бэкенду выполняется
type Dispatching struct{}

// Succeeded - бэкенд принял отчет; черновик сбрасывается после задержки
type Succeeded struct {
	Record models.EmergencyRecord
}

// Failed - отправка не удалась; черновик сохранен для повторного подтверждения
type Failed struct {
	Reason string
}

func (Idle) Phase() Phase        { return PhaseIdle }
func (Armed) Phase() Phase       { return PhaseArmed }
func (Dispatching) Phase() Phase { return PhaseDispatching }
func (Succeeded) Phase() Phase   { return PhaseSucceeded }
func (Failed) Phase() Phase      { return PhaseFailed }

// Model - полное состояние машины. Epoch увеличивается при каждом входе в Armed
// и при каждом сбросе черновика; события таймеров и отправки несут свою эпоху.
type Model struct {
	State State
	Draft models.ActivationDraft
	Epoch uint64
}

// Snapshot - представление машины для клиента. Seq растет с каждым примененным событием,
// больший Seq означает более позднее состояние.
type Snapshot struct {
	Seq       uint64                  `json:"seq"`
	Phase     Phase                   `json:"phase"`
	Remaining int                     `json:"remaining"`
	Reason    string                  `json:"reason,omitempty"`
	Record    *models.EmergencyRecord `json:"record,omitempty"`
	Redirect  string                  `json:"redirect,omitempty"`
	Draft     models.ActivationDraft  `json:"draft"`
}

func snapshotOf(m Model, redirect string) Snapshot {
	s := Snapshot{
		Phase: m.State.Phase(),
		Draft: m.Draft.Clone(),
	}
	switch st := m.State.(type) {
	case Armed:
		s.Remaining = st.Remaining
	case Failed:
		s.Reason = st.Reason
	case Succeeded:
		rec := st.Record
		s.Record = &rec
		s.Redirect = redirect
	}
	return s
}
