package activation

import (
	"github.com/rociobottinelli/citypass-emergency/internal/models"
)

// Event - вход редьюсера
type Event interface {
	isEvent()
}

type (
	// QuickActivate - нажатие кнопки экстренного вызова. Повторное нажатие во время отсчета отменяет его.
	QuickActivate struct{}
	// ConfirmDetailed - подтверждение формы подробного отчета
	ConfirmDetailed struct{}
	// Retry - повторное подтверждение после неудачной отправки
	Retry struct{}
	Cancel struct{}
	// Discard - пользователь ушел со страницы
	Discard struct{}

	Tick struct {
		Epoch uint64
	}
	DispatchSucceeded struct {
		Epoch  uint64
		Record models.EmergencyRecord
	}
	DispatchFailed struct {
		Epoch uint64
		Err   error
	}
	ResetAfterSuccess struct {
		Epoch uint64
	}

	SelectType struct {
		TypeID string
	}
	ToggleService struct {
		ServiceID models.ServiceID
	}
	SetDescription struct {
		Text string
	}
	AddAttachment struct {
		Attachment models.Attachment
	}
	RemoveAttachment struct {
		Index int
	}
	// SelectPreset выбирает известное место; пустой PresetID сбрасывает выбор
	SelectPreset struct {
		PresetID string
	}
	LocationResolved struct {
		DraftID    string
		Coordinate *models.Coordinate
	}
)

func (QuickActivate) isEvent()     {}
func (ConfirmDetailed) isEvent()   {}
func (Retry) isEvent()             {}
func (Cancel) isEvent()            {}
func (Discard) isEvent()           {}
func (Tick) isEvent()              {}
func (DispatchSucceeded) isEvent() {}
func (DispatchFailed) isEvent()    {}
func (ResetAfterSuccess) isEvent() {}
func (SelectType) isEvent()        {}
func (ToggleService) isEvent()     {}
func (SetDescription) isEvent()    {}
func (AddAttachment) isEvent()     {}
func (RemoveAttachment) isEvent()  {}
func (SelectPreset) isEvent()      {}
func (LocationResolved) isEvent()  {}

// Effect - побочное действие, которое выполняет Machine после перехода
type Effect interface {
	isEffect()
}

type (
	StartCountdown struct {
		Epoch uint64
	}
	StopCountdown struct{}
	// StartDispatch выдается ровно один раз на эпоху, при переходе Armed -> Dispatching
	StartDispatch struct {
		Epoch uint64
		Draft models.ActivationDraft
	}
	ScheduleReset struct {
		Epoch uint64
	}
	RequestLocation struct {
		DraftID string
	}
)

func (StartCountdown) isEffect()  {}
func (StopCountdown) isEffect()   {}
func (StartDispatch) isEffect()   {}
func (ScheduleReset) isEffect()   {}
func (RequestLocation) isEffect() {}
