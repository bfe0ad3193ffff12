package activation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rociobottinelli/citypass-emergency/internal/catalog"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSettings = Settings{CountdownSeconds: 5, MaxAttachments: 5}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("draft-%d", n)
	}
}

// apply применяет события по очереди и падает на первой ошибке
func apply(t *testing.T, m Model, newID func() string, events ...Event) (Model, []Effect) {
	t.Helper()
	var effects []Effect
	for _, ev := range events {
		res, err := Reduce(m, ev, testSettings, newID)
		require.NoError(t, err, "event %T", ev)
		m = res.Model
		effects = res.Effects
	}
	return m, effects
}

func countDispatches(effects []Effect) int {
	n := 0
	for _, e := range effects {
		if _, ok := e.(StartDispatch); ok {
			n++
		}
	}
	return n
}

func TestReduce_ConfirmWithoutServicesRejected(t *testing.T) {
	// Подготовка
	m, _ := NewModel("draft-0")

	// Действие
	res, err := Reduce(m, ConfirmDetailed{}, testSettings, sequentialIDs())

	// Проверки
	assert.ErrorIs(t, err, ErrNoServicesSelected)
	assert.Equal(t, PhaseIdle, res.Model.State.Phase())
	assert.Empty(t, res.Effects)
	assert.False(t, res.Changed)
}

func TestReduce_SelectTypeOverwritesServices(t *testing.T) {
	m, _ := NewModel("draft-0")

	m, _ = apply(t, m, sequentialIDs(),
		SelectType{TypeID: catalog.TypeFlood},
		SelectType{TypeID: catalog.TypeRobbery},
	)

	robbery, _ := catalog.TypeByID(catalog.TypeRobbery)
	assert.Equal(t, robbery.DefaultServices, m.Draft.SelectedServices)
	assert.Equal(t, models.ModeDetailed, m.Draft.Mode)
	assert.False(t, m.Draft.HasService(models.ServiceCivilDefense))
}

func TestReduce_ToggleServiceIsXor(t *testing.T) {
	m, _ := NewModel("draft-0")

	m, _ = apply(t, m, sequentialIDs(), ToggleService{ServiceID: models.ServiceFire})
	assert.Equal(t, []models.ServiceID{models.ServiceFire}, m.Draft.SelectedServices)

	m, _ = apply(t, m, sequentialIDs(), ToggleService{ServiceID: models.ServiceFire})
	assert.Empty(t, m.Draft.SelectedServices)
}

func TestReduce_UnknownCatalogEntries(t *testing.T) {
	m, _ := NewModel("draft-0")
	ids := sequentialIDs()

	_, err := Reduce(m, SelectType{TypeID: "Meteorito"}, testSettings, ids)
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = Reduce(m, ToggleService{ServiceID: "grua"}, testSettings, ids)
	assert.ErrorIs(t, err, ErrUnknownService)

	_, err = Reduce(m, SelectPreset{PresetID: "luna"}, testSettings, ids)
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestReduce_QuickActivateArms(t *testing.T) {
	m, _ := NewModel("draft-0")

	m, effects := apply(t, m, sequentialIDs(), QuickActivate{})

	assert.Equal(t, Armed{Remaining: 5}, m.State)
	assert.Equal(t, models.ModeQuick, m.Draft.Mode)
	assert.Equal(t, catalog.QuickTypeID, m.Draft.SelectedType)
	assert.Equal(t, catalog.QuickServices(), m.Draft.SelectedServices)
	assert.Equal(t, []Effect{StartCountdown{Epoch: 1}}, effects)
}

func TestReduce_CountdownDispatchesExactlyOnce(t *testing.T) {
	// Подготовка
	m, _ := NewModel("draft-0")
	ids := sequentialIDs()
	m, _ = apply(t, m, ids, ToggleService{ServiceID: models.ServicePolice}, ConfirmDetailed{})
	epoch := m.Epoch

	// Действие: лишние тики после нуля
	dispatches := 0
	for i := 0; i < 10; i++ {
		res, err := Reduce(m, Tick{Epoch: epoch}, testSettings, ids)
		require.NoError(t, err)
		dispatches += countDispatches(res.Effects)
		m = res.Model
	}

	// Проверки
	assert.Equal(t, 1, dispatches)
	assert.Equal(t, PhaseDispatching, m.State.Phase())
	assert.Equal(t, 0, m.Draft.Countdown)
}

func TestReduce_CountdownDecrements(t *testing.T) {
	m, _ := NewModel("draft-0")
	m, _ = apply(t, m, sequentialIDs(), QuickActivate{})

	m, effects := apply(t, m, sequentialIDs(), Tick{Epoch: m.Epoch}, Tick{Epoch: m.Epoch})

	assert.Equal(t, Armed{Remaining: 3}, m.State)
	assert.Equal(t, 3, m.Draft.Countdown)
	assert.Empty(t, effects)
}

func TestReduce_StaleTickIgnored(t *testing.T) {
	m, _ := NewModel("draft-0")
	ids := sequentialIDs()
	m, _ = apply(t, m, ids, QuickActivate{})
	stale := m.Epoch

	// Отмена и повторная активация: тик старой эпохи не должен влиять
	m, _ = apply(t, m, ids, Cancel{}, QuickActivate{})
	res, err := Reduce(m, Tick{Epoch: stale}, testSettings, ids)

	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, Armed{Remaining: 5}, res.Model.State)
}

func TestReduce_TickInIdleIgnored(t *testing.T) {
	m, _ := NewModel("draft-0")

	res, err := Reduce(m, Tick{Epoch: 0}, testSettings, sequentialIDs())

	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, PhaseIdle, res.Model.State.Phase())
}

func TestReduce_CancelWhileArmed(t *testing.T) {
	m, _ := NewModel("draft-0")
	ids := sequentialIDs()
	m, _ = apply(t, m, ids, QuickActivate{})
	armedEpoch := m.Epoch

	m, effects := apply(t, m, ids, Cancel{})

	assert.Equal(t, PhaseIdle, m.State.Phase())
	assert.Greater(t, m.Epoch, armedEpoch)
	assert.Equal(t, "draft-1", m.Draft.ID)
	assert.Empty(t, m.Draft.SelectedServices)
	assert.Equal(t, []Effect{StopCountdown{}, RequestLocation{DraftID: "draft-1"}}, effects)
}

func TestReduce_QuickPressWhileArmedCancels(t *testing.T) {
	m, _ := NewModel("draft-0")
	ids := sequentialIDs()

	m, _ = apply(t, m, ids, QuickActivate{}, QuickActivate{})

	assert.Equal(t, PhaseIdle, m.State.Phase())
}

func TestReduce_NoSecondActivationWhileDispatching(t *testing.T) {
	m := Model{State: Dispatching{}, Draft: emptyDraft("d"), Epoch: 3}
	ids := sequentialIDs()

	_, err := Reduce(m, QuickActivate{}, testSettings, ids)
	assert.ErrorIs(t, err, ErrActivationInProgress)

	_, err = Reduce(m, ConfirmDetailed{}, testSettings, ids)
	assert.ErrorIs(t, err, ErrActivationInProgress)

	_, err = Reduce(m, Cancel{}, testSettings, ids)
	assert.ErrorIs(t, err, ErrActivationInProgress)
}

func TestReduce_EditsLockedWhileArmed(t *testing.T) {
	m, _ := NewModel("draft-0")
	m, _ = apply(t, m, sequentialIDs(), QuickActivate{})

	_, err := Reduce(m, SetDescription{Text: "x"}, testSettings, sequentialIDs())

	assert.ErrorIs(t, err, ErrDraftLocked)
}

func TestReduce_FailurePreservesDraft(t *testing.T) {
	// Подготовка
	m, _ := NewModel("draft-0")
	ids := sequentialIDs()
	photo := models.Attachment{Name: "a.jpg", Kind: models.AttachmentImage, Data: []byte{1}}
	m, _ = apply(t, m, ids,
		SelectType{TypeID: catalog.TypeHealth},
		SetDescription{Text: "Persona desmayada"},
		AddAttachment{Attachment: photo},
		ConfirmDetailed{},
	)
	epoch := m.Epoch
	for i := 0; i < testSettings.CountdownSeconds; i++ {
		m, _ = apply(t, m, ids, Tick{Epoch: epoch})
	}
	require.Equal(t, PhaseDispatching, m.State.Phase())

	// Действие
	m, effects := apply(t, m, ids, DispatchFailed{Epoch: epoch, Err: errors.New("Error de conexión")})

	// Проверки
	assert.Equal(t, Failed{Reason: "Error de conexión"}, m.State)
	assert.Empty(t, effects)
	assert.Equal(t, "Persona desmayada", m.Draft.Description)
	assert.Equal(t, []models.Attachment{photo}, m.Draft.Attachments)

	// Явное повторное подтверждение снова запускает отсчет
	m, effects = apply(t, m, ids, Retry{})
	assert.Equal(t, Armed{Remaining: 5}, m.State)
	assert.Equal(t, []Effect{StartCountdown{Epoch: epoch + 1}}, effects)
	assert.Equal(t, "Persona desmayada", m.Draft.Description)
}

func TestReduce_FailedRequiresExplicitChoice(t *testing.T) {
	m := Model{State: Failed{Reason: "x"}, Draft: emptyDraft("d"), Epoch: 1}

	_, err := Reduce(m, QuickActivate{}, testSettings, sequentialIDs())
	assert.ErrorIs(t, err, ErrRetryRequired)

	res, err := Reduce(m, Cancel{}, testSettings, sequentialIDs())
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, res.Model.State.Phase())
}

func TestReduce_RetryOnlyFromFailed(t *testing.T) {
	m, _ := NewModel("draft-0")

	_, err := Reduce(m, Retry{}, testSettings, sequentialIDs())

	assert.ErrorIs(t, err, ErrNotFailed)
}

func TestReduce_SuccessThenReset(t *testing.T) {
	m := Model{State: Dispatching{}, Draft: emptyDraft("d"), Epoch: 4}
	rec := models.EmergencyRecord{ID: "e1"}
	ids := sequentialIDs()

	m, effects := apply(t, m, ids, DispatchSucceeded{Epoch: 4, Record: rec})
	assert.Equal(t, Succeeded{Record: rec}, m.State)
	assert.Equal(t, []Effect{ScheduleReset{Epoch: 4}}, effects)

	m, _ = apply(t, m, ids, ResetAfterSuccess{Epoch: 4})
	assert.Equal(t, PhaseIdle, m.State.Phase())
	assert.Equal(t, "draft-1", m.Draft.ID)
}

func TestReduce_LateResultAfterDiscardIgnored(t *testing.T) {
	m := Model{State: Dispatching{}, Draft: emptyDraft("d"), Epoch: 2}
	ids := sequentialIDs()
	m, _ = apply(t, m, ids, Discard{})

	res, err := Reduce(m, DispatchSucceeded{Epoch: 2}, testSettings, ids)

	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, PhaseIdle, res.Model.State.Phase())
}

func TestReduce_PresetSurvivesTypeChange(t *testing.T) {
	m, _ := NewModel("draft-0")

	m, _ = apply(t, m, sequentialIDs(),
		SelectType{TypeID: catalog.TypeFire},
		SelectPreset{PresetID: "plaza-viva"},
		SelectType{TypeID: catalog.TypeHealth},
	)

	// Выбор остается, но для несвязанного типа не применяется при отправке
	assert.Equal(t, "plaza-viva", m.Draft.LocationOverride)

	m, _ = apply(t, m, sequentialIDs(), SelectPreset{})
	assert.Empty(t, m.Draft.LocationOverride)
}

func TestReduce_Attachments(t *testing.T) {
	m, _ := NewModel("draft-0")
	ids := sequentialIDs()

	_, err := Reduce(m, AddAttachment{Attachment: models.Attachment{Kind: "document"}}, testSettings, ids)
	assert.ErrorIs(t, err, ErrUnsupportedAttachment)

	for i := 0; i < testSettings.MaxAttachments; i++ {
		m, _ = apply(t, m, ids, AddAttachment{Attachment: models.Attachment{Name: fmt.Sprint(i), Kind: models.AttachmentAudio}})
	}
	_, err = Reduce(m, AddAttachment{Attachment: models.Attachment{Kind: models.AttachmentVideo}}, testSettings, ids)
	assert.ErrorIs(t, err, ErrTooManyAttachments)

	m, _ = apply(t, m, ids, RemoveAttachment{Index: 0})
	require.Len(t, m.Draft.Attachments, testSettings.MaxAttachments-1)
	assert.Equal(t, "1", m.Draft.Attachments[0].Name)
}

func TestReduce_LocationResolvedOnce(t *testing.T) {
	m, _ := NewModel("draft-0")
	first := &models.Coordinate{Lat: 1, Lng: 1}
	ids := sequentialIDs()

	m, _ = apply(t, m, ids, LocationResolved{DraftID: "draft-0", Coordinate: first})
	res, err := Reduce(m, LocationResolved{DraftID: "draft-0", Coordinate: &models.Coordinate{Lat: 2, Lng: 2}}, testSettings, ids)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, *first, *res.Model.Draft.DeviceLocation)

	// Позиция для уничтоженного черновика не применяется
	other, _ := NewModel("draft-9")
	res, err = Reduce(other, LocationResolved{DraftID: "draft-0", Coordinate: first}, testSettings, ids)
	require.NoError(t, err)
	assert.Nil(t, res.Model.Draft.DeviceLocation)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	m, _ := NewModel("draft-0")
	m, _ = apply(t, m, sequentialIDs(), SelectType{TypeID: catalog.TypeAccident})
	before := m.Draft.Clone()

	_, err := Reduce(m, ToggleService{ServiceID: models.ServiceAmbulance}, testSettings, sequentialIDs())

	require.NoError(t, err)
	assert.Equal(t, before.SelectedServices, m.Draft.SelectedServices)
}
