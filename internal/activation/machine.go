package activation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rociobottinelli/citypass-emergency/internal/location"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/sirupsen/logrus"
)

// Dispatcher отправляет подтвержденный черновик. Вызывается не более одного раза на активацию.
type Dispatcher interface {
	Dispatch(ctx context.Context, draft models.ActivationDraft) (models.EmergencyRecord, error)
}

// DispatcherFunc позволяет использовать функцию как Dispatcher
type DispatcherFunc func(ctx context.Context, draft models.ActivationDraft) (models.EmergencyRecord, error)

func (f DispatcherFunc) Dispatch(ctx context.Context, draft models.ActivationDraft) (models.EmergencyRecord, error) {
	return f(ctx, draft)
}

// Config - параметры машины
type Config struct {
	CountdownSeconds    int
	TickInterval        time.Duration
	SuccessDisplayDelay time.Duration
	DispatchTimeout     time.Duration
	LocationTimeout     time.Duration
	MaxAttachments      int
	RedirectPath        string
}

// DefaultConfig - 5 секунд отсчета, 3 секунды показа успешной отправки
func DefaultConfig() Config {
	return Config{
		CountdownSeconds:    5,
		TickInterval:        time.Second,
		SuccessDisplayDelay: 3 * time.Second,
		DispatchTimeout:     15 * time.Second,
		LocationTimeout:     3 * time.Second,
		MaxAttachments:      5,
		RedirectPath:        "/ciudadano/dashboard",
	}
}

// Machine выполняет эффекты редьюсера. Все события сериализуются одним мьютексом.
type Machine struct {
	mu          sync.Mutex
	model       Model
	cfg         Config
	clock       Clock
	dispatcher  Dispatcher
	locator     location.Provider
	logger      *logrus.Entry
	newID       func() string
	stopTicker  func()
	resetTimer  Timer
	subscribers map[int]func(Snapshot)
	nextSubID   int
	seq         uint64

	// notifyMu упорядочивает доставку наблюдателям; берется после m.mu
	notifyMu     sync.Mutex
	lastNotified uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// Option настраивает Machine
type Option func(*Machine)

// WithClock подменяет источник времени
func WithClock(c Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithLocator задает провайдер позиции устройства
func WithLocator(p location.Provider) Option {
	return func(m *Machine) { m.locator = p }
}

// WithIDGenerator подменяет генератор идентификаторов черновиков
func WithIDGenerator(f func() string) Option {
	return func(m *Machine) { m.newID = f }
}

// NewMachine создает машину в состоянии Idle и запрашивает позицию для первого черновика
func NewMachine(cfg Config, dispatcher Dispatcher, logger *logrus.Entry, opts ...Option) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		cfg:         cfg,
		clock:       RealClock(),
		dispatcher:  dispatcher,
		logger:      logger,
		newID:       func() string { return uuid.NewString() },
		subscribers: make(map[int]func(Snapshot)),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(m)
	}

	model, effects := NewModel(m.newID())
	m.mu.Lock()
	m.model = model
	m.runEffects(effects)
	m.mu.Unlock()
	return m
}

func (m *Machine) settings() Settings {
	return Settings{
		CountdownSeconds: m.cfg.CountdownSeconds,
		MaxAttachments:   m.cfg.MaxAttachments,
	}
}

// Apply применяет событие и выполняет эффекты перехода
func (m *Machine) Apply(ev Event) error {
	m.mu.Lock()
	res, err := Reduce(m.model, ev, m.settings(), m.newID)
	if err != nil || !res.Changed {
		m.mu.Unlock()
		return err
	}
	prev := m.model.State.Phase()
	m.model = res.Model
	m.seq++
	m.runEffects(res.Effects)
	snap := m.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if prev != snap.Phase {
		m.logger.WithFields(logrus.Fields{
			"from":     prev,
			"to":       snap.Phase,
			"draft_id": snap.Draft.ID,
		}).Info("Activation state changed")
	}
	m.notify(subs, snap)
	return nil
}

// notify доставляет снимок, если наблюдатели еще не видели более позднего.
// Переход, зафиксированный раньше, но дошедший сюда позже, отбрасывается.
func (m *Machine) notify(subs []func(Snapshot), snap Snapshot) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	if snap.Seq <= m.lastNotified {
		return
	}
	m.lastNotified = snap.Seq
	for _, fn := range subs {
		fn(snap)
	}
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := snapshotOf(m.model, m.cfg.RedirectPath)
	snap.Seq = m.seq
	return snap
}

// Snapshot возвращает текущее состояние
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe регистрирует наблюдателя. Возвращает функцию отписки.
// fn вызывается последовательно и не должна вызывать Apply.
func (m *Machine) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// Close отбрасывает черновик и останавливает все таймеры машины.
// Уже начатая отправка не прерывается, но ее результат будет проигнорирован.
func (m *Machine) Close() {
	m.cancel()
	_ = m.Apply(Discard{})
	m.mu.Lock()
	m.stopCountdown()
	if m.resetTimer != nil {
		m.resetTimer.Stop()
		m.resetTimer = nil
	}
	m.subscribers = make(map[int]func(Snapshot))
	m.mu.Unlock()
}

// runEffects вызывается под m.mu и не блокируется
func (m *Machine) runEffects(effects []Effect) {
	for _, eff := range effects {
		switch e := eff.(type) {
		case StartCountdown:
			m.startCountdown(e.Epoch)
		case StopCountdown:
			m.stopCountdown()
		case StartDispatch:
			m.startDispatch(e.Epoch, e.Draft)
		case ScheduleReset:
			m.scheduleReset(e.Epoch)
		case RequestLocation:
			m.requestLocation(e.DraftID)
		}
	}
}

func (m *Machine) startCountdown(epoch uint64) {
	m.stopCountdown()
	ticker := m.clock.NewTicker(m.cfg.TickInterval)
	stop := make(chan struct{})
	m.stopTicker = func() {
		close(stop)
		ticker.Stop()
	}

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				// Тик после остановки отбрасывается редьюсером по эпохе и состоянию
				_ = m.Apply(Tick{Epoch: epoch})
			}
		}
	}()
}

func (m *Machine) stopCountdown() {
	if m.stopTicker != nil {
		m.stopTicker()
		m.stopTicker = nil
	}
}

func (m *Machine) startDispatch(epoch uint64, draft models.ActivationDraft) {
	log := m.logger.WithFields(logrus.Fields{
		"draft_id": draft.ID,
		"mode":     draft.Mode,
		"type":     draft.SelectedType,
	})
	log.Info("Dispatching emergency")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.DispatchTimeout)
		defer cancel()

		record, err := m.safeDispatch(ctx, draft)
		if err != nil {
			log.WithError(err).Warn("Emergency dispatch failed")
			_ = m.Apply(DispatchFailed{Epoch: epoch, Err: err})
			return
		}
		log.WithField("record_id", record.ID).Info("Emergency dispatched successfully")
		_ = m.Apply(DispatchSucceeded{Epoch: epoch, Record: record})
	}()
}

// safeDispatch превращает панику отправителя в ошибку, чтобы машина не застряла в Dispatching
func (m *Machine) safeDispatch(ctx context.Context, draft models.ActivationDraft) (rec models.EmergencyRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panicked: %v", r)
		}
	}()
	return m.dispatcher.Dispatch(ctx, draft)
}

func (m *Machine) scheduleReset(epoch uint64) {
	if m.resetTimer != nil {
		m.resetTimer.Stop()
	}
	m.resetTimer = m.clock.AfterFunc(m.cfg.SuccessDisplayDelay, func() {
		_ = m.Apply(ResetAfterSuccess{Epoch: epoch})
	})
}

func (m *Machine) requestLocation(draftID string) {
	if m.locator == nil || m.ctx.Err() != nil {
		return
	}
	provider := m.locator
	if m.cfg.LocationTimeout > 0 {
		provider = location.WithTimeout(provider, m.cfg.LocationTimeout)
	}

	go func() {
		coord, err := provider.RequestLocation(m.ctx)
		if err != nil {
			// Отсутствие позиции не мешает отправке
			m.logger.WithError(err).WithField("draft_id", draftID).Warn("Device location unavailable")
			return
		}
		_ = m.Apply(LocationResolved{DraftID: draftID, Coordinate: coord})
	}()
}
