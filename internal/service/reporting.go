package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rociobottinelli/citypass-emergency/internal/activation"
	"github.com/rociobottinelli/citypass-emergency/internal/catalog"
	"github.com/rociobottinelli/citypass-emergency/internal/config"
	"github.com/rociobottinelli/citypass-emergency/internal/dispatch"
	"github.com/rociobottinelli/citypass-emergency/internal/events"
	"github.com/rociobottinelli/citypass-emergency/internal/history"
	"github.com/rociobottinelli/citypass-emergency/internal/location"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/rociobottinelli/citypass-emergency/internal/normalize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Приоритет, с которым локальная запись попадает в историю до обновления с бэкенда
const defaultPriority = "Media"

// ActivationRepository определяет контракт журнала попыток и кеша истории
type ActivationRepository interface {
	SaveAttempt(ctx context.Context, attempt *models.ActivationAttempt) error
	ListAttempts(ctx context.Context, userID string, limit int) ([]*models.ActivationAttempt, error)
	GetDispatchStats(ctx context.Context, minutes int) (int, error)
	GetHistoryFromCache(ctx context.Context, userID string) ([]models.EmergencyRecord, error)
	SetHistoryCache(ctx context.Context, userID string, records []models.EmergencyRecord) error
	InvalidateHistoryCache(ctx context.Context, userID string) error
}

// LocationStore хранит позиции, которые сообщают устройства
type LocationStore interface {
	Save(ctx context.Context, fix *models.LocationFix) error
	ForUser(userID string) location.Provider
}

// ReportingService определяет контракт бизнес-логики активации и истории
type ReportingService interface {
	Activation(user models.User) activation.Snapshot
	Apply(user models.User, ev activation.Event) (activation.Snapshot, error)
	Subscribe(user models.User, fn func(activation.Snapshot)) (activation.Snapshot, func())
	ReportLocation(ctx context.Context, user models.User, coord models.Coordinate) error
	History(ctx context.Context, user models.User, page int) (history.Page, error)
	RefreshHistory(ctx context.Context, user models.User) (history.Page, error)
	CancelEmergency(ctx context.Context, user models.User, id string) error
	ListAttempts(ctx context.Context, user models.User, limit int) ([]*models.ActivationAttempt, error)
	GetStats(ctx context.Context) (int, error)
	EndSession(user models.User)
	EvictIdle() int
	StartEviction(ctx context.Context)
	Close()
}

// session - единственный черновик пользователя и его машина состояний
type session struct {
	mu       sync.Mutex
	user     models.User
	loaded   bool
	lastSeen time.Time
	streams  int
	machine  *activation.Machine
}

func (s *session) currentUser() models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// touch обновляет токен и время последнего обращения
func (s *session) touch(u models.User, now time.Time) {
	s.mu.Lock()
	s.user = u
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) addStream(delta int) {
	s.mu.Lock()
	s.streams += delta
	s.mu.Unlock()
}

// expired сообщает, что к сессии не обращались с cutoff и у нее нет открытых потоков
func (s *session) expired(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams == 0 && s.lastSeen.Before(cutoff)
}

func (s *session) isLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

func (s *session) markLoaded() {
	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
}

type reportingService struct {
	repo      ActivationRepository
	gateway   dispatch.Gateway
	locations LocationStore
	publisher events.Publisher
	history   *history.Store
	logger    *logrus.Logger
	cfg       *config.Config

	mu       sync.Mutex
	sessions map[string]*session
	refresh  singleflight.Group

	now         func() time.Time
	machineOpts []activation.Option
}

// NewReportingService создает сервис. locations может быть nil: тогда позиция устройства не запрашивается.
func NewReportingService(
	repo ActivationRepository,
	gateway dispatch.Gateway,
	locations LocationStore,
	publisher events.Publisher,
	store *history.Store,
	logger *logrus.Logger,
	cfg *config.Config,
) ReportingService {
	return &reportingService{
		repo:      repo,
		gateway:   gateway,
		locations: locations,
		publisher: publisher,
		history:   store,
		logger:    logger,
		cfg:       cfg,
		sessions:  make(map[string]*session),
		now:       time.Now,
	}
}

func activationConfig(cfg *config.Config) activation.Config {
	c := activation.DefaultConfig()
	if cfg.CountdownSeconds > 0 {
		c.CountdownSeconds = cfg.CountdownSeconds
	}
	if cfg.SuccessDisplayDelay > 0 {
		c.SuccessDisplayDelay = cfg.SuccessDisplayDelay
	}
	if cfg.DispatchTimeout > 0 {
		c.DispatchTimeout = cfg.DispatchTimeout
	}
	if cfg.LocationTimeout > 0 {
		c.LocationTimeout = cfg.LocationTimeout
	}
	if cfg.MaxAttachments > 0 {
		c.MaxAttachments = cfg.MaxAttachments
	}
	if cfg.DashboardPath != "" {
		c.RedirectPath = cfg.DashboardPath
	}
	return c
}

// session возвращает сессию пользователя, создавая ее при первом обращении.
// Токен обновляется при каждом обращении, чтобы отправка шла с актуальным.
func (s *reportingService) session(user models.User) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[user.ID]; ok {
		sess.touch(user, s.now())
		return sess
	}

	sess := &session{user: user, lastSeen: s.now()}
	opts := append([]activation.Option(nil), s.machineOpts...)
	if s.locations != nil {
		opts = append(opts, activation.WithLocator(s.locations.ForUser(user.ID)))
	}
	dispatcher := activation.DispatcherFunc(func(ctx context.Context, draft models.ActivationDraft) (models.EmergencyRecord, error) {
		return s.dispatch(ctx, sess.currentUser(), draft)
	})
	log := s.logger.WithFields(logrus.Fields{
		"service": "activation",
		"user_id": user.ID,
	})
	sess.machine = activation.NewMachine(activationConfig(s.cfg), dispatcher, log, opts...)
	s.sessions[user.ID] = sess

	log.Debug("Activation session created")
	return sess
}

// Activation возвращает текущее состояние активации пользователя
func (s *reportingService) Activation(user models.User) activation.Snapshot {
	return s.session(user).machine.Snapshot()
}

// Apply передает событие машине состояний пользователя
func (s *reportingService) Apply(user models.User, ev activation.Event) (activation.Snapshot, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "reporting",
		"method":  "Apply",
		"user_id": user.ID,
		"event":   fmt.Sprintf("%T", ev),
	})

	sess := s.session(user)
	if err := sess.machine.Apply(ev); err != nil {
		log.WithError(err).Warn("Activation event rejected")
		return sess.machine.Snapshot(), fmt.Errorf("service: activation event rejected: %w", err)
	}
	return sess.machine.Snapshot(), nil
}

// Subscribe подписывает fn на изменения состояния и возвращает текущий снимок
func (s *reportingService) Subscribe(user models.User, fn func(activation.Snapshot)) (activation.Snapshot, func()) {
	sess := s.session(user)
	sess.addStream(1)
	unsubscribe := sess.machine.Subscribe(fn)

	var once sync.Once
	return sess.machine.Snapshot(), func() {
		once.Do(func() {
			unsubscribe()
			sess.touch(sess.currentUser(), s.now())
			sess.addStream(-1)
		})
	}
}

// dispatch - единственная точка отправки черновика. Вызывается машиной не более одного раза на активацию.
// Ошибка возвращается без обертки: ее текст показывается пользователю как причина отказа.
func (s *reportingService) dispatch(ctx context.Context, user models.User, draft models.ActivationDraft) (models.EmergencyRecord, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "reporting",
		"method":   "dispatch",
		"user_id":  user.ID,
		"draft_id": draft.ID,
		"mode":     draft.Mode,
	})

	if user.Token == "" {
		log.Warn("Dispatch attempted without a session token")
		s.recordOutcome(ctx, user, draft, nil, dispatch.ErrUnauthenticated)
		return models.EmergencyRecord{}, dispatch.ErrUnauthenticated
	}

	req, err := dispatch.BuildRequest(user, draft, s.cfg.QuickEmergencyType)
	if err != nil {
		log.WithError(err).Error("Failed to build dispatch request")
		s.recordOutcome(ctx, user, draft, nil, err)
		return models.EmergencyRecord{}, err
	}

	resp, err := s.gateway.Send(ctx, user.Token, req)
	if err != nil {
		log.WithError(err).Warn("Backend did not accept the emergency")
		s.recordOutcome(ctx, user, draft, nil, err)
		return models.EmergencyRecord{}, err
	}

	rec := s.optimisticRecord(draft, req, resp)
	s.history.Append(user.ID, rec)
	if err := s.repo.InvalidateHistoryCache(ctx, user.ID); err != nil {
		log.WithError(err).Warn("Failed to invalidate history cache")
	}
	s.recordOutcome(ctx, user, draft, &rec, nil)

	log.WithField("record_id", rec.ID).Info("Emergency accepted by backend")
	return rec, nil
}

// optimisticRecord строит запись истории из отправленных данных, дополняя ее тем, что вернул бэкенд
func (s *reportingService) optimisticRecord(draft models.ActivationDraft, req dispatch.Request, resp *dispatch.Response) models.EmergencyRecord {
	rec := models.EmergencyRecord{
		ID:          uuid.NewString(),
		Timestamp:   s.now(),
		State:       models.StatePending,
		Services:    catalog.ServiceNames(draft.SelectedServices),
		Description: normalize.DescriptionOrDefault(draft.Description, draft.Mode),
		Priority:    defaultPriority,
	}

	var loc *models.Coordinate
	switch r := req.(type) {
	case dispatch.QuickRequest:
		rec.Type = r.Type
		rec.Origin = models.OriginButton
		loc = r.Location
	case dispatch.DetailedRequest:
		rec.Type = r.Type
		rec.Origin = models.OriginForm
		loc = r.Location
	}

	rec.Location = normalize.LocationForDisplay(loc)
	if loc != nil {
		c := *loc
		rec.Coordinates = &c
	}
	if r, ok := req.(dispatch.DetailedRequest); ok && r.PresetID != "" {
		if preset, ok := catalog.PresetByID(r.PresetID); ok {
			rec.Location = preset.Name
		}
	}

	if resp != nil {
		if resp.ID != "" {
			rec.ID = resp.ID
		}
		if !resp.Timestamp.IsZero() {
			rec.Timestamp = resp.Timestamp
		}
		if resp.State != "" {
			rec.State = resp.State
		}
	}
	return rec
}

// recordOutcome пишет попытку в журнал и публикует событие. Сбои здесь не влияют на результат отправки.
func (s *reportingService) recordOutcome(ctx context.Context, user models.User, draft models.ActivationDraft, rec *models.EmergencyRecord, dispatchErr error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "reporting",
		"method":   "recordOutcome",
		"user_id":  user.ID,
		"draft_id": draft.ID,
	})

	attempt := &models.ActivationAttempt{
		UserID:   user.ID,
		DraftID:  draft.ID,
		Mode:     draft.Mode,
		Type:     s.backendType(draft),
		Services: serviceIDs(draft.SelectedServices),
		Outcome:  models.OutcomeSucceeded,
	}
	if rec != nil {
		attempt.RecordID = rec.ID
	}
	if dispatchErr != nil {
		attempt.Outcome = models.OutcomeFailed
		attempt.Error = dispatchErr.Error()
	}

	if err := s.repo.SaveAttempt(ctx, attempt); err != nil {
		log.WithError(err).Error("Failed to save activation attempt")
	}

	if s.publisher == nil {
		return
	}
	event := events.ActivationEvent{
		UserID:    attempt.UserID,
		DraftID:   attempt.DraftID,
		Mode:      attempt.Mode,
		Type:      attempt.Type,
		Services:  attempt.Services,
		Outcome:   attempt.Outcome,
		RecordID:  attempt.RecordID,
		Error:     attempt.Error,
		Timestamp: s.now(),
	}
	if rec != nil {
		event.Location = rec.Coordinates
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish activation event")
	}
}

func (s *reportingService) backendType(draft models.ActivationDraft) string {
	if draft.Mode == models.ModeQuick {
		return s.cfg.QuickEmergencyType
	}
	return draft.SelectedType
}

func serviceIDs(ids []models.ServiceID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}

// ReportLocation сохраняет позицию устройства и передает ее текущему черновику
func (s *reportingService) ReportLocation(ctx context.Context, user models.User, coord models.Coordinate) error {
	log := s.logger.WithFields(logrus.Fields{
		"service": "reporting",
		"method":  "ReportLocation",
		"user_id": user.ID,
	})

	if s.locations != nil {
		fix := &models.LocationFix{UserID: user.ID, Coordinate: coord, ReportedAt: s.now()}
		if err := s.locations.Save(ctx, fix); err != nil {
			log.WithError(err).Error("Failed to save location fix")
			return fmt.Errorf("service: could not save location fix: %w", err)
		}
	}

	machine := s.session(user).machine
	draftID := machine.Snapshot().Draft.ID
	if err := machine.Apply(activation.LocationResolved{DraftID: draftID, Coordinate: &coord}); err != nil {
		return fmt.Errorf("service: could not apply location: %w", err)
	}
	log.Debug("Device location reported")
	return nil
}

// History возвращает страницу истории. Первое обращение загружает историю с бэкенда;
// ошибка загрузки не мешает показать то, что уже есть локально.
func (s *reportingService) History(ctx context.Context, user models.User, page int) (history.Page, error) {
	if !s.session(user).isLoaded() {
		if _, err := s.RefreshHistory(ctx, user); err != nil {
			s.logger.WithFields(logrus.Fields{
				"service": "reporting",
				"method":  "History",
				"user_id": user.ID,
			}).WithError(err).Warn("Initial history load failed, serving local history")
		}
	}
	return s.history.Page(user.ID, page), nil
}

// RefreshHistory заменяет локальную историю данными бэкенда. Одновременные обновления
// одного пользователя выполняются одним запросом.
func (s *reportingService) RefreshHistory(ctx context.Context, user models.User) (history.Page, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "reporting",
		"method":  "RefreshHistory",
		"user_id": user.ID,
	})
	sess := s.session(user)

	_, err, shared := s.refresh.Do(user.ID, func() (any, error) {
		raw, err := s.gateway.ListEmergencies(ctx, user.Token)
		if err != nil {
			cached, cacheErr := s.repo.GetHistoryFromCache(ctx, user.ID)
			if cacheErr != nil || cached == nil {
				return nil, err
			}
			log.WithError(err).Warn("Backend history unavailable, serving cached copy")
			s.history.Replace(user.ID, cached)
			sess.markLoaded()
			return nil, nil
		}

		records := normalize.RecordsForHistory(raw)
		s.history.Replace(user.ID, records)
		sess.markLoaded()
		if err := s.repo.SetHistoryCache(ctx, user.ID, records); err != nil {
			log.WithError(err).Warn("Failed to cache history")
		}
		log.WithField("count", len(records)).Info("History refreshed")
		return nil, nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to refresh history")
		return history.Page{}, fmt.Errorf("service: could not refresh history: %w", err)
	}
	if shared {
		log.Debug("History refresh shared with a concurrent request")
	}
	return s.history.Page(user.ID, 1), nil
}

// CancelEmergency отменяет ранее отправленную экстренную ситуацию
func (s *reportingService) CancelEmergency(ctx context.Context, user models.User, id string) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":      "reporting",
		"method":       "CancelEmergency",
		"user_id":      user.ID,
		"emergency_id": id,
	})
	log.Info("Attempting to cancel emergency")

	if err := s.gateway.UpdateStatus(ctx, user.Token, id, models.StateCancelled); err != nil {
		log.WithError(err).Warn("Backend refused cancellation")
		return fmt.Errorf("service: could not cancel emergency: %w", err)
	}

	if !s.history.SetState(user.ID, id, models.StateCancelled) {
		log.Debug("Cancelled emergency is not in local history")
	}
	if err := s.repo.InvalidateHistoryCache(ctx, user.ID); err != nil {
		log.WithError(err).Warn("Failed to invalidate history cache")
	}

	log.Info("Emergency cancelled successfully")
	return nil
}

// ListAttempts возвращает журнал попыток пользователя
func (s *reportingService) ListAttempts(ctx context.Context, user models.User, limit int) ([]*models.ActivationAttempt, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	attempts, err := s.repo.ListAttempts(ctx, user.ID, limit)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service": "reporting",
			"method":  "ListAttempts",
			"user_id": user.ID,
		}).WithError(err).Error("Failed to list activation attempts")
		return nil, fmt.Errorf("service: could not list attempts: %w", err)
	}
	return attempts, nil
}

// GetStats возвращает количество пользователей, успешно отправивших вызов за окно статистики
func (s *reportingService) GetStats(ctx context.Context) (int, error) {
	count, err := s.repo.GetDispatchStats(ctx, s.cfg.StatsTimeWindowMinutes)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"service": "reporting",
			"method":  "GetStats",
		}).WithError(err).Error("Failed to get dispatch stats")
		return 0, fmt.Errorf("service: could not get stats: %w", err)
	}
	return count, nil
}

// EndSession отбрасывает черновик пользователя и забывает его локальную историю
func (s *reportingService) EndSession(user models.User) {
	s.mu.Lock()
	sess, ok := s.sessions[user.ID]
	delete(s.sessions, user.ID)
	s.mu.Unlock()

	if ok {
		sess.machine.Close()
	}
	s.history.Forget(user.ID)
}

// EvictIdle закрывает сессии в состоянии Idle без открытых потоков,
// к которым не обращались дольше SessionIdleTTL. Возвращает число закрытых сессий.
func (s *reportingService) EvictIdle() int {
	ttl := s.cfg.SessionIdleTTL
	if ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	evicted := make(map[string]*session)
	for id, sess := range s.sessions {
		if !sess.expired(cutoff) || sess.machine.Snapshot().Phase != activation.PhaseIdle {
			continue
		}
		delete(s.sessions, id)
		evicted[id] = sess
	}
	s.mu.Unlock()

	for id, sess := range evicted {
		sess.machine.Close()
		s.history.Forget(id)
	}
	if len(evicted) > 0 {
		s.logger.WithFields(logrus.Fields{
			"service": "reporting",
			"method":  "EvictIdle",
			"count":   len(evicted),
		}).Info("Idle sessions evicted")
	}
	return len(evicted)
}

// StartEviction периодически закрывает простаивающие сессии до отмены ctx
func (s *reportingService) StartEviction(ctx context.Context) {
	interval := s.cfg.SessionSweepInterval
	if interval <= 0 || s.cfg.SessionIdleTTL <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.EvictIdle()
			}
		}
	}()
}

// Close останавливает все сессии
func (s *reportingService) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.machine.Close()
	}
}

// IsClientError сообщает, что ошибка вызвана действием пользователя, а не сбоем
func IsClientError(err error) bool {
	for _, target := range []error{
		activation.ErrNoServicesSelected,
		activation.ErrUnknownType,
		activation.ErrUnknownService,
		activation.ErrUnknownPreset,
		activation.ErrTooManyAttachments,
		activation.ErrUnsupportedAttachment,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict сообщает, что событие недопустимо в текущем состоянии активации
func IsConflict(err error) bool {
	return errors.Is(err, activation.ErrDraftLocked) ||
		errors.Is(err, activation.ErrActivationInProgress) ||
		errors.Is(err, activation.ErrRetryRequired) ||
		errors.Is(err, activation.ErrNotFailed)
}
