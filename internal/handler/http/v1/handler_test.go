package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rociobottinelli/citypass-emergency/internal/activation"
	"github.com/rociobottinelli/citypass-emergency/internal/config"
	"github.com/rociobottinelli/citypass-emergency/internal/dispatch"
	"github.com/rociobottinelli/citypass-emergency/internal/history"
	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/rociobottinelli/citypass-emergency/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// newTestHandler создает новый экземпляр Handler с мокированным сервисом
func newTestHandler(t *testing.T) (*Handler, *mocks.MockReportingService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockReportingService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys:                []string{"test-api-key"},
		StatsTimeWindowMinutes: 60,
		JWTSecret:              testSecret,
		MaxAttachmentBytes:     1024,
	}

	handler := NewHandler(mockService, logger, cfg)
	handler.now = func() time.Time { return fixedNow }

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, mockService, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// authHeader возвращает заголовок с токеном пользователя u1
func authHeader(t *testing.T) map[string]string {
	return map[string]string{"Authorization": "Bearer " + signToken(t, jwt.MapClaims{"userId": "u1"}, testSecret)}
}

// userWithID сопоставляет models.User только по идентификатору
func userWithID(id string) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		u, ok := x.(models.User)
		return ok && u.ID == id && u.Token != ""
	})
}

func armedSnapshot() activation.Snapshot {
	return activation.Snapshot{
		Seq:       3,
		Phase:     activation.PhaseArmed,
		Remaining: 5,
		Draft: models.ActivationDraft{
			ID:               "draft-1",
			Mode:             models.ModeQuick,
			SelectedType:     "emergencia_general",
			SelectedServices: []models.ServiceID{models.ServiceAmbulance, models.ServicePolice},
			Countdown:        5,
		},
	}
}

func TestListCatalog(t *testing.T) {
	_, _, router := newTestHandler(t)

	for _, path := range []string{"/api/v1/catalog/services", "/api/v1/catalog/types", "/api/v1/catalog/locations"} {
		w := makeRequest(router, "GET", path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := makeRequest(router, "GET", "/api/v1/catalog/locations", nil)
	assert.Contains(t, w.Body.String(), "Plaza Viva")
}

func TestGetActivation_RequiresToken(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/activation", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication token required")
}

func TestGetActivation_InvalidSignature(t *testing.T) {
	_, _, router := newTestHandler(t)
	token := signToken(t, jwt.MapClaims{"userId": "u1"}, "other-secret")

	w := makeRequest(router, "GET", "/api/v1/activation", nil, map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid authentication token")
}

func TestGetActivation_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Activation(userWithID("u1")).Return(activation.Snapshot{Phase: activation.PhaseIdle})

	w := makeRequest(router, "GET", "/api/v1/activation", nil, authHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ActivationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "idle", resp.Phase)
	assert.NotNil(t, resp.Draft.Services)
	assert.NotNil(t, resp.Draft.Attachments)
}

func TestQuickActivate_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Apply(userWithID("u1"), activation.QuickActivate{}).Return(armedSnapshot(), nil)

	w := makeRequest(router, "POST", "/api/v1/activation/quick", nil, authHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ActivationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "armed", resp.Phase)
	assert.Equal(t, 5, resp.Remaining)
	assert.Equal(t, []string{"ambulancia", "policia"}, resp.Draft.Services)
}

func TestQuickActivate_InProgress(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Apply(gomock.Any(), activation.QuickActivate{}).
		Return(activation.Snapshot{Phase: activation.PhaseDispatching},
			fmt.Errorf("service: activation event rejected: %w", activation.ErrActivationInProgress))

	w := makeRequest(router, "POST", "/api/v1/activation/quick", nil, authHeader(t))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), activation.ErrActivationInProgress.Error())
}

func TestSelectType_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Apply(gomock.Any(), activation.SelectType{TypeID: "Incendio"}).
		Return(activation.Snapshot{Phase: activation.PhaseIdle}, nil)

	w := makeRequest(router, "PUT", "/api/v1/activation/type", strings.NewReader(`{"type":"Incendio"}`), authHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSelectType_ValidationError(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "PUT", "/api/v1/activation/type", strings.NewReader(`{"type":""}`), authHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectType_InvalidJSON(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "PUT", "/api/v1/activation/type", strings.NewReader(`{"type":`), authHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestSelectType_UnknownType(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Apply(gomock.Any(), activation.SelectType{TypeID: "Terremoto"}).
		Return(activation.Snapshot{}, fmt.Errorf("service: activation event rejected: %w", activation.ErrUnknownType))

	w := makeRequest(router, "PUT", "/api/v1/activation/type", strings.NewReader(`{"type":"Terremoto"}`), authHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), activation.ErrUnknownType.Error())
}

func TestToggleService_DraftLocked(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Apply(gomock.Any(), activation.ToggleService{ServiceID: models.ServiceFire}).
		Return(armedSnapshot(), fmt.Errorf("service: activation event rejected: %w", activation.ErrDraftLocked))

	w := makeRequest(router, "POST", "/api/v1/activation/services/bomberos/toggle", nil, authHeader(t))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetDescription_TooLong(t *testing.T) {
	_, _, router := newTestHandler(t)
	body := fmt.Sprintf(`{"description":%q}`, strings.Repeat("a", 2001))

	w := makeRequest(router, "PUT", "/api/v1/activation/description", strings.NewReader(body), authHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// newUploadRequest создает multipart-запрос с одним файлом
func newUploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/v1/activation/attachments", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for k, v := range authHeader(t) {
		req.Header.Set(k, v)
	}
	return req
}

func TestAddAttachment_DetectsImage(t *testing.T) {
	_, mockService, router := newTestHandler(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	// Ожидания
	mockService.EXPECT().Apply(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ models.User, ev activation.Event) (activation.Snapshot, error) {
			add, ok := ev.(activation.AddAttachment)
			if assert.True(t, ok) {
				assert.Equal(t, models.AttachmentImage, add.Attachment.Kind)
				assert.Equal(t, "image/png", add.Attachment.ContentType)
				assert.Equal(t, "foto.png", add.Attachment.Name)
				assert.Equal(t, len(png), add.Attachment.Size)
			}
			return activation.Snapshot{Phase: activation.PhaseIdle}, nil
		})

	// Действие
	w := httptest.NewRecorder()
	router.ServeHTTP(w, newUploadRequest(t, "foto.png", png))

	// Проверки
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddAttachment_UnsupportedKind(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Apply(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ models.User, ev activation.Event) (activation.Snapshot, error) {
			add := ev.(activation.AddAttachment)
			assert.Empty(t, add.Attachment.Kind)
			return activation.Snapshot{}, fmt.Errorf("service: activation event rejected: %w", activation.ErrUnsupportedAttachment)
		})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newUploadRequest(t, "notes.txt", []byte("just some text")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), activation.ErrUnsupportedAttachment.Error())
}

func TestAddAttachment_TooLarge(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, newUploadRequest(t, "big.png", make([]byte, 2048)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestAddAttachment_MissingFile(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "POST", "/api/v1/activation/attachments", strings.NewReader(`{}`), authHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file is required")
}

func TestRemoveAttachment(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Apply(gomock.Any(), activation.RemoveAttachment{Index: 1}).
		Return(activation.Snapshot{Phase: activation.PhaseIdle}, nil)

	w := makeRequest(router, "DELETE", "/api/v1/activation/attachments/1", nil, authHeader(t))
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(router, "DELETE", "/api/v1/activation/attachments/abc", nil, authHeader(t))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreset_SelectAndClear(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	gomock.InOrder(
		mockService.EXPECT().Apply(gomock.Any(), activation.SelectPreset{PresetID: "plaza-viva"}).
			Return(activation.Snapshot{Phase: activation.PhaseIdle}, nil),
		mockService.EXPECT().Apply(gomock.Any(), activation.SelectPreset{}).
			Return(activation.Snapshot{Phase: activation.PhaseIdle}, nil),
	)

	w := makeRequest(router, "PUT", "/api/v1/activation/preset", strings.NewReader(`{"preset_id":"plaza-viva"}`), authHeader(t))
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(router, "DELETE", "/api/v1/activation/preset", nil, authHeader(t))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConfirmDetailed_NoServices(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().Apply(gomock.Any(), activation.ConfirmDetailed{}).
		Return(activation.Snapshot{Phase: activation.PhaseIdle},
			fmt.Errorf("service: activation event rejected: %w", activation.ErrNoServicesSelected))

	w := makeRequest(router, "POST", "/api/v1/activation/confirm", nil, authHeader(t))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "select at least one emergency service")
}

func TestLifecycleEndpoints(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	cases := []struct {
		method string
		path   string
		event  activation.Event
	}{
		{"POST", "/api/v1/activation/retry", activation.Retry{}},
		{"POST", "/api/v1/activation/cancel", activation.Cancel{}},
		{"DELETE", "/api/v1/activation", activation.Discard{}},
	}
	for _, tc := range cases {
		mockService.EXPECT().Apply(gomock.Any(), tc.event).Return(activation.Snapshot{Phase: activation.PhaseIdle}, nil)

		w := makeRequest(router, tc.method, tc.path, nil, authHeader(t))
		assert.Equal(t, http.StatusOK, w.Code, tc.path)
	}
}

func TestGetActivation_FailedCarriesReason(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	snap := armedSnapshot()
	snap.Phase = activation.PhaseFailed
	snap.Remaining = 0
	snap.Reason = "Servicio no disponible"
	mockService.EXPECT().Activation(gomock.Any()).Return(snap)

	w := makeRequest(router, "GET", "/api/v1/activation", nil, authHeader(t))

	var resp ActivationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Phase)
	assert.Equal(t, "Servicio no disponible", resp.Reason)
	assert.Equal(t, "draft-1", resp.Draft.ID)
}

func TestReportLocation_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().
		ReportLocation(gomock.Any(), userWithID("u1"), models.Coordinate{Lat: -34.6, Lng: -58.38}).
		Return(nil)

	w := makeRequest(router, "POST", "/api/v1/location", strings.NewReader(`{"latitude":-34.6,"longitude":-58.38}`), authHeader(t))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestReportLocation_ValidationError(t *testing.T) {
	_, _, router := newTestHandler(t)

	for _, body := range []string{`{"latitude":91,"longitude":0}`, `{"longitude":0}`} {
		w := makeRequest(router, "POST", "/api/v1/location", strings.NewReader(body), authHeader(t))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestReportLocation_ServiceError(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().ReportLocation(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	w := makeRequest(router, "POST", "/api/v1/location", strings.NewReader(`{"latitude":0,"longitude":0}`), authHeader(t))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "redis down")
}

func TestGetHistory_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	page := history.Page{
		Items: []models.EmergencyRecord{{
			ID:        "e1",
			Timestamp: fixedNow.Add(-5 * time.Minute),
			Type:      "Incendio",
			Location:  "-34.6083, -58.3712",
			State:     models.StatePending,
			Services:  []string{"Bomberos"},
		}},
		Page:       2,
		PageSize:   history.PageSize,
		Total:      5,
		TotalPages: 2,
	}
	mockService.EXPECT().History(gomock.Any(), userWithID("u1"), 2).Return(page, nil)

	w := makeRequest(router, "GET", "/api/v1/history?page=2", nil, authHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp HistoryPageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, "Hace 5 min", resp.Items[0].TimeAgo)
	assert.Contains(t, resp.Items[0].MapLink, "-34.6083")
}

func TestGetHistory_DefaultPage(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().History(gomock.Any(), gomock.Any(), 1).
		Return(history.Page{Items: []models.EmergencyRecord{}, Page: 1, PageSize: history.PageSize}, nil)

	w := makeRequest(router, "GET", "/api/v1/history", nil, authHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestRefreshHistory_BackendError(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().RefreshHistory(gomock.Any(), gomock.Any()).
		Return(history.Page{}, fmt.Errorf("service: refresh history: %w", &dispatch.BackendError{StatusCode: 500, Message: "Error en la petición"}))

	w := makeRequest(router, "POST", "/api/v1/history/refresh", nil, authHeader(t))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Error en la petición")
}

func TestCancelEmergency_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().CancelEmergency(gomock.Any(), userWithID("u1"), "e1").Return(nil)

	w := makeRequest(router, "POST", "/api/v1/history/e1/cancel", nil, authHeader(t))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCancelEmergency_Unauthorized(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().CancelEmergency(gomock.Any(), gomock.Any(), "e1").
		Return(&dispatch.BackendError{StatusCode: http.StatusUnauthorized, Message: "Token expirado"})

	w := makeRequest(router, "POST", "/api/v1/history/e1/cancel", nil, authHeader(t))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expirado")
}

func TestListAttempts_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	attempts := []*models.ActivationAttempt{{
		ID:        uuid.New(),
		UserID:    "u1",
		DraftID:   "draft-1",
		Mode:      models.ModeQuick,
		Type:      "Robo/Violencia",
		Services:  []string{"Ambulancia", "Policía"},
		Outcome:   models.OutcomeFailed,
		Error:     "Error de conexión",
		CreatedAt: fixedNow,
	}}
	mockService.EXPECT().ListAttempts(gomock.Any(), userWithID("u1"), 5).Return(attempts, nil)

	w := makeRequest(router, "GET", "/api/v1/attempts?limit=5", nil, authHeader(t))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []AttemptResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "failed", resp[0].Outcome)
	assert.Equal(t, "Error de conexión", resp[0].Error)
}

func TestGetStats_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().GetStats(gomock.Any()).Return(7, nil)

	w := makeRequest(router, "GET", "/api/v1/stats", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_count":7,"window_minutes":60}`, w.Body.String())
}

func TestGetStats_ServiceError(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().GetStats(gomock.Any()).Return(0, errors.New("db error"))

	w := makeRequest(router, "GET", "/api/v1/stats", nil, map[string]string{"X-API-Key": "test-api-key"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetStats_RequiresAPIKey(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/stats", nil, authHeader(t))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthCheck_Success(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestStreamActivation_PushesSnapshots(t *testing.T) {
	// Подготовка
	_, mockService, router := newTestHandler(t)
	server := httptest.NewServer(router)
	defer server.Close()

	subscribed := make(chan func(activation.Snapshot), 1)
	mockService.EXPECT().Subscribe(userWithID("u1"), gomock.Any()).
		DoAndReturn(func(_ models.User, fn func(activation.Snapshot)) (activation.Snapshot, func()) {
			subscribed <- fn
			return activation.Snapshot{Seq: 1, Phase: activation.PhaseIdle}, func() {}
		})

	token := signToken(t, jwt.MapClaims{"userId": "u1"}, testSecret)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/activation/stream?token=" + token

	// Действие
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Проверки
	var first ActivationResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "idle", first.Phase)
	assert.Equal(t, uint64(1), first.Seq)

	var push func(activation.Snapshot)
	select {
	case push = <-subscribed:
	case <-time.After(time.Second):
		t.Fatal("stream did not subscribe")
	}
	push(armedSnapshot())

	var second ActivationResponse
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "armed", second.Phase)
	assert.Equal(t, 5, second.Remaining)
	assert.Equal(t, uint64(3), second.Seq)
}

func TestStreamActivation_SkipsOlderSnapshots(t *testing.T) {
	// Подготовка
	_, mockService, router := newTestHandler(t)
	server := httptest.NewServer(router)
	defer server.Close()

	subscribed := make(chan func(activation.Snapshot), 1)
	mockService.EXPECT().Subscribe(userWithID("u1"), gomock.Any()).
		DoAndReturn(func(_ models.User, fn func(activation.Snapshot)) (activation.Snapshot, func()) {
			subscribed <- fn
			return activation.Snapshot{Seq: 5, Phase: activation.PhaseIdle}, func() {}
		})

	token := signToken(t, jwt.MapClaims{"userId": "u1"}, testSecret)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/activation/stream?token=" + token

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first ActivationResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&first))

	var push func(activation.Snapshot)
	select {
	case push = <-subscribed:
	case <-time.After(time.Second):
		t.Fatal("stream did not subscribe")
	}

	// Действие
	stale := armedSnapshot()
	stale.Seq = 4
	push(stale)
	newer := activation.Snapshot{Seq: 6, Phase: activation.PhaseIdle}
	push(newer)

	// Проверки
	var next ActivationResponse
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, uint64(6), next.Seq)
	assert.Equal(t, "idle", next.Phase)
}

func TestBearerAuthMiddleware_RejectsWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	router.Use(BearerAuthMiddleware(&config.Config{}, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token := signToken(t, jwt.MapClaims{"userId": "u1"}, "whatever")
	w := makeRequest(router, "GET", "/test", nil, map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerAuthMiddleware_NumericID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	router.Use(BearerAuthMiddleware(&config.Config{JWTSecret: testSecret}, logger))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, currentUser(c).ID)
	})

	token := signToken(t, jwt.MapClaims{"id": float64(42)}, testSecret)
	w := makeRequest(router, "GET", "/test", nil, map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())
}

func TestBearerAuthMiddleware_ExpiredToken(t *testing.T) {
	_, _, router := newTestHandler(t)
	token := signToken(t, jwt.MapClaims{"userId": "u1", "exp": float64(time.Now().Add(-time.Hour).Unix())}, testSecret)

	w := makeRequest(router, "GET", "/api/v1/activation", nil, map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCancel_ForeignKeyTokenNeverReachesSession(t *testing.T) {
	// Подготовка: токен с чужим userId, подписанный не нашим ключом
	_, _, router := newTestHandler(t)
	forged := signToken(t, jwt.MapClaims{"userId": "u1"}, "attacker-key")

	// Ожидания: сервис не вызывается ни разу (мок упадет на любом вызове)

	// Действие
	cancelResp := makeRequest(router, "POST", "/api/v1/activation/cancel", nil, map[string]string{"Authorization": "Bearer " + forged})
	readResp := makeRequest(router, "GET", "/api/v1/activation", nil, map[string]string{"Authorization": "Bearer " + forged})
	historyResp := makeRequest(router, "GET", "/api/v1/history", nil, map[string]string{"Authorization": "Bearer " + forged})

	// Проверки
	assert.Equal(t, http.StatusUnauthorized, cancelResp.Code)
	assert.Equal(t, http.StatusUnauthorized, readResp.Code)
	assert.Equal(t, http.StatusUnauthorized, historyResp.Code)
}

func TestQueryToken_OnlyAcceptedOnStream(t *testing.T) {
	_, _, router := newTestHandler(t)
	token := signToken(t, jwt.MapClaims{"userId": "u1"}, testSecret)

	w := makeRequest(router, "GET", "/api/v1/activation?token="+token, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication token required")
}

func TestStreamActivation_RejectsForeignKeyToken(t *testing.T) {
	_, _, router := newTestHandler(t)
	forged := signToken(t, jwt.MapClaims{"userId": "u1"}, "attacker-key")

	w := makeRequest(router, "GET", "/api/v1/activation/stream?token="+forged, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEndSession_Success(t *testing.T) {
	_, mockService, router := newTestHandler(t)

	mockService.EXPECT().EndSession(userWithID("u1")).Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/session", nil, authHeader(t))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBearerAuthMiddleware_NoUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	router.Use(BearerAuthMiddleware(&config.Config{JWTSecret: testSecret}, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token := signToken(t, jwt.MapClaims{"role": "citizen"}, testSecret)
	w := makeRequest(router, "GET", "/test", nil, map[string]string{"Authorization": "Bearer " + token})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyAuthMiddleware_Success(t *testing.T) {
	// Создаем Gin-роутер и добавляем middleware
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthMiddleware_MissingKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil) // Нет API ключа
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key required")
}

func TestAPIKeyAuthMiddleware_InvalidKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys: []string{"valid-key"},
	}

	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "invalid-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}
