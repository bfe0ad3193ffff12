package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/rociobottinelli/citypass-emergency/internal/models"
	"github.com/sirupsen/logrus"
)

const emergenciesPath = "/api/emergencias"

const (
	msgConnection = "Error de conexión"
	msgRequest    = "Error en la petición"
)

// ErrUnauthenticated - нет токена пользователя; запрос в сеть не выполняется
var ErrUnauthenticated = errors.New("user is not authenticated")

// BackendError - ошибка транспорта или ответ бэкенда вне диапазона 2xx.
// Message показывается пользователю как есть.
type BackendError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	return e.Message
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is позволяет распознавать отказ в доступе через errors.Is(err, ErrUnauthenticated)
func (e *BackendError) Is(target error) bool {
	return target == ErrUnauthenticated &&
		(e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

// Response - ответ бэкенда на создание. Все поля необязательны.
type Response struct {
	ID        string
	Timestamp time.Time
	State     models.RecordState
}

// Gateway определяет контракт взаимодействия с REST-бэкендом
type Gateway interface {
	Send(ctx context.Context, token string, req Request) (*Response, error)
	ListEmergencies(ctx context.Context, token string) ([]map[string]any, error)
	UpdateStatus(ctx context.Context, token, id string, state models.RecordState) error
}

// HTTPGateway - реализация Gateway поверх HTTPS с bearer-токеном
type HTTPGateway struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewHTTPGateway создает новый HTTPGateway
func NewHTTPGateway(baseURL string, timeout time.Duration, logger *logrus.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Send отправляет запрос в одной из двух форм
func (g *HTTPGateway) Send(ctx context.Context, token string, req Request) (*Response, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var (
		body        io.Reader
		contentType string
		err         error
	)
	switch r := req.(type) {
	case QuickRequest:
		body, contentType, err = encodeQuick(r)
	case DetailedRequest:
		body, contentType, err = encodeDetailed(r)
	default:
		return nil, fmt.Errorf("unsupported dispatch request %T", req)
	}
	if err != nil {
		return nil, err
	}

	log := g.logger.WithFields(logrus.Fields{
		"gateway": "http",
		"method":  "Send",
		"mode":    req.Mode(),
	})
	log.Debug("Sending emergency to backend")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+emergenciesPath, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+token)

	raw := map[string]any{}
	if err := g.do(httpReq, &raw); err != nil {
		log.WithError(err).Warn("Backend rejected emergency")
		return nil, err
	}
	return responseFromRaw(raw), nil
}

// ListEmergencies возвращает сырые записи истории текущего пользователя
func (g *HTTPGateway) ListEmergencies(ctx context.Context, token string) ([]map[string]any, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+emergenciesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	g.setJSONHeaders(httpReq, token)

	var payload any
	if err := g.do(httpReq, &payload); err != nil {
		return nil, err
	}
	return recordsFromPayload(payload), nil
}

// UpdateStatus меняет статус экстренной ситуации
func (g *HTTPGateway) UpdateStatus(ctx context.Context, token, id string, state models.RecordState) error {
	if token == "" {
		return ErrUnauthenticated
	}
	payload, err := json.Marshal(map[string]string{"estado": string(state)})
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, g.baseURL+emergenciesPath+"/"+id, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create status request: %w", err)
	}
	g.setJSONHeaders(httpReq, token)

	var ignored any
	return g.do(httpReq, &ignored)
}

func (g *HTTPGateway) setJSONHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
}

// do выполняет запрос и приводит любую ошибку к BackendError
func (g *HTTPGateway) do(req *http.Request, out any) error {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return &BackendError{Message: msgConnection, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &BackendError{StatusCode: resp.StatusCode, Message: msgConnection, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return &BackendError{StatusCode: resp.StatusCode, Message: msgConnection, Err: err}
		}
		if body.Message == "" {
			body.Message = msgRequest
		}
		return &BackendError{StatusCode: resp.StatusCode, Message: body.Message}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		// Тело успешного ответа не обязательно для продолжения
		g.logger.WithError(err).Warn("Failed to decode backend response body")
	}
	return nil
}

func encodeQuick(r QuickRequest) (io.Reader, string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal quick request: %w", err)
	}
	return bytes.NewReader(payload), "application/json", nil
}

func encodeDetailed(r DetailedRequest) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := [][2]string{
		{"userId", r.UserID},
		{"tipoEmergencia", r.Type},
		{"descripcion", r.Description},
	}
	if r.Location != nil {
		fields = append(fields,
			[2]string{"location[lat]", strconv.FormatFloat(r.Location.Lat, 'f', -1, 64)},
			[2]string{"location[lon]", strconv.FormatFloat(r.Location.Lng, 'f', -1, 64)},
		)
	}
	fields = append(fields, [2]string{"contexto", r.Context})
	if r.PresetID != "" {
		fields = append(fields, [2]string{"lugarId", r.PresetID})
	}
	fields = append(fields, [2]string{"origen", string(models.OriginForm)})
	for i, s := range r.Services {
		fields = append(fields, [2]string{fmt.Sprintf("servicios[%d]", i), string(s)})
	}

	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f[0], err)
		}
	}

	for _, a := range r.Attachments {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="adjuntos"; filename=%q`, a.Name))
		h.Set("Content-Type", a.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create attachment part: %w", err)
		}
		if _, err := part.Write(a.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write attachment %s: %w", a.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func responseFromRaw(raw map[string]any) *Response {
	resp := &Response{}
	for _, key := range []string{"_id", "id"} {
		if s, ok := raw[key].(string); ok && s != "" {
			resp.ID = s
			break
		}
	}
	for _, key := range []string{"timestamp", "createdAt"} {
		if s, ok := raw[key].(string); ok {
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				resp.Timestamp = t
				break
			}
		}
	}
	if s, ok := raw["estado"].(string); ok {
		resp.State = models.RecordState(s)
	}
	return resp
}

// recordsFromPayload принимает как массив, так и объект-обертку
func recordsFromPayload(payload any) []map[string]any {
	var items []any
	switch v := payload.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range []string{"emergencias", "data", "items"} {
			if arr, ok := v[key].([]any); ok {
				items = arr
				break
			}
		}
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, m)
		}
	}
	return records
}
