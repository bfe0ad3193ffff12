package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rociobottinelli/citypass-emergency/internal/activation"
)

const (
	// Время на запись одного сообщения
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента
	pongWait = 60 * time.Second

	// Должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512

	// Клиенту важно только последнее состояние, старые снимки вытесняются
	snapshotBufferSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// @Summary Stream activation state
// @Description Upgrade to a websocket that receives the activation state on connect and after every change, including each countdown tick. The token may be passed as a query parameter.
// @Tags Activation
// @Security BearerAuth
// @Param token query string false "Bearer token for clients that cannot set headers"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /activation/stream [get]
func (h *Handler) streamActivation(c *gin.Context) {
	user := currentUser(c)
	log := h.logger.WithField("method", "streamActivation").WithField("user_id", user.ID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade connection")
		return
	}
	defer conn.Close()

	updates := make(chan activation.Snapshot, snapshotBufferSize)
	initial, unsubscribe := h.reportingService.Subscribe(user, func(s activation.Snapshot) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	log.Info("Activation stream opened")
	defer log.Info("Activation stream closed")

	done := make(chan struct{})
	go h.readPump(conn, done)

	if err := h.writeSnapshot(conn, initial); err != nil {
		log.WithError(err).Debug("Failed to write initial snapshot")
		return
	}
	lastSeq := initial.Seq

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case s := <-updates:
			// Снимок старше уже отправленного клиенту не пересылается
			if s.Seq <= lastSeq {
				continue
			}
			lastSeq = s.Seq
			if err := h.writeSnapshot(conn, s); err != nil {
				log.WithError(err).Debug("Failed to write snapshot")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// readPump читает входящие кадры только для обработки pong и закрытия
func (h *Handler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("Activation stream closed unexpectedly")
			}
			return
		}
	}
}

func (h *Handler) writeSnapshot(conn *websocket.Conn, s activation.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(SnapshotToResponse(s, h.now()))
}
