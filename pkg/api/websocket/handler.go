package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/aescanero/classflow/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler handles WebSocket connections
type Handler struct {
	eventBus ports.EventBus
	logger   *zap.Logger
	buffer   int
}

// NewHandler creates a new WebSocket handler. logger may be nil.
func NewHandler(eventBus ports.EventBus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		eventBus: eventBus,
		logger:   logger,
		buffer:   32,
	}
}

// HandleJobStream streams the lifecycle events of one job to the client
// until the client disconnects.
func (h *Handler) HandleJobStream(c *gin.Context) {
	jobID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("job_id", jobID),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reading is what surfaces close frames and dropped connections.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	events := make(chan domain.Event, h.buffer)
	if err := h.subscribe(ctx, jobID, events); err != nil {
		h.logger.Error("failed to subscribe to job events",
			zap.String("job_id", jobID),
			zap.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"))
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("WebSocket connection closed", zap.String("job_id", jobID))
			return
		case event := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Warn("failed to write message",
					zap.String("job_id", jobID),
					zap.Error(err))
				return
			}
		}
	}
}

// subscribe forwards job events for jobID to ch. Events are dropped when
// the client is too slow to drain ch.
func (h *Handler) subscribe(ctx context.Context, jobID string, ch chan<- domain.Event) error {
	return h.eventBus.Subscribe(ctx, domain.TopicJobEvents, func(_ context.Context, event domain.Event) error {
		if event.JobID != jobID {
			return nil
		}

		select {
		case ch <- event:
		default:
			h.logger.Warn("event channel full, dropping event",
				zap.String("job_id", jobID),
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	})
}
