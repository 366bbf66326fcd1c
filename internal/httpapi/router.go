// Package httpapi exposes the practice session to a regular browser: a JSON
// API, a websocket event stream and the embedded front end.
package httpapi

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"deletutor/internal/domain"
	"deletutor/internal/view"
)

// Session is the controller surface the API drives.
type Session interface {
	Topics() []domain.Topic
	Status() domain.Status
	SelectTopic(id string) (domain.Status, error)
	StartRecording(ctx context.Context) (domain.Status, error)
	StopRecording() (domain.Status, error)
	RepeatRecording(ctx context.Context) (domain.Status, error)
	ResetRecording() (domain.Status, error)
	Analyze() (domain.Status, error)
	Cancel() (domain.Status, error)
	Reset() (domain.Status, error)
	Retry() (domain.Status, error)
	Result() (view.Result, error)
	ToggleTranscript() (view.Result, error)
	Playback(handle string) ([]byte, string, error)
}

var trustedProxies = []string{"127.0.0.1"}

type selectTopicRequest struct {
	TopicID string `json:"topicId" binding:"required"`
}

type handlers struct {
	session Session
}

// NewRouter builds the gin engine. assets may be nil when no front end is
// served.
func NewRouter(session Session, hub *Hub, assets fs.FS, allowedOrigins []string) *gin.Engine {
	router := gin.Default()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		log.Printf("[http] failed to set trusted proxies: %v", err)
	}

	if len(allowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
		}))
	}

	h := &handlers{session: session}

	api := router.Group("/api")
	{
		api.GET("/topics", h.topics)
		api.GET("/session", h.status)
		api.POST("/session/topic", h.selectTopic)
		api.POST("/session/recording/start", h.statusAction(func(c *gin.Context) (domain.Status, error) {
			return session.StartRecording(c.Request.Context())
		}))
		api.POST("/session/recording/stop", h.statusAction(func(*gin.Context) (domain.Status, error) {
			return session.StopRecording()
		}))
		api.POST("/session/recording/repeat", h.statusAction(func(c *gin.Context) (domain.Status, error) {
			return session.RepeatRecording(c.Request.Context())
		}))
		api.POST("/session/recording/reset", h.statusAction(func(*gin.Context) (domain.Status, error) {
			return session.ResetRecording()
		}))
		api.POST("/session/recording/analyze", h.statusAction(func(*gin.Context) (domain.Status, error) {
			return session.Analyze()
		}))
		api.POST("/session/cancel", h.statusAction(func(*gin.Context) (domain.Status, error) {
			return session.Cancel()
		}))
		api.POST("/session/reset", h.statusAction(func(*gin.Context) (domain.Status, error) {
			return session.Reset()
		}))
		api.POST("/session/retry", h.statusAction(func(*gin.Context) (domain.Status, error) {
			return session.Retry()
		}))
		api.GET("/session/result", h.result)
		api.POST("/session/result/transcript", h.toggleTranscript)
		api.GET("/recording/:handle", h.playback)
	}

	if hub != nil {
		router.GET("/ws", hub.ServeWS)
	}

	if assets != nil {
		files := http.FileServer(http.FS(assets))
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}

	return router
}

func (h *handlers) topics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topics": h.session.Topics()})
}

func (h *handlers) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Status())
}

func (h *handlers) selectTopic(c *gin.Context) {
	var req selectTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topicId is required"})
		return
	}
	status, err := h.session.SelectTopic(req.TopicID)
	if err != nil {
		respondError(c, err, &status)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *handlers) statusAction(action func(*gin.Context) (domain.Status, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := action(c)
		if err != nil {
			respondError(c, err, &status)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func (h *handlers) result(c *gin.Context) {
	result, err := h.session.Result()
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) toggleTranscript(c *gin.Context) {
	result, err := h.session.ToggleTranscript()
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) playback(c *gin.Context) {
	data, mimeType, err := h.session.Playback(c.Param("handle"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, mimeType, data)
}

func respondError(c *gin.Context, err error, status *domain.Status) {
	body := gin.H{"error": err.Error()}
	if kind := domain.KindOf(err); kind != domain.KindUnknown {
		body["kind"] = kind
	}
	if status != nil && status.Screen != "" {
		body["status"] = status
	}
	c.JSON(httpStatus(err), body)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownTopic), errors.Is(err, domain.ErrPlaybackNotCurrent):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotRecording),
		errors.Is(err, domain.ErrNoRecording),
		errors.Is(err, domain.ErrRecorderBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRecordingTooShort):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDeviceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
