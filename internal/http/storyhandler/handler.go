package storyhandler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storyrelaygo/internal/game"
	"storyrelaygo/internal/store/export_store"
)

// SessionReader is the read-only view of the session store used by the
// out-of-band room info endpoint.
type SessionReader interface {
	Load(ctx context.Context, code string) (*game.Session, error)
}

// Exporter is the durable story export collaborator.
type Exporter interface {
	Put(ctx context.Context, story []game.Contribution, roomCode string, createdAt int64) (*export_store.Export, error)
	Get(ctx context.Context, id string) (*export_store.Export, error)
}

type Handler struct {
	sessions SessionReader
	exports  Exporter
	baseURL  string
}

func New(sessions SessionReader, exports Exporter, baseURL string) *Handler {
	return &Handler{
		sessions: sessions,
		exports:  exports,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
	}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.home)
	r.POST("/api/rooms", h.createRoom)
	r.GET("/api/rooms/:code/info", h.roomInfo)
	r.POST("/api/share-story", h.shareStory)
	r.GET("/story/:id", h.viewStory)
}

func (h *Handler) home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html.tmpl", nil)
}

// @Summary		Create a room
// @Description	Mints a fresh 4-character room code not held by an active room.
// @Tags			Rooms
// @Success		201	{object}	CreateRoomResponse
// @Failure		500	{object}	ErrorResponse
// @Router			/api/rooms [post]
func (h *Handler) createRoom(c *gin.Context) {
	for attempt := 0; attempt < 10; attempt++ {
		code := game.NewRoomCode()
		sess, err := h.sessions.Load(c.Request.Context(), code)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create room"})
			return
		}
		if len(sess.Players) == 0 && !sess.Started {
			c.JSON(http.StatusCreated, CreateRoomResponse{RoomCode: code})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to generate unique room code"})
}

// @Summary		Room info
// @Description	Read-only summary of a room's phase and membership count.
// @Tags			Rooms
// @Param			code	path		string	true	"Room code"	default(ABCD)
// @Success		200		{object}	game.SessionInfo
// @Failure		400		{object}	ErrorResponse
// @Router			/api/rooms/{code}/info [get]
func (h *Handler) roomInfo(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	if !game.ValidRoomCode(code) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room code"})
		return
	}
	sess, err := h.sessions.Load(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, sess.Info())
}

// @Summary		Share a story
// @Description	Persists a finished story under a fresh opaque id with a 30-day expiry.
// @Tags			Stories
// @Param			body	body		ShareStoryBody	true	"Finished story"
// @Success		201		{object}	ShareStoryResponse
// @Failure		400		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/api/share-story [post]
func (h *Handler) shareStory(c *gin.Context) {
	var body ShareStoryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	exp, err := h.exports.Put(c.Request.Context(), body.Story, body.RoomCode, body.CreatedAt)
	if err != nil {
		if errors.Is(err, game.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, ShareStoryResponse{
		StoryID:  exp.ID,
		ShareURL: h.baseURL + "/story/" + exp.ID,
	})
}

// @Summary		View a shared story
// @Description	Renders the stored story as a read-only page.
// @Tags			Stories
// @Param			id	path	string	true	"Story ID"	default(aB3kPq2x)
// @Success		200
// @Failure		404
// @Router			/story/{id} [get]
func (h *Handler) viewStory(c *gin.Context) {
	exp, err := h.exports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, game.ErrNotFound) {
			c.HTML(http.StatusNotFound, "notfound.html.tmpl", nil)
			return
		}
		c.String(http.StatusInternalServerError, "error retrieving story")
		return
	}

	c.HTML(http.StatusOK, "story.html.tmpl", gin.H{
		"Story":    exp.Story,
		"RoomCode": exp.RoomCode,
		"Created":  time.UnixMilli(exp.CreatedAt).UTC().Format("January 2, 2006"),
	})
}
