// Package web_server exposes the HTTP surface: story submission, status
// lookup, the websocket progress stream and static asset serving.
package web_server

import (
	"errors"
	"net/http"

	"github.com/Alexsuad/cuentix/pkg/broadcast"
	"github.com/Alexsuad/cuentix/pkg/database"
	"github.com/Alexsuad/cuentix/pkg/tools/narrative"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Generator starts background story generation. Satisfied by
// workflow.Pipeline.
type Generator interface {
	StartGeneration(storyID string, params map[string]string)
}

// Server wires the gin routes to the story store and the pipeline.
type Server struct {
	store       database.StoryStore
	pipeline    Generator
	broadcaster *broadcast.Service
	assetRoot   string
	logger      *zap.Logger
}

func NewServer(store database.StoryStore, pipeline Generator, broadcaster *broadcast.Service, assetRoot string, logger *zap.Logger) *Server {
	return &Server{
		store:       store,
		pipeline:    pipeline,
		broadcaster: broadcaster,
		assetRoot:   assetRoot,
		logger:      logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.POST("/api/stories", s.createStory)
	r.GET("/api/stories/:id", s.getStory)
	r.GET("/ws", s.wsEndpoint)
	r.Static("/assets", s.assetRoot)

	return r
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	s.logger.Info("Web server listening", zap.String("addr", addr))
	return s.Router().Run(addr)
}

// createStory accepts a wizard payload, persists a pending story and kicks
// off generation. The response is 202 with the new id; progress is
// observable via GET and the websocket stream.
func (s *Server) createStory(c *gin.Context) {
	var params database.StoryParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}

	fields := params.Map()
	for _, field := range narrative.RequiredFields {
		if fields[field] == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field: " + field})
			return
		}
	}

	story := &database.Story{
		ID:     uuid.NewString(),
		Status: database.StatusPending,
	}
	if err := s.store.CreateStory(story); err != nil {
		s.logger.Error("Could not persist story", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create story"})
		return
	}

	s.pipeline.StartGeneration(story.ID, fields)
	s.logger.Info("Story accepted", zap.String("story_id", story.ID))

	c.JSON(http.StatusAccepted, gin.H{
		"id":     story.ID,
		"status": story.Status,
	})
}

func (s *Server) getStory(c *gin.Context) {
	story, err := s.store.GetStoryByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrStoryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "story not found"})
			return
		}
		s.logger.Error("Story lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, story)
}

// wsEndpoint upgrades the connection and streams story events until the
// client goes away.
func (s *Server) wsEndpoint(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	client := s.broadcaster.RegisterClient(ws)
	defer s.broadcaster.UnregisterClient(client)

	// Drain client reads so pings and close frames are processed.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for event := range client.Send {
		if err := ws.WriteJSON(event); err != nil {
			s.logger.Debug("Websocket write failed", zap.Error(err))
			return
		}
	}
}
