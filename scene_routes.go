package main

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/orbit-portfolio/internal/motion"
	"github.com/Zachkp/orbit-portfolio/internal/scene"
)

type mountRequest struct {
	ScrollHeight   int `json:"scrollHeight"`
	ViewportHeight int `json:"viewportHeight"`
}

type scrollRequest struct {
	Offset         int `json:"offset"`
	ScrollHeight   int `json:"scrollHeight"`
	ViewportHeight int `json:"viewportHeight"`
}

type visibilityRequest struct {
	Entries []motion.Intersection `json:"entries" binding:"required"`
}

func (s *server) setupSceneRoutes(r *gin.Engine) {
	api := r.Group("/api/scene")
	api.POST("", s.handleMount)
	api.GET("/:id", s.withPage(s.handleSnapshot))
	api.POST("/:id/scroll", s.withPage(s.handleScroll))
	api.POST("/:id/visibility", s.withPage(s.handleVisibility))
	api.GET("/:id/stream", s.withPage(s.handleStream))
	api.DELETE("/:id", s.handleUnmount)
}

func (s *server) withPage(h func(*gin.Context, *scene.Page)) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := s.registry.Get(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Scene not found"})
			return
		}
		h(c, page)
	}
}

func (s *server) handleMount(c *gin.Context) {
	var req mountRequest
	// The body is optional.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	id, page, err := s.registry.Create(s.admin.hashIP(c.ClientIP()))
	switch {
	case errors.Is(err, scene.ErrTooManySessions), errors.Is(err, scene.ErrRegistryClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("Error mounting scene: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mount scene"})
		return
	}
	page.Resize(req.ScrollHeight, req.ViewportHeight)
	c.JSON(http.StatusCreated, gin.H{
		"id":       id,
		"snapshot": page.Snapshot(),
	})
}

func (s *server) handleSnapshot(c *gin.Context, page *scene.Page) {
	c.JSON(http.StatusOK, page.Snapshot())
}

func (s *server) handleScroll(c *gin.Context, page *scene.Page) {
	var req scrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ScrollHeight > 0 || req.ViewportHeight > 0 {
		page.Resize(req.ScrollHeight, req.ViewportHeight)
	}
	page.Scroll(req.Offset)

	snap := page.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version":        snap.Version,
		"scroll":         snap.Scroll,
		"rocket":         snap.Rocket,
		"headerScrolled": snap.HeaderScrolled,
		"aboutParallax":  snap.AboutParallax,
	})
}

func (s *server) handleVisibility(c *gin.Context, page *scene.Page) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page.Observe(req.Entries)
	c.JSON(http.StatusOK, gin.H{
		"version":  page.Version(),
		"sections": page.Snapshot().Sections,
	})
}

// handleStream pushes a snapshot event whenever the page version moves, a
// cursor event on quiet ticks while a heading is typing, and an end event
// once the scene is gone.
func (s *server) handleStream(c *gin.Context, page *scene.Page) {
	id := c.Param("id")
	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()

	snap := page.Snapshot()
	last := snap.Version
	c.SSEvent("snapshot", snap)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-ticker.C:
		}
		current, err := s.registry.Get(id)
		if err != nil || current != page {
			c.SSEvent("end", id)
			return false
		}
		if v := page.Version(); v != last {
			snap := page.Snapshot()
			last = snap.Version
			c.SSEvent("snapshot", snap)
			return true
		}
		if opacity, typing := page.Cursor(); typing {
			c.SSEvent("cursor", gin.H{"opacity": opacity})
		}
		return true
	})
}

func (s *server) handleUnmount(c *gin.Context) {
	if err := s.registry.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scene not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
