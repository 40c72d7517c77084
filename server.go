package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/orbit-portfolio/internal/content"
	"github.com/Zachkp/orbit-portfolio/internal/motion"
	"github.com/Zachkp/orbit-portfolio/internal/scene"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const shutdownTimeout = 5 * time.Second

type server struct {
	cfg      Config
	content  *content.Portfolio
	clock    motion.Clock
	registry *scene.Registry
	admin    *adminAuth
	visitors *visitorLog
	mailer   mailer
}

func newServer(cfg Config, p *content.Portfolio, clock motion.Clock) *server {
	if clock == nil {
		clock = motion.SystemClock{}
	}
	return &server{
		cfg:     cfg,
		content: p,
		clock:   clock,
		registry: scene.NewRegistry(scene.RegistryOptions{
			Clock:         clock,
			Content:       p,
			FrameInterval: cfg.FrameInterval,
			IdleTimeout:   cfg.SessionIdle,
			MaxSessions:   cfg.MaxSessions,
		}),
		admin:    newAdminAuth(cfg),
		visitors: newVisitorLog(),
		mailer:   newSMTPMailer(cfg, p),
	}
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"stat": content.FormatStat,
		"inc":  func(i int) int { return i + 1 },
		// Stagger indexes matching scene.SectionSpecs.
		"imageStagger": func(i int) int { return scene.AboutImageStagger + i },
		"cardStagger":  func(i int) int { return scene.ProjectCardStagger + i },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

func (s *server) routes() (*gin.Engine, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static files: %w", err)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(static))
	r.Use(s.visitorTrackingMiddleware())

	r.GET("/", s.handleIndex)
	r.GET("/projects", s.handleProjects)
	r.POST("/contact", s.handleContact)

	s.setupSceneRoutes(r)
	s.setupAdminRoutes(r)
	return r, nil
}

func (s *server) handleIndex(c *gin.Context) {
	p := s.content
	c.HTML(http.StatusOK, "index.html", gin.H{
		"p":           p,
		"projects":    p.Projects.Visible(false),
		"collapsible": p.Projects.Collapsible(),
		"showAll":     false,
	})
}

// handleProjects renders the project grid fragment swapped in by the
// "See More" / "See Less" toggle.
func (s *server) handleProjects(c *gin.Context) {
	showAll, _ := strconv.ParseBool(c.DefaultQuery("all", "0"))
	c.HTML(http.StatusOK, "projects.html", gin.H{
		"projects":    s.content.Projects.Visible(showAll),
		"collapsible": s.content.Projects.Collapsible(),
		"showAll":     showAll,
	})
}

// serve listens until ctx ends, then drains requests and unmounts every
// live scene.
func (s *server) serve(ctx context.Context) error {
	r, err := s.routes()
	if err != nil {
		return err
	}
	defer s.registry.Close()

	reapCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	go s.registry.RunReaper(reapCtx, time.Minute)

	srv := &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: r,
	}
	// Ending the scenes also ends their event streams.
	srv.RegisterOnShutdown(s.registry.Close)
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Portfolio listening on :%s", s.cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
