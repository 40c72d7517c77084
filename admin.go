package main

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/orbit-portfolio/internal/scene"
)

const recentVisitorLimit = 50

// VisitorMetric is one tracked page view. The client address is stored
// hashed only.
type VisitorMetric struct {
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type AdminStats struct {
	TotalVisitors  int64               `json:"total_visitors"`
	UniqueVisitors int64               `json:"unique_visitors"`
	LiveScenes     int                 `json:"live_scenes"`
	Scenes         []scene.SessionStat `json:"scenes"`
	RecentVisitors []VisitorMetric     `json:"recent_visitors"`
}

type adminAuth struct {
	token    string
	salt     string
	username string
	password string
}

func newAdminAuth(cfg Config) *adminAuth {
	a := &adminAuth{
		token:    generateAdminToken(),
		salt:     generateAdminToken(),
		username: cfg.AdminUsername,
		password: cfg.AdminPassword,
	}
	// Default credentials for development only.
	if a.username == "" {
		a.username = "admin"
		if gin.Mode() == gin.DebugMode {
			log.Println("WARNING: Using default admin username. Set ADMIN_USERNAME environment variable.")
		}
	}
	if a.password == "" {
		a.password = "admin123"
		if gin.Mode() == gin.DebugMode {
			log.Println("WARNING: Using default admin password. Set ADMIN_PASSWORD environment variable.")
		}
	}

	log.Printf("Admin access available at: /admin/login")
	if gin.Mode() == gin.DebugMode {
		log.Printf("Admin token (dev only): %s", a.token)
	}
	return a
}

func generateAdminToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Fatal("Failed to generate admin token:", err)
	}
	return hex.EncodeToString(bytes)
}

// hashIP is stable per address for the life of the process.
func (a *adminAuth) hashIP(ip string) string {
	hash := sha256.New()
	hash.Write([]byte(ip + a.salt))
	return hex.EncodeToString(hash.Sum(nil))[:16]
}

func (a *adminAuth) valid(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(username), []byte(a.username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(a.password))
	return u&p == 1
}

func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie("admin_token")
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitorLog counts page views in memory.
type visitorLog struct {
	mu     sync.Mutex
	total  int64
	unique map[string]struct{}
	recent []VisitorMetric
}

func newVisitorLog() *visitorLog {
	return &visitorLog{unique: make(map[string]struct{})}
}

func (v *visitorLog) record(m VisitorMetric) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.total++
	v.unique[m.HashedIP] = struct{}{}
	v.recent = append(v.recent, m)
	if len(v.recent) > recentVisitorLimit {
		v.recent = v.recent[len(v.recent)-recentVisitorLimit:]
	}
}

// snapshot returns the totals and recent views, newest first.
func (v *visitorLog) snapshot() (total, unique int64, recent []VisitorMetric) {
	v.mu.Lock()
	defer v.mu.Unlock()
	recent = make([]VisitorMetric, 0, len(v.recent))
	for i := len(v.recent) - 1; i >= 0; i-- {
		recent = append(recent, v.recent[i])
	}
	return v.total, int64(len(v.unique)), recent
}

func (s *server) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet ||
			strings.HasPrefix(path, "/static/") ||
			strings.HasPrefix(path, "/api/") ||
			strings.HasPrefix(path, "/admin/") ||
			strings.HasPrefix(path, "/favicon") ||
			strings.HasPrefix(path, "/privacy") {
			c.Next()
			return
		}
		// Respect Do Not Track.
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		s.visitors.record(VisitorMetric{
			HashedIP:  s.admin.hashIP(c.ClientIP()),
			UserAgent: c.GetHeader("User-Agent"),
			Path:      path,
			Timestamp: s.clock.Now(),
		})
		c.Next()
	}
}

func (s *server) adminStats() *AdminStats {
	total, unique, recent := s.visitors.snapshot()
	scenes := s.registry.Stats()
	return &AdminStats{
		TotalVisitors:  total,
		UniqueVisitors: unique,
		LiveScenes:     len(scenes),
		Scenes:         scenes,
		RecentVisitors: recent,
	}
}

func (s *server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title": "Privacy Policy",
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		if s.admin.valid(c.PostForm("username"), c.PostForm("password")) {
			// 24 hour session
			c.SetCookie("admin_token", s.admin.token, 3600*24, "/admin", "", false, true)
			log.Printf("Admin login successful from %s", s.admin.hashIP(c.ClientIP()))
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		log.Printf("Failed admin login attempt from %s", s.admin.hashIP(c.ClientIP()))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie("admin_token", "", -1, "/admin", "", false, true)
		log.Printf("Admin logout from %s", s.admin.hashIP(c.ClientIP()))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(s.admin.middleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats": s.adminStats(),
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.adminStats())
	})

	// Force-unmount a live scene.
	adminGroup.DELETE("/scenes/:id", func(c *gin.Context) {
		id := c.Param("id")
		if err := s.registry.Remove(id); err != nil {
			if errors.Is(err, scene.ErrSessionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Scene not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove scene"})
			return
		}
		log.Printf("Scene %s removed by admin from %s", id, s.admin.hashIP(c.ClientIP()))
		c.JSON(http.StatusOK, gin.H{"message": "Scene removed"})
	})

	adminGroup.GET("/export/stats", func(c *gin.Context) {
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		log.Printf("Admin stats exported by %s", s.admin.hashIP(c.ClientIP()))
		c.JSON(http.StatusOK, s.adminStats())
	})
}
