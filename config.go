package main

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Zachkp/orbit-portfolio/internal/content"
	"github.com/Zachkp/orbit-portfolio/internal/motion"
)

// Config is read from the environment; a .env file is loaded first.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE"`

	ContentFile    string        `env:"PORTFOLIO_CONTENT_FILE"`
	FrameInterval  time.Duration `env:"PORTFOLIO_FRAME_INTERVAL"   envDefault:"16ms"`
	StreamInterval time.Duration `env:"PORTFOLIO_STREAM_INTERVAL"  envDefault:"100ms"`
	// RevealThreshold overrides the content file's threshold when set.
	RevealThreshold *float64      `env:"PORTFOLIO_REVEAL_THRESHOLD"`
	SessionIdle     time.Duration `env:"PORTFOLIO_SESSION_IDLE"     envDefault:"10m"`
	MaxSessions     int           `env:"PORTFOLIO_MAX_SESSIONS"     envDefault:"256"`

	SMTPHost string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort string `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	// ToEmail falls back to the mailto link in the portfolio content.
	ToEmail string `env:"TO_EMAIL"`

	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults repairs values that parsed but make no sense.
func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = motion.DefaultFrameInterval
	}
	if c.StreamInterval <= 0 {
		c.StreamInterval = 100 * time.Millisecond
	}
	if t := c.RevealThreshold; t != nil && (*t <= 0 || *t > 1) {
		log.Printf("Ignoring PORTFOLIO_REVEAL_THRESHOLD %v: must be in (0, 1]", *t)
		c.RevealThreshold = nil
	}
	if c.SessionIdle <= 0 {
		c.SessionIdle = 10 * time.Minute
	}
	if c.MaxSessions <= 0 {
		c.MaxSessions = 256
	}
	if c.SMTPHost == "" {
		c.SMTPHost = "smtp.gmail.com"
	}
	if c.SMTPPort == "" {
		c.SMTPPort = "587"
	}
}

// loadContent reads the portfolio and applies overrides from cfg.
func loadContent(cfg Config) (*content.Portfolio, error) {
	p, err := content.Load(cfg.ContentFile)
	if err != nil {
		return nil, fmt.Errorf("load portfolio: %w", err)
	}
	if cfg.RevealThreshold != nil {
		p.Motion.RevealThreshold = *cfg.RevealThreshold
	}
	return p, nil
}
