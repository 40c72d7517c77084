package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Printf("portfolio: %v", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:           "portfolio",
		Short:         "Animated portfolio site with a terminal preview",
		SilenceErrors: true,
		SilenceUsage:  true,
		// Running without a subcommand serves the site.
		RunE: serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newPreviewCmd())
	return root
}

// configure loads the environment and applies flag overrides.
func configure(cmd *cobra.Command) (Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port, _ = flags.GetString("port")
	}
	if flags.Changed("frame-interval") {
		cfg.FrameInterval, _ = flags.GetDuration("frame-interval")
	}
	cfg.applyDefaults()
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the portfolio over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(cmd)
			if err != nil {
				return err
			}
			if cfg.GinMode != "" {
				gin.SetMode(cfg.GinMode)
			}
			p, err := loadContent(cfg)
			if err != nil {
				return err
			}
			return newServer(cfg, p, nil).serve(cmd.Context())
		},
	}
	cmd.Flags().StringP("port", "p", "", "listen port (overrides PORT)")
	cmd.Flags().Duration("frame-interval", 0, "animation frame interval (overrides PORTFOLIO_FRAME_INTERVAL)")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var chime bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the portfolio in the terminal",
		Long: "Render the portfolio in the terminal. Scroll with j/k or the arrow keys,\n" +
			"PgUp/PgDn for a page, g or Home for the top, t to ride the rocket back up,\n" +
			"q or Esc to quit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configure(cmd)
			if err != nil {
				return err
			}
			p, err := loadContent(cfg)
			if err != nil {
				return err
			}
			// The terminal is ours until the preview exits.
			log.SetOutput(io.Discard)
			defer log.SetOutput(os.Stderr)
			return runPreview(cmd.Context(), cfg, p, chime)
		},
	}
	cmd.Flags().BoolVar(&chime, "chime", false, "play a tone as each section is revealed")
	cmd.Flags().Duration("frame-interval", 16*time.Millisecond, "animation frame interval")
	return cmd
}
