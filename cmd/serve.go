package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskrelay/internal/capture"
	"deskrelay/internal/clients"
	"deskrelay/internal/config"
	"deskrelay/internal/dispatch"
	"deskrelay/internal/input"
	"deskrelay/internal/logging"
	"deskrelay/internal/mcptools"
	"deskrelay/internal/rtc"
	"deskrelay/internal/server"
	"deskrelay/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon",
	Long: `Run the daemon. Controllers connect to /ws (role=control for actions,
role=stream for frames), POST a WebRTC offer to /rtc/offer, or use the MCP
tools over /mcp or stdio.

Examples:
  deskrelay serve
  deskrelay serve --addr 127.0.0.1:9000 --fps 5
  deskrelay serve --mcp stdio --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Int("fps", 10, "Frames per second pushed to stream connections (0 disables)")
	serveCmd.Flags().Bool("dry-run", false, "Log input events instead of injecting them")
	serveCmd.Flags().String("mcp", config.MCPHTTP, "MCP transport: none, stdio, http")
	serveCmd.Flags().Bool("no-rtc", false, "Disable the WebRTC offer endpoint")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.DevLog)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if os.Getenv("DISPLAY") == "" {
		// X11 sessions started from a service or ssh usually live on :0.
		os.Setenv("DISPLAY", ":0")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state := session.New(cfg.Settings, cfg.Script)
	source := capture.NewSource(capture.ScreenGrabber{}, state.Scale, cfg.CaptureTimeout)

	var backend input.Backend = input.RobotBackend{}
	if cfg.DryRun {
		backend = input.NewRecorder(log.Named("dry-run"))
		log.Warn("dry run: input events are logged, not injected")
	}
	injector := input.NewInjector(backend, state.Mapper, input.Options{
		StepDelay:     cfg.StepDelay,
		ClickInterval: cfg.ClickInterval,
	}, log.Named("input"))

	mgr := clients.NewManager()
	d, err := dispatch.New(dispatch.Deps{
		State:    state,
		Source:   source,
		Injector: injector,
		Notify:   mgr,
	}, dispatch.Options{
		Monitor:       cfg.Monitor,
		Quality:       cfg.Quality,
		ChunkDelay:    cfg.ChunkDelay,
		EncodeTimeout: cfg.CaptureTimeout,
	}, log.Named("dispatch"))
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}

	srv := server.New(ctx, d, mgr, state, log.Named("server"))
	if cfg.RTC.Enabled {
		rh := rtc.NewHandler(ctx, rtc.Config{STUNURLs: cfg.RTC.STUNURLs}, d, mgr, log.Named("rtc"))
		defer rh.Close()
		srv.Mount("/rtc/", rh)
	}
	tools := mcptools.New(d, Version, log.Named("mcp"))
	if cfg.MCP.Transport == config.MCPHTTP {
		srv.Mount("/mcp", tools.HTTPHandler())
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server started", zap.String("addr", cfg.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	if cfg.FPS > 0 {
		streamer := server.NewStreamer(server.StreamConfig{
			FPS:           cfg.FPS,
			Quality:       cfg.Quality,
			Monitor:       cfg.Monitor,
			EncodeTimeout: cfg.CaptureTimeout,
		}, source, injector, mgr, log.Named("stream"))
		g.Go(func() error { return streamer.Run(gctx) })
	}
	if cfg.MCP.Transport == config.MCPStdio {
		g.Go(func() error {
			err := tools.ServeStdio()
			// The MCP client owns the process lifetime.
			stop()
			return err
		})
	}
	return g.Wait()
}
