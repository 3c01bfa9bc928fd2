package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/kuchipudi/internal/app"
	"github.com/ayusman/kuchipudi/internal/config"
	"github.com/ayusman/kuchipudi/internal/gesturepipe"
	"github.com/ayusman/kuchipudi/internal/server"
	"github.com/ayusman/kuchipudi/internal/store"
	"github.com/ayusman/kuchipudi/internal/tray"
)

func main() {
	fmt.Println("Kuchipudi - Hand Gesture Recognition")

	configPath := flag.String("config", "", "path to a TOML configuration file")
	flag.Parse()

	pipelineCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize the store
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dbDir := filepath.Join(homeDir, ".kuchipudi")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dbDir, "kuchipudi.db")
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// Find web directory
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	// Create app with camera and detector
	pluginDir := filepath.Join(dbDir, "plugins")
	appCfg := app.Config{
		Store:        st,
		PluginDir:    pluginDir,
		CameraID:     pipelineCfg.Camera.DeviceID,
		MotionThresh: 0.05,
		Pipeline:     pipelineCfg,
	}
	application := app.New(appCfg)

	// Load gestures from database
	if err := application.LoadGestures(); err != nil {
		log.Printf("Warning: Failed to load gestures: %v", err)
	}

	// Discover plugins
	if err := application.DiscoverPlugins(); err != nil {
		log.Printf("Warning: Failed to discover plugins: %v", err)
	}

	application.SetEnabled(true)
	if err := application.Start(); err != nil {
		log.Fatalf("Failed to start detection pipeline: %v", err)
	}
	defer application.Stop()

	// Wire the optional system tray front-end: mirrors the
	// enabled toggle, shows the last recognized gesture, and requests
	// shutdown through the same path as a terminal signal.
	quitCh := make(chan struct{})
	tr := tray.New()
	tr.OnToggle(application.SetEnabled)
	tr.OnQuit(func() {
		select {
		case <-quitCh:
		default:
			close(quitCh)
		}
	})
	application.OnGestureEvent(func(ev gesturepipe.GestureEvent) {
		tr.SetLastGesture(string(ev.Label))
	})
	go tr.Run()

	// Refresh the tray's active-hands/subscribers figure once a second
	// rather than on every frame; it's a diagnostic display, not the
	// gesture-event path.
	statsTicker := time.NewTicker(time.Second)
	defer statsTicker.Stop()
	go func() {
		for range statsTicker.C {
			tr.SetStats(application.ActiveHandCount(), application.Broadcaster().Count())
		}
	}()

	// Configure and start server with the app's camera/detector (debug
	// endpoints) and its gesture-event broadcaster (the
	// subscriber stream clients consume gesture events from).
	cfg := server.Config{
		StaticDir:   webDir,
		Store:       st,
		Camera:      application.Camera(),
		Detector:    application.Detector(),
		Broadcaster: application.Broadcaster(),
		Pipeline:    pipelineCfg,
		ConfigPath:  *configPath,
		Events:      application,
	}

	srv := server.New(cfg)

	addr := pipelineCfg.Broadcaster.Addr()
	fmt.Printf("Starting server on %s\n", addr)
	fmt.Println("Open http://localhost" + addr + " in your browser")
	fmt.Println("Press Ctrl+C to stop")

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- srv.ListenAndServe(addr)
	}()

	// Wait for a termination signal or a fatal server error.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case <-quitCh:
		fmt.Println("\nQuit requested from tray, shutting down...")
	case <-application.VisionDone():
		fmt.Println("\nVision loop stopped (camera failure), shutting down...")
	case err := <-serveErrCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.kuchipudi/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".kuchipudi", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
