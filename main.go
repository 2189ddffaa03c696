package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-captioner/internal/filesystem"
	"video-captioner/internal/handlers"
	"video-captioner/internal/logging"
	"video-captioner/internal/media"
	"video-captioner/internal/memory"
	"video-captioner/internal/metrics"
	"video-captioner/internal/middleware"
	"video-captioner/internal/pipeline"
	"video-captioner/internal/startup"
	"video-captioner/internal/storage"
	"video-captioner/internal/transcoder"

	"github.com/gorilla/mux"
)

const statsInterval = 30 * time.Second

func main() {
	startTime := time.Now()

	// Configure memory limit before anything large is allocated
	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Initialize storage
	area, err := storage.New(config.StorageDir)
	if err != nil {
		startup.LogFatal("Failed to initialize storage: %v", err)
	}
	area.RemoveStaleTemps()

	// Initialize metrics
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	collector := metrics.NewCollector(area, statsInterval)
	collector.Start()

	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	// Initialize transcoder
	startup.LogTranscoderInit(config)
	trans := transcoder.New(transcoder.Config{
		FFmpegPath:    config.FFmpegPath,
		FFprobePath:   config.FFprobePath,
		VideoCodec:    config.VideoCodec,
		FrameFormat:   config.FrameFormat,
		MaxConcurrent: config.MaxConcurrentJobs,
		JobTimeout:    config.ResponseTimeout,
	}, transcoder.NewExecRunner())

	// Retention
	var sweeper *storage.Sweeper
	startup.LogRetentionInit(config.Retention, config.SweepInterval)
	if config.Retention > 0 {
		sweeper = storage.NewSweeper(area, config.Retention, config.SweepInterval)
		sweeper.Start()
	}

	// Initialize handlers
	service := pipeline.NewService(area, trans, pipeline.Options{
		CheckCompatibility: config.CheckCompatibility,
	})
	posters := media.NewPosterGenerator(trans)
	h := handlers.New(service, area, posters, trans, config.PublicBaseURL).WithMemory(memMonitor)

	// Setup router
	router := setupRouter(h)

	// Log routes dynamically
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      buildHandler(router, config),
		ReadTimeout:  config.RequestTimeout,
		WriteTimeout: config.ResponseTimeout,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      metricsMux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Start graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go handleShutdown(sigChan, done, &services{
		srv:        srv,
		metricsSrv: metricsSrv,
		trans:      trans,
		sweeper:    sweeper,
		collector:  collector,
		memMonitor: memMonitor,
	})

	// Start server
	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		PublicBaseURL:   config.PublicBaseURL,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}

	// ListenAndServe returns as soon as Shutdown starts; wait for the drain.
	<-done
}

// buildHandler wraps the router in the middleware chain. The request id is
// assigned first so every later layer can log it.
func buildHandler(router http.Handler, config *startup.Config) http.Handler {
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	handler := middleware.MaxBodySize(config.MaxBodySize)(router)
	handler = middleware.Logger(loggingConfig)(handler)
	handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	return middleware.RequestID(handler)
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload", h.UploadVideo).Methods("POST")
	api.HandleFunc("/combine", h.CombineVideos).Methods("POST")
	api.HandleFunc("/thumbnail/{filename}", h.GetThumbnail).Methods("GET")

	// Stored files
	r.HandleFunc("/uploads/{filename}", h.ServeFile).Methods("GET", "HEAD")
	r.HandleFunc("/uploads/{filename}", h.DeleteFile).Methods("DELETE")

	return r
}

// services are the long-running parts stopped on shutdown.
type services struct {
	srv        *http.Server
	metricsSrv *http.Server
	trans      *transcoder.Transcoder
	sweeper    *storage.Sweeper
	collector  *metrics.Collector
	memMonitor *memory.Monitor
}

// handleShutdown waits for a signal, stops everything and closes done.
func handleShutdown(sigChan <-chan os.Signal, done chan<- struct{}, svc *services) {
	defer close(done)

	sig := <-sigChan
	startup.LogShutdownInitiated(sig.String())
	shutdown(svc)
}

// shutdown drains HTTP before killing encoders.
func shutdown(svc *services) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := svc.srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Cleaning up transcoder")
	svc.trans.Cleanup()
	startup.LogShutdownStepComplete("Transcoder cleanup complete")

	if svc.sweeper != nil {
		startup.LogShutdownStep("Stopping retention sweeper")
		svc.sweeper.Stop()
		startup.LogShutdownStepComplete("Retention sweeper stopped")
	}

	svc.collector.Stop()
	svc.memMonitor.Stop()

	if svc.metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := svc.metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownComplete()
}
