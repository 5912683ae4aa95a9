package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/pdftoolbox/internal/config"
	"github.com/local/pdftoolbox/internal/converter"
	"github.com/local/pdftoolbox/internal/limiter"
	logpkg "github.com/local/pdftoolbox/internal/logger"
	"github.com/local/pdftoolbox/internal/metrics"
	"github.com/local/pdftoolbox/internal/scratch"
	"github.com/local/pdftoolbox/internal/sigfont"
	web "github.com/local/pdftoolbox/internal/web"
)

func main() {
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	// LibreOffice converter
	conv := converter.New(cfg.Converter.Binary, cfg.Converter.MaxWorkers, cfg.Converter.Timeout)
	if err := conv.CheckInstallation(); err != nil {
		log.Warn().Err(err).Msg("LibreOffice missing; DOCX tools will fail until it is installed")
	}

	// Conversion limiter + breaker (breaker only with Redis)
	lim, err := limiter.New(limiter.Options{
		RedisURL:    cfg.Converter.RedisURL,
		MaxInflight: cfg.Converter.MaxWorkers,
		BaseBackoff: cfg.Converter.BreakerBase,
		MaxBackoff:  cfg.Converter.BreakerMax,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init conversion limiter")
	}
	defer lim.CloseClient()

	// Signature font is optional at boot; /sign/ reports it per request.
	// SIGNATURE_FONT_PATH is already first in the candidate list.
	fontCandidates := sigfont.DefaultCandidates()
	if _, err := sigfont.Resolve(fontCandidates); err != nil {
		log.Warn().Err(err).Msg("no signature font found; handwritten style is unavailable")
	}

	// Workdir sweeper for leftovers from crashed requests
	stop := make(chan struct{})
	scratch.StartSweeper(cfg.Scratch.Root, cfg.Scratch.SweepMaxAge, cfg.Scratch.SweepInterval, stop)
	defer close(stop)

	w := web.New(conv, lim, web.Settings{
		BaseURL:        cfg.Server.BaseURL,
		MaxUploadMB:    cfg.Server.MaxUploadMB,
		ScratchRoot:    cfg.Scratch.Root,
		SigWidthPt:     cfg.Tools.DefaultSigWidthPt,
		FontCandidates: fontCandidates,
		PreviewDPI:     cfg.Tools.PreviewDPI,
		PreviewQuality: cfg.Tools.PreviewQuality,
	})
	mux := http.NewServeMux()
	w.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(wr http.ResponseWriter, r *http.Request) {
		wr.WriteHeader(http.StatusOK)
		fmt.Fprintln(wr, "ok")
	})

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}
