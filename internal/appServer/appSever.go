// launching the server, redis, kafka
package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"log"

	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/WB_L3/imgpipe/config"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/database"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/imagekit"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/kafka"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/pkg/storage"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/service"
	"github.com/ds124wfegd/WB_L3/imgpipe/internal/transport"
	"github.com/gin-gonic/gin"

	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},           // ban on outdate TLS certificate
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags), // os.Stderr can be replaced with ElsasticSearch in the feature
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServiceSettings maps the config file onto the service defaults.
func ServiceSettings(cfg *config.Config) service.Settings {
	return service.Settings{
		Quality:     cfg.CDN.Quality,
		Breakpoints: cfg.CDN.Breakpoints,
		Sizes: imagekit.SizesConfig{
			Mobile:  cfg.CDN.Sizes.Mobile,
			Tablet:  cfg.CDN.Sizes.Tablet,
			Desktop: cfg.CDN.Sizes.Desktop,
		},
		RootMargin: cfg.Loader.RootMargin,
		Landing:    cfg.Assets.Landing,
		AutoWarm:   cfg.Warmer.AutoWarm,
	}
}

// SeedPreloads registers the landing page hints from the config file.
func SeedPreloads(svc service.PreloadService, preloads []config.PreloadConfig) int {
	added := 0
	for _, p := range preloads {
		ok := svc.AddPreload(entity.PreloadEntry{
			Src:           p.Src,
			Type:          p.Type,
			FetchPriority: entity.FetchPriority(p.FetchPriority),
			Media:         p.Media,
		})
		if ok {
			added++
		}
	}
	return added
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(new(logrus.JSONFormatter))
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	logger := logrus.WithField("app", "imgpipe")

	ctx := context.Background()

	assets := storage.NewFileStorage(cfg.Assets.Dir)
	kafkaProducer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	warmRepo, closeRepo, _ := database.NewWarmRepository(ctx, cfg.Redis, logger)

	svc := service.NewService(ServiceSettings(cfg), imagekit.New(cfg.CDN.Origin), assets, kafkaProducer, warmRepo, logger)
	seeded := SeedPreloads(svc.PreloadService, cfg.CDN.Preloads)
	imgHandler := transport.NewImageHandler(svc)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(imgHandler, cfg.Server.Timeout)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":     cfg.Server.Port,
		"origin":   cfg.CDN.Origin,
		"preloads": seeded,
	}).Info("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
	if err := kafkaProducer.Close(); err != nil {
		logrus.Errorf("error occured on kafka producer closing: %s", err.Error())
	}
	if err := closeRepo(); err != nil {
		logrus.Errorf("error occured on redis closing: %s", err.Error())
	}
}
