package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atende/config"
	"atende/controllers"
	dbpkg "atende/db"
	"atende/dispatcher"
	"atende/events"
	"atende/fila"
	"atende/models"
	"atende/router"
	"atende/sessions"
	"atende/workers"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(lvl)
	}

	// .env é opcional (dev); em produção as envs vêm do ambiente
	if err := godotenv.Load(); err != nil {
		logrus.Debug("sem .env, usando ambiente")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.json"
	}
	cfg := config.Get(configPath)
	dbpkg.SetConfigurations(cfg)

	database, err := dbpkg.Connect()
	if err != nil {
		logrus.WithError(err).Fatal("falha ao conectar no banco")
	}
	defer database.Close()

	// Publisher de eventos: sem broker configurado, cai no fallback de log
	var pub events.Publisher
	if cfg.Rabbit.URL != "" {
		pub, err = events.New(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			logrus.WithError(err).Warn("rabbit indisponível, eventos só no log")
			pub = events.NewFallback()
		}
	} else {
		pub = events.NewFallback()
	}
	defer pub.Close()

	filas := fila.NewService(
		fila.Config{CapacidadePadrao: cfg.Fila.CapacidadePadrao},
		fila.NewGormStore(database),
		pub,
	)
	if err := filas.CarregarFilas(); err != nil {
		logrus.WithError(err).Fatal("falha ao carregar filas")
	}

	sessoes := sessions.NewManager(sessions.Config{
		Timeout:          time.Duration(cfg.Sessions.TimeoutMin) * time.Minute,
		OfertaHumanoApos: cfg.Sessions.OfertaHumanoApos,
		LimiteErrosBot:   cfg.Sessions.LimiteErrosBot,
	}, sessions.NovoDetectorRegex())
	sessoes.Start()

	disp := dispatcher.NewMessageDispatcher(dispatcher.Config{
		Debounce:     time.Duration(cfg.Dispatcher.DebounceMS) * time.Millisecond,
		MaxGroupSize: cfg.Dispatcher.MaxGroupSize,
		MaxGroupAge:  time.Duration(cfg.Dispatcher.MaxGroupAgeS) * time.Second,
		SweepTick:    time.Duration(cfg.Dispatcher.SweepTickMS) * time.Millisecond,
	})
	disp.RegisterHandler(models.CanalWhatsApp, workers.NovoProcessadorWhatsApp(database, sessoes, filas))
	disp.RegisterHandler(models.CanalInstagram, workers.NovoProcessadorInstagram(sessoes, filas))
	disp.Start()

	r := gin.New()
	r.Use(dbpkg.SetDBtoContext(database))
	router.Initialize(r, cfg, router.Controllers{
		Webhook:     controllers.NewWebhookController(disp),
		Atendimento: controllers.NewAtendimentoController(filas),
		Filas:       controllers.NewFilaController(filas),
		Stats:       controllers.NewStatsController(disp, sessoes, filas),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.ApiPort).Info("atende escutando")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("servidor http caiu")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("desligando...")

	// Para de aceitar tráfego, descarrega os grupos pendentes e só então
	// fecha sessões e conexões.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("shutdown http com erro")
	}
	disp.Stop()
	sessoes.Stop()
	logrus.Info("até mais")
}
