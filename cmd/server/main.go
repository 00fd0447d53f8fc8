package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/visit-counter/internal/config"
	"github.com/iliyamo/visit-counter/internal/database"
	"github.com/iliyamo/visit-counter/internal/handler"
	"github.com/iliyamo/visit-counter/internal/middleware"
	"github.com/iliyamo/visit-counter/internal/queue"
	"github.com/iliyamo/visit-counter/internal/repository"
	"github.com/iliyamo/visit-counter/internal/router"
	"github.com/iliyamo/visit-counter/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins
	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(logLevel(cfg.LogLevel))
	e.HTTPErrorHandler = handler.ErrorHandler
	e.IPExtractor = middleware.IPExtractor(cfg.TrustProxy)
	e.Use(echomw.Recover())
	e.Use(requestLogger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Backend == config.BackendRedis || rlCfg.Enabled {
		redisCfg := config.LoadRedisConfig()
		var err error
		rdb, err = config.NewRedisClient(redisCfg)
		if err != nil {
			e.Logger.Warnf("redis at %s not reachable yet: %v", redisCfg.Addr, err)
		}
		defer rdb.Close()
	}

	var store repository.CounterStore
	switch cfg.Backend {
	case config.BackendMySQL:
		db, err := database.Open(config.LoadDBConfig())
		if err != nil {
			e.Logger.Fatalf("mysql: %v", err)
		}
		defer db.Close()
		if err := database.Ping(db); err != nil {
			e.Logger.Warnf("mysql not reachable yet: %v", err)
		}
		store = repository.NewSQLCounterRepo(db)
	default:
		store = repository.NewCounterRepo(rdb)
	}

	counter := handler.NewCounterHandler(store, cfg.CounterKey)
	if cfg.ViewEvents {
		pub := service.NewPublisher(queue.BrokerURL(), 0)
		go pub.Run(ctx)
		counter.Notifier = pub
	}
	if cfg.ViewConsumer {
		go func() {
			if err := queue.NewViewConsumer(queue.BrokerURL(), "logs").Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.Logger.Errorf("view consumer stopped: %v", err)
			}
		}()
	}

	var mws []echo.MiddlewareFunc
	if rdb != nil {
		mws = append(mws, middleware.NewTokenBucket(rlCfg, rdb))
	}
	router.RegisterRoutes(e, counter, mws...)

	go func() {
		e.Logger.Infof("listening on %s (env=%s, backend=%s, key=%s)", cfg.Addr(), cfg.Env, cfg.Backend, cfg.CounterKey)
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Errorf("shutdown: %v", err)
	}
}

func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Warnf("%s %s status=%d latency=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s status=%d latency=%s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	})
}

func logLevel(s string) log.Lvl {
	switch s {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}
