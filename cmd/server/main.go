package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/VitaminP8/blogexpress/graph"
	"github.com/VitaminP8/blogexpress/graph/generated"
	"github.com/VitaminP8/blogexpress/internal/auth"
	"github.com/VitaminP8/blogexpress/internal/config"
	"github.com/VitaminP8/blogexpress/internal/logger"
	"github.com/VitaminP8/blogexpress/internal/mail"
	"github.com/VitaminP8/blogexpress/internal/post"
	"github.com/VitaminP8/blogexpress/internal/ratelimit"
	"github.com/VitaminP8/blogexpress/internal/subscription"
	"github.com/VitaminP8/blogexpress/internal/user"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	storageType := flag.String("storage", "", "Тип хранилища: memory, postgres, mysql, sqlite или mongo")
	flag.Parse()

	// загружаем .env, затем конфиг из файла и окружения
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if *storageType != "" {
		cfg.Storage = *storageType
	}

	zl, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx := context.Background()

	st, err := openStores(ctx, cfg.Storage, cfg, zl)
	if err != nil {
		zl.Fatal("failed to open storage", zap.String("storage", cfg.Storage), zap.Error(err))
	}
	defer st.close()

	mailer, closeMailer, err := newMailer(cfg.Mail, zl)
	if err != nil {
		zl.Fatal("failed to set up mail transport", zap.Error(err))
	}
	defer closeMailer()

	rdb := newRedis(ctx, cfg, zl)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	tokens := auth.NewTokens(cfg.Auth.LoginSecret, cfg.Auth.ResetSecret)
	subs := subscription.NewSubscriptionManager()

	// Инициализация резолвера
	resolver := &graph.Resolver{
		Users: user.NewService(st.users, st.posts, tokens, mailer, user.Config{
			BcryptCost: cfg.Auth.BcryptCost,
			MailFrom:   cfg.Mail.From,
			ResetURL:   cfg.Mail.ResetURL,
		}, zl.Named("user")),
		Posts:         post.NewService(st.posts, st.users, subs, zl.Named("post")),
		Subscriptions: subs,
		Logger:        zl.Named("graph"),
	}

	e := newServer(resolver, tokens, rdb, cfg, zl)

	// запуск HTTP сервера в отдельной горутине, чтобы дождаться сигнала
	go func() {
		zl.Info("server started", zap.String("addr", ":"+cfg.Port), zap.String("storage", cfg.Storage))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Ожидание SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}

	zl.Info("server stopped")
}

func newServer(resolver *graph.Resolver, tokens *auth.Tokens, rdb *redis.Client, cfg config.Config, zl *zap.Logger) *echo.Echo {
	srv := handler.New(generated.NewExecutableSchema(generated.Config{
		Resolvers: resolverRoot{r: resolver},
	}))
	srv.AddTransport(transport.Websocket{
		KeepAlivePingInterval: 10 * time.Second,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		// websocket не проходит через AuthMiddleware, токен приходит в connection_init
		InitFunc: func(ctx context.Context, payload transport.InitPayload) (context.Context, *transport.InitPayload, error) {
			return websocketIdentity(ctx, tokens, payload), &payload, nil
		},
	})
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})
	srv.Use(extension.Introspection{})
	srv.SetErrorPresenter(graph.ErrorPresenter(zl))
	srv.SetRecoverFunc(graph.RecoverFunc(zl))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(zl))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	// Страница с тестовым интерфейсом Playground
	e.GET("/", echo.WrapHandler(playground.Handler("GraphQL Playground", "/query")))

	// AuthMiddleware кладет Identity в контекст до лимитера, чтобы ключ учитывал пользователя
	query := echo.WrapHandler(srv)
	limited := ratelimit.Middleware(cfg.RateLimit, rdb, zl.Named("ratelimit"))
	authMw := echo.WrapMiddleware(auth.AuthMiddleware(tokens))
	e.Any("/query", query, authMw, limited)

	return e
}

// websocketIdentity достает токен из payload connection_init ("Authorization": "Bearer ...").
func websocketIdentity(ctx context.Context, tokens *auth.Tokens, payload transport.InitPayload) context.Context {
	header := payload.Authorization()
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return ctx
	}
	claims, err := tokens.ParseSession(header[len(prefix):])
	if err != nil {
		return ctx
	}
	return auth.WithIdentity(ctx, auth.Identity{IsAuth: true, UserID: claims.UserID, Role: claims.Role})
}

func requestLogger(zl *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zl.Info("request", fields...)
			return nil
		},
	})
}

// newMailer выбирает транспорт писем: smtp, queue (RabbitMQ) или log.
func newMailer(cfg config.MailConfig, zl *zap.Logger) (mail.Mailer, func(), error) {
	switch cfg.Transport {
	case "queue":
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, nil, err
		}
		m, err := mail.NewQueueMailer(conn, cfg.Queue)
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		zl.Info("mail goes through the queue", zap.String("queue", cfg.Queue))
		return m, func() { _ = conn.Close() }, nil
	case "log":
		return mail.NewLogMailer(zl.Named("mail")), func() {}, nil
	default:
		return mail.NewSMTPMailer(cfg.Host, cfg.Port, cfg.User, cfg.Password), func() {}, nil
	}
}

// newRedis нужен только лимитеру. Недоступный Redis отключает лимит, но не сервер.
func newRedis(ctx context.Context, cfg config.Config, zl *zap.Logger) *redis.Client {
	if !cfg.RateLimit.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		zl.Warn("redis is unavailable, rate limit disabled", zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	return rdb
}
