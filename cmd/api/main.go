package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"chat-relay/cmd/api/auth"
	"chat-relay/cmd/api/broadcast"
	"chat-relay/cmd/api/clients/completionclient"
	"chat-relay/cmd/api/clients/geminiclient"
	"chat-relay/cmd/api/clientstate"
	"chat-relay/cmd/api/router"
	"chat-relay/cmd/api/services"
	"chat-relay/internal/logger"
	"chat-relay/config"
	"chat-relay/db"
	"chat-relay/eventbus"
	"chat-relay/repositories"
)

// @title           Chat Relay API
// @version         1.0
// @description     Chat relay with persisted sessions, history export and WebSocket broadcast
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer {JWT}
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init("LOG_LEVEL", cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Init(ctx); err != nil {
		logger.Log.Errorf("mongo init failed: %v", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Close(closeCtx)
	}()

	database := db.Database()
	sessions := repositories.NewChatSessionRepository(database)
	messages := repositories.NewChatMessageRepository(database)
	completionLogs := repositories.NewCompletionLogRepository(database)

	provider, err := newProvider(ctx, cfg)
	if err != nil {
		logger.Log.Errorf("completion provider init failed: %v", err)
		os.Exit(1)
	}

	var tokens auth.TokenParser
	if jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.Auth.Issuer, auth.DefaultTokenTTL); err != nil {
		logger.Log.Warnf("JWT_SECRET 미설정 (%v): 모든 요청은 익명으로 처리되고 내보내기는 비활성화됩니다.", err)
	} else {
		tokens = jwtManager
	}

	hub := broadcast.NewHub(cfg.Broadcast.SendBuffer)
	go hub.Run(ctx)

	publisher, closeRelay := newBroadcastPublisher(ctx, cfg, hub)
	defer closeRelay()

	r := router.New(router.Deps{
		Chat:      services.NewChatService(sessions, messages, completionLogs, provider),
		History:   services.NewHistoryService(sessions, messages),
		Broadcast: broadcast.NewServer(hub, publisher, nil),
		Codec: clientstate.Codec{
			CookieName:  cfg.ClientState.CookieName,
			MaxPrevious: cfg.ClientState.MaxPrevious,
			Secure:      cfg.ClientState.Secure,
		},
		Tokens:         tokens,
		Ping:           db.Ping,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DefaultRoom:    cfg.Broadcast.DefaultRoom,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("API 서버 시작 addr=%s provider=%s model=%s", cfg.Server.Addr, provider.Name(), provider.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("http server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("종료 신호 수신, 서버를 정리합니다.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("http server shutdown error: %v", err)
	}
}

func newProvider(ctx context.Context, cfg config.AppConfig) (services.CompletionProvider, error) {
	switch cfg.Completion.Provider {
	case completionclient.ProviderName:
		if cfg.OpenRouterAPIKey == "" {
			logger.Log.Warn("OPENROUTER_API_KEY 미설정: 완성 API 호출은 업스트림 오류로 끝납니다.")
		}
		return completionclient.New(completionclient.Config{
			BaseURL: cfg.Completion.BaseURL,
			APIKey:  cfg.OpenRouterAPIKey,
			Model:   cfg.Completion.Model,
			Timeout: cfg.Completion.Timeout,
		}), nil
	case geminiclient.ProviderName:
		return geminiclient.New(ctx, cfg.GeminiAPIKey, cfg.Gemini.Model, cfg.Completion.Timeout)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Completion.Provider)
	}
}

// newBroadcastPublisher 는 Kafka 중계가 켜져 있으면 Relay 를, 아니면 Hub 를 그대로 돌려준다.
// Kafka 연결에 실패하면 로컬 fan-out 으로 계속 동작한다.
func newBroadcastPublisher(ctx context.Context, cfg config.AppConfig, hub *broadcast.Hub) (broadcast.Publisher, func()) {
	kc := cfg.Broadcast.Kafka
	if !kc.Enabled {
		return hub, func() {}
	}
	if cfg.KafkaBrokers == "" {
		logger.Log.Warn("broadcast.kafka.enabled 이지만 KAFKA_BOOTSTRAP_SERVERS 가 비어 있어 로컬 중계만 사용합니다.")
		return hub, func() {}
	}

	if err := eventbus.EnsureTopic(ctx, cfg.KafkaBrokers, kc.Topic, 1); err != nil {
		logger.Log.Warnf("브로드캐스트 토픽 확인 실패: %v", err)
	}
	bus, err := eventbus.NewKafkaEventBus(cfg.KafkaBrokers)
	if err != nil {
		logger.Log.Errorf("Kafka 이벤트 버스 생성 실패, 로컬 중계만 사용합니다: %v", err)
		return hub, func() {}
	}

	relay := broadcast.NewRelay(bus, kc.Topic, hub)
	groupID := kc.GroupPrefix + "-" + uuid.NewString()
	go func() {
		if err := relay.Run(ctx, groupID); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Errorf("브로드캐스트 중계 컨슈머 종료: %v", err)
		}
	}()
	logger.InfoWithFields("broadcast relay started", logger.Fields{"topic": kc.Topic, "group_id": groupID})
	return relay, bus.Close
}
