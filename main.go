package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	config "ChatBuddy/global/config"
	"ChatBuddy/logger"
	"ChatBuddy/service/chat"
	"ChatBuddy/service/history"
	mgoSrv "ChatBuddy/service/mgo"
	"ChatBuddy/service/storage"
	redis "ChatBuddy/service/storage/redis"
	"ChatBuddy/tools/security"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Errorf("load config: %v", err)
		return
	}

	config.ConfigIds(cfg)

	if err := config.ConfigRedis(cfg); err != nil {
		logger.Errorf("redis init: %v", err)
		return
	}
	defer func() { _ = redis.Close() }()

	// mongo connects in the background; the gateway waits for the first
	// successful connect before serving
	mgoSrv.StartAsync(ctx, config.MongoConfig(cfg))
	if err := mgoSrv.WaitReady(ctx, mgoSrv.Manager()); err != nil {
		logger.Errorf("mongo not ready: %v (last connect error: %v)", err, mgoSrv.Err())
		return
	}

	store := history.NewStore(mgoSrv.GetDB())
	{
		ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := store.EnsureIndexes(ictx); err != nil {
			logger.Warnf("ensure indexes: %v", err)
		}
		cancel()
	}

	pipeline := history.NewPipeline(store, cfg.HistoryQueue, cfg.HistoryWorkers)
	defer pipeline.Close()

	verifier, err := security.NewJWTVerifier(config.VerifierOptions(cfg))
	if err != nil {
		logger.Errorf("verifier: %v", err)
		return
	}

	conns := chat.NewManager(chat.ManagerConf{
		HandshakeTTL: cfg.HandshakeTTL,
		SweepEvery:   cfg.SweepEvery,
	})
	defer conns.Close()

	rooms := chat.NewRoomManager()
	relay := chat.NewRelay(conns, rooms, pipeline)
	presence := storage.NewPresence(redis.Client())
	gateway := chat.NewServer(conns, rooms, relay, presence, verifier)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/chat", gateway.HandleWS)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: r}
	go func() {
		logger.Infof("[HTTP] gateway %s listening on %s", cfg.GatewayID, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
}
