package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PPStore/global/config"
	"PPStore/logger"
	mid "PPStore/middleware"
	"PPStore/module/notification"
	"PPStore/module/storage"
	"PPStore/service/gateway"
	"PPStore/service/mgo"
	"PPStore/service/natsx"
	redis "PPStore/service/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer logger.Sync()

	if err := config.Load(os.Getenv("PPSTORE_CONFIG")); err != nil {
		logger.Errorf("[Main] load config: %v", err)
		os.Exit(1)
	}
	config.ConfigIds()

	if err := config.ConfigRedis(); err != nil {
		logger.Errorf("[Main] init redis: %v", err)
		os.Exit(1)
	}
	defer func() { _ = redis.CloseRedis() }()

	if err := config.ConfigNats(); err != nil {
		// 跨网关转发是可选能力，连不上降级为单机
		logger.Warnf("[Main] nats unavailable, running standalone: %v", err)
	}
	defer func() { _ = natsx.StopNats() }()

	mgo.StartAsync(ctx, &config.Global.Mongo)
	select {
	case <-mgo.Ready():
	case <-time.After(30 * time.Second):
		logger.Errorf("[Main] mongo not ready: %v", mgo.Err())
		os.Exit(1)
	}

	// ===== 核心装配 =====
	store := storage.NewStore(mgo.GetClient())
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Errorf("[Main] storage indexes: %v", err)
		os.Exit(1)
	}
	ledger := notification.NewLedger(mgo.GetClient())
	if err := ledger.EnsureIndexes(ctx); err != nil {
		logger.Errorf("[Main] notification indexes: %v", err)
		os.Exit(1)
	}

	connMgr := gateway.NewConnManager(gateway.ManagerConf{MaxPerUser: 8}, config.Global.GatewayID)
	defer connMgr.Close()
	router := notification.NewRouter(ledger, connMgr)
	if err := notification.SubscribeRelay(connMgr); err != nil {
		logger.Warnf("[Main] relay subscribe: %v", err)
	}

	// ===== 路由 =====
	g := gin.New()
	g.Use(gin.Recovery())

	ws := gateway.NewServer(connMgr)
	g.GET("/ws", ws.HandleWS)

	sh := storage.NewHandler(store)
	nh := notification.NewHandler(ledger, router)
	auth := mid.RouteOpt{IsAuth: true}

	mid.POST(g, "/v1/storage", sh.HandleWrite, auth)
	mid.POST(g, "/v1/storage/read", sh.HandleRead, auth)
	mid.POST(g, "/v1/storage/delete", sh.HandleDelete, auth)
	mid.GET(g, "/v1/storage/:collection", sh.HandleList, auth)

	mid.GET(g, "/v1/notifications", nh.HandleList, auth)
	mid.POST(g, "/v1/notifications/delete", nh.HandleDelete, auth)
	mid.POST(g, "/v1/notifications/send", nh.HandleSend, auth)

	go func() {
		addr := fmt.Sprintf(":%d", config.Global.Port)
		logger.Infof("[Main] %s listening on %s", config.Global.GatewayID, addr)
		if err := g.Run(addr); err != nil {
			logger.Errorf("[Main] http server: %v", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Infof("[Main] shutting down")
	case <-ctx.Done():
	}
}
