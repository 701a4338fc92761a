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

	"pairchat/internal/config"
	"pairchat/internal/coordinator"
	"pairchat/internal/handlers/chatserver"
	"pairchat/internal/storage"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		logrus.Fatalf("无法加载配置: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.Infof("%s %s 配置加载成功", cfg.AppName, cfg.AppVersion)

	// 2. 初始化本地媒体存储
	storageService, err := storage.NewLocalStorageService(cfg.Storage)
	if err != nil {
		logrus.Fatalf("无法初始化本地存储服务: %v", err)
	}
	logrus.Infof("本地存储服务初始化成功，目录: %s", cfg.Storage.LocalPath)

	// 3. 初始化会话协调器并启动存活清理器
	coord := coordinator.New(cfg.Chat)
	reaperDone := make(chan struct{})
	coord.StartReaper(reaperDone)
	logrus.Infof("会话协调器已启动，身份: %s / %s", cfg.Chat.UserA.ID, cfg.Chat.UserB.ID)

	// 4. 初始化 Handlers
	wsHandler := chatserver.NewWebSocketHandler(coord, cfg.WebSocket)
	uploadHandler := chatserver.NewUploadHandler(storageService, cfg.Storage)

	// 5. 配置路由
	router := mux.NewRouter()
	router.HandleFunc(cfg.Server.WebSocketPath, wsHandler.ServeWS)
	router.HandleFunc("/upload", uploadHandler.UploadFileHandler).Methods(http.MethodPost)

	// 静态资源：上传目录与客户端页面
	router.PathPrefix(cfg.Storage.BaseURL + "/").Handler(
		http.StripPrefix(cfg.Storage.BaseURL+"/", http.FileServer(http.Dir(cfg.Storage.LocalPath))))
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.Server.StaticDir)))

	corsMiddleware := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.Server.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.Server.CORS.AllowedHeaders),
	)

	// 6. 启动 HTTP 服务器
	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:           serverAddr,
		Handler:        handlers.RecoveryHandler()(corsMiddleware(router)),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logrus.Infof("服务器启动于 %s, WebSocket 路径: %s", serverAddr, cfg.Server.WebSocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("服务器准备关闭...")

	close(reaperDone)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logrus.Fatalf("服务器关闭失败: %v", err)
	}
	logrus.Info("服务器已优雅关闭")
}
