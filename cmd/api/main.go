package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"recipebox/internal/api"
	"recipebox/internal/config"
	"recipebox/internal/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径 (默认 configs/config.json)")
	flag.Parse()

	// .env 不存在时静默跳过，容器环境直接注入环境变量
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewDefault(cfg.App.LogLevel)

	srv, err := api.NewServer(cfg, log)
	if err != nil {
		log.Error("server init failed", "error", err.Error())
		os.Exit(1)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}
