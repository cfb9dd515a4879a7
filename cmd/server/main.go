package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/goagain/ircc-tracker/internal/agent"
	trackersvc "github.com/goagain/ircc-tracker/internal/api/tracker/service"
	"github.com/goagain/ircc-tracker/internal/checker"
	"github.com/goagain/ircc-tracker/internal/global"
	"github.com/goagain/ircc-tracker/internal/logger"
	"github.com/goagain/ircc-tracker/internal/notification"
	"github.com/goagain/ircc-tracker/internal/scheduler"
	"github.com/goagain/ircc-tracker/internal/utility"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Logger sẽ tự động đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	log := logger.GetAppLogger()
	log.Info("Logger system initialized successfully")
}

// initPipeline lắp ráp pipeline kiểm tra trạng thái: agent -> checker -> scheduler.
func initPipeline() (*agent.Factory, *utility.PasswordCipher, *scheduler.Scheduler) {
	log := logger.GetAppLogger()
	cfg := global.ServerConfig

	agents := agent.NewFactory()
	cipher := utility.NewPasswordCipher(cfg.JwtSecret)
	notifier := notification.NewEmailNotifier(cfg)

	credentialService, err := trackersvc.NewCredentialService()
	if err != nil {
		log.Fatalf("Failed to create credential service: %v", err)
	}
	recordService, err := trackersvc.NewApplicationRecordService()
	if err != nil {
		log.Fatalf("Failed to create application record service: %v", err)
	}

	statusChecker := checker.NewChecker(credentialService, recordService, notifier, agents, cipher)
	sched := scheduler.NewScheduler(statusChecker, time.Duration(cfg.PollIntervalMinutes)*time.Minute)

	return agents, cipher, sched
}

// main_thread khởi tạo và chạy Fiber server
func main_thread(app *fiber.App) {
	cfg := global.ServerConfig
	address := cfg.Address

	log := logger.GetAppLogger()
	log.Info("Starting Fiber server...")

	// Helper function để resolve đường dẫn tương đối từ thư mục gốc dự án
	resolvePath := func(path string) string {
		if filepath.IsAbs(path) {
			return path
		}
		currentDir, err := os.Getwd()
		if err != nil {
			return path
		}
		for {
			envDir := filepath.Join(currentDir, "config", "env")
			if _, err := os.Stat(envDir); err == nil {
				return filepath.Join(currentDir, path)
			}
			parentDir := filepath.Dir(currentDir)
			if parentDir == currentDir {
				return path
			}
			currentDir = parentDir
		}
	}

	// Kiểm tra xem có bật TLS không
	if cfg.EnableTLS && cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		certPath := resolvePath(cfg.TLSCertFile)
		keyPath := resolvePath(cfg.TLSKeyFile)

		if _, err := os.Stat(certPath); os.IsNotExist(err) {
			log.Fatalf("TLS certificate file not found: %s (resolved from: %s)", certPath, cfg.TLSCertFile)
		}
		if _, err := os.Stat(keyPath); os.IsNotExist(err) {
			log.Fatalf("TLS key file not found: %s (resolved from: %s)", keyPath, cfg.TLSKeyFile)
		}

		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			log.Fatalf("Error loading TLS certificate: %v", err)
		}

		ln, err := net.Listen("tcp", address)
		if err != nil {
			log.Fatalf("Error creating listener: %v", err)
		}

		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		tlsListener := tls.NewListener(ln, tlsConfig)

		log.WithFields(map[string]interface{}{
			"address": address,
			"cert":    certPath,
			"key":     keyPath,
		}).Info("Starting server with HTTPS/TLS")

		if err := app.Listener(tlsListener); err != nil {
			log.Fatalf("Error in Fiber Listener with TLS: %v", err)
		}
	} else {
		log.WithFields(map[string]interface{}{
			"address":  address,
			"protocol": "HTTP",
		}).Info("Starting server with HTTP")

		listenConfig := fiber.ListenConfig{}
		if err := app.Listen(address, listenConfig); err != nil {
			log.Fatalf("Error in Fiber Listen: %v", err)
		}
	}
}

// Hàm main
func main() {
	// Khởi tạo logger
	initLogger()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry
	InitRegistry()

	log := logger.GetAppLogger()

	// Lắp ráp pipeline kiểm tra trạng thái hồ sơ
	agents, cipher, sched := initPipeline()

	// Khởi động scheduler nền: sweep định kỳ + worker job một lần
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	log.Info("⏰ [SCHEDULER] Status check scheduler started successfully")

	// Graceful shutdown: chờ job đang chạy xong trước khi thoát
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.WithFields(map[string]interface{}{
			"signal": sig.String(),
		}).Info("Shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := sched.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Scheduler shutdown timed out")
		}
		os.Exit(0)
	}()

	// Khởi tạo Fiber app với toàn bộ routes
	app, err := InitFiberApp(agents, cipher, sched)
	if err != nil {
		log.Fatalf("Failed to initialize Fiber app: %v", err)
	}

	// Chạy Fiber server trên main thread
	main_thread(app)
}
