package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	adapterhttp "audio-convert-service/ddd/adapter/http"
	"audio-convert-service/ddd/application/app"
	"audio-convert-service/ddd/domain/gateway"
	"audio-convert-service/ddd/domain/port"
	"audio-convert-service/ddd/domain/repo"
	"audio-convert-service/ddd/domain/service"
	"audio-convert-service/ddd/infrastructure/cache"
	"audio-convert-service/ddd/infrastructure/database/persistence"
	"audio-convert-service/ddd/infrastructure/event"
	"audio-convert-service/ddd/infrastructure/executor"
	"audio-convert-service/ddd/infrastructure/fetcher"
	"audio-convert-service/ddd/infrastructure/progress"
	"audio-convert-service/ddd/infrastructure/queue"
	"audio-convert-service/ddd/infrastructure/storage"
	"audio-convert-service/ddd/infrastructure/worker"
	"audio-convert-service/pkg/config"
	"audio-convert-service/pkg/kafka"
	"audio-convert-service/pkg/logger"
	"audio-convert-service/pkg/middleware"
	"audio-convert-service/pkg/redisclient"
	"audio-convert-service/pkg/registry"
	"audio-convert-service/pkg/repository"
	"audio-convert-service/pkg/task"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	goredis "github.com/redis/go-redis/v9"
)

// Run 组装全部依赖并启动服务,阻塞到收到退出信号
func Run() {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("[ERROR] Failed to load config (%s): %v\n", cfgPath, err)
		os.Exit(1)
	}
	config.SetGlobalConfig(cfg)

	logService := logger.NewLogger(cfg)
	logger.SetGlobalLogger(logService)
	defer logService.Close()

	logger.Infof("audio convert service starting config=%s", cfgPath)

	// 编码器：启用转码时要求ffmpeg可用，否则直通拷贝
	var audioEncoder port.AudioEncoder
	if cfg.Convert.TranscodeEnabled {
		ffmpegEncoder := executor.NewFFmpegEncoder(cfg.Convert.FFmpegPath)
		if err := ffmpegEncoder.CheckBinary(); err != nil {
			logger.Fatal(fmt.Sprintf("FFmpeg binary not found, install it or set convert.ffmpeg_path error=%v", err))
		}
		audioEncoder = ffmpegEncoder
	} else {
		audioEncoder = executor.NewCopyEncoder()
	}

	// 仓储：memory用于开发环境,mysql用于生产
	var jobRepo repo.DownloadJobRepository
	switch cfg.Database.Driver {
	case "mysql":
		db, err := repository.OpenDatabase(&cfg.Database)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to initialize database error=%v", err))
		}
		jobRepo = persistence.NewDownloadJobRepository(db)
	default:
		jobRepo = persistence.NewMemoryJobRepository()
	}

	// Redis：预览缓存与限流共用一个客户端
	var redisCli *redisclient.Client
	if cfg.Redis.Enabled {
		redisCli, err = redisclient.New(cfg.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to connect redis error=%v", err))
		}
		defer redisCli.Close()
	}

	previewCache := cache.PreviewCache(cache.NewNoopPreviewCache())
	if redisCli != nil {
		previewCache = cache.NewRedisPreviewCache(redisCli, redisCli.PreviewTTL())
	}

	// Kafka：任务生命周期事件
	publisher := gateway.EventPublisher(event.NewNoopEventPublisher())
	if cfg.Kafka.Enabled {
		kafkaCli := kafka.NewClient(&cfg.Kafka)
		defer kafkaCli.Close()
		if err := kafkaCli.EnsureTopic(cfg.Kafka.Topics.JobEvents, 3, 1); err != nil {
			logger.Warnf("failed to ensure kafka topic topic=%s error=%v", cfg.Kafka.Topics.JobEvents, err)
		}
		publisher = event.NewKafkaEventPublisher(kafkaCli, cfg.Kafka.Topics.JobEvents)
	}

	// 产物存储
	audioStorage, err := buildStorage(cfg)
	if err != nil {
		logger.Fatal(fmt.Sprintf("Failed to initialize storage error=%v", err))
	}

	mediaFetcher := fetcher.NewYtDlpFetcher(cfg.Fetcher.YtDlpPath)
	progressSink := progress.NewRepositoryProgressSink(jobRepo)

	convertService := service.NewConvertService(
		jobRepo,
		mediaFetcher,
		audioEncoder,
		audioStorage,
		publisher,
		progressSink,
		service.ConvertOptions{
			MetadataTimeout: cfg.Fetcher.Timeout,
			TransferTimeout: cfg.Convert.EncodeTimeout,
			TempDir:         cfg.Convert.TempDir,
			ProgressStep:    cfg.Convert.ProgressStep,
		},
	)

	jobQueue := queue.NewMemoryJobQueue(cfg.Convert.QueueCapacity)
	defer jobQueue.Close()

	convertWorker := worker.NewConvertWorker("main", jobQueue, convertService, cfg.Convert.WorkerCount)

	taskManager := task.NewManager()
	taskManager.Register(convertWorker)
	if err := taskManager.StartAll(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("Failed to start background tasks error=%v", err))
	}

	convertApp := app.NewConvertApp(convertService, jobRepo, jobQueue, previewCache, cfg.Fetcher.AllowedHosts)

	// HTTP路由
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, limiterRedis(redisCli))
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	engine := gin.New()
	router := adapterhttp.NewRouter(convertApp, cfg, limiter)
	router.SetupMiddleware(engine)
	router.SetupRoutes(engine)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(fmt.Sprintf("Failed to start HTTP server error=%v", err))
		}
	}()
	logger.Infof("HTTP server started addr=%s api_url=http://%s/api/v1", serverAddr, serverAddr)

	// 服务注册
	var serviceRegistry *registry.ServiceRegistry
	if cfg.ServiceRegistry.Enabled {
		registerAddr := cfg.ServiceRegistry.RegisterHost + ":" + strconv.Itoa(cfg.Server.Port)
		serviceRegistry, err = registry.NewServiceRegistry(&cfg.ServiceRegistry, registerAddr)
		if err != nil {
			logger.Fatal(fmt.Sprintf("Failed to create service registry error=%v", err))
		}
		if err := serviceRegistry.Register(); err != nil {
			logger.Fatal(fmt.Sprintf("Failed to register service error=%v", err))
		}
	}

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Received shutdown signal, shutting down server...")

	if serviceRegistry != nil {
		if err := serviceRegistry.Deregister(); err != nil {
			logger.Warnf("failed to deregister service: %v", err)
		}
	}

	taskManager.StopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal(fmt.Sprintf("Server forced to close error=%v", err))
	}

	logger.Infof("Server exited safely")
}

// buildStorage 按配置选择本地目录或MinIO作为产物存储
func buildStorage(cfg *config.Config) (gateway.AudioStorage, error) {
	switch cfg.Storage.Backend {
	case "minio":
		client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKeyID, cfg.Minio.SecretAccessKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create minio client: %w", err)
		}
		return storage.NewMinioStorage(context.Background(), client, cfg.Minio.BucketName)
	default:
		return storage.NewLocalStorage(cfg.Storage.OutputDir)
	}
}

func limiterRedis(cli *redisclient.Client) *goredis.Client {
	if cli == nil {
		return nil
	}
	return cli.Raw()
}

// resolveConfigPath 根据环境选择配置文件，支持CONFIG_PATH覆盖、CONFIG_ENV区分环境
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := os.Getenv("CONFIG_ENV")
	switch env {
	case "prod", "production":
		return "configs/config_prod.yaml"
	case "", "dev", "development":
		return "configs/config.dev.yaml"
	default:
		return fmt.Sprintf("configs/config.%s.yaml", env)
	}
}
