package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"travelblogr-realtime-service/backend/internal/cache"
	"travelblogr-realtime-service/backend/internal/channel"
	"travelblogr-realtime-service/backend/internal/handler"
	"travelblogr-realtime-service/backend/internal/httpapi/middleware"
	"travelblogr-realtime-service/backend/internal/kvstore"
	"travelblogr-realtime-service/backend/internal/mysqldb"
	"travelblogr-realtime-service/backend/internal/presence"
	"travelblogr-realtime-service/backend/internal/ratelimit"
	"travelblogr-realtime-service/backend/internal/repo"
)

type RealtimeConfig struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	MySQL struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Auth struct {
		Secret string `mapstructure:"secret"`
	} `mapstructure:"auth"`
	RateLimit struct {
		Limit         int `mapstructure:"limit"`
		WindowSeconds int `mapstructure:"window_seconds"`
	} `mapstructure:"ratelimit"`
}

func initConfig() (*RealtimeConfig, error) {
	var cfg = &RealtimeConfig{}
	viper.SetConfigName("RealtimeConfig")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./backend/config")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := initConfig()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}

	// 没配 Redis 必须能起服务：整套缓存/事件层降级为空操作，
	// 这层只是优化和通知，不能成为启动失败的原因
	var rdb *redis.Client
	var store kvstore.Store = kvstore.NewNoopStore()
	if cfg.Redis.Addr == "" {
		log.Printf("redis not configured, realtime layer degraded to no-op")
	} else {
		rdb = kvstore.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rdb.Close()
		store = kvstore.NewRedisStore(rdb)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			// 暂时不可达也不退出：客户端自带重试，后续请求按 fail-open 降级
			log.Printf("ping redis failed (continuing degraded): %v", err)
		}
		cancel()
	}

	var tripStatsRepo repo.TripStatsRepo = mysqldb.NewNullTripRepo()
	if cfg.MySQL.DSN == "" {
		log.Printf("mysql not configured, interaction counts fall back to empty cache")
	} else {
		db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{})
		if err != nil {
			log.Printf("open mysql failed (continuing degraded): %v", err)
		} else {
			tripStatsRepo = mysqldb.NewMySQLTripRepo(db)
		}
	}

	manager := cache.NewManager(store)
	emulator := channel.NewEmulator(store)
	tracker := presence.NewTracker(store, emulator)
	limiter := ratelimit.NewLimiter(store)
	interactionRepo := cache.NewRedisInteraction(rdb, manager, emulator, tripStatsRepo)

	ph := handler.NewPresenceHandler(tracker, emulator)
	ih := handler.NewInteractionHandler(interactionRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// CORS 默认关闭：正常流量走网关（网关已加 CORS，叠加会产生重复的
	// Access-Control-Allow-Origin 被浏览器拦截）。直连调试时打开。
	if os.Getenv("REALTIME_ENABLE_CORS") == "1" {
		router.Use(cors.New(cors.Config{
			AllowOriginFunc: func(origin string) bool { return true },
			AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "tripid"},
			ExposeHeaders:   []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge:          12 * time.Hour,
		}))
	}

	rlLimit := cfg.RateLimit.Limit
	if rlLimit <= 0 {
		rlLimit = 30
	}
	rlWindow := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	if rlWindow <= 0 {
		rlWindow = time.Minute
	}

	// 路由
	r := router.Group("/realtime")
	r.Use(middleware.AuthMiddleware(cfg.Auth.Secret))
	{
		r.POST("/presence/heartbeat", ph.Heartbeat())
		r.POST("/presence/leave", ph.Leave())
		r.GET("/presence/viewers", ph.Viewers())

		r.GET("/events", ph.Events())

		mutate := middleware.RateLimitMiddleware(limiter, "interaction", rlLimit, rlWindow)
		r.POST("/like/increment", mutate, ih.IncrLike())
		r.POST("/like/decrement", mutate, ih.DecrLike())
		r.POST("/save/increment", mutate, ih.IncrSave())
		r.POST("/save/decrement", mutate, ih.DecrSave())

		r.GET("/like/value", ih.GetLike())
		r.GET("/save/value", ih.GetSave())
	}
	router.Run(fmt.Sprintf(":%d", cfg.Running.Port))
}
