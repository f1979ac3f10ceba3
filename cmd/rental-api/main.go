package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/common/config"
	"github.com/CarOnePlus/CarOnePlus/internal/common/db"
	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/CarOnePlus/CarOnePlus/internal/common/middleware"
	"github.com/CarOnePlus/CarOnePlus/internal/common/server"
	"github.com/CarOnePlus/CarOnePlus/internal/common/tracing"
	"github.com/CarOnePlus/CarOnePlus/internal/geo"
	"github.com/CarOnePlus/CarOnePlus/internal/incident"
	"github.com/CarOnePlus/CarOnePlus/internal/insurance"
	"github.com/CarOnePlus/CarOnePlus/internal/mail"
	"github.com/CarOnePlus/CarOnePlus/internal/payment"
	"github.com/CarOnePlus/CarOnePlus/internal/reservation"
	"github.com/CarOnePlus/CarOnePlus/internal/review"
	"github.com/CarOnePlus/CarOnePlus/internal/support"
	"github.com/CarOnePlus/CarOnePlus/internal/user"
	"github.com/CarOnePlus/CarOnePlus/internal/vehicle"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v76"
)

var (
	configPath  = flag.String("config", "configs/rental-api.json", "配置文件路径")
	consulKVKey = flag.String("consul-kv-key", "", "从 Consul KV 读取配置的 key（优先于本地文件）")
	consulHost  = flag.String("consul-host", "localhost", "Consul 地址（仅 KV 配置时用）")
	consulPort  = flag.Int("consul-port", 8500, "Consul 端口（仅 KV 配置时用）")
)

func main() {
	flag.Parse()

	// 加载配置：优先 Consul KV，其次本地文件
	var (
		cfg *config.Config
		err error
	)
	if *consulKVKey != "" {
		cfg, err = config.LoadConfigFromConsulKV(*consulHost, *consulPort, *consulKVKey)
	} else {
		cfg, err = config.LoadConfig(*configPath)
	}
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 数据库
	gdb, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := gdb.AutoMigrate(
		&user.User{},
		&user.RevokedToken{},
		&user.PasswordResetCode{},
		&vehicle.Vehicle{},
		&vehicle.Image{},
		&reservation.Reservation{},
		&payment.Payment{},
		&review.Review{},
		&incident.Incident{},
		&support.Message{},
		&insurance.Selection{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Redis（车辆详情缓存）
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// Stripe
	stripe.Key = cfg.Stripe.APIKey

	// 本地图片目录
	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		log.Fatalf("failed to create upload dir: %v", err)
	}

	mailer := mail.NewSMTPMailer(cfg.Mail)

	// 组装各领域
	userSvc := user.NewService(user.NewRepo(gdb), cfg.Auth, mailer, log)
	userHandler := user.NewHandler(userSvc)

	vehicleSvc := vehicle.NewService(vehicle.NewRepo(gdb), rdb, log)
	vehicleHandler := vehicle.NewHandler(vehicleSvc, cfg.Upload)

	reservationSvc := reservation.NewService(reservation.NewRepo(gdb), log)
	reservationHandler := reservation.NewHandler(reservationSvc)

	paymentSvc := payment.NewService(payment.NewRepo(gdb), payment.StripeSessions{}, cfg.Stripe, vehicleSvc, mailer, log)
	paymentHandler := payment.NewHandler(paymentSvc, payment.NewStripeVerifier(cfg.Stripe.WebhookSecret), log)

	reviewSvc := review.NewService(review.NewRepo(gdb), log)
	reviewHandler := review.NewHandler(reviewSvc)
	incidentHandler := incident.NewHandler(incident.NewService(incident.NewRepo(gdb), log))
	supportHandler := support.NewHandler(support.NewService(support.NewRepo(gdb), log))
	insuranceHandler := insurance.NewHandler(insurance.NewService(insurance.NewRepo(gdb)))

	// 地理编码（未配置 API key 时不挂相关路由）
	var geoHandler *geo.Handler
	if cfg.Maps.APIKey != "" {
		cb := middleware.NewCircuitBreaker("maps-geocode", 5, 30*time.Second)
		geocoder, err := geo.NewGoogleGeocoder(cfg.Maps.APIKey, cb)
		if err != nil {
			log.Warnf("failed to init geocoder: %v", err)
		} else {
			geoHandler = geo.NewHandler(geo.NewService(geocoder, vehicleSvc, log))
		}
	}

	authn := server.JWTAuth(cfg.Auth, userSvc, log)

	err = server.RunHTTPServer(cfg, log, func(r *gin.Engine) error {
		// 公开路由
		authGroup := r.Group("/auth")
		{
			authGroup.POST("/register", userHandler.Register)
			authGroup.POST("/login", userHandler.Login)
			authGroup.POST("/password-reset/request", userHandler.RequestPasswordReset)
			authGroup.POST("/password-reset/confirm", userHandler.ResetPassword)
			authGroup.POST("/logout", authn, userHandler.Logout)
			authGroup.GET("/me", authn, userHandler.Me)
		}

		vehicles := r.Group("/vehicles")
		{
			vehicles.GET("", vehicleHandler.List)
			vehicles.GET("/:id", vehicleHandler.Get)
			vehicles.GET("/:id/images", vehicleHandler.ListImages)
			vehicles.GET("/:id/reviews", reviewHandler.ListForVehicle)
			vehicles.GET("/:id/availability", reservationHandler.CheckAvailability)

			vehicles.POST("", authn, vehicleHandler.Create)
			vehicles.GET("/my-vehicles", authn, vehicleHandler.MyVehicles)
			vehicles.PUT("/:id", authn, vehicleHandler.Update)
			vehicles.DELETE("/:id", authn, vehicleHandler.Delete)
			vehicles.POST("/:id/upload-image", authn, vehicleHandler.UploadImage)
			vehicles.POST("/:id/reviews", authn, reviewHandler.Create)
			if geoHandler != nil {
				vehicles.GET("/nearby", geoHandler.Nearby)
				vehicles.POST("/:id/geocode", authn, geoHandler.GeocodeVehicle)
			}
		}

		reservations := r.Group("/reservations", authn)
		{
			reservations.POST("", reservationHandler.Create)
			reservations.GET("/my", reservationHandler.MyReservations)
			reservations.GET("/received", reservationHandler.ReceivedReservations)
			reservations.GET("/:id", reservationHandler.Get)
			reservations.PUT("/:id/status", reservationHandler.UpdateStatus)
		}

		payments := r.Group("/payments")
		{
			payments.POST("/webhook", paymentHandler.Webhook)
			payments.GET("/success", paymentHandler.Success)
			payments.GET("/cancel", paymentHandler.Cancel)
			payments.POST("/checkout-session", authn, paymentHandler.CreateCheckoutSession)
			payments.GET("/reservation/:id", authn, paymentHandler.GetForReservation)
		}

		incidents := r.Group("/incidents", authn)
		{
			incidents.POST("", incidentHandler.Report)
			incidents.GET("/my", incidentHandler.ListMine)
		}

		insuranceGroup := r.Group("/insurance")
		{
			insuranceGroup.GET("/options", insuranceHandler.Options)
			insuranceGroup.POST("/select", authn, insuranceHandler.Select)
			insuranceGroup.GET("/reservation/:id", authn, insuranceHandler.GetForReservation)
		}

		r.GET("/reviews/my", authn, reviewHandler.ListMine)

		supportGroup := r.Group("/support")
		{
			supportGroup.POST("/contact", supportHandler.Contact)
			supportGroup.GET("/my", authn, supportHandler.ListMine)
			supportGroup.GET("/messages", authn, server.RequireRoles("admin"), supportHandler.List)
		}
		return nil
	}, server.WithRateLimiter(middleware.NewSlidingWindow(time.Minute, 600)))
	if err != nil {
		log.Fatalf("rental-api exited with error: %v", err)
	}
}
