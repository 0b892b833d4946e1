package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/config"
	s3infra "github.com/pmorral/lapieza-career-navigator-sub000/internal/infra/s3"
	stripeinfra "github.com/pmorral/lapieza-career-navigator-sub000/internal/infra/stripe"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
	redrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/redis"
	authsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/auth"
	billingsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/billing"
	couponsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/coupons"
	interviewsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/interviews"
	notifysvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/notify"
	optsvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/optimizer"
	profilesvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/profiles"
	ratesvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	tracker    *interviewsvc.Tracker
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres init: %w", err)
	}

	redisClient, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis init: %w", err)
	}

	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	emailQueueRepo := redrepo.NewEmailQueueRepo(redisClient)

	userRepo := pgrepo.NewUserRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	billingRepo := pgrepo.NewBillingRepo(pool)
	paymentRepo := pgrepo.NewPaymentRepo(pool)
	couponRepo := pgrepo.NewCouponRepo(pool)
	interviewRepo := pgrepo.NewInterviewRepo(pool)
	optimizationRepo := pgrepo.NewOptimizationRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, userRepo, profileRepo, cfg.Auth.RefreshTTL)

	notifier := notifysvc.NewService(emailQueueRepo, profileRepo, cfg.Stripe.OpsEmail, log)
	couponService := couponsvc.NewService(couponRepo)

	var gateway billingsvc.Gateway
	if c, err := stripeinfra.NewClient(stripeinfra.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	}); err != nil {
		log.Warn("stripe init failed, billing runs unconfigured", zap.Error(err))
	} else {
		gateway = c
	}

	billingService := billingsvc.NewService(billingsvc.Dependencies{
		Gateway:       gateway,
		Reconcile:     billingRepo,
		Payments:      paymentRepo,
		Profiles:      profileRepo,
		Coupons:       couponService,
		Notifier:      notifier,
		PublicBaseURL: cfg.HTTP.PublicBaseURL,
		Logger:        log,
	})

	interviewClient := interviewsvc.NewAPIClient(cfg.Interview.BaseURL, cfg.Interview.APIKey, cfg.Interview.Timeout)
	cvStorage := interviewsvc.NewCVStorage(s3Client, cfg.S3.Bucket)
	interviewService := interviewsvc.NewService(interviewsvc.Dependencies{
		Store:        interviewRepo,
		Profiles:     profileRepo,
		Storage:      cvStorage,
		Provider:     interviewClient,
		Allowance:    cfg.Limits.InterviewAllowance,
		SignedURLTTL: cfg.Interview.SignedURLTTL,
		Logger:       log,
	})
	tracker := interviewsvc.NewTracker(interviewsvc.TrackerDependencies{
		Store:    interviewRepo,
		Client:   interviewClient,
		Notifier: notifier,
		Interval: cfg.Interview.PollInterval,
		Logger:   log,
	})

	optimizerService := optsvc.NewService(optsvc.Dependencies{
		CVClient:       optsvc.NewAIClient(cfg.AI.BaseURL, cfg.AI.CVKey, cfg.AI.Timeout),
		LinkedInClient: optsvc.NewAIClient(cfg.AI.BaseURL, cfg.AI.LinkedInKey, cfg.AI.Timeout),
		Store:          optimizationRepo,
		Logger:         log,
	})

	profileService := profilesvc.NewService(
		profileRepo,
		pgrepo.NewServiceRepo(pool),
		pgrepo.NewSubscriptionRepo(pool),
	)

	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.SubmitMaxPerMinute, cfg.Limits.SubmitMaxPer10Sec)

	RegisterRoutes(r, Dependencies{
		AuthService:      authService,
		BillingService:   billingService,
		CouponService:    couponService,
		InterviewService: interviewService,
		InterviewTracker: tracker,
		OptimizerService: optimizerService,
		ProfileService:   profileService,
		RateLimiter:      rateLimiter,
		Logger:           log,
		Config:           cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		tracker:    tracker,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Tracker exposes the status poller so the caller can run it alongside the
// HTTP server. SSE subscribers only see updates while it is running.
func (a *App) Tracker() *interviewsvc.Tracker {
	return a.tracker
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
