package workerapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pmorral/lapieza-career-navigator-sub000/internal/config"
	smtpinfra "github.com/pmorral/lapieza-career-navigator-sub000/internal/infra/smtp"
	"github.com/pmorral/lapieza-career-navigator-sub000/internal/jobs/expiry"
	pgrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/postgres"
	redrepo "github.com/pmorral/lapieza-career-navigator-sub000/internal/repo/redis"
	notifysvc "github.com/pmorral/lapieza-career-navigator-sub000/internal/services/notify"
)

// App is the background worker process. It sweeps expired billing state on
// an interval and drains the transactional email queue.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	expiryJob  *expiry.Job
	mailWorker *notifysvc.Worker
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for worker app: %w", err)
	}

	redisClient, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis for worker app: %w", err)
	}

	expiryJob := expiry.New(
		pgrepo.NewSubscriptionRepo(pool),
		pgrepo.NewProfileRepo(pool),
		pgrepo.NewServiceRepo(pool),
		pgrepo.NewPaymentRepo(pool),
		cfg.Worker.PaymentBackstop,
		logger,
	)

	var mailWorker *notifysvc.Worker
	if sender, err := smtpinfra.NewSender(smtpinfra.Config{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromEmail: cfg.SMTP.FromEmail,
		FromName:  cfg.SMTP.FromName,
	}); err != nil {
		logger.Warn("smtp not configured, email worker disabled", zap.Error(err))
	} else {
		mailWorker = notifysvc.NewWorker(redrepo.NewEmailQueueRepo(redisClient), sender, logger)
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		postgres:   pool,
		redis:      redisClient,
		expiryJob:  expiryJob,
		mailWorker: mailWorker,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("worker app started")

	errCh := make(chan error, 2)
	go func() {
		errCh <- a.runExpiryLoop(ctx)
	}()

	if a.mailWorker != nil {
		go func() {
			errCh <- a.mailWorker.Run(ctx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("worker app stopped")
			return nil
		case err := <-errCh:
			if err == nil || errors.Is(err, context.Canceled) {
				continue
			}
			return err
		}
	}
}

func (a *App) runExpiryLoop(ctx context.Context) error {
	if a.expiryJob == nil {
		return nil
	}

	interval := a.cfg.Worker.ExpiryInterval
	if interval <= 0 {
		interval = time.Hour
	}

	if err := a.expiryJob.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.expiryJob.Run(ctx); err != nil {
				return err
			}
		}
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
