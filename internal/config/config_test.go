package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
interview:
  poll_interval: 45s
limits:
  interview_allowance: 8
  submit_max_per_minute: 3
smtp:
  from_email: hello@example.com
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Interview.PollInterval != 45*time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.Interview.PollInterval)
	}
	if cfg.Limits.InterviewAllowance != 8 {
		t.Fatalf("unexpected interview allowance: %d", cfg.Limits.InterviewAllowance)
	}
	if cfg.Limits.SubmitMaxPerMinute != 3 {
		t.Fatalf("unexpected submit rate: %d", cfg.Limits.SubmitMaxPerMinute)
	}
	if cfg.SMTP.FromEmail != "hello@example.com" {
		t.Fatalf("unexpected from email: %s", cfg.SMTP.FromEmail)
	}

	// Untouched keys keep their defaults.
	if cfg.Interview.SignedURLTTL != 7*24*time.Hour {
		t.Fatalf("unexpected signed url ttl: %v", cfg.Interview.SignedURLTTL)
	}
	if cfg.Worker.PaymentBackstop != 30*time.Minute {
		t.Fatalf("unexpected payment backstop: %v", cfg.Worker.PaymentBackstop)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("INTERVIEW_POLL_INTERVAL", "10s")
	t.Setenv("INTERVIEW_ALLOWANCE", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Stripe.WebhookSecret != "whsec_test" {
		t.Fatalf("webhook secret env override not applied")
	}
	if cfg.Interview.PollInterval != 10*time.Second {
		t.Fatalf("poll interval env override not applied: %v", cfg.Interview.PollInterval)
	}
	if cfg.Limits.InterviewAllowance != 7 {
		t.Fatalf("allowance env override not applied: %d", cfg.Limits.InterviewAllowance)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	clearConfigEnv(t)

	t.Setenv("INTERVIEW_POLL_INTERVAL", "not-a-duration")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for invalid duration override")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "HTTP_ADDR", "PUBLIC_BASE_URL", "LOG_LEVEL", "POSTGRES_DSN",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_USE_SSL",
		"JWT_SECRET", "JWT_ACCESS_TTL", "REFRESH_TTL",
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "OPS_EMAIL",
		"INTERVIEW_API_URL", "INTERVIEW_API_KEY", "INTERVIEW_POLL_INTERVAL", "INTERVIEW_SIGNED_URL_TTL",
		"AI_API_URL", "AI_CV_KEY", "AI_LINKEDIN_KEY",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM_EMAIL",
		"WORKER_EXPIRY_INTERVAL", "WORKER_PAYMENT_BACKSTOP", "INTERVIEW_ALLOWANCE",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}
