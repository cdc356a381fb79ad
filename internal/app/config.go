package app

import (
	"time"

	"github.com/northcampus/gradebook-backend/internal/audit"
	"github.com/northcampus/gradebook-backend/internal/platform/envutil"
)

type Config struct {
	Port         string
	JWTSecretKey string
	Environment  string
	Version      string

	// CORSOrigins lists the allowed browser origins; empty keeps the
	// middleware's local development defaults.
	CORSOrigins []string

	// MetricsAddr is the ops listener for Prometheus scrapes; empty
	// disables the listener.
	MetricsAddr string

	Trail audit.Config
}

func LoadConfig() Config {
	return Config{
		Port:         envutil.String("PORT", "8080"),
		JWTSecretKey: envutil.String("JWT_SECRET_KEY", "defaultsecret"),
		Environment:  envutil.String("APP_ENV", "development"),
		Version:      envutil.String("APP_VERSION", ""),
		CORSOrigins:  envutil.StringList("CORS_ALLOW_ORIGINS"),
		MetricsAddr:  envutil.String("METRICS_ADDR", ""),
		Trail: audit.Config{
			RingCapacity: envutil.Int("AUDIT_RING_CAPACITY", 0),
			QueueDepth:   envutil.Int("AUDIT_QUEUE_DEPTH", 0),
			WriteTimeout: envutil.Duration("AUDIT_WRITE_TIMEOUT", 0*time.Second),
		},
	}
}
