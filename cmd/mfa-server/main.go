package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/audit"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/mfa"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/mfa/api"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/notes"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/privacyidea"
	"github.com/thomasdarimont/privacyidea-keycloak-provider/pkg/tokengenerator"
)

type ServerConfig struct {
	Addr string `env:"MFA_SERVER_ADDR" env-default:"localhost:4100"`
}

// PiConfig mirrors the authenticator configuration keys of the privacyIDEA
// server connection.
type PiConfig struct {
	ServerURL        string `env:"PI_SERVER_URL" env-default:""`
	Realm            string `env:"PI_REALM" env-default:""`
	VerifySSL        bool   `env:"PI_VERIFY_SSL" env-default:"true"`
	TriggerChallenge bool   `env:"PI_TRIGGER_CHALLENGE" env-default:"false"`
	SendPassword     bool   `env:"PI_SEND_PASSWORD" env-default:"false"`
	ServiceAccount   string `env:"PI_SERVICE_ACCOUNT" env-default:""`
	ServicePassword  string `env:"PI_SERVICE_PASSWORD" env-default:""`
	ServiceRealm     string `env:"PI_SERVICE_REALM" env-default:""`
	ExcludedGroups   string `env:"PI_EXCLUDED_GROUPS" env-default:""`
	EnrollToken      bool   `env:"PI_ENROLL_TOKEN" env-default:"false"`
	EnrollTokenType  string `env:"PI_ENROLL_TOKEN_TYPE" env-default:""`
	PrefTokenType    string `env:"PI_PREF_TOKEN_TYPE" env-default:"otp"`
	PushIntervals    string `env:"PI_PUSH_INTERVALS" env-default:""`
	DoLog            bool   `env:"PI_DO_LOG" env-default:"false"`
}

// toMap renders the env configuration into the flat key-value form the
// authenticator config parser takes.
func (p PiConfig) toMap() map[string]string {
	return map[string]string{
		mfa.ConfigServer:           p.ServerURL,
		mfa.ConfigRealm:            p.Realm,
		mfa.ConfigVerifySSL:        fmt.Sprintf("%t", p.VerifySSL),
		mfa.ConfigTriggerChallenge: fmt.Sprintf("%t", p.TriggerChallenge),
		mfa.ConfigSendPassword:     fmt.Sprintf("%t", p.SendPassword),
		mfa.ConfigServiceAccount:   p.ServiceAccount,
		mfa.ConfigServicePass:      p.ServicePassword,
		mfa.ConfigServiceRealm:     p.ServiceRealm,
		mfa.ConfigExcludedGroups:   p.ExcludedGroups,
		mfa.ConfigEnrollToken:      fmt.Sprintf("%t", p.EnrollToken),
		mfa.ConfigEnrollTokenType:  p.EnrollTokenType,
		mfa.ConfigPrefTokenType:    p.PrefTokenType,
		mfa.ConfigPushInterval:     p.PushIntervals,
		mfa.ConfigDoLog:            fmt.Sprintf("%t", p.DoLog),
	}
}

type JwtConfig struct {
	Secret   string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
	Issuer   string `env:"JWT_ISSUER" env-default:"mfa-server"`
	Audience string `env:"JWT_AUDIENCE" env-default:"mfa-form"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:""`
	Password string `env:"REDIS_PASSWORD" env-default:""`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type AuditDbConfig struct {
	Enabled  bool   `env:"AUDIT_PG_ENABLED" env-default:"false"`
	Host     string `env:"AUDIT_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"AUDIT_PG_PORT" env-default:"5432"`
	Database string `env:"AUDIT_PG_DATABASE" env-default:"mfa_db"`
	User     string `env:"AUDIT_PG_USER" env-default:"mfa"`
	Password string `env:"AUDIT_PG_PASSWORD" env-default:"pwd"`
}

func (d AuditDbConfig) toDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

type Config struct {
	ServerConfig  ServerConfig
	PiConfig      PiConfig
	JwtConfig     JwtConfig
	RedisConfig   RedisConfig
	AuditDbConfig AuditDbConfig
	AttemptTTL    time.Duration `env:"MFA_ATTEMPT_TTL" env-default:"10m"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file loaded", "reason", err)
	}

	config := Config{}
	cleanenv.ReadEnv(&config)

	flowConfig := mfa.ParseConfig(config.PiConfig.toMap())

	var backend mfa.Backend
	if flowConfig.ServerURL != "" {
		backend = privacyidea.NewClient(flowConfig)
		slog.Info("Using privacyIDEA backend", "server", flowConfig.ServerURL, "realm", flowConfig.Realm)
	} else {
		backend = privacyidea.NewDevBackend()
		slog.Warn("PI_SERVER_URL is not set, using the in-process dev backend")
	}

	var notesRepo notes.Repository
	if config.RedisConfig.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisConfig.Addr,
			Password: config.RedisConfig.Password,
			DB:       config.RedisConfig.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			slog.Error("Failed to connect to redis", "addr", config.RedisConfig.Addr, "err", err)
			os.Exit(-1)
		}
		notesRepo = notes.NewRedisRepository(client, config.AttemptTTL)
		slog.Info("Using redis attempt store", "addr", config.RedisConfig.Addr)
	} else {
		notesRepo = notes.NewMemoryRepository(config.AttemptTTL)
		slog.Info("Using in-memory attempt store", "ttl", config.AttemptTTL)
	}

	var recorder audit.Recorder
	if config.AuditDbConfig.Enabled {
		pool, err := pgxpool.New(context.Background(), config.AuditDbConfig.toDatabaseURL())
		if err != nil {
			slog.Error("Failed creating dbpool", "db", config.AuditDbConfig.Database, "host", config.AuditDbConfig.Host, "err", err)
			os.Exit(-1)
		}
		defer pool.Close()
		recorder = audit.NewPostgresRecorder(pool)
		slog.Info("Using postgres audit recorder", "db", config.AuditDbConfig.Database)
	} else {
		recorder = audit.LogRecorder{}
		slog.Info("Using log audit recorder")
	}

	tokens := tokengenerator.New(config.JwtConfig.Secret, config.JwtConfig.Issuer, config.JwtConfig.Audience)
	handle := api.NewHandle(mfa.NewFlowService(backend), flowConfig, notesRepo, tokens, recorder)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	handle.Routes(r)

	server := &http.Server{
		Addr:              config.ServerConfig.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting mfa server", "addr", config.ServerConfig.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Failed to shut down cleanly", "err", err)
	}
}
