package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/mediconnect/mediconnect-platform/internal/compliance"
	appconfig "github.com/mediconnect/mediconnect-platform/internal/config"
	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildSessionBackends picks Redis-backed session storage and revocation
// fan-out when a client is available, and in-process ones otherwise.
func BuildSessionBackends(redisClient *redis.Client) (session.Store, session.Notifier) {
	if redisClient == nil {
		return session.NewMemoryStore(), session.NewMemoryNotifier()
	}
	return session.NewRedisStore(redisClient), session.NewRedisNotifier(redisClient, session.DefaultChannel)
}

// BuildDocumentStore opens the configured document store. The returned
// close func releases its connections.
func BuildDocumentStore(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (docstore.Store, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.DocumentStore {
	case appconfig.StoreMemory, "":
		logger.Info("document store: memory")
		return docstore.NewMemoryStore(), func() {}, nil
	case appconfig.StorePostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, nil, fmt.Errorf("bootstrap: DATABASE_URL is required for the postgres document store")
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("document store: postgres")
		return docstore.NewPostgresStore(pool), pool.Close, nil
	case appconfig.StoreDynamoDB:
		if awsCfg == nil {
			return nil, nil, fmt.Errorf("bootstrap: AWS config is required for the dynamodb document store")
		}
		logger.Info("document store: dynamodb", "table", cfg.DocumentsTable)
		client := dynamodb.NewFromConfig(*awsCfg)
		return docstore.NewDynamoStore(client, cfg.DocumentsTable, logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown document store %q", cfg.DocumentStore)
	}
}

// BuildAuditService opens the audit database. Without a URL the returned
// service is a no-op.
func BuildAuditService(cfg *appconfig.Config, logger *logging.Logger) (*compliance.AuditService, *sql.DB, error) {
	url := strings.TrimSpace(cfg.AuditDatabaseURL)
	if url == "" {
		url = strings.TrimSpace(cfg.DatabaseURL)
	}
	if url == "" {
		return compliance.NewAuditService(nil), nil, nil
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: open audit db: %w", err)
	}
	if logger != nil {
		logger.Info("audit trail enabled")
	}
	return compliance.NewAuditService(db), db, nil
}
