package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sangini/invoicehub/db"
	"github.com/sangini/invoicehub/db/migrations"
	"github.com/sangini/invoicehub/events"
	"github.com/sangini/invoicehub/lib/cache"
	"github.com/sangini/invoicehub/lib/logging"
	"github.com/sangini/invoicehub/lib/oracle"
	"github.com/sangini/invoicehub/lib/service"
	"github.com/sangini/invoicehub/lib/tokens"
	"github.com/sangini/invoicehub/lib/transport"
	"github.com/uptrace/bun/migrate"
)

// @title        InvoiceHub
// @version      1.0.0
// @description  Invoice financing marketplace: Dutch-auction funding, settlement payouts and a secondary token market.

// @BasePath  /

// @securitydefinitions.oauth2.password  OAuth2Password
// @tokenUrl                             /v2/auth
// @schemes                              https http
func main() {

	c := &service.Config{}

	// Load configuration from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configured log file
	logger := logging.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(db.Config{
		DatabaseUri:             c.DatabaseUri,
		DatabaseMaxConns:        c.DatabaseMaxConns,
		DatabaseMaxIdleConns:    c.DatabaseMaxIdleConns,
		DatabaseConnMaxLifetime: c.DatabaseConnMaxLifetime,
	})
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	// Migrate the DB
	startupCtx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(startupCtx)
	if err != nil {
		logger.Fatalf("Error initializing db migrator: %v", err)
	}
	_, err = migrator.Migrate(startupCtx)
	if err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}

	// Settlement oracle, optional. Without it settlement amounts degrade to
	// the locally accrued figure.
	var oracleClient oracle.Client
	if c.OracleUrl != "" {
		oracleClient = oracle.NewHTTPClient(c.OracleUrl, time.Duration(c.OracleTimeout)*time.Second)
		logger.Infof("Using settlement oracle at %s", c.OracleUrl)
	}

	// Ephemeral keyed state lives in redis when configured
	var nonceStore cache.Store
	if c.RedisUri != "" {
		nonceStore, err = cache.NewRedisStore(c.RedisUri)
		if err != nil {
			logger.Fatalf("Error connecting to redis: %v", err)
		}
	} else {
		nonceStore = cache.NewMemoryStore()
	}

	// If no RABBITMQ_URI was provided we will not attempt to create a
	// publisher. No lifecycle events will be emitted in this case.
	var publisher events.Publisher
	if c.RabbitMQUri != "" {
		options := []events.PublisherOption{
			events.WithLogger(logger),
			events.WithInvoiceExchange(c.RabbitMQInvoiceExchange),
			events.WithInvestmentExchange(c.RabbitMQInvestmentExchange),
		}
		if c.RabbitMQPublishNonPersistent {
			options = append(options, events.WithNonPersistentDelivery())
		}
		amqpPublisher, err := events.NewAMQPPublisher(c.RabbitMQUri, options...)
		if err != nil {
			logger.Fatal(err)
		}
		// close the connection gently at the end of the runtime
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	svc := &service.InvoicehubService{
		Config:     c,
		DB:         dbConn,
		Logger:     logger,
		Oracle:     oracleClient,
		Publisher:  publisher,
		NonceStore: nonceStore,
	}

	//init echo server
	e := transport.InitEcho(c, logger)

	logMw := transport.CreateLoggingMiddleware(logger)
	// strict rate limit for the money-moving endpoints
	strictRateLimitMiddleware := transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit)

	secured := e.Group("", tokens.Middleware(c.JWTSecret), logMw)
	securedWithStrictRateLimit := e.Group("", tokens.Middleware(c.JWTSecret), strictRateLimitMiddleware, logMw)

	cacheClient := transport.CreateCacheClient()
	transport.RegisterV2Endpoints(svc, e, secured, securedWithStrictRateLimit, strictRateLimitMiddleware, tokens.AdminTokenMiddleware(c.AdminToken), logMw, cacheClient)

	//Start Prometheus server if necessary
	if svc.Config.EnablePrometheus {
		go transport.StartPrometheusEcho(logger, svc, e)
	}

	backGroundCtx, _ := signal.NotifyContext(context.Background(), os.Interrupt)

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	svc.Logger.Info("InvoiceHub exiting gracefully. Goodbye.")
}
