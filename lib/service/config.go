package service

type Config struct {
	DatabaseUri             string  `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns        int     `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int     `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int     `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	SentryDSN               string  `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath             string  `envconfig:"LOG_FILE_PATH"`
	JWTSecret               []byte  `envconfig:"JWT_SECRET" required:"true"`
	AdminToken              string  `envconfig:"ADMIN_TOKEN"`
	JWTRefreshTokenExpiry   int     `envconfig:"JWT_REFRESH_EXPIRY" default:"604800"` // in seconds, default 7 days
	JWTAccessTokenExpiry    int     `envconfig:"JWT_ACCESS_EXPIRY" default:"172800"`  // in seconds, default 2 days
	Host                    string  `envconfig:"HOST" default:"localhost:3000"`
	Port                    int     `envconfig:"PORT" default:"3000"`
	DefaultRateLimit        int     `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit         int     `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit          int     `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus        bool    `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort          int     `envconfig:"PROMETHEUS_PORT" default:"9092"`
	AllowAccountCreation    bool    `envconfig:"ALLOW_ACCOUNT_CREATION" default:"true"`

	// Settlement oracle. When unset or unreachable the settlement amount
	// degrades to the locally accrued figure and the fallback is logged.
	OracleUrl     string `envconfig:"ORACLE_URL"`
	OracleTimeout int    `envconfig:"ORACLE_TIMEOUT" default:"10"` // in seconds

	// Contract-mirrored rates, overridable for test networks only.
	BaseInterestRateBps int64 `envconfig:"BASE_INTEREST_RATE_BPS" default:"1000"` // 10% p.a.
	PenaltyRateBps      int64 `envconfig:"PENALTY_RATE_BPS" default:"2400"`       // 24% p.a.
	GracePeriodDays     int64 `envconfig:"GRACE_PERIOD_DAYS" default:"30"`
	PriceDropRateBps    int64 `envconfig:"PRICE_DROP_RATE_BPS" default:"50"` // per hour

	// Ephemeral keyed state (wallet-auth nonces, strict throttles) lives in
	// redis when configured, in process memory otherwise.
	RedisUri string `envconfig:"REDIS_URI"`

	RabbitMQUri                  string `envconfig:"RABBITMQ_URI"`
	RabbitMQInvoiceExchange      string `envconfig:"RABBITMQ_INVOICE_EXCHANGE" default:"invoicehub_invoice"`
	RabbitMQInvestmentExchange   string `envconfig:"RABBITMQ_INVESTMENT_EXCHANGE" default:"invoicehub_investment"`
	RabbitMQPublishNonPersistent bool   `envconfig:"RABBITMQ_PUBLISH_NON_PERSISTENT" default:"false"`
}
