package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/docmailer/internal/pkg/clock"
	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/shandysiswandi/docmailer/internal/pkg/goroutine"
	"github.com/shandysiswandi/docmailer/internal/pkg/idempotency"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/shandysiswandi/docmailer/internal/pkg/jwt"
	"github.com/shandysiswandi/docmailer/internal/pkg/mail"
	"github.com/shandysiswandi/docmailer/internal/pkg/messaging"
	"github.com/shandysiswandi/docmailer/internal/pkg/pgxcasbin"
	"github.com/shandysiswandi/docmailer/internal/pkg/router"
	"github.com/shandysiswandi/docmailer/internal/pkg/storage"
	"github.com/shandysiswandi/docmailer/internal/pkg/uid"
	"github.com/shandysiswandi/docmailer/internal/pkg/validator"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// configPath honours CONFIG_PATH, then LOCAL=true for a checkout, then the
// container mount.
func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if os.Getenv("LOCAL") == "true" {
		return "./config/config.yaml"
	}
	return "/config/config.yaml"
}

func (a *App) initConfig() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.NewViper(configPath())
	if err != nil {
		return err
	}

	a.config = cfg
	a.onClose("config", func(context.Context) error { return cfg.Close() })
	return nil
}

func (a *App) initInstrument() error {
	ins, err := instrument.New(a.ctx, instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		Log: instrument.LogConfig{
			Level:       a.config.GetString("instrument.log.level"),
			Format:      a.config.GetString("instrument.log.format"),
			MaskFields:  a.config.GetArray("instrument.log.mask_fields"),
			MaxValueLen: a.config.GetInt("instrument.log.max_value_len"),
		},
	})
	if err != nil {
		return err
	}

	a.ins = ins
	a.onClose("instrument", ins.Shutdown)
	return nil
}

func (a *App) initLibraries() error {
	var err error
	if a.clock, err = clock.FromName(a.config.GetString("app.tz")); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if a.validator, err = validator.NewV10Validator(); err != nil {
		return fmt.Errorf("validator: %w", err)
	}
	if a.uid, err = uid.NewSnowflake(a.config.GetInt64("app.node_id")); err != nil {
		return fmt.Errorf("snowflake: %w", err)
	}
	if a.oid, err = uid.NewObjectIDGenerator(); err != nil {
		return fmt.Errorf("object id: %w", err)
	}

	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	return nil
}

func (a *App) initJWT() error {
	signer, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Leeway:    a.config.GetSecond("jwt.leeway_seconds"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	if err != nil {
		return err
	}

	a.jwt = signer
	return nil
}

// pingWithRetry keeps pinging a backing service that may still be starting next to us.
func (a *App) pingWithRetry(name string, ping func(ctx context.Context) error) error {
	b := retry.NewFibonacci(250 * time.Millisecond)
	b = retry.WithMaxRetries(a.config.GetUint64("app.startup_retries"), b)
	b = retry.WithCappedDuration(5*time.Second, b)

	return retry.Do(a.ctx, b, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := ping(pingCtx); err != nil {
			slog.Warn("backing service not ready", "name", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (a *App) initDatabase() error {
	pc, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	pc.MaxConns = a.config.GetInt32("database.pool.max_conns")
	pc.MinConns = a.config.GetInt32("database.pool.min_conns")
	pc.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	pc.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	pc.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, pc)
	if err != nil {
		return err
	}
	a.onClose("database", func(context.Context) error {
		pool.Close()
		return nil
	})

	a.dbConn = pool
	return a.pingWithRetry("database", pool.Ping)
}

func (a *App) initCache() error {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	a.onClose("redis", func(context.Context) error { return rdb.Close() })

	a.cacheConn = rdb
	a.idemp = idempotency.New(rdb, idempotency.WithPrefix(a.config.GetString("redis.key_prefix")+"idempotency:"))
	return a.pingWithRetry("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
}

func (a *App) initMail() error {
	client, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.config.GetString("mail.host"),
		Port:     a.config.GetInt("mail.port"),
		Username: a.config.GetString("mail.username"),
		Password: a.config.GetString("mail.password"),
		From:     a.config.GetString("mail.from"),
		StartTLS: a.config.GetBool("mail.starttls"),

		InsecureSkipVerify: a.config.GetBool("mail.insecure_skip_verify"),
	})
	if err != nil {
		return err
	}

	a.mail = client
	a.onClose("mail", func(context.Context) error { return client.Close() })
	return nil
}

// googleOptions reads the credentials and endpoint of a Google Cloud client
// configured under prefix. Inline JSON wins over a credentials file.
func (a *App) googleOptions(prefix string, scopes ...string) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if a.config.GetBool(prefix + ".without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}

	credsJSON := a.config.GetBinary(prefix + ".credentials_json")
	if file := strings.TrimSpace(a.config.GetString(prefix + ".credentials_file")); len(credsJSON) == 0 && file != "" {
		// #nosec G304 -- the path comes from operator configuration.
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%s credentials: %w", prefix, err)
		}
		credsJSON = data
	}
	if len(credsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, scopes...)
		if err != nil {
			return nil, fmt.Errorf("%s credentials: %w", prefix, err)
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	if v := strings.TrimSpace(a.config.GetString(prefix + ".endpoint")); v != "" {
		opts = append(opts, option.WithEndpoint(v))
	}
	if v := strings.TrimSpace(a.config.GetString(prefix + ".user_agent")); v != "" {
		opts = append(opts, option.WithUserAgent(v))
	}
	return opts, nil
}

func (a *App) initStorage() error {
	driver := strings.TrimSpace(a.config.GetString("storage.driver"))

	var gcsClient *gcs.Client
	if driver == storage.DriverGCS {
		opts, err := a.googleOptions("storage.gcs", gcs.ScopeFullControl)
		if err != nil {
			return err
		}
		if len(opts) > 0 {
			if gcsClient, err = gcs.NewClient(a.ctx, opts...); err != nil {
				return fmt.Errorf("gcs client: %w", err)
			}
		}
	}

	stg, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		Bucket: strings.TrimSpace(a.config.GetString("storage.bucket")),
		S3: storage.S3Options{
			Region:       strings.TrimSpace(a.config.GetString("storage.s3.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.s3.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.s3.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.s3.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.s3.session_token")),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{
			Client:         gcsClient,
			GoogleAccessID: strings.TrimSpace(a.config.GetString("storage.gcs.signer_access_id")),
			PrivateKey:     a.config.GetBinary("storage.gcs.signer_private_key"),
		},
		MinIO: storage.MinIOOptions{
			Region:       strings.TrimSpace(a.config.GetString("storage.minio.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.minio.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.minio.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.minio.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.minio.session_token")),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
			CreateBucket: a.config.GetBool("storage.minio.create_bucket"),
		},
	})
	if err != nil {
		return err
	}

	a.storage = stg
	a.onClose("storage", func(context.Context) error { return stg.Close() })
	return nil
}

func (a *App) initMessaging() error {
	driver := a.config.GetString("messaging.driver")

	var pubsubOpts []option.ClientOption
	if strings.EqualFold(strings.TrimSpace(driver), messaging.DriverGooglePubSub) {
		opts, err := a.googleOptions("messaging.pubsub", "https://www.googleapis.com/auth/pubsub")
		if err != nil {
			return err
		}
		pubsubOpts = opts
	}

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr:         a.config.GetString("messaging.nsq.producer_addr"),
			ConsumerNSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
			ConsumerLookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
			ProducerConfig: func() *nsq.Config {
				cfg := nsq.NewConfig()
				cfg.MaxInFlight = a.config.GetInt("messaging.nsq.producer_config.max_in_flight")
				cfg.DialTimeout = a.config.GetSecond("messaging.nsq.producer_config.dial_timeout_seconds")
				cfg.ReadTimeout = a.config.GetSecond("messaging.nsq.producer_config.read_timeout_seconds")
				cfg.WriteTimeout = a.config.GetSecond("messaging.nsq.producer_config.write_timeout_seconds")
				return cfg
			}(),
			ConsumerConfig: func() *nsq.Config {
				cfg := nsq.NewConfig()
				cfg.MaxInFlight = a.config.GetInt("messaging.nsq.consumer_config.max_in_flight")
				cfg.MaxAttempts = a.config.GetUint16("messaging.nsq.consumer_config.max_attempts")
				cfg.LookupdPollInterval = a.config.GetSecond("messaging.nsq.consumer_config.lookupd_poll_interval_seconds")
				cfg.DialTimeout = a.config.GetSecond("messaging.nsq.consumer_config.dial_timeout_seconds")
				cfg.ReadTimeout = a.config.GetSecond("messaging.nsq.consumer_config.read_timeout_seconds")
				cfg.WriteTimeout = a.config.GetSecond("messaging.nsq.consumer_config.write_timeout_seconds")
				// Tracking a mailing can outlive the default message timeout.
				cfg.MsgTimeout = a.config.GetMinute("messaging.nsq.consumer_config.msg_timeout_minutes")
				cfg.DefaultRequeueDelay = a.config.GetSecond("messaging.nsq.consumer_config.default_requeue_delay_seconds")
				cfg.MaxRequeueDelay = a.config.GetSecond("messaging.nsq.consumer_config.max_requeue_delay_seconds")
				return cfg
			}(),
			RequeueDelay: a.config.GetSecond("messaging.nsq.requeue_delay_seconds"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.PingInterval(a.config.GetSecond("messaging.nats.ping_interval_seconds")),
				nats.MaxPingsOutstanding(a.config.GetInt("messaging.nats.max_pings_outstanding")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
			Dialer: &kafka.Dialer{
				ClientID:  a.config.GetString("messaging.kafka.client_id"),
				Timeout:   a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
				DualStack: true,
			},
			MaxBytes: a.config.GetInt("messaging.kafka.max_bytes"),
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: pubsubOpts,
		},
		RabbitMQ: messaging.RabbitMQConfig{
			URL:      a.config.GetString("messaging.rabbitmq.url"),
			Exchange: a.config.GetString("messaging.rabbitmq.exchange"),
			Prefetch: a.config.GetInt("messaging.rabbitmq.prefetch"),
			Durable:  a.config.GetBool("messaging.rabbitmq.durable"),
		},
	})
	if err != nil {
		return fmt.Errorf("driver %q: %w", driver, err)
	}

	a.messaging = client
	a.onClose("messaging", func(context.Context) error { return client.Close() })
	return nil
}

const casbinModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

func (a *App) initCasbin() error {
	m, err := model.NewModelFromString(casbinModel)
	if err != nil {
		return err
	}

	adapter, err := pgxcasbin.NewAdapter(a.ctx, a.dbConn, pgxcasbin.WithTableName("mailing_casbin_rules"))
	if err != nil {
		return err
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return err
	}

	seeded, err := seedCasbin(e,
		splitRules(a.config.GetArray("casbin.policies"), 3),
		splitRules(a.config.GetArray("casbin.roles"), 2),
	)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	watcher, err := pgxcasbin.NewWatcherWithPool(a.ctx, a.dbConn, pgxcasbin.WatcherOptions{
		Channel: "mailing_casbin_policy",
	})
	if err != nil {
		return err
	}
	a.onClose("casbin watcher", func(context.Context) error {
		watcher.Close()
		return nil
	})

	if err := e.SetWatcher(watcher); err != nil {
		return err
	}
	if err := watcher.SetUpdateCallback(func(string) {
		if err := e.LoadPolicy(); err != nil {
			slog.Error("failed to reload casbin policy", "error", err)
			return
		}
		slog.Info("casbin policy reloaded")
	}); err != nil {
		return err
	}
	if seeded {
		if err := watcher.Update(); err != nil {
			slog.Warn("failed to announce seeded casbin policy", "error", err)
		}
	}

	a.casbin = e
	return nil
}

// seedCasbin writes the configured rules when the store holds none yet, so
// rules edited in the database are never overwritten from config.
func seedCasbin(e *casbin.Enforcer, policies, roles [][]string) (bool, error) {
	current, err := e.GetPolicy()
	if err != nil {
		return false, err
	}
	grouping, err := e.GetGroupingPolicy()
	if err != nil {
		return false, err
	}
	if len(current) > 0 || len(grouping) > 0 {
		slog.Info("casbin policy loaded from database", "policies", len(current), "roles", len(grouping))
		return false, nil
	}

	if len(policies) > 0 {
		if _, err := e.AddPolicies(policies); err != nil {
			return false, fmt.Errorf("policies: %w", err)
		}
	}
	if len(roles) > 0 {
		if _, err := e.AddGroupingPolicies(roles); err != nil {
			return false, fmt.Errorf("roles: %w", err)
		}
	}

	slog.Info("casbin policy seeded from config", "policies", len(policies), "roles", len(roles))
	return len(policies)+len(roles) > 0, nil
}

// splitRules parses "a, b, c" config lines, dropping those without exactly n fields.
func splitRules(lines []string, n int) [][]string {
	rules := make([][]string, 0, len(lines))
	for _, line := range lines {
		rule := lo.Map(strings.Split(line, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		})
		if len(rule) != n || lo.Contains(rule, "") {
			slog.Warn("skipping malformed casbin rule", "rule", line)
			continue
		}
		rules = append(rules, rule)
	}
	return rules
}

func (a *App) initDocmail() error {
	cfg := LoadDocmailConfig(a.config)
	if cfg.Username == "" || cfg.Password == "" {
		slog.Warn("docmail credentials are empty, every docmail call will be rejected")
	}

	a.docmailConfig = cfg
	a.docmailTransport = docmail.NewSOAP(cfg, &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(a.ins.TracerProvider()),
			otelhttp.WithMeterProvider(a.ins.MeterProvider()),
		),
		Timeout: cfg.Timeout,
	})
	return nil
}

func (a *App) initHTTPServer() error {
	a.router = router.New(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", router.HeaderCorrelationID},
		ExposedHeaders: []string{router.HeaderCorrelationID, "Retry-After"},
		MaxAge:         int(a.config.GetSecond("app.server.cors_max_age_seconds").Seconds()),
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}
	return nil
}
