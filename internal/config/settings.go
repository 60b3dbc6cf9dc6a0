package config

import (
	"fmt"
	"time"

	"github.com/architeacher/svc-health-messenger/internal/domain"
)

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
)

const (
	maxTimeToLive     = 600 * time.Second
	maxTrimPerRecycle = 256
)

type (
	ServiceConfig struct {
		AppConfig      AppConfig            `json:"app_config"`
		Logging        LoggingConfig        `json:"logging"`
		SecretStorage  SecretStorageConfig  `json:"secret_storage"`
		Broker         BrokerConfig         `json:"broker"`
		Pool           PoolConfig           `json:"pool"`
		Retry          RetryConfig          `json:"retry"`
		Messaging      MessagingConfig      `json:"messaging"`
		CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker"`
	}

	AppConfig struct {
		ServiceName    string `envconfig:"APP_SERVICE_NAME" default:"svc-health-messenger" json:"service_name"`
		ServiceVersion string `envconfig:"APP_SERVICE_VERSION" default:"0.0.0" json:"service_version"`
		CommitSHA      string `envconfig:"APP_COMMIT_SHA" default:"unknown" json:"commit_sha"`
		Env            string `envconfig:"APP_ENVIRONMENT" default:"unknown" json:"env"`
	}

	LoggingConfig struct {
		Level  string `envconfig:"LOGGING_LEVEL" default:"info" json:"level"`
		Format string `envconfig:"LOGGING_FORMAT" default:"json" json:"format"`
	}

	SecretStorageConfig struct {
		Enabled    bool          `envconfig:"VAULT_ENABLED" default:"false" json:"enabled"`
		Address    string        `envconfig:"VAULT_ADDRESS" default:"http://vault:8200" json:"address"`
		Token      string        `envconfig:"VAULT_TOKEN" default:"" json:"token,omitempty"`
		RoleID     string        `envconfig:"VAULT_ROLE_ID" default:"" json:"role_id,omitempty"`
		SecretID   string        `envconfig:"VAULT_SECRET_ID" default:"" json:"secret_id,omitempty"`
		AuthMethod string        `envconfig:"VAULT_AUTH_METHOD" default:"token" json:"auth_method"`
		MountPath  string        `envconfig:"VAULT_MOUNT_PATH" default:"svc-health-messenger" json:"mount_path"`
		Timeout    time.Duration `envconfig:"VAULT_TIMEOUT" default:"30s" json:"timeout"`
		MaxRetries int           `envconfig:"VAULT_MAX_RETRIES" default:"3" json:"max_retries"`
	}

	BrokerConfig struct {
		Scheme         string        `envconfig:"BROKER_SCHEME" default:"amqp" json:"scheme"`
		Host           string        `envconfig:"BROKER_HOST" default:"" json:"host"`
		Port           int           `envconfig:"BROKER_PORT" default:"5672" json:"port"`
		Username       string        `envconfig:"BROKER_USERNAME" default:"guest" json:"username"`
		Password       string        `envconfig:"BROKER_PASSWORD" default:"" json:"password,omitempty"`
		VirtualHost    string        `envconfig:"BROKER_VIRTUAL_HOST" default:"/" json:"virtual_host"`
		ConnectTimeout time.Duration `envconfig:"BROKER_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		Heartbeat      time.Duration `envconfig:"BROKER_HEARTBEAT" default:"10s" json:"heartbeat"`
	}

	PoolConfig struct {
		TimeToLive             time.Duration `envconfig:"POOL_TIME_TO_LIVE" default:"120s" json:"time_to_live"`
		MaxTrimCountPerRecycle int           `envconfig:"POOL_MAX_TRIM_COUNT_PER_RECYCLE" default:"32" json:"max_trim_count_per_recycle"`
		MaxFactories           int           `envconfig:"POOL_MAX_FACTORIES" default:"4" json:"max_factories"`
		MaxSenders             int           `envconfig:"POOL_MAX_SENDERS" default:"64" json:"max_senders"`
		MaxReceivers           int           `envconfig:"POOL_MAX_RECEIVERS" default:"64" json:"max_receivers"`
		LinkCredits            int           `envconfig:"POOL_LINK_CREDITS" default:"25" json:"link_credits"`
	}

	RetryConfig struct {
		Backoff          BackoffConfig `json:"backoff"`
		MaxRetryCount    int           `envconfig:"RETRY_MAX_RETRY_COUNT" default:"5" json:"max_retry_count"`
		OperationTimeout time.Duration `envconfig:"RETRY_OPERATION_TIMEOUT" default:"60s" json:"operation_timeout"`
	}

	BackoffConfig struct {
		// MinBackoff is the floor added to every computed delay.
		MinBackoff time.Duration `envconfig:"RETRY_MIN_BACKOFF" default:"0s" json:"min_backoff"`
		// MaxBackoff is the upper bound of any single delay.
		MaxBackoff time.Duration `envconfig:"RETRY_MAX_BACKOFF" default:"30s" json:"max_backoff"`
		// DeltaBackoff is the jittered base interval of the exponential curve.
		DeltaBackoff time.Duration `envconfig:"RETRY_DELTA_BACKOFF" default:"3s" json:"delta_backoff"`
	}

	MessagingConfig struct {
		OwnHerID                     int  `envconfig:"MESSAGING_OWN_HER_ID" default:"0" json:"own_her_id"`
		IgnoreCertificateErrorOnSend bool `envconfig:"MESSAGING_IGNORE_CERTIFICATE_ERROR_ON_SEND" default:"false" json:"ignore_certificate_error_on_send"`

		AsynchronousTTL     time.Duration `envconfig:"MESSAGING_ASYNCHRONOUS_TTL" default:"24h" json:"asynchronous_ttl"`
		SynchronousTTL      time.Duration `envconfig:"MESSAGING_SYNCHRONOUS_TTL" default:"15s" json:"synchronous_ttl"`
		ErrorTTL            time.Duration `envconfig:"MESSAGING_ERROR_TTL" default:"24h" json:"error_ttl"`
		AsynchronousWorkers int           `envconfig:"MESSAGING_ASYNCHRONOUS_WORKERS" default:"5" json:"asynchronous_workers"`
		SynchronousWorkers  int           `envconfig:"MESSAGING_SYNCHRONOUS_WORKERS" default:"5" json:"synchronous_workers"`
		ErrorWorkers        int           `envconfig:"MESSAGING_ERROR_WORKERS" default:"1" json:"error_workers"`
	}

	CircuitBreakerConfig struct {
		Enabled     bool          `envconfig:"CIRCUIT_BREAKER_ENABLED" default:"true" json:"enabled"`
		MaxRequests uint32        `envconfig:"CIRCUIT_BREAKER_MAX_REQUESTS" default:"3" json:"max_requests"`
		Interval    time.Duration `envconfig:"CIRCUIT_BREAKER_INTERVAL" default:"10s" json:"interval"`
		Timeout     time.Duration `envconfig:"CIRCUIT_BREAKER_TIMEOUT" default:"60s" json:"timeout"`
	}
)

// TimeToLiveFor returns the message expiry policy for a queue type. The reply
// queue shares the synchronous budget.
func (c MessagingConfig) TimeToLiveFor(queueType string) time.Duration {
	switch queueType {
	case "synchronous", "synchronousreply":
		return c.SynchronousTTL
	case "error":
		return c.ErrorTTL
	default:
		return c.AsynchronousTTL
	}
}

// WorkersFor returns how many concurrent consumers serve a queue type.
func (c MessagingConfig) WorkersFor(queueType string) int {
	switch queueType {
	case "synchronous", "synchronousreply":
		return c.SynchronousWorkers
	case "error":
		return c.ErrorWorkers
	default:
		return c.AsynchronousWorkers
	}
}

// Validate fails fast on settings the pools and the retry framework cannot
// operate with.
func (c *ServiceConfig) Validate() error {
	if c.Broker.Host == "" {
		return fmt.Errorf("%w: broker host is required", domain.ErrMissingConnectionString)
	}

	if c.Pool.TimeToLive <= 0 || c.Pool.TimeToLive > maxTimeToLive {
		return fmt.Errorf("%w: pool time to live must be within (0s, %s], got %s",
			domain.ErrInvalidTimeToLive, maxTimeToLive, c.Pool.TimeToLive)
	}

	if c.Pool.MaxTrimCountPerRecycle <= 0 || c.Pool.MaxTrimCountPerRecycle > maxTrimPerRecycle {
		return fmt.Errorf("pool max trim count must be within (0, %d], got %d", maxTrimPerRecycle, c.Pool.MaxTrimCountPerRecycle)
	}

	if c.Pool.MaxFactories <= 0 {
		return fmt.Errorf("pool max factories must be positive, got %d", c.Pool.MaxFactories)
	}

	if c.Pool.LinkCredits <= 0 {
		return fmt.Errorf("pool link credits must be positive, got %d", c.Pool.LinkCredits)
	}

	if c.Retry.MaxRetryCount < 0 {
		return fmt.Errorf("retry count must not be negative, got %d", c.Retry.MaxRetryCount)
	}

	if c.Retry.Backoff.MaxBackoff < c.Retry.Backoff.MinBackoff {
		return fmt.Errorf("max backoff %s is below min backoff %s", c.Retry.Backoff.MaxBackoff, c.Retry.Backoff.MinBackoff)
	}

	return nil
}
