package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/kelseyhightower/envconfig"

	"github.com/architeacher/svc-health-messenger/internal/ports"
)

// Init loads config from environment variables and validates it.
func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if len(ServiceVersion) != 0 {
		cfg.AppConfig.ServiceVersion = ServiceVersion
	}

	if len(CommitSHA) != 0 {
		cfg.AppConfig.CommitSHA = CommitSHA
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	return cfg, nil
}

// Loader overlays secrets from Vault onto an already parsed configuration.
type Loader struct {
	cfg         *ServiceConfig
	secretsRepo ports.SecretsRepository
}

func NewLoader(cfg *ServiceConfig, secretsRepo ports.SecretsRepository) *Loader {
	return &Loader{
		cfg:         cfg,
		secretsRepo: secretsRepo,
	}
}

// Load authenticates against Vault and applies stored secrets to the config.
func (l *Loader) Load(ctx context.Context) error {
	if !l.cfg.SecretStorage.Enabled {
		return fmt.Errorf("secret storage is not enabled")
	}

	if err := l.authenticateVault(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	data, err := l.loadSecrets(ctx)
	if err != nil {
		return fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	l.applySecretsToConfig(data)

	return nil
}

func (l *Loader) authenticateVault(ctx context.Context) error {
	storage := l.cfg.SecretStorage

	switch strings.ToLower(storage.AuthMethod) {
	case "token":
		if storage.Token == "" {
			return fmt.Errorf("token is required for token auth method")
		}
		l.secretsRepo.SetToken(storage.Token)

		return nil

	case "approle":
		if storage.RoleID == "" || storage.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for approle auth method")
		}

		resp, err := l.secretsRepo.WriteWithContext(ctx, "auth/approle/login", map[string]any{
			"role_id":   storage.RoleID,
			"secret_id": storage.SecretID,
		})
		if err != nil {
			return fmt.Errorf("failed to authenticate via approle: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("no auth info returned from Vault")
		}

		l.secretsRepo.SetToken(resp.Auth.ClientToken)

		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", storage.AuthMethod)
	}
}

func (l *Loader) loadSecrets(ctx context.Context) (map[string]any, error) {
	path := fmt.Sprintf("apps/data/%s", l.cfg.SecretStorage.MountPath)

	ctx, cancel := context.WithTimeout(ctx, l.cfg.SecretStorage.Timeout)
	defer cancel()

	secret, err := l.getSecretsWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}

	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	// For KV v2 the payload is nested under the "data" key.
	result, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid secret format at path %s, missing 'data' key", path)
	}

	return result, nil
}

func (l *Loader) getSecretsWithRetry(ctx context.Context, path string) (*api.Secret, error) {
	var (
		secret *api.Secret
		err    error
	)

	for attempt := 0; attempt <= l.cfg.SecretStorage.MaxRetries; attempt++ {
		secret, err = l.secretsRepo.GetSecrets(ctx, path)
		if err == nil {
			return secret, nil
		}

		if attempt < l.cfg.SecretStorage.MaxRetries {
			if sleepErr := sleepCtx(ctx, time.Duration(attempt+1)*time.Second); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}

	return nil, fmt.Errorf("failed to read from path %s after %d retries: %w", path, l.cfg.SecretStorage.MaxRetries, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// applySecretsToConfig applies flat key-value pairs stored in Vault. Only
// broker credentials are expected there.
func (l *Loader) applySecretsToConfig(data map[string]any) {
	for key, value := range data {
		strValue, ok := value.(string)
		if !ok || strValue == "" {
			continue
		}

		switch key {
		case "BROKER_USERNAME":
			l.cfg.Broker.Username = strValue
		case "BROKER_PASSWORD":
			l.cfg.Broker.Password = strValue
		case "BROKER_HOST":
			l.cfg.Broker.Host = strValue
		}
	}
}
