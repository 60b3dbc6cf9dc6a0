package adapters

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"

	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/ports"
)

// VaultRepository is the concrete secrets backend used by the config loader.
type VaultRepository struct {
	client *api.Client
}

func NewVaultRepository(cfg config.SecretStorageConfig) (*VaultRepository, error) {
	clientConfig := api.DefaultConfig()
	clientConfig.Address = cfg.Address
	clientConfig.Timeout = cfg.Timeout

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	return &VaultRepository{client: client}, nil
}

func (r *VaultRepository) GetSecrets(ctx context.Context, path string) (*api.Secret, error) {
	return r.client.Logical().ReadWithContext(ctx, path)
}

func (r *VaultRepository) SetToken(token string) {
	r.client.SetToken(token)
}

func (r *VaultRepository) WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error) {
	return r.client.Logical().WriteWithContext(ctx, path, data)
}

var _ ports.SecretsRepository = (*VaultRepository)(nil)
