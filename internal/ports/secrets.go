package ports

import (
	"context"

	"github.com/hashicorp/vault/api"
)

// SecretsRepository abstracts the Vault client used to overlay broker
// credentials onto the environment configuration.
type SecretsRepository interface {
	GetSecrets(ctx context.Context, path string) (*api.Secret, error)
	SetToken(token string)
	WriteWithContext(ctx context.Context, path string, data map[string]any) (*api.Secret, error)
}
