package runtime

import (
	"github.com/architeacher/svc-health-messenger/internal/pool"
	"github.com/architeacher/svc-health-messenger/internal/ports"
)

type dependencyOptions struct {
	factoryBuilder pool.FactoryBuilder
	clock          ports.Clock
	secretsRepo    ports.SecretsRepository
}

// DependencyOption overrides a piece of the default wiring.
type DependencyOption func(*dependencyOptions)

// WithFactoryBuilder substitutes the broker transport. Used by tests and by
// embedders that bring their own link factory.
func WithFactoryBuilder(build pool.FactoryBuilder) DependencyOption {
	return func(o *dependencyOptions) {
		o.factoryBuilder = build
	}
}

// WithClock substitutes the wall clock.
func WithClock(clk ports.Clock) DependencyOption {
	return func(o *dependencyOptions) {
		o.clock = clk
	}
}

// WithSecretsRepository substitutes the Vault client behind the config loader.
func WithSecretsRepository(repo ports.SecretsRepository) DependencyOption {
	return func(o *dependencyOptions) {
		o.secretsRepo = repo
	}
}
