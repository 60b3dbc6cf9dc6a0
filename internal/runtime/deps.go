package runtime

import (
	"context"
	"crypto/x509"
	"fmt"

	"github.com/architeacher/svc-health-messenger/internal/adapters"
	"github.com/architeacher/svc-health-messenger/internal/config"
	"github.com/architeacher/svc-health-messenger/internal/infrastructure"
	"github.com/architeacher/svc-health-messenger/internal/pool"
	"github.com/architeacher/svc-health-messenger/internal/ports"
	"github.com/architeacher/svc-health-messenger/internal/retry"
	"github.com/architeacher/svc-health-messenger/internal/service"
	"github.com/architeacher/svc-health-messenger/internal/shared/clock"
	pkgamqp "github.com/architeacher/svc-health-messenger/pkg/amqp"
)

type (
	// Collaborators are the external systems the messenger depends on but does
	// not implement: the address registry, the CPA/CPP registry, certificate
	// validation and payload protection.
	Collaborators struct {
		Addresses              ports.AddressResolver
		Profiles               ports.ProfileResolver
		Certificates           ports.CertificateValidator
		Protector              ports.PayloadProtector
		SigningCertificate     *x509.Certificate
		DecryptionCertificates []*x509.Certificate
	}

	// Dependencies is the fully wired object graph.
	Dependencies struct {
		Config       *config.ServiceConfig
		Logger       infrastructure.Logger
		Clock        ports.Clock
		Factories    *pool.FactoryPool
		Senders      *pool.SenderPool
		Receivers    *pool.ReceiverPool
		Orchestrator *service.SendOrchestrator
		Listener     *service.MessageListener
	}
)

// InitializeDependencies loads configuration, overlays Vault secrets when
// enabled, and wires pools, retry and orchestration on top of the broker
// transport.
func InitializeDependencies(ctx context.Context, collab Collaborators, opts ...DependencyOption) (*Dependencies, error) {
	if collab.Addresses == nil || collab.Profiles == nil || collab.Certificates == nil || collab.Protector == nil {
		return nil, fmt.Errorf("all collaborators must be provided")
	}

	options := dependencyOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	cfg, err := config.Init()
	if err != nil {
		return nil, err
	}

	if cfg.SecretStorage.Enabled {
		secretsRepo := options.secretsRepo
		if secretsRepo == nil {
			secretsRepo, err = adapters.NewVaultRepository(cfg.SecretStorage)
			if err != nil {
				return nil, err
			}
		}

		if err := config.NewLoader(cfg, secretsRepo).Load(ctx); err != nil {
			return nil, err
		}
	}

	logger := infrastructure.New(cfg.Logging)

	clk := options.clock
	if clk == nil {
		clk = clock.New()
	}

	build := options.factoryBuilder
	if build == nil {
		build = defaultFactoryBuilder(cfg.Broker, logger)
	}

	factories := pool.NewFactoryPool(cfg.Pool, build, clk, logger.Logger)
	senders := pool.NewSenderPool(cfg.Pool, factories, clk, logger.Logger)
	receivers := pool.NewReceiverPool(cfg.Pool, factories, clk, logger.Logger)

	retrier := retry.New(cfg.Retry, clk, logger.Logger)

	orchestrator := service.NewSendOrchestrator(service.SendOrchestratorDeps{
		Messaging:          cfg.Messaging,
		CircuitBreaker:     cfg.CircuitBreaker,
		Addresses:          collab.Addresses,
		Profiles:           collab.Profiles,
		Certificates:       collab.Certificates,
		Protector:          collab.Protector,
		SigningCertificate: collab.SigningCertificate,
		Senders:            senders,
		Retrier:            retrier,
		Clock:              clk,
		Logger:             logger.Logger,
	})

	listener := service.NewMessageListener(service.MessageListenerDeps{
		Messaging:              cfg.Messaging,
		Addresses:              collab.Addresses,
		Protector:              collab.Protector,
		DecryptionCertificates: collab.DecryptionCertificates,
		Receivers:              receivers,
		Orchestrator:           orchestrator,
		Clock:                  clk,
		Logger:                 logger.Logger,
	})

	logger.Info().
		Str("service", cfg.AppConfig.ServiceName).
		Str("version", cfg.AppConfig.ServiceVersion).
		Msg("dependencies initialized")

	return &Dependencies{
		Config:       cfg,
		Logger:       logger,
		Clock:        clk,
		Factories:    factories,
		Senders:      senders,
		Receivers:    receivers,
		Orchestrator: orchestrator,
		Listener:     listener,
	}, nil
}

// Shutdown drains the pools. Links close before their factories so shutdown
// never races link teardown against connection teardown.
func (d *Dependencies) Shutdown() {
	d.Senders.Shutdown()
	d.Receivers.Shutdown()
	d.Factories.Shutdown()

	d.Logger.Info().Msg("messaging dependencies shut down")
}

func defaultFactoryBuilder(cfg config.BrokerConfig, logger infrastructure.Logger) pool.FactoryBuilder {
	brokerConfig := pkgamqp.Config{
		Scheme:         cfg.Scheme,
		Username:       cfg.Username,
		Password:       cfg.Password,
		Host:           cfg.Host,
		Port:           cfg.Port,
		Vhost:          cfg.VirtualHost,
		Heartbeat:      cfg.Heartbeat,
		ConnectTimeout: cfg.ConnectTimeout,
	}

	amqpLogger := infrastructure.NewAmqpLogger(logger.Logger)

	return func(name string) (ports.LinkFactory, error) {
		factory := pkgamqp.NewLinkFactory(name, brokerConfig, pkgamqp.WithLogger(amqpLogger))

		return adapters.NewBrokerLinkFactory(factory), nil
	}
}
