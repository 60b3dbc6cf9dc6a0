package amqp

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config is used to establish a connection with the broker.
type Config struct {
	Scheme         string
	Username       string
	Password       string
	Host           string
	Port           int
	Vhost          string
	Heartbeat      time.Duration
	ConnectTimeout time.Duration
}

func getURL(cfg Config) string {
	uri := amqp.URI{
		Scheme:   cfg.Scheme,
		Username: cfg.Username,
		Password: cfg.Password,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Vhost:    cfg.Vhost,
	}

	return uri.String()
}
