package amqp

type connectionOptions struct {
	logger Logger
	dial   dialFunc
}

type connectionOption func(options *connectionOptions)

// WithLogger returns a connectionOption which sets the logger used by the
// connection and everything created from it.
func WithLogger(l Logger) connectionOption {
	return func(o *connectionOptions) {
		o.logger = l
	}
}

// withDial substitutes the broker dialer. Used by tests.
func withDial(dial dialFunc) connectionOption {
	return func(o *connectionOptions) {
		o.dial = dial
	}
}

func defaultConnectionOptions() connectionOptions {
	return connectionOptions{
		logger: nopLogger{},
		dial:   defaultDial,
	}
}
