package sink

import (
	"context"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
)

// Sink is the minimal interface all sinks must implement.
type Sink interface {
	Name() string
	Push(ctx context.Context, envs []model.Envelope) error
}

// FromConfig builds every sink that has a destination configured.
func FromConfig(cfg config.SinksConfig) ([]Sink, error) {
	var out []Sink
	if cfg.Loki.URL != "" {
		out = append(out, NewLoki(cfg.Loki))
	}
	if cfg.Victoria.URL != "" {
		v, err := NewVictoria(cfg.Victoria)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if cfg.Dir.Path != "" {
		d, err := NewDir(cfg.Dir)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
