package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
	"civicdata/us-ingester/internal/util"
)

type lokiSink struct {
	cfg    config.LokiConfig
	client *http.Client
}

func NewLoki(cfg config.LokiConfig) Sink {
	return &lokiSink{cfg: cfg, client: util.NewHTTPClient(util.DefaultDur(cfg.Timeout, 10*time.Second))}
}

func (l *lokiSink) Name() string { return "loki" }

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func (l *lokiSink) Push(ctx context.Context, envs []model.Envelope) error {
	if len(envs) == 0 {
		return nil
	}

	payload := struct {
		Streams []lokiStream `json:"streams"`
	}{}
	for _, e := range envs {
		line, err := json.Marshal(map[string]any{
			"id":     e.Record.RecordID(),
			"kind":   e.Record.Kind(),
			"name":   e.Record.DisplayName(),
			"source": e.Source,
			"labels": e.Labels,
			"record": e.Record,
		})
		if err != nil {
			return fmt.Errorf("loki: encode %s: %w", e.Record.RecordID(), err)
		}
		lbls := map[string]string{"job": l.cfg.Job}
		for k, v := range e.Labels {
			lbls[k] = v
		}
		lbls["source"] = e.Source
		lbls["kind"] = e.Record.Kind()

		ts := e.Observed
		if ts.IsZero() {
			ts = time.Now()
		}
		// Loki expects ns timestamp as a decimal string
		payload.Streams = append(payload.Streams, lokiStream{
			Stream: lbls,
			Values: [][2]string{{fmt.Sprintf("%d", ts.UnixNano()), string(line)}},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL+"/loki/api/v1/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", l.cfg.TenantID)
	}
	if ua := l.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("loki push failed http %d", resp.StatusCode)
	}
	return nil
}
