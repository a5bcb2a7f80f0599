package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
	"civicdata/us-ingester/internal/util"
)

const recordMetric = "us_ingester_record"

type victoriaSink struct {
	cfg    config.VictoriaConfig
	client *http.Client
	now    func() time.Time
}

func NewVictoria(cfg config.VictoriaConfig) (Sink, error) {
	if !strings.HasPrefix(cfg.URL, "http://") && !strings.HasPrefix(cfg.URL, "https://") {
		return nil, fmt.Errorf("victoria: url must be http(s), got %q", cfg.URL)
	}
	return &victoriaSink{
		cfg:    cfg,
		client: util.NewHTTPClient(util.DefaultDur(cfg.Timeout, 10*time.Second)),
		now:    time.Now,
	}, nil
}

func (v *victoriaSink) Name() string { return "victoria" }

// Push sends one sample per distinct label set in the batch, valued by how
// many envelopes carried it.
func (v *victoriaSink) Push(ctx context.Context, envs []model.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	body := promLines(envs, v.now().UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.URL+"/api/v1/import/prometheus", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if ua := v.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("victoria push failed: %s", resp.Status)
	}
	return nil
}

func promLines(envs []model.Envelope, tsMillis int64) []byte {
	groups := map[string]int{}
	for _, e := range envs {
		lbls := map[string]string{}
		for k, val := range e.Labels {
			lbls[k] = val
		}
		lbls["source"] = e.Source
		lbls["kind"] = e.Record.Kind()

		// deterministic label ordering
		keys := make([]string, 0, len(lbls))
		for k := range lbls {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%s=\"%s\"", k, escape(lbls[k]))
		}
		groups["{"+b.String()+"}"]++
	}

	sets := make([]string, 0, len(groups))
	for k := range groups {
		sets = append(sets, k)
	}
	sort.Strings(sets)
	var buf bytes.Buffer
	for _, k := range sets {
		fmt.Fprintf(&buf, "%s%s %d %d\n", recordMetric, k, groups[k], tsMillis)
	}
	return buf.Bytes()
}

// escape quotes a label value for the Prometheus text format.
func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)
	return r.Replace(s)
}
