package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type LokiConfig struct {
	URL       string        `yaml:"url"`       // http://loki:3100
	TenantID  string        `yaml:"tenant_id"` // optional multi-tenancy
	Job       string        `yaml:"job"`       // label value, default: us-ingester
	Timeout   time.Duration `yaml:"timeout"`   // request timeout
	UserAgent string        `yaml:"user_agent"`
}

type VictoriaConfig struct {
	URL       string        `yaml:"url"`     // http://victoria-metrics:8428
	Timeout   time.Duration `yaml:"timeout"` // request timeout
	UserAgent string        `yaml:"user_agent"`
}

type DirConfig struct {
	Path   string `yaml:"path"`   // e.g. /data/_scraped
	Format string `yaml:"format"` // json | msgpack
}

type SinksConfig struct {
	Loki     LokiConfig     `yaml:"loki"`
	Victoria VictoriaConfig `yaml:"victoria"`
	Dir      DirConfig      `yaml:"dir"`
}

type CommonHTTP struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	// Resilience
	MaxRetries int           `yaml:"max_retries"` // retry attempts (e.g. 3)
	Backoff    time.Duration `yaml:"backoff"`     // initial backoff (e.g. 500ms)
	MaxBackoff time.Duration `yaml:"max_backoff"` // cap (e.g. 5s)
}

type BillsConfig struct {
	DataDir      string `yaml:"data_dir"`      // where unitedstates/congress writes data/<congress>/bills
	CongressPath string `yaml:"congress_path"` // checkout of unitedstates/congress (env US_CONGRESS_PATH)
	PythonBin    string `yaml:"python_bin"`    // virtualenv python (env US_VIRTENV_PYTHON_BIN_PATH)
	SkipFetch    bool   `yaml:"skip_fetch"`    // walk existing data only
}

type LegislatorsConfig struct {
	BaseURL      string     `yaml:"base_url"`  // congress-legislators raw base
	Rosters      []string   `yaml:"rosters"`   // legislators-current, legislators-historical
	ImageBaseURL string     `yaml:"image_url"` // unitedstates/images congress base
	ImageSize    string     `yaml:"image_size"`
	HTTP         CommonHTTP `yaml:"http"`
}

type FloorConfig struct {
	BaseURL        string     `yaml:"base_url"`       // http://clerk.house.gov/floorsummary
	CommitteesURL  string     `yaml:"committees_url"` // committees-current.yaml
	LawBaseURL     string     `yaml:"law_base_url"`   // GPO package base for PLAW detail pages
	BacksearchDays int        `yaml:"backsearch_days"`
	ReferenceScope string     `yaml:"reference_scope"` // action | document
	Congress       int        `yaml:"congress"`        // with session: parse a bulk session file
	Session        int        `yaml:"session"`
	StatePath      string     `yaml:"state_path"` // persisted last-day digest
	HTTP           CommonHTTP `yaml:"http"`
}

type SourceConfig struct {
	Type        string            `yaml:"type"` // bills | legislators | floor
	Bills       BillsConfig       `yaml:"bills"`
	Legislators LegislatorsConfig `yaml:"legislators"`
	Floor       FloorConfig       `yaml:"floor"`
}

type KeywordRule struct {
	When   []string          `yaml:"when"`   // list of substrings (case-insensitive) to match in name/body
	Labels map[string]string `yaml:"labels"` // labels to add when matched
}

type RegexRule struct {
	Field  string            `yaml:"field"` // name|body|kind|id
	Expr   string            `yaml:"expr"`
	Labels map[string]string `yaml:"labels"`
}

type MapRule struct {
	Field   string            `yaml:"field"`   // e.g. kind
	Mapping map[string]string `yaml:"mapping"` // e.g. "bill":"legislation"
	OutKey  string            `yaml:"out_key"` // label key to write
}

type PostProcessConfig struct {
	Keywords []KeywordRule `yaml:"keywords"`
	Regex    []RegexRule   `yaml:"regex"`
	Maps     []MapRule     `yaml:"maps"`
}

type MetricsConfig struct {
	Enable        bool   `yaml:"enable"`
	ListenAddress string `yaml:"listen_address"` // serve /metrics when set
}

type DedupConfig struct {
	Enable  bool          `yaml:"enable"`
	TTL     time.Duration `yaml:"ttl"`      // e.g. 168h (7d)
	MaxKeys int           `yaml:"max_keys"` // cap to bound memory
}

type Config struct {
	Sinks     SinksConfig       `yaml:"sinks"`
	Sources   []SourceConfig    `yaml:"sources"`
	Post      PostProcessConfig `yaml:"postprocess"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Dedup     DedupConfig       `yaml:"dedup"`
	BatchSize int               `yaml:"batch_size"`
}

const (
	EnvCongressPath = "US_CONGRESS_PATH"
	EnvPythonBin    = "US_VIRTENV_PYTHON_BIN_PATH"
)

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	c.applyDefaults()
	if c.Sinks.Loki.URL == "" && c.Sinks.Victoria.URL == "" && c.Sinks.Dir.Path == "" {
		return c, errors.New("need at least one sink (loki, victoria or dir)")
	}
	for i, sc := range c.Sources {
		switch sc.Type {
		case "bills", "legislators", "floor":
		default:
			return c, fmt.Errorf("sources[%d]: unknown source type %q", i, sc.Type)
		}
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Sinks.Loki.Job == "" {
		c.Sinks.Loki.Job = "us-ingester"
	}
	if c.Sinks.Dir.Format == "" {
		c.Sinks.Dir.Format = "json"
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Bills.DataDir == "" {
			s.Bills.DataDir = "."
		}
		if s.Bills.CongressPath == "" {
			s.Bills.CongressPath = os.Getenv(EnvCongressPath)
		}
		if s.Bills.PythonBin == "" {
			s.Bills.PythonBin = os.Getenv(EnvPythonBin)
		}

		l := &s.Legislators
		if l.BaseURL == "" {
			l.BaseURL = "https://raw.githubusercontent.com/unitedstates/congress-legislators/master"
		}
		if len(l.Rosters) == 0 {
			l.Rosters = []string{"legislators-current", "legislators-historical"}
		}
		if l.ImageBaseURL == "" {
			l.ImageBaseURL = "https://raw.githubusercontent.com/unitedstates/images/gh-pages/congress"
		}
		if l.ImageSize == "" {
			l.ImageSize = "450x550"
		}
		l.BaseURL = strings.TrimRight(l.BaseURL, "/")
		l.ImageBaseURL = strings.TrimRight(l.ImageBaseURL, "/")

		f := &s.Floor
		if f.BaseURL == "" {
			f.BaseURL = "http://clerk.house.gov/floorsummary"
		}
		f.BaseURL = strings.TrimRight(f.BaseURL, "/")
		if f.CommitteesURL == "" {
			f.CommitteesURL = "https://raw.githubusercontent.com/unitedstates/congress-legislators/master/committees-current.yaml"
		}
		if f.LawBaseURL == "" {
			f.LawBaseURL = "http://www.gpo.gov/fdsys/pkg"
		}
		if f.BacksearchDays <= 0 {
			f.BacksearchDays = 90
		}
		if f.ReferenceScope == "" {
			f.ReferenceScope = "action"
		}
	}
}
