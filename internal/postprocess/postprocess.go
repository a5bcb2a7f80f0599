package postprocess

import (
	"fmt"
	"regexp"
	"strings"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/model"
)

// Engine labels envelopes with keyword, regex and mapping rules.
type Engine struct {
	kw   []keywordRule
	regs []regexRule
	maps []mapRule
}

type keywordRule struct {
	words  []string
	labels map[string]string
}

type regexRule struct {
	field  string
	re     *regexp.Regexp
	labels map[string]string
}

type mapRule struct {
	field   string
	outKey  string
	mapping map[string]string
}

// New compiles cfg. Rules with an empty field or expression are dropped;
// an invalid expression is an error.
func New(cfg config.PostProcessConfig) (*Engine, error) {
	eng := &Engine{}
	for _, kr := range cfg.Keywords {
		words := make([]string, 0, len(kr.When))
		for _, w := range kr.When {
			if s := strings.TrimSpace(w); s != "" {
				words = append(words, strings.ToLower(s))
			}
		}
		if len(words) > 0 {
			eng.kw = append(eng.kw, keywordRule{words: words, labels: kr.Labels})
		}
	}
	for i, rr := range cfg.Regex {
		if strings.TrimSpace(rr.Field) == "" || strings.TrimSpace(rr.Expr) == "" {
			continue
		}
		re, err := regexp.Compile(rr.Expr)
		if err != nil {
			return nil, fmt.Errorf("postprocess regex[%d]: %w", i, err)
		}
		eng.regs = append(eng.regs, regexRule{field: rr.Field, re: re, labels: rr.Labels})
	}
	for _, mr := range cfg.Maps {
		if strings.TrimSpace(mr.Field) == "" || len(mr.Mapping) == 0 {
			continue
		}
		out := mr.OutKey
		if out == "" {
			out = mr.Field
		}
		eng.maps = append(eng.maps, mapRule{field: mr.Field, outKey: out, mapping: mr.Mapping})
	}
	return eng, nil
}

func field(e *model.Envelope, name string) string {
	switch strings.ToLower(name) {
	case "name":
		return e.Record.DisplayName()
	case "body":
		return e.Record.Body()
	case "kind":
		return e.Record.Kind()
	case "id":
		return e.Record.RecordID()
	case "source":
		return e.Source
	default:
		return e.Labels[name]
	}
}

// Apply labels envs in place and returns them.
func (eng *Engine) Apply(envs []model.Envelope) []model.Envelope {
	for i := range envs {
		ev := &envs[i]
		if ev.Labels == nil {
			ev.Labels = make(map[string]string, 4)
		}

		// keywords: every word must appear in the name or body
		nameLC := strings.ToLower(ev.Record.DisplayName())
		bodyLC := strings.ToLower(ev.Record.Body())
		for _, kr := range eng.kw {
			matched := true
			for _, w := range kr.words {
				if !strings.Contains(nameLC, w) && !strings.Contains(bodyLC, w) {
					matched = false
					break
				}
			}
			if matched {
				for k, v := range kr.labels {
					ev.Labels[k] = v
				}
			}
		}

		for _, rr := range eng.regs {
			if val := field(ev, rr.field); val != "" && rr.re.MatchString(val) {
				for k, v := range rr.labels {
					ev.Labels[k] = v
				}
			}
		}

		for _, mr := range eng.maps {
			if mapped, ok := mr.mapping[field(ev, mr.field)]; ok {
				ev.Labels[mr.outKey] = mapped
			}
		}
	}
	return envs
}
