package source

import (
	"strings"
	"time"

	"civicdata/us-ingester/internal/config"
	"civicdata/us-ingester/internal/util"
)

// datetimeToDate truncates "2013-01-03T12:00:00-05:00" to "2013-01-03".
func datetimeToDate(s string) string {
	if i := strings.Index(s, "T"); i >= 0 {
		return s[:i]
	}
	return s
}

func newGetter(target string, h config.CommonHTTP) *util.Getter {
	return util.NewGetter(target, util.DefaultDur(h.Timeout, 15*time.Second), h.UserAgent, h.MaxRetries, h.Backoff, h.MaxBackoff)
}
