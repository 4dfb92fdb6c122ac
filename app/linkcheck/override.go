package linkcheck

import (
	"errors"
	"log/slog"
	"net/url"
	"path"
	"strings"
)

// Override maps a persistent status from a matching host to a fixed verdict.
// HostPattern uses path.Match syntax, e.g. "*.example.com".
type Override struct {
	HostPattern string
	StatusCode  int
	Verdict     Verdict
}

// DefaultOverrides holds hosts known to answer gone images with a non-404 status.
var DefaultOverrides = []Override{
	{HostPattern: "cdn.awwni.me", StatusCode: 521, Verdict: Dead},
}

func (o Override) matches(host string, statusCode int) bool {
	if o.StatusCode != statusCode {
		return false
	}
	ok, err := path.Match(strings.ToLower(o.HostPattern), strings.ToLower(host))
	if err != nil {
		slog.Warn("Invalid override host pattern", "pattern", o.HostPattern, "error", err)
		return false
	}
	return ok
}

// applyOverrides rewrites an exhausted probe when a rule matches the stored
// link's host and the last status seen.
func applyOverrides(overrides []Override, outcome Outcome) Outcome {
	var statusErr *UnexpectedStatusError
	if !errors.As(outcome.Err, &statusErr) {
		return outcome
	}

	u, err := url.Parse(statusErr.URL)
	if err != nil {
		return outcome
	}

	for _, o := range overrides {
		if o.matches(u.Hostname(), statusErr.StatusCode) {
			return Outcome{Verdict: o.Verdict, Err: outcome.Err}
		}
	}
	return outcome
}
