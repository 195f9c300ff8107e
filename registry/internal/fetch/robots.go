// CLAUDE:SUMMARY Best-effort robots.txt blanket-disallow check.
package fetch

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/hazyhaar/fieldreg/websafe"
)

// robotsAllowed fetches <origin>/robots.txt and reports whether crawling
// is permitted. Only a blanket disallow-all for the wildcard agent blocks
// us; any fetch or parse problem is treated as "unknown, proceed". This is
// advisory politeness, not a compliance gate.
func (f *Fetcher) robotsAllowed(ctx context.Context, u *url.URL) bool {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return true
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return true
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return true
	}

	body, err := websafe.LimitedReadAll(resp.Body, 64*1024)
	if err != nil {
		return true
	}
	return !robotsBlanketDisallow(string(body))
}

// robotsBlanketDisallow reports whether the wildcard agent group contains
// "Disallow: /" without a counteracting "Allow: /".
func robotsBlanketDisallow(body string) bool {
	inWildcard := false
	disallowAll := false
	allowAll := false

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch key {
		case "user-agent":
			inWildcard = val == "*"
		case "disallow":
			if inWildcard && val == "/" {
				disallowAll = true
			}
		case "allow":
			if inWildcard && (val == "/" || val == "/*") {
				allowAll = true
			}
		}
	}
	return disallowAll && !allowAll
}
