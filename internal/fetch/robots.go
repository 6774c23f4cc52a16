package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsCache holds parsed robots.txt files keyed by scheme and host.
// A nil entry means "no usable robots.txt" and allows everything.
type robotsCache struct {
	mu     sync.Mutex
	byHost map[string]*robotstxt.RobotsData
}

func newRobotsCache() *robotsCache {
	return &robotsCache{byHost: make(map[string]*robotstxt.RobotsData)}
}

// allowed reports whether rawURL may be fetched by userAgent.
// Errors reaching the robots file allow the URL; only a context
// cancellation is returned as an error.
func (c *robotsCache) allowed(ctx context.Context, client *http.Client, rawURL, userAgent string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true, nil
	}
	key := u.Scheme + "://" + u.Host

	c.mu.Lock()
	data, ok := c.byHost[key]
	c.mu.Unlock()

	if !ok {
		data, err = fetchRobots(ctx, client, key, userAgent)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			data = nil
		}
		c.mu.Lock()
		c.byHost[key] = data
		c.mu.Unlock()
	}

	if data == nil {
		return true, nil
	}
	return data.TestAgent(u.RequestURI(), userAgent), nil
}

// fetchRobots downloads and parses base + "/robots.txt".
// robotstxt.FromResponse applies the usual status rules: 4xx allows all,
// 5xx disallows all.
func fetchRobots(ctx context.Context, client *http.Client, base, userAgent string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
