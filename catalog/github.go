package catalog

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultGitHubAPI = "https://api.github.com"
	DefaultTTL       = 5 * time.Minute
)

type GitHubConfig struct {
	BaseURL string
	// Repo is "owner/name".
	Repo  string
	Path  string
	Ref   string
	Token string
	TTL   time.Duration
}

type contentEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// GitHub lists every directory under a path of a GitHub repository as a
// problem. Listings are cached for TTL; when a refresh fails the previous
// listing keeps being served.
type GitHub struct {
	client *resty.Client
	cfg    GitHubConfig
	logger zerolog.Logger
	now    func() time.Time

	refresh   singleflight.Group
	mu        sync.Mutex
	cached    []Problem
	fetchedAt time.Time
}

func NewGitHub(cfg GitHubConfig, logger zerolog.Logger) *GitHub {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubAPI
	}
	if cfg.Path == "" {
		cfg.Path = "problems"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/vnd.github+json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	return &GitHub{client: client, cfg: cfg, logger: logger, now: time.Now}
}

func (g *GitHub) ListAvailableProblemIDs(ctx context.Context) ([]string, error) {
	problems, err := g.Problems(ctx)
	if err != nil {
		return nil, err
	}
	return ids(problems), nil
}

// Problems serves the cached listing while it is fresh. Concurrent refreshes
// share one request; a caller whose ctx ends stops waiting for it.
func (g *GitHub) Problems(ctx context.Context) ([]Problem, error) {
	g.mu.Lock()
	cached, fetchedAt := g.cached, g.fetchedAt
	g.mu.Unlock()
	if cached != nil && g.now().Sub(fetchedAt) < g.cfg.TTL {
		return append([]Problem(nil), cached...), nil
	}

	// The shared fetch outlives any single caller; the client timeout bounds it.
	result := g.refresh.DoChan("problems", func() (any, error) {
		return g.fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			g.mu.Lock()
			stale := g.cached
			g.mu.Unlock()
			if stale != nil {
				g.logger.Warn().Err(res.Err).Msg("Serving stale problem list")
				return append([]Problem(nil), stale...), nil
			}
			return nil, res.Err
		}
		problems := res.Val.([]Problem)
		g.mu.Lock()
		g.cached = problems
		g.fetchedAt = g.now()
		g.mu.Unlock()
		return append([]Problem(nil), problems...), nil
	}
}

func (g *GitHub) fetch(ctx context.Context) ([]Problem, error) {
	var entries []contentEntry
	req := g.client.R().
		SetContext(ctx).
		SetRawPathParams(map[string]string{"repo": g.cfg.Repo, "path": g.cfg.Path}).
		SetResult(&entries)
	if g.cfg.Ref != "" {
		req.SetQueryParam("ref", g.cfg.Ref)
	}
	resp, err := req.Get("/repos/{repo}/contents/{path}")
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("list problems: github returned %s", resp.Status())
	}

	problems := make([]Problem, 0, len(entries))
	for _, e := range entries {
		if e.Type != "dir" {
			continue
		}
		problems = append(problems, Problem{ID: e.Name, Name: DisplayName(e.Name)})
	}
	g.logger.Debug().Int("count", len(problems)).Msg("Fetched problem list")
	return problems, nil
}
