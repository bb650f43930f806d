// Package version reports the build version and checks GitHub for newer
// releases.
package version

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Set at build time with -ldflags "-X".
//
//nolint:gochecknoglobals // Linker-populated build metadata
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Release checker defaults.
const (
	DefaultBaseURL = "https://api.github.com"
	DefaultOwner   = "mrz1836"
	DefaultRepo    = "cashgate"
	DefaultTimeout = 10 * time.Second

	maxBodySize = 64 * 1024
)

// ErrReleaseLookup is returned when GitHub answers with a non-200 status.
var ErrReleaseLookup = errors.New("release lookup failed")

// Info is the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Current returns the running build, with unknown fields filled in.
func Current() Info {
	return Info{
		Version:   orDefault(Version, "dev"),
		Commit:    orDefault(Commit, "unknown"),
		Date:      orDefault(Date, "unknown"),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String renders "version (commit: c, built: d)".
func (i Info) String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)",
		orDefault(i.Version, "dev"), orDefault(i.Commit, "unknown"), orDefault(i.Date, "unknown"))
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Release is the subset of a GitHub release the checker reads.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// Update is the result of comparing the running build with the latest
// release.
type Update struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	Newer   bool   `json:"update_available"`
	URL     string `json:"url,omitempty"`
}

// Checker fetches the latest release of one repository.
type Checker struct {
	baseURL string
	owner   string
	repo    string
	http    *http.Client
}

// Option configures a Checker.
type Option func(*Checker)

// WithBaseURL points the checker at another API root.
func WithBaseURL(url string) Option {
	return func(c *Checker) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) { c.http = client }
}

// WithRepository changes the repository checked.
func WithRepository(owner, repo string) Option {
	return func(c *Checker) { c.owner, c.repo = owner, repo }
}

// NewChecker creates a release checker.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		baseURL: DefaultBaseURL,
		owner:   DefaultOwner,
		repo:    DefaultRepo,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Latest fetches the latest published release.
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", fmt.Sprintf("cashgate/%s (%s/%s)", orDefault(Version, "dev"), runtime.GOOS, runtime.GOARCH))

	resp, err := c.http.Do(req) //nolint:gosec // URL is built from the configured API root
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading release: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrReleaseLookup, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rel Release
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(body, &rel); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}
	return &rel, nil
}

// Check compares current against the latest release.
func (c *Checker) Check(ctx context.Context, current string) (Update, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return Update{}, err
	}
	return Update{
		Current: current,
		Latest:  rel.TagName,
		Newer:   Compare(rel.TagName, current) > 0,
		URL:     rel.HTMLURL,
	}, nil
}

// Compare returns 1, 0 or -1 as a is newer than, equal to or older than b.
// Development builds and bare commit hashes sort before every release.
func Compare(a, b string) int {
	aDev, bDev := isDevelopment(a), isDevelopment(b)
	switch {
	case aDev && bDev:
		return 0
	case aDev:
		return -1
	case bDev:
		return 1
	}

	pa, pb := parts(a), parts(b)
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			if pa[i] > pb[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// Normalize strips a leading v, surrounding space and any pre-release or
// build suffix.
func Normalize(v string) string {
	v = strings.TrimLeft(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	return v
}

func parts(v string) [3]int {
	var out [3]int
	for i, p := range strings.SplitN(Normalize(v), ".", 3) {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		out[i] = n
	}
	return out
}

func isDevelopment(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "dev" || isCommitHash(v)
}

// isCommitHash reports whether s looks like an abbreviated or full SHA-1.
// At least one letter is required so "1234567" stays a version.
func isCommitHash(s string) bool {
	s = strings.TrimSuffix(s, "-dirty")
	if len(s) < 7 || len(s) > 40 {
		return false
	}

	letter := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F'):
			letter = true
		default:
			return false
		}
	}
	return letter
}
