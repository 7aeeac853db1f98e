package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/windowctx/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/windowctx/internal/monitoring"
)

var (
	ErrTooLarge       = errors.New("resource exceeds size limit")
	ErrNotText        = errors.New("resource is not text")
	ErrUnsupportedURL = errors.New("unsupported url scheme")
)

// StatusError is a non-2xx response
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
}

// Evaluator runs one script. A returned error marks the script as failed;
// loading continues with the next one.
type Evaluator interface {
	Evaluate(ctx context.Context, src, filename string) error
}

// Config defines loader configuration
type Config struct {
	Timeout        time.Duration
	Retries        int
	UserAgent      string
	MaxScriptBytes int64
}

// DefaultConfig returns the default loader configuration
func DefaultConfig() Config {
	return Config{
		Timeout:        10 * time.Second,
		Retries:        2,
		UserAgent:      "windowctx/1.0",
		MaxScriptBytes: 2 << 20,
	}
}

// Loader fetches pages and runs their scripts in document order
type Loader struct {
	config   Config
	client   *resty.Client
	breakers *resilience.Group
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewLoader creates a page loader
func NewLoader(config Config, logger *zap.Logger, metrics *monitoring.Metrics) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxScriptBytes <= 0 {
		config.MaxScriptBytes = DefaultConfig().MaxScriptBytes
	}

	// Retries happen in the transport; resty only sets timeout and headers
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.Retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := resty.NewWithClient(retryClient.StandardClient())
	client.SetTimeout(config.Timeout)
	if config.UserAgent != "" {
		client.SetHeader("User-Agent", config.UserAgent)
	}

	breakers := resilience.NewGroup(resilience.Settings{
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
		IsFailure:        isRemoteFailure,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Origin circuit changed",
				zap.String("origin", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Loader{
		config:   config,
		client:   client,
		breakers: breakers,
		logger:   logger,
		metrics:  metrics,
	}
}

// Open fetches and parses the page at target: an http(s) or file URL, or a
// local path.
func (l *Loader) Open(ctx context.Context, target string) (*Document, error) {
	u, err := ResolveTarget(target)
	if err != nil {
		return nil, err
	}

	data, contentType, err := l.fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return Parse(data, contentType, u)
}

// ResolveTarget turns a URL or a local path into a URL
func ResolveTarget(target string) (*url.URL, error) {
	if u, err := url.Parse(target); err == nil {
		switch u.Scheme {
		case "http", "https", "file":
			return u, nil
		}
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", target, err)
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}

// Source returns the text of script s
func (l *Loader) Source(ctx context.Context, s Script) (string, error) {
	if !s.External() {
		return s.Inline, nil
	}

	u, err := url.Parse(s.Src)
	if err != nil {
		return "", fmt.Errorf("invalid script url %q: %w", s.Src, err)
	}

	data, contentType, err := l.fetch(ctx, u)
	if err != nil {
		return "", err
	}
	if err := checkText(data); err != nil {
		return "", fmt.Errorf("%s: %w", s.Src, err)
	}
	return decodeText(data, contentType), nil
}

func (l *Loader) fetch(ctx context.Context, u *url.URL) ([]byte, string, error) {
	switch u.Scheme {
	case "file":
		return l.readFile(u)
	case "http", "https":
		var data []byte
		var contentType string
		err := l.breakers.Get(u.Host).Do(func() error {
			var err error
			data, contentType, err = l.get(ctx, u)
			return err
		})
		return data, contentType, err
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedURL, u.Scheme)
	}
}

func (l *Loader) get(ctx context.Context, u *url.URL) ([]byte, string, error) {
	resp, err := l.client.R().
		SetContext(ctx).
		Get(u.String())
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", u, err)
	}
	if resp.IsError() {
		return nil, "", &StatusError{URL: u.String(), Status: resp.StatusCode()}
	}

	body := resp.Body()
	if int64(len(body)) > l.config.MaxScriptBytes {
		return nil, "", fmt.Errorf("%s: %w", u, ErrTooLarge)
	}
	return body, resp.Header().Get("Content-Type"), nil
}

func (l *Loader) readFile(u *url.URL) ([]byte, string, error) {
	path := filepath.FromSlash(u.Path)

	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, l.config.MaxScriptBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > l.config.MaxScriptBytes {
		return nil, "", fmt.Errorf("%s: %w", path, ErrTooLarge)
	}
	return data, "", nil
}

// checkText rejects binary payloads served where a script was expected
func checkText(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}
	return ErrNotText
}

func decodeText(data []byte, contentType string) string {
	name := DetectCharset(data, contentType)
	if name == "utf-8" {
		return string(data)
	}
	r, err := charset.NewReaderLabel(name, bytes.NewReader(data))
	if err != nil {
		return string(data)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// isRemoteFailure counts transport errors and server errors against an
// origin; client errors such as a missing script do not.
func isRemoteFailure(err error) bool {
	if err == nil {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Status >= 500
	}
	return !errors.Is(err, ErrTooLarge) && !errors.Is(err, context.Canceled)
}
