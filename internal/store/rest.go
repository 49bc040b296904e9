package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/livetemplate/accordion"
	"github.com/livetemplate/accordion/internal/config"
	"github.com/livetemplate/accordion/internal/security"
)

// maxResponseSize caps list API responses
const maxResponseSize = 10 * 1024 * 1024

// RESTOptions configures a RESTStore
type RESTOptions struct {
	Headers        map[string]string
	Timeout        time.Duration
	Retry          RetryConfig
	CircuitBreaker CircuitBreakerConfig
	AllowPrivate   bool
}

// RESTStore talks to a remote list API (see internal/server/api.go for the
// wire format). Reads may be retried; writes are attempted once.
type RESTStore struct {
	name           string
	base           *url.URL
	headers        map[string]string
	client         *http.Client
	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
}

// restCollection is the envelope for list responses
type restCollection[T any] struct {
	Value []T `json:"value"`
}

// NewRESTStore creates a client for the list API rooted at baseURL
func NewRESTStore(baseURL string, opts RESTOptions) (*RESTStore, error) {
	if baseURL == "" {
		return nil, &ValidationError{Store: "rest", Field: "url", Reason: "url is required"}
	}

	base, err := security.ValidateBaseURL(baseURL, opts.AllowPrivate)
	if err != nil {
		return nil, &ValidationError{Store: "rest", Field: "url", Reason: err.Error()}
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.CircuitBreaker.FailureThreshold == 0 {
		opts.CircuitBreaker = DefaultCircuitBreakerConfig()
	}

	return &RESTStore{
		name:           "rest",
		base:           base,
		headers:        opts.Headers,
		client:         &http.Client{Timeout: opts.Timeout},
		retryConfig:    opts.Retry,
		circuitBreaker: NewCircuitBreaker("rest", opts.CircuitBreaker),
	}, nil
}

// NewRESTStoreWithConfig creates a REST store from the store section of the config
func NewRESTStoreWithConfig(cfg config.StoreConfig) (*RESTStore, error) {
	retry := DefaultRetryConfig()
	retry.MaxRetries = cfg.GetRetryMaxRetries()
	retry.BaseDelay = cfg.GetRetryBaseDelay()
	retry.MaxDelay = cfg.GetRetryMaxDelay()

	return NewRESTStore(os.ExpandEnv(cfg.URL), RESTOptions{
		Headers:      cfg.ExpandedHeaders(),
		Timeout:      cfg.GetTimeout(),
		Retry:        retry,
		AllowPrivate: cfg.AllowPrivate,
	})
}

// Name returns the backend identifier
func (s *RESTStore) Name() string {
	return s.name
}

// ListContainers fetches GET /lists
func (s *RESTStore) ListContainers(ctx context.Context) ([]Container, error) {
	return read(ctx, s, "list containers", func(ctx context.Context) ([]Container, error) {
		var out restCollection[Container]
		if err := s.do(ctx, http.MethodGet, s.endpoint("lists"), nil, &out); err != nil {
			return nil, err
		}
		return out.Value, nil
	})
}

// GetContainer fetches GET /lists/{name}
func (s *RESTStore) GetContainer(ctx context.Context, name string) (*Container, error) {
	return read(ctx, s, "get container", func(ctx context.Context) (*Container, error) {
		var out Container
		endpoint, err := s.listEndpoint(name)
		if err != nil {
			return nil, err
		}
		if err := s.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
			return nil, s.notFound(err, name)
		}
		return &out, nil
	})
}

// CreateContainer posts to /lists
func (s *RESTStore) CreateContainer(ctx context.Context, name, description string, template int) error {
	if err := validateName(s.Name(), name); err != nil {
		return err
	}
	_, err := write(ctx, s, func(ctx context.Context) (struct{}, error) {
		body := Container{Name: name, Description: description, Template: template}
		err := s.do(ctx, http.MethodPost, s.endpoint("lists"), body, nil)
		if Classify(err) == KindConflict {
			return struct{}{}, &ConflictError{Store: s.Name(), Container: name}
		}
		return struct{}{}, err
	})
	return err
}

// AddField posts to /lists/{name}/fields
func (s *RESTStore) AddField(ctx context.Context, container string, field Field) error {
	_, err := write(ctx, s, func(ctx context.Context) (struct{}, error) {
		endpoint, err := s.listEndpoint(container, "fields")
		if err != nil {
			return struct{}{}, err
		}
		err = s.do(ctx, http.MethodPost, endpoint, field, nil)
		return struct{}{}, s.notFound(err, container)
	})
	return err
}

// ListItems fetches GET /lists/{name}/items
func (s *RESTStore) ListItems(ctx context.Context, container string) ([]accordion.Item, error) {
	return read(ctx, s, "list items", func(ctx context.Context) ([]accordion.Item, error) {
		var out restCollection[accordion.Item]
		endpoint, err := s.listEndpoint(container, "items")
		if err != nil {
			return nil, err
		}
		if err := s.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
			return nil, s.notFound(err, container)
		}
		if out.Value == nil {
			out.Value = []accordion.Item{}
		}
		return out.Value, nil
	})
}

// AddItem posts to /lists/{name}/items and returns the echoed row
func (s *RESTStore) AddItem(ctx context.Context, container string, item accordion.Item) (accordion.Item, error) {
	return write(ctx, s, func(ctx context.Context) (accordion.Item, error) {
		var out accordion.Item
		endpoint, err := s.listEndpoint(container, "items")
		if err != nil {
			return accordion.Item{}, err
		}
		if err := s.do(ctx, http.MethodPost, endpoint, item, &out); err != nil {
			return accordion.Item{}, s.notFound(err, container)
		}
		return out, nil
	})
}

// Close releases idle connections
func (s *RESTStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// CircuitState exposes the breaker state for health reporting
func (s *RESTStore) CircuitState() CircuitState {
	return s.circuitBreaker.State()
}

func read[T any](ctx context.Context, s *RESTStore, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	return Guard(ctx, s.circuitBreaker, func(ctx context.Context) (T, error) {
		return WithRetry(ctx, s.name, op, s.retryConfig, fn)
	})
}

func write[T any](ctx context.Context, s *RESTStore, fn func(ctx context.Context) (T, error)) (T, error) {
	return Guard(ctx, s.circuitBreaker, fn)
}

// endpoint joins escaped path segments onto the base URL
func (s *RESTStore) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return s.base.JoinPath(escaped...).String()
}

// listEndpoint addresses /lists/{container}/...; dot segments would be
// cleaned out of the path and hit another resource
func (s *RESTStore) listEndpoint(container string, rest ...string) (string, error) {
	if isDotSegment(container) {
		return "", &ValidationError{Store: s.Name(), Field: "list name", Reason: `must not be "." or ".."`}
	}
	return s.endpoint(append([]string{"lists", container}, rest...)...), nil
}

// notFound turns a 404 into a typed NotFoundError for the container
func (s *RESTStore) notFound(err error, container string) error {
	if err != nil && Classify(err) == KindNotFound {
		return &NotFoundError{Store: s.Name(), Container: container}
	}
	return err
}

// do performs one request, encoding body and decoding into out when non-nil
func (s *RESTStore) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &StoreError{Store: s.name, Operation: "encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &StoreError{Store: s.name, Operation: "create request", Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return NewStoreError(s.name, "request", ctx.Err())
		}
		return NewStoreError(s.name, "request", &ConnectionError{Store: s.name, Address: s.base.Host, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &HTTPError{
			Store:      s.name,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       errorBody(data),
		}
	}

	if out == nil {
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return NewStoreError(s.name, "read response", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ValidationError{Store: s.name, Reason: "could not parse response as JSON"}
	}
	return nil
}

// errorBody extracts {"error": "..."} bodies, falling back to the raw text
func errorBody(data []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(data))
}
