// Package transport issues statements to the store over its HTTP interface.
//
// A Pool owns the pooled TCP connections for one endpoint. It is created
// and closed explicitly by the caller and injected into every client that
// uses it; there is no process-global session. Statements are POSTed with
// the query first and the optional data payload appended after a newline,
// credentials and store settings travel as URL query parameters, and a
// non-2xx response surfaces its body as the error text.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/clickwire/clickwire/pkg/compression"
	"github.com/clickwire/clickwire/pkg/config"
	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/logger"
	"github.com/clickwire/clickwire/pkg/metrics"
	stringpool "github.com/clickwire/clickwire/pkg/strings"
)

// Sender is the statement-dispatch boundary consumed by the client. A nil
// payload sends a bare statement; a non-nil payload is appended to the
// statement as insert data.
type Sender interface {
	Send(ctx context.Context, query string, payload []byte) ([]byte, error)
}

// Pool is an HTTP transport pool for one store endpoint.
type Pool struct {
	cfg        *config.ClientConfig
	httpClient *http.Client
	transport  *http.Transport
	baseURL    string
	query      string
	compressor *compression.Compressor
	logger     *zap.Logger
	closed     atomic.Bool
}

// NewPool creates a transport pool from the configuration. The caller owns
// the pool and must Close it when done.
func NewPool(cfg *config.ClientConfig) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid transport configuration")
	}

	host := cfg.Connection.Host
	port := cfg.Connection.Port
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		p, err := strconv.Atoi(host[i+1:])
		if err != nil {
			return nil, errors.Newf(errors.ErrorTypeConfig, "invalid host %q", host)
		}
		host = host[:i]
		port = p
	}

	scheme := "http"
	if cfg.Connection.Secure {
		scheme = "https"
	}

	comp, err := compression.New(compression.Algorithm(cfg.Compression))
	if err != nil {
		return nil, err
	}

	htransport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeouts.Connection,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Pool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Pool.MaxIdleConns,
		MaxConnsPerHost:     cfg.Pool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Timeouts.Idle,
		TLSHandshakeTimeout: cfg.Timeouts.Connection,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.Pool.InsecureSkipVerify, //nolint:gosec // G402: explicit opt-in
		},
	}
	if cfg.Pool.EnableHTTP2 {
		if err := http2.ConfigureTransport(htransport); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "cannot enable http2")
		}
	}

	params := url.Values{}
	params.Set("user", cfg.Connection.Username)
	params.Set("password", cfg.Connection.Password)
	for k, v := range cfg.Connection.Settings {
		params.Set(k, v)
	}

	return &Pool{
		cfg:        cfg,
		httpClient: &http.Client{Transport: htransport},
		transport:  htransport,
		baseURL:    stringpool.Concat(scheme, "://", host, ":", strconv.Itoa(port), "/"),
		query:      params.Encode(),
		compressor: comp,
		logger:     logger.With(zap.String("component", "transport"), zap.String("endpoint", host)),
	}, nil
}

// Send posts a statement, with its optional data payload, and returns the
// response body. Cancellation and the configured request timeout both apply.
func (p *Pool) Send(ctx context.Context, query string, payload []byte) ([]byte, error) {
	if p.closed.Load() {
		return nil, errors.New(errors.ErrorTypeConnection, "transport pool is closed")
	}

	body := stringpool.StringToBytes(query)
	if payload != nil {
		combined := make([]byte, 0, len(query)+1+len(payload))
		combined = append(combined, query...)
		combined = append(combined, '\n')
		combined = append(combined, payload...)
		body = combined
	}

	compressed, err := p.compressor.Compress(body)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeouts.Request)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"?"+p.query, bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "cannot build request")
	}
	if enc := p.compressor.ContentEncoding(); enc != "" {
		req.Header.Set("Content-Encoding", enc)
	}

	metrics.ActiveRequests.Inc()
	defer metrics.ActiveRequests.Dec()
	metrics.PayloadBytes.WithLabelValues("sent").Add(float64(len(compressed)))

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "request timed out")
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "cannot read response body")
	}
	metrics.PayloadBytes.WithLabelValues("received").Add(float64(len(respBody)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Debug("request rejected",
			zap.Int("status", resp.StatusCode),
			zap.Int("body_bytes", len(respBody)))
		return nil, errors.Newf(errors.ErrorTypeQuery, "%s", strings.TrimSpace(string(respBody))).
			WithDetail("status", resp.StatusCode)
	}
	return respBody, nil
}

// Ping checks that the store is responding on its root endpoint.
func (p *Pool) Ping(ctx context.Context) error {
	if p.closed.Load() {
		return errors.New(errors.ErrorTypeConnection, "transport pool is closed")
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeouts.Request)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "cannot build request")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "store not responding")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "cannot read ping response")
	}
	if strings.TrimSpace(string(body)) != "Ok." {
		return errors.Newf(errors.ErrorTypeConnection, "unexpected ping response %q", string(body))
	}
	return nil
}

// Close releases the pooled connections. The pool cannot be reused after
// Close.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}
	p.transport.CloseIdleConnections()
}
