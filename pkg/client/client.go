// Package client implements the statement surface of the store: selects
// with typed result parsing, payload-less statements, bulk inserts with
// payload chunking, document storage with adaptive schema reconciliation,
// and filterable cached selects.
//
// A Client is built around a caller-owned transport pool; it holds no
// connection state of its own. The store auto-commits successful writes and
// offers no transactions, so an error mid-batch leaves previously committed
// rows in place.
package client

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clickwire/clickwire/pkg/cache"
	"github.com/clickwire/clickwire/pkg/config"
	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/logger"
	"github.com/clickwire/clickwire/pkg/metrics"
	stringpool "github.com/clickwire/clickwire/pkg/strings"
	"github.com/clickwire/clickwire/pkg/tabular"
	"github.com/clickwire/clickwire/pkg/transport"
	"github.com/clickwire/clickwire/pkg/types"
)

// defaultMaxPayloadBytes is the ceiling on one serialized insert payload.
// Larger batches split into proportionally sized sub-batches.
const defaultMaxPayloadBytes = 2_000_000_000

// formatClause matches queries that already carry a FORMAT clause.
var formatClause = regexp.MustCompile(`(?is)^.+?\s+format\s+\w+\s*$`)

// Client executes statements against one store endpoint. It is not safe for
// concurrent use: the fetch cursor and the result cache are per-client
// state. Create one client per logical session.
type Client struct {
	sender transport.Sender
	cfg    *config.ClientConfig
	logger *zap.Logger
	cache  *cache.Cache

	maxPayloadBytes int

	lastResult []types.Record
	rowIndex   int
}

// New creates a client on top of a caller-owned transport.
func New(sender transport.Sender, cfg *config.ClientConfig) *Client {
	return &Client{
		sender:          sender,
		cfg:             cfg,
		logger:          logger.With(zap.String("client", cfg.Name)),
		cache:           cache.New(),
		maxPayloadBytes: defaultMaxPayloadBytes,
		rowIndex:        -1,
	}
}

// Select executes a query and parses the tabular result into typed records.
// The wire format clause is appended automatically; a query carrying a
// different FORMAT clause cannot be parsed and is rejected. Positional ?
// placeholders are substituted from args with type-appropriate escaping.
func (c *Client) Select(ctx context.Context, query string, args ...interface{}) ([]types.Record, error) {
	query, err := interpolate(query, args...)
	if err != nil {
		return nil, err
	}

	if formatClause.MatchString(query) {
		if !strings.Contains(strings.ToLower(query), strings.ToLower(tabular.FormatName)) {
			return nil, errors.Newf(errors.ErrorTypeValidation,
				"only FORMAT %s can be parsed; use SelectRaw for other formats", tabular.FormatName)
		}
	} else {
		query += " FORMAT " + tabular.FormatName
	}

	body, err := c.exec(ctx, "select", query, nil)
	if err != nil {
		return nil, err
	}

	records, err := tabular.Unformat(body)
	if err != nil {
		return nil, err
	}
	c.lastResult = records
	c.rowIndex = -1
	return records, nil
}

// SelectRaw executes a query and returns the raw response body, for queries
// using formats this client does not parse.
func (c *Client) SelectRaw(ctx context.Context, query string, args ...interface{}) ([]byte, error) {
	query, err := interpolate(query, args...)
	if err != nil {
		return nil, err
	}
	return c.exec(ctx, "select", query, nil)
}

// FetchOne returns the next row of the last Select, or false when the
// result is exhausted.
func (c *Client) FetchOne() (types.Record, bool) {
	if c.rowIndex >= len(c.lastResult)-1 {
		return nil, false
	}
	c.rowIndex++
	return c.lastResult[c.rowIndex], true
}

// FetchAll returns all rows of the last Select in result order.
func (c *Client) FetchAll() []types.Record {
	return c.lastResult
}

// Insert executes an insert statement with the data packed inside the query
// text. BulkInsert is preferred for record batches.
func (c *Client) Insert(ctx context.Context, query string, args ...interface{}) error {
	query, err := interpolate(query, args...)
	if err != nil {
		return err
	}
	_, err = c.exec(ctx, "insert", query, nil)
	return err
}

// DDL executes a statement that returns no result. Successful statements
// are committed automatically.
func (c *Client) DDL(ctx context.Context, query string, args ...interface{}) error {
	query, err := interpolate(query, args...)
	if err != nil {
		return err
	}
	_, err = c.exec(ctx, "ddl", query, nil)
	return err
}

// Ping checks that the store is reachable, when the transport supports it.
func (c *Client) Ping(ctx context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := c.sender.(pinger); ok {
		return p.Ping(ctx)
	}
	_, err := c.exec(ctx, "ping", "SELECT 1", nil)
	return err
}

// exec routes one statement through the transport with metrics accounting.
func (c *Client) exec(ctx context.Context, kind, query string, payload []byte) ([]byte, error) {
	timer := metrics.NewTimer(kind)
	body, err := c.sender.Send(ctx, query, payload)
	elapsed := timer.ObserveDuration()

	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.StatementsTotal.WithLabelValues(kind, status).Inc()

	if err != nil {
		logger.WithContext(ctx).Debug("statement failed",
			zap.String("client", c.cfg.Name),
			zap.String("kind", kind),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}
	return body, nil
}

// interpolate substitutes ? placeholders with escaped argument values.
// A ? inside a single-quoted string literal is query text, not a
// placeholder, and passes through untouched; \' escapes inside literals
// do not terminate them.
func interpolate(query string, args ...interface{}) (string, error) {
	if len(args) == 0 {
		return query, nil
	}

	b := stringpool.GetBuilder(stringpool.Medium)
	defer stringpool.PutBuilder(b, stringpool.Medium)

	argIdx := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case inQuote:
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(query) {
				i++
				b.WriteByte(query[i])
			} else if ch == '\'' {
				inQuote = false
			}
		case ch == '\'':
			inQuote = true
			b.WriteByte(ch)
		case ch == '?':
			if argIdx >= len(args) {
				return "", errors.Newf(errors.ErrorTypeValidation,
					"query has more placeholders than the %d arguments given", len(args))
			}
			b.WriteString(escapeParameter(args[argIdx]))
			argIdx++
		default:
			b.WriteByte(ch)
		}
	}
	if argIdx != len(args) {
		return "", errors.Newf(errors.ErrorTypeValidation,
			"query has %d placeholders but %d arguments were given", argIdx, len(args))
	}
	return stringpool.Clone(b.String()), nil
}

// escapeParameter renders one query parameter with type-appropriate quoting.
func escapeParameter(param interface{}) string {
	switch v := param.(type) {
	case bool:
		if v {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return "'" + v.Truncate(time.Second).Format("2006-01-02 15:04:05") + "'"
	default:
		s := stringpool.ValueToString(param)
		return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	}
}
