package client

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/logger"
	"github.com/clickwire/clickwire/pkg/metrics"
	"github.com/clickwire/clickwire/pkg/schema"
	"github.com/clickwire/clickwire/pkg/types"
)

// maxSchemaAttempts bounds how often the reconcile-fetch-alter cycle and
// the post-reconcile insert retry on transient schema conflicts.
const maxSchemaAttempts = 5

// GetSchema fetches the current column schema of a table from the store's
// column catalog. The name may be qualified with at most one database
// prefix; a bare name resolves against the configured default database.
func (c *Client) GetSchema(ctx context.Context, table string) (*schema.Schema, error) {
	database, tableName, err := c.splitTableName(table)
	if err != nil {
		return nil, err
	}

	rows, err := c.Select(ctx,
		"SELECT name, type FROM system.columns WHERE database=? AND table=?",
		database, tableName)
	if err != nil {
		return nil, err
	}

	remote := schema.New()
	for _, row := range rows {
		name := row["name"].Str()
		t := types.TypeTag(row["type"].Str())
		remote.Add(name, t)
	}
	return remote, nil
}

// EnsureSchema drives the remote table toward a schema that covers the
// desired one: absent columns are added, present columns whose type is too
// narrow are widened to the generalized type, and one storage optimization
// pass runs after any alteration. Reconciling a table that already covers
// the desired schema issues no statements.
//
// Alterations are not transactional; a concurrent writer can change the
// remote schema between fetch and apply. Each attempt therefore re-fetches
// the remote schema from scratch, and only classified transient failures
// retry, up to the attempt limit. Callers must serialize reconciliation per
// table themselves.
func (c *Client) EnsureSchema(ctx context.Context, table string, desired *schema.Schema) (*schema.Schema, error) {
	ctx = context.WithValue(ctx, logger.TableKey, table)

	var lastErr error
	for attempt := 1; attempt <= maxSchemaAttempts; attempt++ {
		if attempt > 1 {
			metrics.ReconcileRetries.Inc()
		}

		effective, err := c.reconcileOnce(ctx, table, desired)
		if err == nil {
			return effective, nil
		}

		err = classifyRemote(err)
		if !errors.IsRetryable(err) {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("schema reconciliation attempt failed",
			zap.String("table", table),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, errors.Wrap(lastErr, errors.ErrorTypeSchemaReconcile,
		"cannot ensure target schema in "+table)
}

// reconcileOnce runs a single fetch-diff-alter cycle.
func (c *Client) reconcileOnce(ctx context.Context, table string, desired *schema.Schema) (*schema.Schema, error) {
	remote, err := c.GetSchema(ctx, table)
	if err != nil {
		return nil, err
	}

	altered := false
	effective := schema.New()
	for _, col := range desired.Columns {
		remoteType, present := remote.Lookup(col.Name)
		if !present {
			c.logger.Info("extending table",
				zap.String("table", table),
				zap.String("column", col.Name),
				zap.String("type", string(col.Type)))
			if err := c.DDL(ctx, "ALTER TABLE "+table+" ADD COLUMN "+col.Name+" "+string(col.Type)); err != nil {
				return nil, err
			}
			metrics.SchemaAlterations.WithLabelValues("add_column").Inc()
			altered = true
			effective.Add(col.Name, col.Type)
			continue
		}

		if remoteType == col.Type {
			effective.Add(col.Name, col.Type)
			continue
		}

		widened, err := schema.Generalize(remoteType, col.Type)
		if err != nil {
			return nil, err
		}
		if widened != remoteType {
			c.logger.Info("widening column",
				zap.String("table", table),
				zap.String("column", col.Name),
				zap.String("from", string(remoteType)),
				zap.String("to", string(widened)))
			if err := c.DDL(ctx, "ALTER TABLE "+table+" MODIFY COLUMN "+col.Name+" "+string(widened)); err != nil {
				return nil, err
			}
			metrics.SchemaAlterations.WithLabelValues("modify_column").Inc()
			altered = true
		}
		effective.Add(col.Name, widened)
	}

	if altered {
		if err := c.DDL(ctx, "OPTIMIZE TABLE "+table); err != nil {
			return nil, err
		}
		metrics.SchemaAlterations.WithLabelValues("optimize").Inc()
	}
	return effective, nil
}

// splitTableName validates a possibly database-qualified table name before
// any remote call is issued.
func (c *Client) splitTableName(table string) (database, tableName string, err error) {
	parts := strings.Split(table, ".")
	switch len(parts) {
	case 1:
		return c.cfg.Connection.Database, parts[0], nil
	case 2:
		return parts[0], parts[1], nil
	default:
		return "", "", errors.Newf(errors.ErrorTypeInvalidTableName, "%q is an invalid table name", table)
	}
}

// classifyRemote maps remote failures onto the closed set of transient
// conditions the retry loops act on. Version conflicts surface from the
// store as query errors whose text names a stale metadata version.
func classifyRemote(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsRetryable(err) {
		return err
	}
	if errors.IsType(err, errors.ErrorTypeQuery) {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "bad version") || strings.Contains(msg, "metadata on replica is not up to date") {
			return errors.Wrap(err, errors.ErrorTypeSchemaConflict, "remote schema changed concurrently")
		}
	}
	return err
}
