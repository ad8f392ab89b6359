package client

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/flatten"
	"github.com/clickwire/clickwire/pkg/logger"
	"github.com/clickwire/clickwire/pkg/schema"
	"github.com/clickwire/clickwire/pkg/tabular"
	"github.com/clickwire/clickwire/pkg/types"
)

// BulkInsert serializes a record batch and inserts it in one round trip.
// When fields and typeTags are nil the schema is inferred from the batch.
// A payload over the size ceiling splits into proportionally sized
// sub-batches, recursing until every sub-batch fits; a single record whose
// payload alone exceeds the ceiling is fatal.
func (c *Client) BulkInsert(ctx context.Context, table string, records []types.Record, fields []string, typeTags []types.TypeTag) error {
	fields, typeTags, payload, err := tabular.Format(records, fields, typeTags)
	if err != nil {
		return err
	}

	if len(payload) < c.maxPayloadBytes {
		query := "INSERT INTO " + table + " (" + strings.Join(fields, ",") + ") FORMAT " + tabular.FormatName
		_, err = c.exec(ctx, "insert", query, payload)
		return err
	}

	batch := int(float64(c.maxPayloadBytes) / float64(len(payload)) * float64(len(records)))
	if batch < 1 {
		return errors.Newf(errors.ErrorTypePayloadTooLarge,
			"a single record's payload exceeds the %d byte ceiling", c.maxPayloadBytes)
	}

	c.logger.Info("splitting oversized insert batch",
		zap.String("table", table),
		zap.Int("records", len(records)),
		zap.Int("payload_bytes", len(payload)),
		zap.Int("sub_batch", batch))

	for i := 0; i < len(records); i += batch {
		end := i + batch
		if end > len(records) {
			end = len(records)
		}
		if err := c.BulkInsert(ctx, table, records[i:end], fields, typeTags); err != nil {
			return err
		}
	}
	return nil
}

// StoreDocuments flattens nested documents into table rows, extends the
// table schema to fit them, and bulk-inserts the batch. A field whose type
// contradicts across documents beyond generalization degrades to a String
// column holding the serialized value. Inserts hitting a transient remote
// schema-version conflict (a concurrent writer altering the table) are
// retried up to the attempt limit.
func (c *Client) StoreDocuments(ctx context.Context, table string, documents []map[string]interface{}) error {
	ctx = context.WithValue(ctx, logger.TableKey, table)

	records := make([]types.Record, 0, len(documents))
	for _, doc := range documents {
		rec, err := flatten.Flatten(doc)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	desired, err := inferDocumentSchema(records)
	if err != nil {
		return err
	}

	if _, err := c.EnsureSchema(ctx, table, desired); err != nil {
		return err
	}

	fields, typeTags := desired.Fields(), desired.Types()
	var lastErr error
	for attempt := 1; attempt <= maxSchemaAttempts; attempt++ {
		err := c.BulkInsert(ctx, table, records, fields, typeTags)
		if err == nil {
			return nil
		}
		err = classifyRemote(err)
		if !errors.IsRetryable(err) {
			return err
		}
		lastErr = err
		c.logger.Warn("insert hit a schema version conflict, retrying",
			zap.String("table", table),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return errors.Wrap(lastErr, errors.ErrorTypeSchemaReconcile,
		"insert into "+table+" kept failing on schema version conflicts")
}

// inferDocumentSchema merges per-record schemas, degrading columns with no
// generalizable common type to String so any value shape still fits.
func inferDocumentSchema(records []types.Record) (*schema.Schema, error) {
	if len(records) == 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "no documents to store")
	}

	merged := schema.New()
	for _, rec := range records {
		inferred, err := schema.Infer(rec)
		if err != nil {
			return nil, err
		}
		for _, col := range inferred.Columns {
			existing, ok := merged.Lookup(col.Name)
			if !ok || existing == col.Type {
				merged.Add(col.Name, col.Type)
				continue
			}
			widened, err := schema.Generalize(existing, col.Type)
			if err != nil {
				if !errors.IsType(err, errors.ErrorTypeIncompatibleType) {
					return nil, err
				}
				widened = types.String
			}
			merged.Add(col.Name, widened)
		}
	}
	return merged, nil
}
