// Package tabular serializes record batches into the header-plus-rows
// tabular wire format and parses received payloads back into typed records.
//
// Line 1 carries the column names, line 2 the column types, and every
// following line one data row, fields separated by tabs. Both directions are
// pure transforms with no state across calls.
package tabular

import (
	"strings"

	"github.com/clickwire/clickwire/pkg/codec"
	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/schema"
	stringpool "github.com/clickwire/clickwire/pkg/strings"
	"github.com/clickwire/clickwire/pkg/types"
)

// FormatName is the store's identifier for this wire format, appended to
// queries and insert statements.
const FormatName = "TabSeparatedWithNamesAndTypes"

// Format serializes a batch of records. When fields and typeTags are nil the
// schema is inferred from the batch, generalized across all records so the
// emitted header matches every row. The returned payload ends with a
// newline.
func Format(records []types.Record, fields []string, typeTags []types.TypeTag) ([]string, []types.TypeTag, []byte, error) {
	if len(records) == 0 {
		return nil, nil, nil, errors.New(errors.ErrorTypeValidation, "no records to format")
	}

	if fields == nil && typeTags == nil {
		inferred, err := schema.InferBatch(records)
		if err != nil {
			return nil, nil, nil, err
		}
		fields = inferred.Fields()
		typeTags = inferred.Types()
	}
	if len(fields) != len(typeTags) {
		return nil, nil, nil, errors.Newf(errors.ErrorTypeValidation,
			"mismatched header: %d fields, %d types", len(fields), len(typeTags))
	}

	b := stringpool.GetBuilder(stringpool.Large)
	defer stringpool.PutBuilder(b, stringpool.Large)

	for i, f := range fields {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteString(f)
	}
	b.WriteByte('\n')
	for i, t := range typeTags {
		if i > 0 {
			b.WriteByte('\t')
		}
		b.WriteString(string(t))
	}
	b.WriteByte('\n')

	for _, rec := range records {
		for i, f := range fields {
			if i > 0 {
				b.WriteByte('\t')
			}
			text, err := codec.Encode(rec[f], typeTags[i])
			if err != nil {
				return nil, nil, nil, errors.Wrap(err, errors.ErrorTypeFormat, "field "+f)
			}
			b.WriteString(text)
		}
		b.WriteByte('\n')
	}

	payload := make([]byte, b.Len())
	copy(payload, b.Bytes())
	return fields, typeTags, payload, nil
}

// Unformat parses a wire payload into an ordered sequence of records. The
// row order of the payload is preserved. Parsing is strict: a row whose
// field count differs from the header is a format error.
func Unformat(payload []byte) ([]types.Record, error) {
	lines := strings.Split(stringpool.BytesToString(payload), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 2 {
		return nil, errors.New(errors.ErrorTypeFormat, "payload too short: missing name and type header rows")
	}

	fields := strings.Split(lines[0], "\t")
	rawTypes := strings.Split(lines[1], "\t")
	if len(fields) != len(rawTypes) {
		return nil, errors.Newf(errors.ErrorTypeFormat,
			"header mismatch: %d names, %d types", len(fields), len(rawTypes))
	}

	typeTags := make([]types.TypeTag, len(rawTypes))
	for i, raw := range rawTypes {
		t := types.TypeTag(raw)
		if err := t.Validate(); err != nil {
			return nil, err
		}
		typeTags[i] = t
	}

	records := make([]types.Record, 0, len(lines)-2)
	for rowIdx, line := range lines[2:] {
		cells := strings.Split(line, "\t")
		if len(cells) != len(fields) {
			return nil, errors.Newf(errors.ErrorTypeFormat,
				"row %d has %d fields, header has %d", rowIdx, len(cells), len(fields))
		}

		rec := make(types.Record, len(fields))
		for i, cell := range cells {
			v, err := codec.Decode(cell, typeTags[i])
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeFormat, "row field "+fields[i])
			}
			rec[fields[i]] = v
		}
		records = append(records, rec)
	}
	return records, nil
}
