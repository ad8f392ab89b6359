package client

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clickwire/clickwire/pkg/errors"
	"github.com/clickwire/clickwire/pkg/schema"
	"github.com/clickwire/clickwire/pkg/types"
)

// catalogBody renders a system.columns result for the given columns.
func catalogBody(cols [][2]string) []byte {
	var b strings.Builder
	b.WriteString("name\ttype\nString\tString\n")
	for _, col := range cols {
		b.WriteString(col[0] + "\t" + col[1] + "\n")
	}
	return []byte(b.String())
}

// catalogSender answers column catalog queries from cols and accepts every
// other statement.
func catalogSender(cols *[][2]string) *fakeSender {
	s := &fakeSender{}
	s.handler = func(query string, _ []byte) ([]byte, error) {
		if strings.Contains(query, "system.columns") {
			return catalogBody(*cols), nil
		}
		return nil, nil
	}
	return s
}

func TestGetSchema(t *testing.T) {
	cols := [][2]string{{"id", "Int64"}, {"tags", "Array(String)"}}
	sender := catalogSender(&cols)
	c := newTestClient(t, sender)

	s, err := c.GetSchema(context.Background(), "events")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "tags"}, s.Fields())

	got, ok := s.Lookup("tags")
	require.True(t, ok)
	assert.Equal(t, types.Array(types.String), got)

	// A bare table name resolves against the configured database.
	assert.Contains(t, sender.queries[0], "database='db'")
	assert.Contains(t, sender.queries[0], "table='events'")
}

func TestGetSchemaQualifiedName(t *testing.T) {
	cols := [][2]string{}
	sender := catalogSender(&cols)
	c := newTestClient(t, sender)

	_, err := c.GetSchema(context.Background(), "other.events")
	require.NoError(t, err)
	assert.Contains(t, sender.queries[0], "database='other'")

	_, err = c.GetSchema(context.Background(), "a.b.c")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidTableName))
}

func TestEnsureSchemaConvergentIssuesNoDDL(t *testing.T) {
	cols := [][2]string{{"id", "Int64"}, {"tags", "Array(String)"}}
	sender := catalogSender(&cols)
	c := newTestClient(t, sender)

	desired := schema.New(
		schema.Column{Name: "id", Type: types.Int64},
		schema.Column{Name: "tags", Type: types.Array(types.String)},
	)

	effective, err := c.EnsureSchema(context.Background(), "events", desired)
	require.NoError(t, err)
	assert.Equal(t, desired.Fields(), effective.Fields())
	assert.Equal(t, desired.Types(), effective.Types())

	require.Len(t, sender.queries, 1, "a covered schema needs only the catalog fetch")
	assert.Contains(t, sender.queries[0], "system.columns")
}

func TestEnsureSchemaAddsMissingColumns(t *testing.T) {
	cols := [][2]string{{"id", "Int64"}}
	sender := catalogSender(&cols)
	c := newTestClient(t, sender)

	desired := schema.New(
		schema.Column{Name: "id", Type: types.Int64},
		schema.Column{Name: "tags", Type: types.Array(types.String)},
		schema.Column{Name: "note", Type: types.String},
	)

	_, err := c.EnsureSchema(context.Background(), "events", desired)
	require.NoError(t, err)

	require.Len(t, sender.queries, 4)
	assert.Equal(t, "ALTER TABLE events ADD COLUMN tags Array(String)", sender.queries[1])
	assert.Equal(t, "ALTER TABLE events ADD COLUMN note String", sender.queries[2])
	assert.Equal(t, "OPTIMIZE TABLE events", sender.queries[3])
}

func TestEnsureSchemaWidensNarrowColumns(t *testing.T) {
	cols := [][2]string{{"score", "Int64"}}
	sender := catalogSender(&cols)
	c := newTestClient(t, sender)

	desired := schema.New(schema.Column{Name: "score", Type: types.Float64})

	effective, err := c.EnsureSchema(context.Background(), "events", desired)
	require.NoError(t, err)

	got, ok := effective.Lookup("score")
	require.True(t, ok)
	assert.Equal(t, types.Float64, got)

	require.Len(t, sender.queries, 3)
	assert.Equal(t, "ALTER TABLE events MODIFY COLUMN score Float64", sender.queries[1])
	assert.Equal(t, "OPTIMIZE TABLE events", sender.queries[2])
}

func TestEnsureSchemaKeepsWiderRemoteColumn(t *testing.T) {
	// The remote column already generalizes the desired one: no DDL, and the
	// effective schema reports the wider remote type.
	cols := [][2]string{{"score", "Float64"}}
	sender := catalogSender(&cols)
	c := newTestClient(t, sender)

	desired := schema.New(schema.Column{Name: "score", Type: types.Int64})

	effective, err := c.EnsureSchema(context.Background(), "events", desired)
	require.NoError(t, err)

	got, ok := effective.Lookup("score")
	require.True(t, ok)
	assert.Equal(t, types.Float64, got)
	assert.Len(t, sender.queries, 1)
}

func TestEnsureSchemaRetriesOnVersionConflict(t *testing.T) {
	cols := [][2]string{}
	failures := 1
	sender := &fakeSender{}
	sender.handler = func(query string, _ []byte) ([]byte, error) {
		if strings.Contains(query, "system.columns") {
			return catalogBody(cols), nil
		}
		if strings.HasPrefix(query, "ALTER TABLE") && failures > 0 {
			failures--
			return nil, errors.New(errors.ErrorTypeQuery, "Code: 999. bad version of the table metadata")
		}
		return nil, nil
	}
	c := newTestClient(t, sender)

	desired := schema.New(schema.Column{Name: "id", Type: types.Int64})
	_, err := c.EnsureSchema(context.Background(), "events", desired)
	require.NoError(t, err)

	fetches := 0
	for _, q := range sender.queries {
		if strings.Contains(q, "system.columns") {
			fetches++
		}
	}
	assert.Equal(t, 2, fetches, "each attempt re-fetches the remote schema")
}

func TestEnsureSchemaNonRetryableFailsFast(t *testing.T) {
	cols := [][2]string{}
	sender := &fakeSender{}
	sender.handler = func(query string, _ []byte) ([]byte, error) {
		if strings.Contains(query, "system.columns") {
			return catalogBody(cols), nil
		}
		return nil, errors.New(errors.ErrorTypeQuery, "Code: 62. Syntax error")
	}
	c := newTestClient(t, sender)

	desired := schema.New(schema.Column{Name: "id", Type: types.Int64})
	_, err := c.EnsureSchema(context.Background(), "events", desired)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))

	alters := 0
	for _, q := range sender.queries {
		if strings.HasPrefix(q, "ALTER TABLE") {
			alters++
		}
	}
	assert.Equal(t, 1, alters, "a permanent failure must not retry")
}

func TestEnsureSchemaExhaustsAttempts(t *testing.T) {
	cols := [][2]string{}
	sender := &fakeSender{}
	sender.handler = func(query string, _ []byte) ([]byte, error) {
		if strings.Contains(query, "system.columns") {
			return catalogBody(cols), nil
		}
		return nil, errors.New(errors.ErrorTypeQuery, "bad version of the table metadata")
	}
	c := newTestClient(t, sender)

	desired := schema.New(schema.Column{Name: "id", Type: types.Int64})
	_, err := c.EnsureSchema(context.Background(), "events", desired)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaReconcile))

	fetches := 0
	for _, q := range sender.queries {
		if strings.Contains(q, "system.columns") {
			fetches++
		}
	}
	assert.Equal(t, maxSchemaAttempts, fetches)
}

func TestStoreDocumentsExtendsSchemaAndInserts(t *testing.T) {
	cols := [][2]string{}
	sender := catalogSender(&cols)
	c := newTestClient(t, sender)

	documents := []map[string]interface{}{
		{"id": 1, "tags": []string{"a", "b"}},
		{"id": 2, "tags": []string{}},
	}
	err := c.StoreDocuments(context.Background(), "events", documents)
	require.NoError(t, err)

	require.Len(t, sender.queries, 5)
	assert.Equal(t, "ALTER TABLE events ADD COLUMN id Int64", sender.queries[1])
	assert.Equal(t, "ALTER TABLE events ADD COLUMN tags Array(String)", sender.queries[2])
	assert.Equal(t, "OPTIMIZE TABLE events", sender.queries[3])
	assert.Equal(t, "INSERT INTO events (id,tags) FORMAT TabSeparatedWithNamesAndTypes", sender.queries[4])

	// The second document's empty tags array was omitted at flatten time and
	// inserts as the empty array literal.
	assert.Equal(t, "id\ttags\nInt64\tArray(String)\n1\t['a','b']\n2\t[]\n", string(sender.payloads[4]))
}

func TestStoreDocumentsDegradesConflictingFieldToString(t *testing.T) {
	cols := [][2]string{}
	sender := catalogSender(&cols)
	c := newTestClient(t, sender)

	documents := []map[string]interface{}{
		{"v": 1},
		{"v": []string{"a"}},
	}
	err := c.StoreDocuments(context.Background(), "events", documents)
	require.NoError(t, err)

	var addColumn string
	for _, q := range sender.queries {
		if strings.HasPrefix(q, "ALTER TABLE events ADD COLUMN v ") {
			addColumn = q
		}
	}
	assert.Equal(t, "ALTER TABLE events ADD COLUMN v String", addColumn)
}

func TestStoreDocumentsRetriesInsertOnVersionConflict(t *testing.T) {
	cols := [][2]string{{"id", "Int64"}}
	failures := 1
	sender := &fakeSender{}
	sender.handler = func(query string, _ []byte) ([]byte, error) {
		if strings.Contains(query, "system.columns") {
			return catalogBody(cols), nil
		}
		if strings.HasPrefix(query, "INSERT") && failures > 0 {
			failures--
			return nil, errors.New(errors.ErrorTypeQuery, "metadata on replica is not up to date")
		}
		return nil, nil
	}
	c := newTestClient(t, sender)

	err := c.StoreDocuments(context.Background(), "events", []map[string]interface{}{{"id": 7}})
	require.NoError(t, err)

	inserts := 0
	for _, q := range sender.queries {
		if strings.HasPrefix(q, "INSERT") {
			inserts++
		}
	}
	assert.Equal(t, 2, inserts)
}

func TestClassifyRemote(t *testing.T) {
	err := classifyRemote(errors.New(errors.ErrorTypeQuery, "Code: 999. bad version of metadata"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeSchemaConflict))
	assert.True(t, errors.IsRetryable(err))

	err = classifyRemote(errors.New(errors.ErrorTypeQuery, "Code: 62. Syntax error"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
	assert.False(t, errors.IsRetryable(err))

	err = classifyRemote(errors.New(errors.ErrorTypeConnection, "connection refused"))
	assert.True(t, errors.IsRetryable(err))

	assert.NoError(t, classifyRemote(nil))
}
