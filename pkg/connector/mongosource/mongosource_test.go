package mongosource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ajitpratap0/tabula/pkg/errors"
)

func TestFromDocumentsFirstSeenOrder(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("65e1f0a2b3c4d5e6f7a8b9c0")
	require.NoError(t, err)
	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	docs := []bson.D{
		{{Key: "_id", Value: oid}, {Key: "name", Value: "Alice"}, {Key: "age", Value: int32(30)}},
		{{Key: "_id", Value: oid}, {Key: "name", Value: "Bob"}, {Key: "joined", Value: primitive.NewDateTimeFromTime(when)}},
		{{Key: "name", Value: nil}, {Key: "tags", Value: bson.A{"a", int64(2)}}, {Key: "addr", Value: bson.D{{Key: "city", Value: "Oslo"}}}},
	}

	tbl, err := FromDocuments(docs, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.RowCount())
	assert.Equal(t, map[string]string{
		"_id": "65e1f0a2b3c4d5e6f7a8b9c0", "name": "Alice", "age": "30", "joined": "", "tags": "", "addr": "",
	}, tbl.Row(0))
	assert.Equal(t, "2024-03-01T00:00:00Z", tbl.Row(1)["joined"])
	assert.Equal(t, map[string]string{
		"_id": "", "name": "", "age": "", "joined": "", "tags": `["a",2]`, "addr": `{"city":"Oslo"}`,
	}, tbl.Row(2))
}

func TestFromDocumentsFixedColumns(t *testing.T) {
	docs := []bson.D{
		{{Key: "a", Value: 1.5}, {Key: "b", Value: true}, {Key: "c", Value: "x"}},
	}
	tbl, err := FromDocuments(docs, []string{"b", "a", "missing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "missing"}, tbl.ColumnNames())
	assert.Equal(t, map[string]string{"a": "1.5", "b": "true", "missing": ""}, tbl.Row(0))
}

func TestFromDocumentsEmpty(t *testing.T) {
	tbl, err := FromDocuments(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.RowCount())
	assert.Equal(t, 0, tbl.ColumnCount())
}

func TestFindOptions(t *testing.T) {
	opts := Config{Sort: []string{"-age", "name"}, Columns: []string{"name"}, Limit: 10}.FindOptions()
	assert.Equal(t, bson.D{{Key: "age", Value: -1}, {Key: "name", Value: 1}}, opts.Sort)
	assert.Equal(t, bson.D{{Key: "name", Value: 1}}, opts.Projection)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(10), *opts.Limit)
}

func TestQueryValidates(t *testing.T) {
	_, err := Query(context.Background(), Config{Database: "db", Collection: "c"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
