// Package mongosource materializes documents from a MongoDB collection as a
// table.
//
// Top-level keys become columns in the order they are first seen across
// the result. Documents missing a key get the empty string for it. Nested
// documents and arrays are stored as compact JSON.
package mongosource

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/json"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/pool"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// FormatName labels rows loaded by this package.
const FormatName = "mongo"

// Config describes one find query.
type Config struct {
	URI        string `yaml:"uri" json:"uri" mapstructure:"uri"`
	Database   string `yaml:"database" json:"database" mapstructure:"database"`
	Collection string `yaml:"collection" json:"collection" mapstructure:"collection"`
	// Filter is a query document; nil matches everything.
	Filter map[string]interface{} `yaml:"filter" json:"filter" mapstructure:"filter"`
	// Columns fixes the output columns and their projection. Empty keeps
	// every key.
	Columns []string `yaml:"columns" json:"columns" mapstructure:"columns"`
	// Sort lists fields in priority order; a leading "-" sorts descending.
	Sort  []string `yaml:"sort" json:"sort" mapstructure:"sort"`
	Limit int64    `yaml:"limit" json:"limit" mapstructure:"limit"`
	// Timeout bounds connecting and reading; 0 means no limit beyond ctx.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
}

// Validate checks that the query can be attempted.
func (c Config) Validate() error {
	switch {
	case c.URI == "":
		return errors.New(errors.ErrorTypeValidation, "mongo source: uri is required")
	case c.Database == "":
		return errors.New(errors.ErrorTypeValidation, "mongo source: database is required")
	case c.Collection == "":
		return errors.New(errors.ErrorTypeValidation, "mongo source: collection is required")
	}
	return nil
}

// FindOptions converts the sort, columns and limit settings.
func (c Config) FindOptions() *options.FindOptions {
	opts := options.Find()
	if len(c.Sort) > 0 {
		sort := make(bson.D, 0, len(c.Sort))
		for _, field := range c.Sort {
			if name, desc := strings.CutPrefix(field, "-"); desc {
				sort = append(sort, bson.E{Key: name, Value: -1})
			} else {
				sort = append(sort, bson.E{Key: field, Value: 1})
			}
		}
		opts.SetSort(sort)
	}
	if len(c.Columns) > 0 {
		proj := make(bson.D, 0, len(c.Columns))
		for _, col := range c.Columns {
			proj = append(proj, bson.E{Key: col, Value: 1})
		}
		opts.SetProjection(proj)
	}
	if c.Limit > 0 {
		opts.SetLimit(c.Limit)
	}
	return opts
}

// Query runs the find and returns the matching documents as a table.
func Query(ctx context.Context, cfg Config) (*table.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to MongoDB")
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.WithContext(ctx).Warn("mongo disconnect failed", zap.Error(err))
		}
	}()

	filter := cfg.Filter
	if filter == nil {
		filter = map[string]interface{}{}
	}
	cur, err := client.Database(cfg.Database).Collection(cfg.Collection).Find(ctx, filter, cfg.FindOptions())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to run find")
	}
	defer cur.Close(ctx)

	var docs []bson.D
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode document")
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "cursor failed")
	}

	t, err := FromDocuments(docs, cfg.Columns)
	if err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("mongo query loaded",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
		zap.Int("rows", t.RowCount()))
	return t, nil
}

// FromDocuments builds a table from docs. When columns is empty the columns
// are every top-level key in first-seen order.
func FromDocuments(docs []bson.D, columns []string) (*table.Table, error) {
	names := columns
	if len(names) == 0 {
		seen := make(map[string]struct{})
		for _, doc := range docs {
			for _, e := range doc {
				if _, ok := seen[e.Key]; !ok {
					seen[e.Key] = struct{}{}
					names = append(names, e.Key)
				}
			}
		}
	}
	pos := make(map[string]int, len(names))
	for i, name := range names {
		pos[name] = i
	}

	intern := pool.NewStringInternPool(pool.DefaultInternLimit)
	b := table.NewBuilder(names...)
	row := make([]columnar.Value, len(names))
	for _, doc := range docs {
		for i := range row {
			row[i] = ""
		}
		for _, e := range doc {
			if i, ok := pos[e.Key]; ok {
				row[i] = columnar.Value(intern.Intern(CellString(e.Value)))
			}
		}
		if err := b.AddValues(row); err != nil {
			return nil, err
		}
	}

	metrics.RowsLoaded.WithLabelValues(FormatName).Add(float64(b.Len()))
	return b.Build(), nil
}

// CellString converts a decoded BSON value to a cell.
func CellString(v interface{}) string {
	switch x := v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case primitive.ObjectID:
		return x.Hex()
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339Nano)
	case primitive.Timestamp:
		return strconv.FormatUint(uint64(x.T), 10)
	case primitive.Decimal128:
		return x.String()
	case primitive.Binary:
		return fmt.Sprintf("%x", x.Data)
	case bson.D, bson.A, bson.M:
		out, err := json.MarshalNoEscape(plain(x))
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(out)
	default:
		return fmt.Sprint(x)
	}
}

// plain converts nested BSON containers to values encoding/json-style
// marshalers understand. Document key order is not preserved.
func plain(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.D:
		m := make(map[string]interface{}, len(x))
		for _, e := range x {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.M:
		m := make(map[string]interface{}, len(x))
		for k, inner := range x {
			m[k] = plain(inner)
		}
		return m
	case bson.A:
		out := make([]interface{}, len(x))
		for i, inner := range x {
			out[i] = plain(inner)
		}
		return out
	case primitive.ObjectID, primitive.DateTime, primitive.Decimal128:
		return CellString(x)
	default:
		return x
	}
}
