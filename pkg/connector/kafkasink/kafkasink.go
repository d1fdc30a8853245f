// Package kafkasink publishes table rows to a Kafka topic, one JSON object
// per row.
package kafkasink

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabula/pkg/columnar"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/json"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// FormatName labels rows written by this package.
const FormatName = "kafka"

// ContentType is sent in every message's content-type header.
const ContentType = "application/json"

// Config describes the destination topic and producer settings.
type Config struct {
	Brokers []string `yaml:"brokers" json:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" json:"topic" mapstructure:"topic"`
	// KeyColumn, when set, supplies each message key.
	KeyColumn string `yaml:"key_column" json:"key_column" mapstructure:"key_column"`
	// Header lists the columns in each message, in order. Nil sends every
	// column alphabetically.
	Header []string `yaml:"header" json:"header" mapstructure:"header"`
	// Acks is all, 1 or 0.
	Acks string `yaml:"acks" json:"acks" mapstructure:"acks"`
	// Compression is none, gzip, snappy, lz4 or zstd.
	Compression string `yaml:"compression" json:"compression" mapstructure:"compression"`
	// BatchSize is the number of messages per send; 0 uses 500.
	BatchSize int    `yaml:"batch_size" json:"batch_size" mapstructure:"batch_size"`
	ClientID  string `yaml:"client_id" json:"client_id" mapstructure:"client_id"`
	TLS       bool   `yaml:"tls" json:"tls" mapstructure:"tls"`
	Retries   int    `yaml:"retries" json:"retries" mapstructure:"retries"`
}

// DefaultBatchSize is used when Config.BatchSize is not positive.
const DefaultBatchSize = 500

// Validate checks that the sink can be created.
func (c Config) Validate() error {
	switch {
	case len(c.Brokers) == 0:
		return errors.New(errors.ErrorTypeValidation, "kafka sink: brokers are required")
	case c.Topic == "":
		return errors.New(errors.ErrorTypeValidation, "kafka sink: topic is required")
	}
	return nil
}

// SaramaConfig builds the producer configuration.
func (c Config) SaramaConfig() *sarama.Config {
	config := sarama.NewConfig()

	switch c.Acks {
	case "1":
		config.Producer.RequiredAcks = sarama.WaitForLocal
	case "0":
		config.Producer.RequiredAcks = sarama.NoResponse
	default:
		config.Producer.RequiredAcks = sarama.WaitForAll
	}

	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	if c.Retries > 0 {
		config.Producer.Retry.Max = c.Retries
	}

	switch c.Compression {
	case "gzip":
		config.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		config.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		config.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		config.Producer.Compression = sarama.CompressionZSTD
		config.Version = sarama.V2_1_0_0
	default:
		config.Producer.Compression = sarama.CompressionNone
	}

	if c.ClientID != "" {
		config.ClientID = c.ClientID
	}
	if c.TLS {
		config.Net.TLS.Enable = true
		config.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return config
}

// Sink sends rows through a synchronous producer.
type Sink struct {
	producer sarama.SyncProducer
	cfg      Config
}

// New connects a producer to cfg.Brokers.
func New(cfg Config) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.SaramaConfig())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create kafka producer")
	}
	return NewWithProducer(producer, cfg), nil
}

// NewWithProducer wraps an existing producer. The sink owns it.
func NewWithProducer(producer sarama.SyncProducer, cfg Config) *Sink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Sink{producer: producer, cfg: cfg}
}

// Write sends every row of t and returns the number of messages sent.
// Sending stops at the first failed batch or when ctx is done.
func (s *Sink) Write(ctx context.Context, t *table.Table) (int, error) {
	header := s.cfg.Header
	if header == nil {
		header = t.ColumnNames()
	}
	cols := make([]*columnar.Column, len(header))
	for i, name := range header {
		col, err := t.Column(name)
		if err != nil {
			return 0, err
		}
		cols[i] = col
	}
	var key *columnar.Column
	if s.cfg.KeyColumn != "" {
		col, err := t.Column(s.cfg.KeyColumn)
		if err != nil {
			return 0, err
		}
		key = col
	}

	headers := []sarama.RecordHeader{
		{Key: []byte("content-type"), Value: []byte(ContentType)},
	}
	if runID, ok := ctx.Value(logger.RunIDKey).(string); ok && runID != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte("run-id"), Value: []byte(runID)})
	}

	sent := 0
	values := make([]string, len(cols))
	batch := make([]*sarama.ProducerMessage, 0, s.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.producer.SendMessages(batch); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to send kafka messages")
		}
		sent += len(batch)
		metrics.RowsWritten.WithLabelValues(FormatName).Add(float64(len(batch)))
		batch = batch[:0]
		return nil
	}

	now := time.Now()
	for r := 0; r < t.RowCount(); r++ {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		for i, col := range cols {
			values[i] = col.Get(r).String()
		}
		body, err := json.MarshalObject(header, values)
		if err != nil {
			return sent, errors.Wrap(err, errors.ErrorTypeData, "failed to encode row")
		}
		msg := &sarama.ProducerMessage{
			Topic:     s.cfg.Topic,
			Value:     sarama.ByteEncoder(body),
			Headers:   headers,
			Timestamp: now,
		}
		if key != nil {
			msg.Key = sarama.StringEncoder(key.Get(r).String())
		}
		batch = append(batch, msg)
		if len(batch) == s.cfg.BatchSize {
			if err := flush(); err != nil {
				return sent, err
			}
		}
	}
	if err := flush(); err != nil {
		return sent, err
	}

	logger.WithContext(ctx).Info("published table",
		zap.String("topic", s.cfg.Topic),
		zap.Int("messages", sent))
	return sent, nil
}

// Close closes the producer.
func (s *Sink) Close() error {
	if err := s.producer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close kafka producer")
	}
	return nil
}
