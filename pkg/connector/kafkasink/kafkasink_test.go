package kafkasink

import (
	"context"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/table"
)

func people(t *testing.T) *table.Table {
	t.Helper()
	b := table.NewBuilder("id", "name")
	require.NoError(t, b.AddRow("1", "Alice"))
	require.NoError(t, b.AddRow("2", "Bob"))
	require.NoError(t, b.AddRow("3", "Carol"))
	return b.Build()
}

func expectJSON(want string) mocks.ValueChecker {
	return func(val []byte) error {
		if string(val) != want {
			return fmt.Errorf("got %s, want %s", val, want)
		}
		return nil
	}
}

func TestWriteSendsOneMessagePerRow(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(expectJSON(`{"name":"Alice","id":"1"}`))
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(expectJSON(`{"name":"Bob","id":"2"}`))
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(expectJSON(`{"name":"Carol","id":"3"}`))

	sink := NewWithProducer(sp, Config{Topic: "people", Header: []string{"name", "id"}, BatchSize: 2})
	n, err := sink.Write(context.Background(), people(t))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, sink.Close())
}

func TestWriteFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewWithProducer(sp, Config{Topic: "people", BatchSize: 1})
	n, err := sink.Write(context.Background(), people(t))
	assert.Equal(t, 0, n)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	require.NoError(t, sink.Close())
}

func TestWriteMissingColumns(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	defer func() { require.NoError(t, sp.Close()) }()

	_, err := NewWithProducer(sp, Config{Topic: "p", KeyColumn: "email"}).Write(context.Background(), people(t))
	assert.ErrorIs(t, err, errors.ErrMissingColumn)

	_, err = NewWithProducer(sp, Config{Topic: "p", Header: []string{"age"}}).Write(context.Background(), people(t))
	assert.ErrorIs(t, err, errors.ErrMissingColumn)
}

// recordingProducer keeps every message it is asked to send.
type recordingProducer struct {
	sarama.SyncProducer
	sent []*sarama.ProducerMessage
}

func (p *recordingProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	for _, m := range msgs {
		cp := *m
		p.sent = append(p.sent, &cp)
	}
	return nil
}

func TestMessageKeyAndHeaders(t *testing.T) {
	rp := &recordingProducer{}
	ctx := context.WithValue(context.Background(), logger.RunIDKey, "run-42")

	n, err := NewWithProducer(rp, Config{Topic: "people", KeyColumn: "id"}).Write(ctx, people(t))
	require.NoError(t, err)
	require.Equal(t, 3, n)

	msg := rp.sent[1]
	assert.Equal(t, "people", msg.Topic)
	key, err := msg.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "2", string(key))
	val, err := msg.Value.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"id":"2","name":"Bob"}`, string(val))
	assert.Equal(t, []sarama.RecordHeader{
		{Key: []byte("content-type"), Value: []byte(ContentType)},
		{Key: []byte("run-id"), Value: []byte("run-42")},
	}, msg.Headers)
}

func TestWriteStopsOnCancelledContext(t *testing.T) {
	rp := &recordingProducer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := NewWithProducer(rp, Config{Topic: "p"}).Write(ctx, people(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)
	assert.Empty(t, rp.sent)
}

func TestConfig(t *testing.T) {
	assert.True(t, errors.IsType(Config{Topic: "t"}.Validate(), errors.ErrorTypeValidation))
	assert.True(t, errors.IsType(Config{Brokers: []string{"b:9092"}}.Validate(), errors.ErrorTypeValidation))
	assert.NoError(t, Config{Brokers: []string{"b:9092"}, Topic: "t"}.Validate())

	sc := Config{Acks: "1", Compression: "zstd", ClientID: "tabula", Retries: 7}.SaramaConfig()
	assert.Equal(t, sarama.WaitForLocal, sc.Producer.RequiredAcks)
	assert.Equal(t, sarama.CompressionZSTD, sc.Producer.Compression)
	assert.Equal(t, "tabula", sc.ClientID)
	assert.Equal(t, 7, sc.Producer.Retry.Max)
	assert.True(t, sc.Producer.Return.Successes)
	require.NoError(t, sc.Validate())

	_, err := New(Config{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
