package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"motel/config"
)

func TestNew_SharesOneWriter(t *testing.T) {
	cfg := &config.Config{}
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	producer := New(cfg)

	impl, ok := producer.(*kafkaProducerImpl)
	assert.True(t, ok)
	assert.NotNil(t, impl.writer)
	// The topic stays on the message, not on the writer, so one writer
	// serves every publish.
	assert.Empty(t, impl.writer.Topic)
	assert.True(t, impl.writer.Async)
	assert.True(t, impl.writer.AllowAutoTopicCreation)
}

func TestMessage_ToKafkaMessage(t *testing.T) {
	t.Run("marshals the value as JSON", func(t *testing.T) {
		message := Message{
			Key:   "room-1",
			Value: map[string]string{"event_type": "room.released"},
		}

		msg, err := message.ToKafkaMessage()

		assert.NoError(t, err)
		assert.Equal(t, []byte("room-1"), msg.Key)
		assert.JSONEq(t, `{"event_type":"room.released"}`, string(msg.Value))
	})

	t.Run("rejects an unmarshalable value", func(t *testing.T) {
		message := Message{
			Key:   "room-1",
			Value: make(chan int),
		}

		_, err := message.ToKafkaMessage()

		assert.Error(t, err)
	})
}
