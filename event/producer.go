package event

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/gogo/protobuf/proto"
)

type Producer interface {
	Produce(ctx context.Context, msg *sarama.ProducerMessage) (int32, int64, error)
}

// ProduceProto marshals m and sends it to topic, partitioned by key.
func ProduceProto(ctx context.Context, p Producer, topic, key string, m proto.Message) error {
	b, err := proto.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", m, err)
	}
	_, _, err = p.Produce(ctx, &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("failed to produce to %s: %w", topic, err)
	}
	return nil
}
