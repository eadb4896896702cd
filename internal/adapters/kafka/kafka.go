package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"spacehub/internal/models"

	"github.com/IBM/sarama"
)

func InitKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner // same scope, same partition
	config.Version = sarama.V2_0_0_0
	config.ClientID = "spacehub"
	config.Producer.MaxMessageBytes = 1000000

	return sarama.NewSyncProducer(brokers, config)
}

// ChatEvent is the record written for every persisted chat message
type ChatEvent struct {
	ID          string    `json:"id"`
	Content     string    `json:"content"`
	SenderID    string    `json:"senderId"`
	SpaceID     *string   `json:"spaceId,omitempty"`
	InstanceID  *string   `json:"instanceId,omitempty"`
	ChannelID   *string   `json:"channelId,omitempty"`
	RecipientID *string   `json:"recipientId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChatPublisher streams persisted chat messages to a Kafka topic
type ChatPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewChatPublisher(brokers []string, topic string) (*ChatPublisher, error) {
	producer, err := InitKafkaProducer(brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewChatPublisherWithProducer(producer, topic), nil
}

func NewChatPublisherWithProducer(producer sarama.SyncProducer, topic string) *ChatPublisher {
	return &ChatPublisher{
		producer: producer,
		topic:    topic,
	}
}

// PublishChat sends msg keyed by its delivery scope so one space or one
// conversation always lands on the same partition
func (p *ChatPublisher) PublishChat(ctx context.Context, msg *models.ChatMessage) error {
	value, err := json.Marshal(ChatEvent{
		ID:          msg.ID,
		Content:     msg.Content,
		SenderID:    msg.SenderID,
		SpaceID:     msg.SpaceID,
		InstanceID:  msg.InstanceID,
		ChannelID:   msg.ChannelID,
		RecipientID: msg.RecipientID,
		CreatedAt:   msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(scopeKey(msg)),
		Value: sarama.ByteEncoder(value),
	})
	if err != nil {
		return fmt.Errorf("failed to publish chat event: %w", err)
	}

	slog.Debug("Chat event published", "messageID", msg.ID, "topic", p.topic, "partition", partition, "offset", offset)
	return nil
}

func (p *ChatPublisher) Close() error {
	return p.producer.Close()
}

func scopeKey(msg *models.ChatMessage) string {
	if msg.IsDirect() {
		a, b := msg.SenderID, models.Deref(msg.RecipientID)
		if b < a {
			a, b = b, a
		}
		return "dm:" + a + ":" + b
	}
	return "space:" + models.Deref(msg.SpaceID)
}
