package kafka

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Dialer opens broker connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (Conn, error)
}

// Conn is the subset of *kafka.Conn used for topic management.
type Conn interface {
	Controller() (kafka.Broker, error)
	Close() error
	CreateTopics(topics ...kafka.TopicConfig) error
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
}

// KafkaDialer adapts *kafka.Dialer.
type KafkaDialer struct{ *kafka.Dialer }

func (d *KafkaDialer) DialContext(ctx context.Context, network, address string) (Conn, error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// TopicConfig describes the topic to ensure.
type TopicConfig struct {
	Name              string
	Partitions        int // default: 3
	ReplicationFactor int // default: 1
}

// TopicCreator makes sure the price topic exists before publishing starts.
// Every failure is logged; none is fatal, since brokers may auto-create.
type TopicCreator struct {
	dialer    Dialer
	logger    *zap.Logger
	sleep     func(time.Duration)
	waitTries int
}

func NewTopicCreator(dialer Dialer, logger *zap.Logger) *TopicCreator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TopicCreator{
		dialer:    dialer,
		logger:    logger,
		sleep:     time.Sleep,
		waitTries: 5,
	}
}

// Ensure dials the first reachable broker, asks the controller to create the
// topic and waits briefly for its partitions to appear. It reports whether the
// topic was seen.
func (tc *TopicCreator) Ensure(ctx context.Context, brokers []string, topic TopicConfig) bool {
	if topic.Partitions <= 0 {
		topic.Partitions = 3
	}
	if topic.ReplicationFactor <= 0 {
		topic.ReplicationFactor = 1
	}

	var conn Conn
	var err error
	for _, addr := range brokers {
		conn, err = tc.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			break
		}
	}
	if conn == nil {
		tc.logger.Warn("failed to dial brokers", zap.Strings("brokers", brokers), zap.Error(err))
		return false
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		tc.logger.Warn("failed to get controller", zap.Error(err))
		return false
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := tc.dialer.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		tc.logger.Warn("failed to dial controller", zap.String("addr", controllerAddr), zap.Error(err))
		return false
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic.Name,
		NumPartitions:     topic.Partitions,
		ReplicationFactor: topic.ReplicationFactor,
	})
	if err != nil {
		tc.logger.Info("topic creation finished (might already exist)", zap.String("topic", topic.Name), zap.Error(err))
	} else {
		tc.logger.Info("topic creation request sent",
			zap.String("topic", topic.Name),
			zap.Int("partitions", topic.Partitions),
			zap.Int("replication_factor", topic.ReplicationFactor),
		)
	}

	return tc.waitForTopic(conn, topic.Name)
}

func (tc *TopicCreator) waitForTopic(conn Conn, name string) bool {
	for i := 0; i < tc.waitTries; i++ {
		partitions, err := conn.ReadPartitions(name)
		if err == nil && len(partitions) > 0 {
			tc.logger.Info("topic is ready", zap.String("topic", name), zap.Int("partitions", len(partitions)))
			return true
		}
		tc.sleep(200 * time.Millisecond)
	}
	tc.logger.Warn("timed out waiting for topic", zap.String("topic", name))
	return false
}
