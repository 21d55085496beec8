package kafka

import (
	"fmt"

	"github.com/segmentio/kafka-go"
)

// EnsureTopicExists creates the scan topic if it is not already present.
// Best effort: a broker that disallows topic creation still works as
// long as the topic was provisioned out of band.
func EnsureTopicExists(brokers []string, topic string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && err.Error() == "kafka server: topic already exists" {
		return nil
	}
	return err
}
