package engine

import (
	"strconv"

	"github.com/daryltucker/mqtt-bench/internal/model"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "test"

// GenerateMessages builds the ordered message sequence every client replays.
// Topics are "<prefix>/1" .. "<prefix>/count". All messages share one
// zero-filled payload of exactly size bytes.
func GenerateMessages(count, size int, qos byte, retain bool, prefix string) []model.Message {
	if count <= 0 {
		return nil
	}
	if size < 0 {
		size = 0
	}
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}

	payload := make([]byte, size)
	msgs := make([]model.Message, count)
	for i := range msgs {
		msgs[i] = model.Message{
			Topic:   prefix + "/" + strconv.Itoa(i+1),
			Payload: payload,
			QoS:     qos,
			Retain:  retain,
		}
	}
	return msgs
}
