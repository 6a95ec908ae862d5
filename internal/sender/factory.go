package sender

import (
	"fmt"
	"strings"

	"ondo/internal/config"
	"ondo/internal/logger"
)

// NewSender creates a Sender based on the configuration.
func NewSender(cfg *config.Config) (Sender, error) {
	log := logger.WithComponent("sender-factory")

	senderType := strings.ToLower(cfg.SenderType)
	if senderType == "" {
		senderType = "file"
	}

	log.Info().
		Str("sender_type", senderType).
		Msg("Creating sender")

	switch senderType {
	case "file":
		return NewFileSender(cfg.File)
	case "redis":
		return NewRedisSender(cfg.Redis, cfg.SOCKSProxy)
	case "kafka":
		return NewKafkaSender(cfg.Kafka, cfg.SOCKSProxy)
	default:
		return nil, fmt.Errorf("unknown sender type: %s (supported: file, redis, kafka)", senderType)
	}
}
