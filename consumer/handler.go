package consumer

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

type MessageHandler func(ctx context.Context, msg *sarama.ConsumerMessage) error

// GroupHandler hands every claimed message to a MessageHandler. Offsets are
// marked even when the handler fails; the handler owns its own retries.
type GroupHandler struct {
	handler MessageHandler
	log     loggerv2.Logger
}

func NewGroupHandler(handler MessageHandler, log loggerv2.Logger) sarama.ConsumerGroupHandler {
	return &GroupHandler{
		handler: handler,
		log:     log,
	}
}

func (h *GroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.log.InfoContext(session.Context(), "Consumer group session setup",
		logger.String("member", session.MemberID()),
		logger.String("claims", fmt.Sprintf("%v", session.Claims())))
	return nil
}

func (h *GroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.log.InfoContext(session.Context(), "Consumer group session cleanup", logger.String("member", session.MemberID()))
	return nil
}

func (h *GroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			ctx := loggerv2.ContextWithFields(session.Context(),
				logger.String("topic", msg.Topic),
				logger.Any("partition", msg.Partition),
				logger.Any("offset", msg.Offset))
			if err := h.handler(ctx, msg); err != nil {
				h.log.ErrorContext(ctx, "Failed to process message", logger.Error(err))
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
