package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"health-agent-be/internal/config"
	"health-agent-be/internal/dto"
	"health-agent-be/pkg/embedding"
	"health-agent-be/pkg/events"
	"health-agent-be/pkg/knowledge"
	pktNats "health-agent-be/pkg/nats"
	"health-agent-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the ingestion topic: each message is one document
// to chunk, embed, and swap into the knowledge index.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	chunkSize         int
	chunkOverlap      int
	knowledgeStore    knowledge.Store
	embeddingProvider embedding.EmbeddingProvider
	eventPublisher    *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	cfg config.RagConfig,
	knowledgeStore knowledge.Store,
	embeddingProvider embedding.EmbeddingProvider,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         cfg.IngestTopic,
		chunkSize:         cfg.ChunkSize,
		chunkOverlap:      cfg.ChunkOverlap,
		knowledgeStore:    knowledgeStore,
		embeddingProvider: embeddingProvider,
		eventPublisher:    eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal ingest message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Ingesting document %s (content length: %d)", payload.Source, len(payload.Content))

	chunks := utils.SplitText(payload.Content, cs.chunkSize, cs.chunkOverlap)
	log.Printf("[INFO] Content split into %d chunks", len(chunks))

	newChunks := make([]knowledge.Chunk, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(chunk, embedding.TaskTypeDocument)
		if err != nil {
			log.Printf("[ERROR] Failed to generate embedding for chunk %d of %s: %v", i, payload.Source, err)
			msg.Nack() // Nack for retriable errors
			return
		}

		newChunks = append(newChunks, knowledge.Chunk{
			ID:         uuid.New(),
			Source:     payload.Source,
			Title:      payload.Title,
			Content:    chunk,
			Embedding:  res.Embedding.Values,
			ChunkIndex: i,
		})
	}

	if err := cs.knowledgeStore.ReplaceSource(ctx, payload.Source, newChunks); err != nil {
		log.Printf("[ERROR] Failed to store chunks for %s: %v", payload.Source, err)
		msg.Nack()
		return
	}

	if cs.eventPublisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := cs.eventPublisher.Publish(pubCtx, events.NewDocumentIngested(payload.Source, len(newChunks))); err != nil {
			log.Printf("[WARN] Failed to publish DOCUMENT_INGESTED event: %v", err)
		}
		cancel()
	}

	log.Printf("[SUCCESS] Document indexed: %d chunks for %s", len(newChunks), payload.Source)
	msg.Ack()
}
