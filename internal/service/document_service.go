package service

import (
	"context"
	"encoding/json"

	"health-agent-be/internal/dto"
	"health-agent-be/internal/pkg/logger"
)

type IDocumentService interface {
	Ingest(ctx context.Context, req *dto.IngestDocumentRequest) error
}

// documentService accepts documents for the knowledge base and hands them to
// the ingestion consumer via the message bus. Chunking and embedding happen
// asynchronously so the API returns immediately.
type documentService struct {
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewDocumentService(publisherService IPublisherService, log logger.ILogger) IDocumentService {
	return &documentService{
		publisherService: publisherService,
		logger:           log,
	}
}

func (s *documentService) Ingest(ctx context.Context, req *dto.IngestDocumentRequest) error {
	title := req.Title
	if title == "" {
		title = req.Source
	}

	payload, err := json.Marshal(dto.PublishIngestDocumentMessage{
		Source:  req.Source,
		Title:   title,
		Content: req.Content,
	})
	if err != nil {
		return err
	}

	if err := s.publisherService.Publish(ctx, payload); err != nil {
		return err
	}

	s.logger.Info("DocumentService", "Document queued for ingestion", map[string]interface{}{
		"source": req.Source,
		"length": len(req.Content),
	})
	return nil
}
