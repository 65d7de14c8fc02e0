package dto

// IngestDocumentRequest submits one medical reference document for indexing.
// Source is the logical identifier chunks are grouped under; re-submitting
// the same source replaces its previous chunks.
type IngestDocumentRequest struct {
	Source  string `json:"source" validate:"required,min=1,max=255"`
	Title   string `json:"title" validate:"omitempty,max=255"`
	Content string `json:"content" validate:"required,min=1"`
}

// PublishIngestDocumentMessage is the payload carried on the ingestion topic.
type PublishIngestDocumentMessage struct {
	Source  string `json:"source"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
