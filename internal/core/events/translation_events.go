package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeTranslationChanged   = "translation.changed"
	EventTypeTranslationPublished = "translation.published"
)

// TranslationChangedEvent is raised by CMS edits. Categories lists every namespace
// the edit touched; an empty list means all namespaces.
type TranslationChangedEvent struct {
	BaseEvent
	KeyID      string   `json:"key_id"`
	Key        string   `json:"key"`
	Categories []string `json:"categories"`
}

func NewTranslationChangedEvent(keyID, key string, categories ...string) *TranslationChangedEvent {
	return &TranslationChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTranslationChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"key_id":     keyID,
				"key":        key,
				"categories": categories,
			},
		},
		KeyID:      keyID,
		Key:        key,
		Categories: categories,
	}
}

type TranslationPublishedEvent struct {
	BaseEvent
	Version        string `json:"version"`
	PublicationID  string `json:"publication_id"`
	PublishedCount int    `json:"published_count"`
}

func NewTranslationPublishedEvent(version, publicationID string, publishedCount int) *TranslationPublishedEvent {
	return &TranslationPublishedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeTranslationPublished,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"version":         version,
				"publication_id":  publicationID,
				"published_count": publishedCount,
			},
		},
		Version:        version,
		PublicationID:  publicationID,
		PublishedCount: publishedCount,
	}
}
