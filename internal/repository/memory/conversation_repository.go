package memory

import (
	"time"

	"github.com/patrickmn/go-cache"

	"ai-researcher-be/pkg/llm"
)

// ConversationRepository keeps per-thread chat history in process memory.
// Threads expire after an hour of inactivity; nothing is persisted.
type ConversationRepository struct {
	cache *cache.Cache
}

func NewConversationRepository() *ConversationRepository {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ConversationRepository{
		cache: c,
	}
}

func (r *ConversationRepository) Get(threadID string) []llm.Message {
	if x, found := r.cache.Get(threadID); found {
		return x.([]llm.Message)
	}
	return nil
}

func (r *ConversationRepository) Append(threadID string, messages ...llm.Message) {
	history := r.Get(threadID)
	history = append(history, messages...)
	r.cache.Set(threadID, history, cache.DefaultExpiration)
}

func (r *ConversationRepository) Delete(threadID string) {
	r.cache.Delete(threadID)
}
