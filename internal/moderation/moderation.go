// Package moderation pre-filters submissions through the OpenAI moderation
// endpoint before a job is created.
package moderation

import (
	"context"
	"log"

	"github.com/reelcraft/api/internal/client"
)

// Checker flags unsafe content. It fails open: any moderation error, or an
// unconfigured client, lets the submission through.
type Checker struct {
	client   *client.OpenAIClient
	minScore float64
}

func NewChecker(openaiClient *client.OpenAIClient, minScore float64) *Checker {
	return &Checker{
		client:   openaiClient,
		minScore: minScore,
	}
}

// Flagged reports whether the text violates content policy.
func (m *Checker) Flagged(ctx context.Context, text string) bool {
	if m == nil || m.client == nil || !m.client.IsConfigured() {
		return false
	}

	flagged, maxScore, err := m.client.Moderate(ctx, text)
	if err != nil {
		log.Printf("Moderation check failed, allowing content: %v", err)
		return false
	}

	if maxScore >= m.minScore {
		return true
	}
	return flagged
}
