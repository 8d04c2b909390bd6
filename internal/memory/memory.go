// Package memory holds per-user longitudinal coaching facts and the stores
// that persist them.
package memory

import (
	"context"
	"fmt"

	"github.com/benvon/insight-coach/internal/apperr"
	"github.com/benvon/insight-coach/internal/models"
)

// Sentiment is the user's most recent feedback
type Sentiment string

const (
	SentimentNone            Sentiment = ""
	SentimentTooMuchPressure Sentiment = "too_much_pressure"
	SentimentGood            Sentiment = "good"
)

// ProteinStreakThresholdG is the daily protein that extends a streak.
const ProteinStreakThresholdG = 140

// Memory is a snapshot of one user's counters and remembered facts
type Memory struct {
	DaysActive            int       `json:"daysActive"`
	ProteinStreakDays     int       `json:"proteinStreakDays"`
	FavoriteSnack         string    `json:"favoriteSnack,omitempty"`
	WorkoutTimePreference string    `json:"workoutTimePreference,omitempty"`
	Goal                  string    `json:"goal,omitempty"`
	LastFeedbackSentiment Sentiment `json:"lastFeedbackSentiment,omitempty"`
}

// IsEmpty reports whether nothing has been remembered yet.
func (m Memory) IsEmpty() bool {
	return m == Memory{}
}

// Update is what one answered request contributes to memory
type Update struct {
	ProteinG *float64              `json:"proteinG,omitempty"`
	Feedback models.FeedbackRating `json:"feedback,omitempty"`
}

// Apply returns prev advanced by one active day. The protein streak grows
// when today's protein reaches the threshold and resets to zero otherwise.
// Feedback overwrites the sentiment only when supplied.
func Apply(prev Memory, u Update) Memory {
	next := prev
	next.DaysActive++

	if u.ProteinG != nil && *u.ProteinG >= ProteinStreakThresholdG {
		next.ProteinStreakDays++
	} else {
		next.ProteinStreakDays = 0
	}

	switch u.Feedback {
	case models.FeedbackNegative:
		next.LastFeedbackSentiment = SentimentTooMuchPressure
	case models.FeedbackPositive:
		next.LastFeedbackSentiment = SentimentGood
	}
	return next
}

// Store persists Memory by user id. Get returns an empty Memory and no error
// for an unknown user.
type Store interface {
	Get(ctx context.Context, userID string) (Memory, error)
	Set(ctx context.Context, userID string, m Memory) error
	Delete(ctx context.Context, userID string) error
}

// Record reads the user's memory, applies u and writes it back. A failed read
// aborts the update so stored counters are never overwritten from an empty
// snapshot.
func Record(ctx context.Context, store Store, userID string, u Update) (Memory, error) {
	prev, err := store.Get(ctx, userID)
	if err != nil {
		return Memory{}, apperr.Persistence(err, "failed to read memory")
	}

	next := Apply(prev, u)
	if err := store.Set(ctx, userID, next); err != nil {
		return Memory{}, apperr.Persistence(err, "failed to write memory")
	}
	return next, nil
}

func validateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}
