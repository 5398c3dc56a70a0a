package contextwindow

import (
	"math"
	"time"
	"unicode/utf8"

	"tutorchat/internal/domain/message"
)

const (
	recencyHorizonHours = 24.0
	lengthSaturation    = 500.0
	reactionWeight      = 0.2
)

// Weights combines the four relevance signals. The shipped values are a
// retention policy, not a derived statistic: assistant turns are presumed
// more valuable to keep than user turns, which beat system turns.
type Weights struct {
	Recency    float64
	Length     float64
	Role       float64
	Engagement float64
}

// DefaultWeights returns the default signal weighting.
func DefaultWeights() Weights {
	return Weights{
		Recency:    0.4,
		Length:     0.2,
		Role:       0.3,
		Engagement: 0.1,
	}
}

// Scorer computes the relevance of one message against its conversation.
type Scorer struct {
	weights Weights

	// now is swappable for tests
	now func() time.Time
}

// NewScorer creates a scorer with the given weights.
func NewScorer(weights Weights) *Scorer {
	return &Scorer{weights: weights, now: time.Now}
}

// Score returns the message's relevance in [0,1], rounded to two decimals.
// Pure for a fixed clock: the same (message, history) pair always yields
// the same score.
func (s *Scorer) Score(msg *message.Message, all []message.Message) float64 {
	recency := s.recencyScore(msg.CreatedAt)
	// Runes, not bytes, so the length signal agrees with the token
	// estimator about how long a message is.
	length := math.Min(1, float64(utf8.RuneCountInString(msg.Content))/lengthSaturation)
	role := rolePrior(msg.Role)
	engagement := math.Min(1, float64(msg.ReactionCount())*reactionWeight)

	score := s.weights.Recency*recency +
		s.weights.Length*length +
		s.weights.Role*role +
		s.weights.Engagement*engagement

	return math.Round(score*100) / 100
}

// recencyScore decays linearly over 24 hours; anything older scores zero
// on this axis.
func (s *Scorer) recencyScore(createdAt time.Time) float64 {
	hours := s.now().Sub(createdAt).Hours()
	return math.Max(0, 1-hours/recencyHorizonHours)
}

func rolePrior(role message.Role) float64 {
	switch role {
	case message.RoleAssistant:
		return 0.8
	case message.RoleUser:
		return 0.6
	case message.RoleSystem:
		return 0.4
	default:
		return 0
	}
}
