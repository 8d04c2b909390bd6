package models

// Bag is a free-form JSON object whose values may be numbers, numeric
// strings, null or anything else.
type Bag map[string]any

// ChatRole is the author of a conversation turn
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatTurn is one message of prior conversation, most recent last
type ChatTurn struct {
	Role ChatRole `json:"role" validate:"chat_role"`
	Text string   `json:"text" validate:"max=4000"`
}

// FeedbackRating is the user's reaction to the previous insight
type FeedbackRating string

const (
	FeedbackPositive FeedbackRating = "positive"
	FeedbackNegative FeedbackRating = "negative"
)

// Feedback carries the rating of the previous insight
type Feedback struct {
	Rating FeedbackRating `json:"rating" validate:"feedback_rating"`
}

// InsightRequest is the body of POST /api/v1/insight
type InsightRequest struct {
	UserID       string     `json:"userId" validate:"required,max=128" jsonschema:"minLength=1,maxLength=128"`
	Question     string     `json:"question" validate:"required,max=2000" jsonschema:"minLength=1,maxLength=2000"`
	Lens         string     `json:"lens,omitempty" validate:"max=64"`
	BirthDate    string     `json:"birthDate,omitempty" validate:"max=64"`
	BirthTime    string     `json:"birthTime,omitempty" validate:"max=64"`
	BirthPlace   string     `json:"birthPlace,omitempty" validate:"max=200"`
	Metrics      Bag        `json:"metrics,omitempty"`
	Profile      Bag        `json:"profile,omitempty"`
	Preferences  Bag        `json:"preferences,omitempty"`
	Trends       Bag        `json:"trends,omitempty"`
	ChatHistory  []ChatTurn `json:"chatHistory,omitempty" validate:"max=200,dive"`
	IsVoiceInput bool       `json:"isVoiceInput,omitempty"`
	Feedback     *Feedback  `json:"feedback,omitempty" validate:"omitempty"`
	LocalHour    *int       `json:"localHour,omitempty" validate:"omitempty,min=0,max=23" jsonschema:"minimum=0,maximum=23"`
	Timezone     string     `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

// InsightResponse is the success body. Debug is only set outside production.
type InsightResponse struct {
	Insight string `json:"insight"`
	Debug   any    `json:"debug,omitempty"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}
