package models

import "time"

// PostCategory classifies what a post in the thread is doing.
type PostCategory string

const (
	CategoryHook       PostCategory = "hook"
	CategoryPrice      PostCategory = "price"
	CategoryNews       PostCategory = "news"
	CategoryGovernance PostCategory = "governance"
	CategoryAlpha      PostCategory = "alpha"
	CategoryInfo       PostCategory = "info"
	CategoryCTA        PostCategory = "cta"
)

// Post is a single numbered entry of a thread.
type Post struct {
	Index    int          `json:"index"`
	Total    int          `json:"total"`
	Body     string       `json:"body"`
	Hashtags []string     `json:"hashtags,omitempty"`
	Mentions []string     `json:"mentions,omitempty"`
	Category PostCategory `json:"category"`
}

// Source formats the sanitizer recognized in a model response.
const (
	SourceFormatJSON      = "json"
	SourceFormatHTMLError = "html-error"
	SourceFormatPlain     = "plain"
)

// SanitizedContent is the cleaned text extracted from a raw model response.
type SanitizedContent struct {
	Text         string   `json:"text"`
	SourceFormat string   `json:"source_format"`
	Warnings     []string `json:"warnings,omitempty"`
}

// SentimentSummary carries the per-signal and blended sentiment labels.
type SentimentSummary struct {
	Price   string `json:"price"`
	News    string `json:"news"`
	Overall string `json:"overall"`
}

// GeneratedArtifact is the persisted result of one generation run.
type GeneratedArtifact struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Topic       string           `json:"topic"`
	Tone        string           `json:"tone"`
	RawContent  string           `json:"raw_content"`
	Posts       []Post           `json:"posts"`
	Sentiment   SentimentSummary `json:"sentiment"`
	IsFallback  bool             `json:"is_fallback"`
	Watermarked bool             `json:"watermarked"`
	ModelID     string           `json:"model_id"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// UsageDecision is the gate's verdict for one generation attempt.
type UsageDecision struct {
	CanGenerate bool   `json:"can_generate"`
	Plan        string `json:"plan"`
	Used        int    `json:"used"`
	Limit       int    `json:"limit"`
	Remaining   int    `json:"remaining"`
}

// Subscription plans.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)
