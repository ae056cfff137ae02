package models

// Sentiment direction requested by the caller or derived from market data.
const (
	SentimentBullish = "bullish"
	SentimentNeutral = "neutral"
	SentimentBearish = "bearish"
)

// Timeframe the thread should focus on.
const (
	TimeframeShort  = "short"
	TimeframeMedium = "medium"
	TimeframeLong   = "long"
)

// Voice presets for the generated thread.
const (
	ToneExpert     = "expert"
	ToneBullish    = "bullish"
	ToneBearish    = "bearish"
	ToneNeutral    = "neutral"
	ToneInfluencer = "influencer"
)

// GenerationOptions controls a single thread generation run.
type GenerationOptions struct {
	Topic                    string `json:"topic"`
	Tone                     string `json:"tone"`
	Sentiment                string `json:"sentiment"`
	Timeframe                string `json:"timeframe"`
	IncludePricePredictions  bool   `json:"include_price_predictions"`
	IncludeTechnicalAnalysis bool   `json:"include_technical_analysis"`
	IncludeNews              bool   `json:"include_news"`
	IncludeGovernance        bool   `json:"include_governance"`
}

// GenerateThreadRequest is the API payload for POST /api/threads.
type GenerateThreadRequest struct {
	UserID                   string `json:"user_id" validate:"required"`
	Topic                    string `json:"topic" validate:"required,min=2,max=120"`
	Tone                     string `json:"tone" default:"expert" validate:"oneof=expert bullish bearish neutral influencer"`
	Sentiment                string `json:"sentiment" default:"neutral" validate:"oneof=bullish neutral bearish"`
	Timeframe                string `json:"timeframe" default:"medium" validate:"oneof=short medium long"`
	IncludePricePredictions  *bool  `json:"include_price_predictions" default:"true"`
	IncludeTechnicalAnalysis *bool  `json:"include_technical_analysis" default:"true"`
	IncludeNews              *bool  `json:"include_news" default:"true"`
	IncludeGovernance        *bool  `json:"include_governance" default:"false"`
}

// Options converts the API payload into pipeline options.
func (r *GenerateThreadRequest) Options() GenerationOptions {
	boolOf := func(p *bool, def bool) bool {
		if p == nil {
			return def
		}
		return *p
	}
	return GenerationOptions{
		Topic:                    r.Topic,
		Tone:                     r.Tone,
		Sentiment:                r.Sentiment,
		Timeframe:                r.Timeframe,
		IncludePricePredictions:  boolOf(r.IncludePricePredictions, true),
		IncludeTechnicalAnalysis: boolOf(r.IncludeTechnicalAnalysis, true),
		IncludeNews:              boolOf(r.IncludeNews, true),
		IncludeGovernance:        boolOf(r.IncludeGovernance, false),
	}
}
