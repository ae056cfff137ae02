// Package prompt composes deterministic model prompts from generation
// options and market context.
package prompt

import (
	"fmt"
	"strings"

	"ThreadForge/internal/domain/models"
)

const notAvailable = "not available"

// Builder renders the system and user prompts for a generation run.
// Output is a pure function of its inputs: the same options and bundle
// always yield byte-identical prompts.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// SystemPrompt describes the persona and the output contract.
func (b *Builder) SystemPrompt(opts models.GenerationOptions) string {
	return fmt.Sprintf(`You are a crypto Twitter content strategist writing in a %s voice.
You produce Twitter threads about crypto assets and protocols.

Rules:
- Write a thread of 6 to 10 posts.
- Separate posts with a blank line.
- Prefix each post with its position as "N/M:" (for example "1/8:").
- Each post must be under 280 characters.
- Use concrete numbers from the provided market data, never invent figures.
- Finish with a call to action post.
- Respond with the thread text only, no preamble and no commentary.`, toneVoice(opts.Tone))
}

// Build renders the user prompt for the given options and market bundle.
// Missing sections are marked explicitly so the model does not hallucinate.
func (b *Builder) Build(opts models.GenerationOptions, bundle *models.MarketDataBundle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Write a Twitter thread about %s.\n\n", opts.Topic)
	fmt.Fprintf(&sb, "Angle: %s\n", angleGuidance(opts.Sentiment, opts.Timeframe))
	fmt.Fprintf(&sb, "Timeframe focus: %s\n\n", timeframeLabel(opts.Timeframe))

	if opts.IncludePricePredictions || opts.IncludeTechnicalAnalysis {
		sb.WriteString("Market data:\n")
		sb.WriteString(priceSection(bundle))
		sb.WriteString("\n")
	}
	if opts.IncludePricePredictions {
		sb.WriteString("Price outlook:\n")
		sb.WriteString(predictionSection(bundle, opts.Timeframe))
		sb.WriteString("\n")
	}
	if opts.IncludeTechnicalAnalysis {
		sb.WriteString("Technical picture:\n")
		sb.WriteString(technicalSection(bundle))
		sb.WriteString("\n")
	}
	if opts.IncludeNews {
		sb.WriteString("Recent news:\n")
		sb.WriteString(newsSection(bundle))
		sb.WriteString("\n")
	}
	if opts.IncludeGovernance {
		sb.WriteString("Governance activity:\n")
		sb.WriteString(governanceSection(bundle))
		sb.WriteString("\n")
	}

	sb.WriteString("Remember: blank line between posts, \"N/M:\" prefixes, under 280 characters each.")
	return sb.String()
}

func priceSection(bundle *models.MarketDataBundle) string {
	if bundle == nil || bundle.Token == nil {
		return "- " + notAvailable + "\n"
	}
	t := bundle.Token
	var sb strings.Builder
	fmt.Fprintf(&sb, "- %s (%s) price: $%.4f\n", t.Name, strings.ToUpper(t.Symbol), t.PriceUSD)
	fmt.Fprintf(&sb, "- 24h change: %+.2f%%\n", t.Change24h)
	fmt.Fprintf(&sb, "- 24h range: $%.4f - $%.4f\n", t.Low24h, t.High24h)
	fmt.Fprintf(&sb, "- market cap: $%.0f\n", t.MarketCapUSD)
	fmt.Fprintf(&sb, "- 24h volume: $%.0f\n", t.Volume24hUSD)
	if t.ATHUSD > 0 {
		fmt.Fprintf(&sb, "- all-time high: $%.4f\n", t.ATHUSD)
	}
	return sb.String()
}

// predictionSection anchors any outlook to observed numbers so the model
// cannot invent price targets.
func predictionSection(bundle *models.MarketDataBundle, timeframe string) string {
	if bundle == nil || bundle.Token == nil {
		return "- " + notAvailable + "\n"
	}
	t := bundle.Token
	var sb strings.Builder
	fmt.Fprintf(&sb, "- sketch a plausible price range for %s anchored to the 24h band $%.4f - $%.4f\n", timeframeLabel(timeframe), t.Low24h, t.High24h)
	sb.WriteString("- frame every target as a scenario with conditions, never a certainty\n")
	return sb.String()
}

func technicalSection(bundle *models.MarketDataBundle) string {
	if bundle == nil || bundle.Token == nil {
		return "- " + notAvailable + "\n"
	}
	t := bundle.Token
	var sb strings.Builder
	fmt.Fprintf(&sb, "- treat $%.4f as near-term support and $%.4f as near-term resistance\n", t.Low24h, t.High24h)
	if t.ATHUSD > 0 {
		fmt.Fprintf(&sb, "- distance from the $%.4f all-time high: %+.1f%%\n", t.ATHUSD, (t.PriceUSD-t.ATHUSD)/t.ATHUSD*100)
	}
	if t.MarketCapUSD > 0 {
		fmt.Fprintf(&sb, "- 24h volume is %.1f%% of market cap\n", t.Volume24hUSD/t.MarketCapUSD*100)
	}
	return sb.String()
}

func newsSection(bundle *models.MarketDataBundle) string {
	if bundle == nil || len(bundle.News) == 0 {
		return "- " + notAvailable + "\n"
	}
	var sb strings.Builder
	for _, n := range bundle.News {
		fmt.Fprintf(&sb, "- %s (%s)\n", n.Title, n.Source)
	}
	return sb.String()
}

func governanceSection(bundle *models.MarketDataBundle) string {
	if bundle == nil || len(bundle.Proposals) == 0 {
		return "- " + notAvailable + "\n"
	}
	var sb strings.Builder
	for _, p := range bundle.Proposals {
		fmt.Fprintf(&sb, "- %s [%s, %d votes]\n", p.Title, p.State, p.TotalVotes)
	}
	return sb.String()
}

func toneVoice(tone string) string {
	switch tone {
	case models.ToneBullish:
		return "confident, optimistic"
	case models.ToneBearish:
		return "skeptical, risk-aware"
	case models.ToneNeutral:
		return "balanced, analytical"
	case models.ToneInfluencer:
		return "punchy, hype-driven"
	default:
		return "measured, expert"
	}
}

func timeframeLabel(timeframe string) string {
	switch timeframe {
	case models.TimeframeShort:
		return "next days to weeks"
	case models.TimeframeLong:
		return "multi-year horizon"
	default:
		return "coming months"
	}
}

// angleGuidance maps each sentiment and timeframe pair to a narrative
// instruction so the model cannot drift between runs.
func angleGuidance(sentiment, timeframe string) string {
	switch sentiment {
	case models.SentimentBullish:
		switch timeframe {
		case models.TimeframeShort:
			return "momentum is building, highlight near-term catalysts"
		case models.TimeframeLong:
			return "strong long-term thesis, focus on fundamentals and adoption"
		default:
			return "uptrend forming, connect recent strength to mid-term drivers"
		}
	case models.SentimentBearish:
		switch timeframe {
		case models.TimeframeShort:
			return "downside risk is elevated, flag what could break soon"
		case models.TimeframeLong:
			return "structural headwinds, question the long-term value accrual"
		default:
			return "weakness persisting, examine what must change to recover"
		}
	default:
		switch timeframe {
		case models.TimeframeShort:
			return "range-bound action, lay out both sides of the near-term setup"
		case models.TimeframeLong:
			return "open long-term question, weigh bull and bear cases evenly"
		default:
			return "mixed signals, present the data and let readers decide"
		}
	}
}
