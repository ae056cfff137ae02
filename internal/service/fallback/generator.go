// Package fallback produces a deterministic template thread when the model
// gateway cannot.
package fallback

import (
	"fmt"
	"strings"

	"ThreadForge/internal/domain/models"
)

// ThreadLength is fixed: template threads always have this many posts.
const ThreadLength = 10

// Generator renders a template thread from options and market data alone.
// It is a pure function: no clock, no randomness, no I/O, so the same
// inputs always produce the same thread.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the ten-post template thread.
func (g *Generator) Generate(opts models.GenerationOptions, bundle *models.MarketDataBundle) []models.Post {
	topic := strings.TrimSpace(opts.Topic)
	tag := "#" + sanitizeTag(topic)

	bodies := []struct {
		text     string
		category models.PostCategory
	}{
		{fmt.Sprintf("Everyone is talking about %s right now. Here is what the data actually says. A thread. %s", topic, tag), models.CategoryHook},
		{priceBody(topic, bundle), models.CategoryPrice},
		{rangeBody(bundle), models.CategoryPrice},
		{marketCapBody(bundle), models.CategoryInfo},
		{newsBody(topic, bundle), models.CategoryNews},
		{secondNewsBody(bundle), models.CategoryNews},
		{governanceBody(topic, bundle), models.CategoryGovernance},
		{sentimentBody(topic, opts.Sentiment, opts.Timeframe), models.CategoryAlpha},
		{fmt.Sprintf("None of this is financial advice. Do your own research on %s before making any moves. The market rewards patience and punishes FOMO.", topic), models.CategoryInfo},
		{fmt.Sprintf("That's the thread. Follow for more data-driven takes on %s and the wider market. Retweet the first post if this helped. %s", topic, tag), models.CategoryCTA},
	}

	posts := make([]models.Post, 0, ThreadLength)
	for i, b := range bodies {
		posts = append(posts, models.Post{
			Index:    i + 1,
			Total:    ThreadLength,
			Body:     fmt.Sprintf("%d/%d: %s", i+1, ThreadLength, b.text),
			Hashtags: hashtagsOf(b.text),
			Category: b.category,
		})
	}
	return posts
}

func priceBody(topic string, bundle *models.MarketDataBundle) string {
	if bundle == nil || bundle.Token == nil {
		return fmt.Sprintf("Price data for %s is temporarily unavailable, so let's focus on the bigger picture: narratives move fast, fundamentals move slow.", topic)
	}
	t := bundle.Token
	return fmt.Sprintf("%s is trading at $%.4f, %+.2f%% over the last 24h. Volatility is information if you know how to read it.", t.Name, t.PriceUSD, t.Change24h)
}

func rangeBody(bundle *models.MarketDataBundle) string {
	if bundle == nil || bundle.Token == nil {
		return "Without live price data today, remember the rule that outlives every cycle: position sizing matters more than entries."
	}
	t := bundle.Token
	return fmt.Sprintf("24h range: $%.4f to $%.4f. Where price sits in that band tells you who is in control of the tape right now.", t.Low24h, t.High24h)
}

func marketCapBody(bundle *models.MarketDataBundle) string {
	if bundle == nil || bundle.Token == nil {
		return "Market cap and volume data are unavailable at the moment. When in doubt, zoom out to the weekly chart."
	}
	t := bundle.Token
	return fmt.Sprintf("Market cap sits at $%.0f with $%.0f traded in 24h. Liquidity is the oxygen of any move, up or down.", t.MarketCapUSD, t.Volume24hUSD)
}

func newsBody(topic string, bundle *models.MarketDataBundle) string {
	if bundle == nil || len(bundle.News) == 0 {
		return fmt.Sprintf("No fresh headlines on %s today. Quiet news cycles are when positions get built, not when they get announced.", topic)
	}
	n := bundle.News[0]
	return fmt.Sprintf("Latest headline: \"%s\" via %s. Headlines price in fast, second-order effects price in slow.", n.Title, n.Source)
}

func secondNewsBody(bundle *models.MarketDataBundle) string {
	if bundle == nil || len(bundle.News) < 2 {
		return "The absence of news is itself a signal. Watch what builders ship, not what accounts shout."
	}
	n := bundle.News[1]
	return fmt.Sprintf("Also on the radar: \"%s\" via %s. Connect the dots before the crowd does.", n.Title, n.Source)
}

func governanceBody(topic string, bundle *models.MarketDataBundle) string {
	if bundle == nil || len(bundle.Proposals) == 0 {
		return fmt.Sprintf("No active governance items for %s right now. Governance is where long-term value gets decided while traders watch candles.", topic)
	}
	p := bundle.Proposals[0]
	return fmt.Sprintf("Governance watch: \"%s\" is %s with %d votes cast. Token holders who ignore governance outsource their returns.", p.Title, p.State, p.TotalVotes)
}

func sentimentBody(topic, sentiment, timeframe string) string {
	horizon := "the coming months"
	switch timeframe {
	case models.TimeframeShort:
		horizon = "the next few weeks"
	case models.TimeframeLong:
		horizon = "the multi-year horizon"
	}

	switch sentiment {
	case models.SentimentBullish:
		return fmt.Sprintf("The setup on %s over %s leans constructive. Strength that persists through chop is rarely an accident.", topic, horizon)
	case models.SentimentBearish:
		return fmt.Sprintf("Caution is warranted on %s over %s. Capital preservation is a position too.", topic, horizon)
	default:
		return fmt.Sprintf("The picture on %s over %s is genuinely mixed. Let the data break the tie, not your bags.", topic, horizon)
	}
}

func sanitizeTag(topic string) string {
	var sb strings.Builder
	for _, r := range topic {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "crypto"
	}
	return sb.String()
}

func hashtagsOf(text string) []string {
	var tags []string
	for _, f := range strings.Fields(text) {
		if strings.HasPrefix(f, "#") && len(f) > 1 {
			tags = append(tags, strings.TrimRight(f, ".,!?"))
		}
	}
	return tags
}
