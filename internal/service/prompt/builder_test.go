package prompt

import (
	"strings"
	"testing"
	"time"

	"ThreadForge/internal/domain/models"
)

func sampleBundle() *models.MarketDataBundle {
	return &models.MarketDataBundle{
		Token: &models.TokenSnapshot{
			Symbol:       "eth",
			Name:         "Ethereum",
			PriceUSD:     3421.55,
			Change24h:    4.2,
			MarketCapUSD: 411000000000,
			Volume24hUSD: 18000000000,
			High24h:      3500.10,
			Low24h:       3300.00,
			ATHUSD:       4878.26,
		},
		News: []models.NewsItem{
			{Title: "Ethereum upgrade ships", Source: "CoinDesk", PublishedAt: time.Unix(1700000000, 0)},
		},
		Proposals: []models.GovernanceProposal{
			{Title: "Raise staking cap", State: "active", TotalVotes: 12345},
		},
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder()
	opts := models.GenerationOptions{
		Topic:                    "Ethereum",
		Tone:                     models.ToneExpert,
		Sentiment:                models.SentimentBullish,
		Timeframe:                models.TimeframeMedium,
		IncludePricePredictions:  true,
		IncludeTechnicalAnalysis: true,
		IncludeNews:              true,
		IncludeGovernance:        true,
	}
	bundle := sampleBundle()

	first := b.Build(opts, bundle)
	for i := 0; i < 10; i++ {
		if got := b.Build(opts, bundle); got != first {
			t.Fatalf("prompt differs between runs:\n%s\n---\n%s", first, got)
		}
	}
	if sys := b.SystemPrompt(opts); sys != b.SystemPrompt(opts) {
		t.Fatal("system prompt differs between runs")
	}
}

func TestBuildMarksMissingSections(t *testing.T) {
	b := NewBuilder()
	opts := models.GenerationOptions{
		Topic:                    "Ethereum",
		IncludePricePredictions:  true,
		IncludeTechnicalAnalysis: true,
		IncludeNews:              true,
		IncludeGovernance:        true,
	}

	out := b.Build(opts, &models.MarketDataBundle{})
	if got := strings.Count(out, "not available"); got != 5 {
		t.Fatalf("expected 5 'not available' markers, got %d in:\n%s", got, out)
	}

	out = b.Build(opts, nil)
	if !strings.Contains(out, "not available") {
		t.Fatalf("nil bundle should produce markers:\n%s", out)
	}
}

func TestBuildOmitsDisabledSections(t *testing.T) {
	b := NewBuilder()
	opts := models.GenerationOptions{Topic: "Ethereum"}

	out := b.Build(opts, sampleBundle())
	if strings.Contains(out, "Market data:") {
		t.Error("price section should be omitted")
	}
	if strings.Contains(out, "Price outlook:") {
		t.Error("prediction section should be omitted")
	}
	if strings.Contains(out, "Technical picture:") {
		t.Error("technical section should be omitted")
	}
	if strings.Contains(out, "Recent news:") {
		t.Error("news section should be omitted")
	}
	if strings.Contains(out, "Governance activity:") {
		t.Error("governance section should be omitted")
	}
}

func TestBuildIncludesMarketNumbers(t *testing.T) {
	b := NewBuilder()
	opts := models.GenerationOptions{Topic: "Ethereum", IncludePricePredictions: true}

	out := b.Build(opts, sampleBundle())
	for _, want := range []string{"$3421.5500", "+4.20%", "ETH"} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q:\n%s", want, out)
		}
	}
}

func TestBuildPredictionSection(t *testing.T) {
	b := NewBuilder()
	opts := models.GenerationOptions{
		Topic:                   "Ethereum",
		Timeframe:               models.TimeframeShort,
		IncludePricePredictions: true,
	}

	out := b.Build(opts, sampleBundle())
	if !strings.Contains(out, "Price outlook:") {
		t.Fatalf("missing prediction section:\n%s", out)
	}
	for _, want := range []string{"next days to weeks", "$3300.0000 - $3500.1000", "scenario"} {
		if !strings.Contains(out, want) {
			t.Errorf("prediction section missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Technical picture:") {
		t.Error("technical section should stay off")
	}
}

func TestBuildTechnicalSection(t *testing.T) {
	b := NewBuilder()
	opts := models.GenerationOptions{Topic: "Ethereum", IncludeTechnicalAnalysis: true}

	out := b.Build(opts, sampleBundle())
	if !strings.Contains(out, "Market data:") {
		t.Fatal("technical analysis needs the market data section")
	}
	if !strings.Contains(out, "Technical picture:") {
		t.Fatalf("missing technical section:\n%s", out)
	}
	for _, want := range []string{"support", "resistance", "all-time high"} {
		if !strings.Contains(out, want) {
			t.Errorf("technical section missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Price outlook:") {
		t.Error("prediction section should stay off")
	}
}

func TestAngleGuidanceCoversAllCombinations(t *testing.T) {
	sentiments := []string{models.SentimentBullish, models.SentimentNeutral, models.SentimentBearish}
	timeframes := []string{models.TimeframeShort, models.TimeframeMedium, models.TimeframeLong}

	seen := make(map[string]bool)
	for _, s := range sentiments {
		for _, tf := range timeframes {
			g := angleGuidance(s, tf)
			if g == "" {
				t.Fatalf("empty guidance for %s/%s", s, tf)
			}
			if seen[g] {
				t.Fatalf("duplicate guidance for %s/%s: %q", s, tf, g)
			}
			seen[g] = true
		}
	}
}
