package fallback

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"ThreadForge/internal/domain/models"
)

func TestGenerateExactlyTenPosts(t *testing.T) {
	g := NewGenerator()
	opts := models.GenerationOptions{Topic: "Bitcoin", Sentiment: models.SentimentBullish}

	posts := g.Generate(opts, nil)
	if len(posts) != ThreadLength {
		t.Fatalf("got %d posts, want %d", len(posts), ThreadLength)
	}
	for i, p := range posts {
		if p.Index != i+1 || p.Total != ThreadLength {
			t.Errorf("post %d: index=%d total=%d", i, p.Index, p.Total)
		}
		wantPrefix := fmt.Sprintf("%d/%d: ", i+1, ThreadLength)
		if !strings.HasPrefix(p.Body, wantPrefix) {
			t.Errorf("post %d body = %q", i, p.Body)
		}
		if p.Body == wantPrefix {
			t.Errorf("post %d is empty", i)
		}
	}
	if posts[0].Category != models.CategoryHook {
		t.Errorf("first category = %s", posts[0].Category)
	}
	if posts[9].Category != models.CategoryCTA {
		t.Errorf("last category = %s", posts[9].Category)
	}
}

func TestGenerateIsPure(t *testing.T) {
	g := NewGenerator()
	opts := models.GenerationOptions{Topic: "Solana", Sentiment: models.SentimentBearish, Timeframe: models.TimeframeLong}
	bundle := &models.MarketDataBundle{
		Token: &models.TokenSnapshot{Name: "Solana", PriceUSD: 150.25, Change24h: -3.1, Low24h: 145, High24h: 160},
		News:  []models.NewsItem{{Title: "Solana outage resolved", Source: "The Block"}},
	}

	first := g.Generate(opts, bundle)
	for i := 0; i < 5; i++ {
		if got := g.Generate(opts, bundle); !reflect.DeepEqual(got, first) {
			t.Fatal("generator output differs between identical calls")
		}
	}
}

func TestGenerateUsesMarketData(t *testing.T) {
	g := NewGenerator()
	bundle := &models.MarketDataBundle{
		Token: &models.TokenSnapshot{Name: "Ethereum", PriceUSD: 3421.5500, Change24h: 4.2},
	}

	posts := g.Generate(models.GenerationOptions{Topic: "Ethereum"}, bundle)
	joined := joinBodies(posts)
	if !strings.Contains(joined, "$3421.5500") {
		t.Errorf("thread does not cite price:\n%s", joined)
	}
	if !strings.Contains(joined, "+4.20%") {
		t.Errorf("thread does not cite 24h change:\n%s", joined)
	}
}

func TestGenerateHandlesMissingData(t *testing.T) {
	g := NewGenerator()
	posts := g.Generate(models.GenerationOptions{Topic: "Obscure Token"}, &models.MarketDataBundle{})
	if len(posts) != ThreadLength {
		t.Fatalf("got %d posts", len(posts))
	}
	joined := joinBodies(posts)
	if strings.Contains(joined, "%!") || strings.Contains(joined, "<nil>") {
		t.Fatalf("formatting artifacts in thread:\n%s", joined)
	}
}

func TestGenerateHashtagFromTopic(t *testing.T) {
	g := NewGenerator()
	posts := g.Generate(models.GenerationOptions{Topic: "Bitcoin Cash"}, nil)
	if !strings.Contains(posts[0].Body, "#BitcoinCash") {
		t.Fatalf("hook body = %q", posts[0].Body)
	}
}

func joinBodies(posts []models.Post) string {
	bodies := make([]string, len(posts))
	for i, p := range posts {
		bodies[i] = p.Body
	}
	return strings.Join(bodies, "\n")
}
