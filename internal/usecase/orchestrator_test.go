package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/service/fallback"
	"ThreadForge/internal/service/model"
	"ThreadForge/internal/service/prompt"
	"ThreadForge/internal/service/sanitize"
	"ThreadForge/internal/service/thread"
	"ThreadForge/pkg/logger"
)

type fakeGate struct {
	decision *models.UsageDecision
	checkErr error
	commits  int
}

func (f *fakeGate) Check(ctx context.Context, userID string) (*models.UsageDecision, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return f.decision, nil
}

func (f *fakeGate) Commit(ctx context.Context, userID, plan string) error {
	f.commits++
	return nil
}

type fakeMarket struct {
	token *models.TokenSnapshot
	news  []models.NewsItem
	fail  bool
}

func (f *fakeMarket) TokenSnapshot(ctx context.Context, topic string) (*models.TokenSnapshot, error) {
	if f.fail || f.token == nil {
		return nil, models.ErrUpstreamDataUnavailable
	}
	return f.token, nil
}

func (f *fakeMarket) TopicNews(ctx context.Context, topic string, limit int) ([]models.NewsItem, error) {
	if f.fail {
		return nil, models.ErrUpstreamDataUnavailable
	}
	return f.news, nil
}

func (f *fakeMarket) Proposals(ctx context.Context, topic string, limit int) ([]models.GovernanceProposal, error) {
	return nil, nil
}

type fakeInvoker struct {
	result *model.Result
	err    error
	cancel context.CancelFunc
	calls  int
}

func (f *fakeInvoker) Invoke(ctx context.Context, systemPrompt, userPrompt string) (*model.Result, error) {
	f.calls++
	if f.cancel != nil {
		f.cancel()
		return nil, context.Canceled
	}
	return f.result, f.err
}

type fakeArchive struct {
	mu    sync.Mutex
	saved []*models.GeneratedArtifact
}

func (f *fakeArchive) SaveArtifact(ctx context.Context, a *models.GeneratedArtifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, a)
	return nil
}

func (f *fakeArchive) RecentArtifacts(ctx context.Context, userID string, limit int) ([]models.GeneratedArtifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.GeneratedArtifact, 0, len(f.saved))
	for _, a := range f.saved {
		out = append(out, *a)
	}
	return out, nil
}

type fakeEvents struct {
	published int
}

func (f *fakeEvents) ArtifactGenerated(ctx context.Context, a *models.GeneratedArtifact) error {
	f.published++
	return nil
}

type fakeMetrics struct {
	mu          sync.Mutex
	generations map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{generations: make(map[string]int)} }

func (f *fakeMetrics) RecordGeneration(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generations[outcome]++
}
func (f *fakeMetrics) RecordModelAttempt(string, string)   {}
func (f *fakeMetrics) RecordStageLatency(string, float64)  {}
func (f *fakeMetrics) RecordUsageCommit(string)            {}
func (f *fakeMetrics) RecordError(string)                  {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	lgr, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatal(err)
	}
	return lgr
}

type fixture struct {
	orc     *Orchestrator
	gate    *fakeGate
	invoker *fakeInvoker
	archive *fakeArchive
	events  *fakeEvents
	metrics *fakeMetrics
}

func newFixture(t *testing.T, g *fakeGate, inv *fakeInvoker) *fixture {
	t.Helper()
	archive := &fakeArchive{}
	events := &fakeEvents{}
	metrics := newFakeMetrics()
	market := &fakeMarket{
		token: &models.TokenSnapshot{Name: "Bitcoin", Symbol: "btc", PriceUSD: 64000, Change24h: 2.5},
	}

	orc := NewOrchestrator(
		g, market, prompt.NewBuilder(), inv,
		sanitize.NewSanitizer(), thread.NewFormatter(), fallback.NewGenerator(),
		archive, events, nil, metrics,
		Options{WatermarkBelow: 2, NewsLimit: 5, ProposalLimit: 3},
		testLogger(t),
	)
	return &fixture{orc: orc, gate: g, invoker: inv, archive: archive, events: events, metrics: metrics}
}

func allowingGate(plan string, used, limit int) *fakeGate {
	return &fakeGate{decision: &models.UsageDecision{
		CanGenerate: used < limit,
		Plan:        plan,
		Used:        used,
		Limit:       limit,
		Remaining:   limit - used,
	}}
}

func completionResult(content string) *model.Result {
	b, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return &model.Result{RawBody: string(b), ModelID: "primary-model"}
}

const goodThread = "Bitcoin is moving and everyone noticed the breakout today\n\n" +
	"Price pushed through $64000 with conviction and volume behind it\n\n" +
	"Follow for more threads like this one"

func TestGenerateRefusedBeforeModelCall(t *testing.T) {
	f := newFixture(t, allowingGate(models.PlanFree, 3, 3), &fakeInvoker{})

	_, err := f.orc.Generate(context.Background(), "u1", models.GenerationOptions{Topic: "Bitcoin", IncludePricePredictions: true})
	if !errors.Is(err, models.ErrUsageLimitReached) {
		t.Fatalf("err = %v", err)
	}
	if f.invoker.calls != 0 {
		t.Fatalf("model was called %d times on a refused request", f.invoker.calls)
	}
	if f.gate.commits != 0 {
		t.Fatal("refused request must not be charged")
	}
	if f.metrics.generations["refused"] != 1 {
		t.Fatalf("metrics = %v", f.metrics.generations)
	}
}

func TestGenerateSuccessPath(t *testing.T) {
	inv := &fakeInvoker{result: completionResult(goodThread)}
	f := newFixture(t, allowingGate(models.PlanPro, 0, 50), inv)

	artifact, err := f.orc.Generate(context.Background(), "u1", models.GenerationOptions{
		Topic: "Bitcoin", Tone: models.ToneExpert, IncludePricePredictions: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if artifact.IsFallback {
		t.Fatal("expected model-generated artifact")
	}
	if artifact.ModelID != "primary-model" {
		t.Fatalf("model id = %s", artifact.ModelID)
	}
	if len(artifact.Posts) != 3 {
		t.Fatalf("posts = %d", len(artifact.Posts))
	}
	if artifact.Watermarked {
		t.Fatal("pro plan must never be watermarked")
	}
	if f.gate.commits != 1 {
		t.Fatalf("commits = %d, want exactly 1", f.gate.commits)
	}
	if len(f.archive.saved) != 1 {
		t.Fatalf("saved = %d", len(f.archive.saved))
	}
	if f.events.published != 1 {
		t.Fatalf("events = %d", f.events.published)
	}
	if artifact.ID == "" || artifact.GeneratedAt.IsZero() {
		t.Fatal("artifact identity not set")
	}
}

func TestGenerateFallbackOnModelFailure(t *testing.T) {
	inv := &fakeInvoker{err: models.ErrModelGatewayUnavailable}
	f := newFixture(t, allowingGate(models.PlanPro, 0, 50), inv)

	artifact, err := f.orc.Generate(context.Background(), "u1", models.GenerationOptions{Topic: "Bitcoin", IncludePricePredictions: true})
	if err != nil {
		t.Fatal(err)
	}
	if !artifact.IsFallback {
		t.Fatal("expected fallback artifact")
	}
	if len(artifact.Posts) != fallback.ThreadLength {
		t.Fatalf("posts = %d, want %d", len(artifact.Posts), fallback.ThreadLength)
	}
	if artifact.ModelID != "template" {
		t.Fatalf("model id = %s", artifact.ModelID)
	}
	if f.gate.commits != 1 {
		t.Fatalf("commits = %d, fallback threads still consume quota", f.gate.commits)
	}
	if f.metrics.generations["fallback"] != 1 {
		t.Fatalf("metrics = %v", f.metrics.generations)
	}
}

func TestGenerateFallbackOnHTMLBody(t *testing.T) {
	inv := &fakeInvoker{result: &model.Result{
		RawBody: "<html><title>Bad Gateway</title></html>",
		ModelID: "primary-model",
	}}
	f := newFixture(t, allowingGate(models.PlanPro, 0, 50), inv)

	artifact, err := f.orc.Generate(context.Background(), "u1", models.GenerationOptions{Topic: "Bitcoin"})
	if err != nil {
		t.Fatal(err)
	}
	if !artifact.IsFallback {
		t.Fatal("html body must route to the template thread")
	}
	if artifact.RawContent == "" {
		t.Fatal("raw content should be preserved for diagnosis")
	}
}

func TestGenerateWatermarkOnLowFreeQuota(t *testing.T) {
	inv := &fakeInvoker{result: completionResult(goodThread)}
	f := newFixture(t, allowingGate(models.PlanFree, 2, 3), inv)

	artifact, err := f.orc.Generate(context.Background(), "u1", models.GenerationOptions{Topic: "Bitcoin"})
	if err != nil {
		t.Fatal(err)
	}
	if !artifact.Watermarked {
		t.Fatal("expected watermark on last free generations")
	}

	last := artifact.Posts[len(artifact.Posts)-1]
	if last.Category != models.CategoryCTA || !strings.Contains(last.Body, "Upgrade to Pro") {
		t.Fatalf("last post = %+v", last)
	}
	total := len(artifact.Posts)
	for i, p := range artifact.Posts {
		if p.Total != total || p.Index != i+1 {
			t.Fatalf("post %d not renumbered: %d/%d", i, p.Index, p.Total)
		}
		wantPrefix := strconv.Itoa(i+1) + "/" + strconv.Itoa(total) + ":"
		if !strings.HasPrefix(p.Body, wantPrefix) {
			t.Fatalf("post %d body prefix wrong: %q", i, p.Body)
		}
	}
}

func TestGenerateNoWatermarkWithPlentyRemaining(t *testing.T) {
	inv := &fakeInvoker{result: completionResult(goodThread)}
	f := newFixture(t, allowingGate(models.PlanFree, 0, 5), inv)

	artifact, err := f.orc.Generate(context.Background(), "u1", models.GenerationOptions{Topic: "Bitcoin"})
	if err != nil {
		t.Fatal(err)
	}
	if artifact.Watermarked {
		t.Fatal("watermark applied too early")
	}
}

func TestGenerateCancelledContextSkipsCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inv := &fakeInvoker{cancel: cancel}
	f := newFixture(t, allowingGate(models.PlanFree, 0, 3), inv)

	_, err := f.orc.Generate(ctx, "u1", models.GenerationOptions{Topic: "Bitcoin"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if f.gate.commits != 0 {
		t.Fatal("cancelled run must not be charged")
	}
	if len(f.archive.saved) != 0 {
		t.Fatal("cancelled run must not be stored")
	}
}

func TestGenerateGateErrorPropagates(t *testing.T) {
	g := &fakeGate{checkErr: models.ErrUsageStoreUnavailable}
	f := newFixture(t, g, &fakeInvoker{})

	_, err := f.orc.Generate(context.Background(), "u1", models.GenerationOptions{Topic: "Bitcoin"})
	if !errors.Is(err, models.ErrUsageStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if f.invoker.calls != 0 {
		t.Fatal("model called despite gate failure")
	}
}

func TestUsagePassthrough(t *testing.T) {
	g := allowingGate(models.PlanFree, 1, 3)
	f := newFixture(t, g, &fakeInvoker{})

	d, err := f.orc.Usage(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Remaining != 2 {
		t.Fatalf("remaining = %d", d.Remaining)
	}
}
