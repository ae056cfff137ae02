// Package usecase wires the generation pipeline end to end.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ThreadForge/internal/domain/models"
	"ThreadForge/internal/domain/repository"
	"ThreadForge/internal/service/fallback"
	"ThreadForge/internal/service/model"
	"ThreadForge/internal/service/prompt"
	"ThreadForge/internal/service/sanitize"
	"ThreadForge/internal/service/thread"
	"ThreadForge/pkg/logger"
	"ThreadForge/pkg/queue"

	"github.com/google/uuid"
)

// minUsableContent is the shortest sanitized text worth formatting. Anything
// below this is treated as a failed model run.
const minUsableContent = 50

// usageGate is the quota surface the orchestrator needs.
type usageGate interface {
	Check(ctx context.Context, userID string) (*models.UsageDecision, error)
	Commit(ctx context.Context, userID, plan string) error
}

// modelInvoker runs the two-tier model call.
type modelInvoker interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string) (*model.Result, error)
}

// Options tunes orchestration behavior.
type Options struct {
	WatermarkBelow int
	NewsLimit      int
	ProposalLimit  int
}

// Orchestrator drives one generation run: gate, market data, prompt, model,
// sanitize, format, fallback, watermark, commit, persist. Quota is charged
// only after a thread exists; refused and failed runs cost nothing.
type Orchestrator struct {
	gate      usageGate
	market    repository.MarketData
	prompts   *prompt.Builder
	invoker   modelInvoker
	sanitizer *sanitize.Sanitizer
	formatter *thread.Formatter
	fallback  *fallback.Generator
	archive   repository.ArtifactArchive
	events    repository.ArtifactEvents
	queue     queue.QueueService
	metrics   repository.Metrics
	opts      Options
	logger    *logger.Logger
}

func NewOrchestrator(
	gate usageGate,
	market repository.MarketData,
	prompts *prompt.Builder,
	invoker modelInvoker,
	sanitizer *sanitize.Sanitizer,
	formatter *thread.Formatter,
	fb *fallback.Generator,
	archive repository.ArtifactArchive,
	events repository.ArtifactEvents,
	q queue.QueueService,
	metrics repository.Metrics,
	opts Options,
	lgr *logger.Logger,
) *Orchestrator {
	if opts.NewsLimit <= 0 {
		opts.NewsLimit = 5
	}
	if opts.ProposalLimit <= 0 {
		opts.ProposalLimit = 3
	}
	return &Orchestrator{
		gate:      gate,
		market:    market,
		prompts:   prompts,
		invoker:   invoker,
		sanitizer: sanitizer,
		formatter: formatter,
		fallback:  fb,
		archive:   archive,
		events:    events,
		queue:     q,
		metrics:   metrics,
		opts:      opts,
		logger:    lgr,
	}
}

// Generate runs the full pipeline for one user request.
func (o *Orchestrator) Generate(ctx context.Context, userID string, opts models.GenerationOptions) (*models.GeneratedArtifact, error) {
	start := time.Now()

	decision, err := o.gate.Check(ctx, userID)
	if err != nil {
		o.metrics.RecordGeneration("error")
		o.metrics.RecordError("usage_store")
		return nil, err
	}
	if !decision.CanGenerate {
		o.metrics.RecordGeneration("refused")
		return nil, fmt.Errorf("%w: %d/%d used on %s plan",
			models.ErrUsageLimitReached, decision.Used, decision.Limit, decision.Plan)
	}

	bundle := o.collectMarketData(ctx, opts)

	posts, rawContent, modelID, isFallback := o.produceThread(ctx, opts, bundle)
	if posts == nil {
		// produceThread only returns nil when the context died mid-run.
		o.metrics.RecordGeneration("error")
		return nil, ctx.Err()
	}

	watermarked := false
	if decision.Plan == models.PlanFree && decision.Remaining-1 < o.opts.WatermarkBelow {
		posts = appendWatermark(posts)
		watermarked = true
	}

	artifact := &models.GeneratedArtifact{
		ID:          uuid.NewString(),
		UserID:      userID,
		Topic:       opts.Topic,
		Tone:        opts.Tone,
		RawContent:  rawContent,
		Posts:       posts,
		Sentiment:   summarizeSentiment(opts, bundle),
		IsFallback:  isFallback,
		Watermarked: watermarked,
		ModelID:     modelID,
		GeneratedAt: time.Now().UTC(),
	}

	// A caller that walked away does not get charged and nothing is stored.
	if err := ctx.Err(); err != nil {
		o.metrics.RecordGeneration("error")
		return nil, err
	}

	if err := o.gate.Commit(ctx, userID, decision.Plan); err != nil {
		o.metrics.RecordGeneration("error")
		o.metrics.RecordError("usage_commit")
		return nil, err
	}
	o.metrics.RecordUsageCommit(decision.Plan)

	o.persist(ctx, artifact)

	outcome := "ai"
	if isFallback {
		outcome = "fallback"
	}
	o.metrics.RecordGeneration(outcome)
	o.metrics.RecordStageLatency("total", time.Since(start).Seconds())

	o.logger.Info("thread generated",
		logger.String("artifact_id", artifact.ID),
		logger.String("user_id", userID),
		logger.String("topic", opts.Topic),
		logger.Bool("fallback", isFallback),
		logger.Bool("watermarked", watermarked),
		logger.Int("posts", len(posts)),
	)
	return artifact, nil
}

// Usage reports the caller's quota position without consuming anything.
func (o *Orchestrator) Usage(ctx context.Context, userID string) (*models.UsageDecision, error) {
	return o.gate.Check(ctx, userID)
}

// RecentThreads lists the user's stored artifacts, newest first.
func (o *Orchestrator) RecentThreads(ctx context.Context, userID string, limit int) ([]models.GeneratedArtifact, error) {
	return o.archive.RecentArtifacts(ctx, userID, limit)
}

// collectMarketData fetches each requested section independently. A failed
// section is logged and left empty rather than failing the run.
func (o *Orchestrator) collectMarketData(ctx context.Context, opts models.GenerationOptions) *models.MarketDataBundle {
	stageStart := time.Now()
	bundle := &models.MarketDataBundle{FetchedAt: time.Now().UTC()}

	if opts.IncludePricePredictions || opts.IncludeTechnicalAnalysis {
		token, err := o.market.TokenSnapshot(ctx, opts.Topic)
		if err != nil {
			o.metrics.RecordError("market_token")
			o.logger.Warn("token snapshot unavailable", logger.String("topic", opts.Topic), logger.Error(err))
		} else {
			bundle.Token = token
		}
	}
	if opts.IncludeNews {
		news, err := o.market.TopicNews(ctx, opts.Topic, o.opts.NewsLimit)
		if err != nil {
			o.metrics.RecordError("market_news")
			o.logger.Warn("news unavailable", logger.String("topic", opts.Topic), logger.Error(err))
		} else {
			bundle.News = news
		}
	}
	if opts.IncludeGovernance {
		proposals, err := o.market.Proposals(ctx, opts.Topic, o.opts.ProposalLimit)
		if err != nil {
			o.metrics.RecordError("market_governance")
			o.logger.Warn("proposals unavailable", logger.String("topic", opts.Topic), logger.Error(err))
		} else {
			bundle.Proposals = proposals
		}
	}

	o.metrics.RecordStageLatency("market_data", time.Since(stageStart).Seconds())
	return bundle
}

// produceThread tries the model pipeline and falls back to the template
// generator on any failure. The returned posts are nil only when the
// context was cancelled.
func (o *Orchestrator) produceThread(ctx context.Context, opts models.GenerationOptions, bundle *models.MarketDataBundle) (posts []models.Post, raw, modelID string, isFallback bool) {
	systemPrompt := o.prompts.SystemPrompt(opts)
	userPrompt := o.prompts.Build(opts, bundle)

	modelStart := time.Now()
	result, err := o.invoker.Invoke(ctx, systemPrompt, userPrompt)
	o.metrics.RecordStageLatency("model", time.Since(modelStart).Seconds())

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", "", false
		}
		o.logger.Warn("model invocation failed, using template thread", logger.Error(err))
		return o.fallback.Generate(opts, bundle), "", "template", true
	}

	content := o.sanitizer.Sanitize(result.RawBody)
	if content.SourceFormat == models.SourceFormatHTMLError ||
		len(strings.TrimSpace(content.Text)) < minUsableContent {
		o.metrics.RecordError("unusable_model_content")
		o.logger.Warn("model content unusable, using template thread",
			logger.String("source_format", content.SourceFormat),
			logger.Strings("warnings", content.Warnings),
		)
		return o.fallback.Generate(opts, bundle), result.RawBody, "template", true
	}

	formatted, err := o.formatter.Format(content.Text)
	if err != nil {
		o.metrics.RecordError("format")
		o.logger.Warn("thread formatting failed, using template thread", logger.Error(err))
		return o.fallback.Generate(opts, bundle), result.RawBody, "template", true
	}

	return formatted, result.RawBody, result.ModelID, false
}

// persist stores the artifact asynchronously through the queue, falling
// back to a synchronous write when enqueueing fails.
func (o *Orchestrator) persist(ctx context.Context, artifact *models.GeneratedArtifact) {
	if o.queue != nil {
		err := o.queue.PublishMessage(ctx, MsgArtifactPersist, artifact)
		if err == nil {
			return
		}
		o.logger.Warn("artifact enqueue failed, persisting inline", logger.Error(err))
	}

	if err := o.archive.SaveArtifact(ctx, artifact); err != nil {
		o.metrics.RecordError("archive")
		o.logger.Error("artifact save failed", logger.String("artifact_id", artifact.ID), logger.Error(err))
	}
	if err := o.events.ArtifactGenerated(ctx, artifact); err != nil {
		o.metrics.RecordError("events")
		o.logger.Warn("artifact event publish failed", logger.String("artifact_id", artifact.ID), logger.Error(err))
	}
}

// appendWatermark adds the upgrade post. When the thread is already at the
// cap the final post is replaced so the cap holds.
func appendWatermark(posts []models.Post) []models.Post {
	if len(posts) >= thread.MaxPosts {
		posts = posts[:len(posts)-1]
	}

	total := len(posts) + 1
	out := make([]models.Post, 0, total)
	for _, p := range posts {
		p.Total = total
		p.Body = renumberBody(p.Body, p.Index, total)
		out = append(out, p)
	}
	out = append(out, models.Post{
		Index:    total,
		Total:    total,
		Body:     fmt.Sprintf("%d/%d: Enjoying these threads? You're almost out of free generations today. Upgrade to Pro for 50 threads a day and priority models.", total, total),
		Category: models.CategoryCTA,
	})
	return out
}

func renumberBody(body string, index, total int) string {
	prefixEnd := strings.Index(body, ": ")
	if prefixEnd < 0 {
		return fmt.Sprintf("%d/%d: %s", index, total, body)
	}
	return fmt.Sprintf("%d/%d:%s", index, total, body[prefixEnd+1:])
}

// summarizeSentiment derives per-signal labels from the bundle and blends
// them with the requested angle.
func summarizeSentiment(opts models.GenerationOptions, bundle *models.MarketDataBundle) models.SentimentSummary {
	price := models.SentimentNeutral
	if bundle != nil && bundle.Token != nil {
		switch {
		case bundle.Token.Change24h >= 2:
			price = models.SentimentBullish
		case bundle.Token.Change24h <= -2:
			price = models.SentimentBearish
		}
	}

	news := models.SentimentNeutral
	if bundle != nil {
		news = newsSentiment(bundle.News)
	}

	overall := opts.Sentiment
	if overall == "" || overall == models.SentimentNeutral {
		switch {
		case price == news && price != models.SentimentNeutral:
			overall = price
		case price != models.SentimentNeutral && news == models.SentimentNeutral:
			overall = price
		case news != models.SentimentNeutral && price == models.SentimentNeutral:
			overall = news
		default:
			overall = models.SentimentNeutral
		}
	}

	return models.SentimentSummary{Price: price, News: news, Overall: overall}
}

var (
	positiveWords = []string{"surge", "rally", "record", "partnership", "launch", "upgrade", "adoption", "approve"}
	negativeWords = []string{"hack", "exploit", "crash", "lawsuit", "ban", "outage", "dump", "delay"}
)

func newsSentiment(news []models.NewsItem) string {
	score := 0
	for _, n := range news {
		title := strings.ToLower(n.Title)
		for _, w := range positiveWords {
			if strings.Contains(title, w) {
				score++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(title, w) {
				score--
			}
		}
	}
	switch {
	case score > 0:
		return models.SentimentBullish
	case score < 0:
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}
