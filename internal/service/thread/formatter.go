// Package thread shapes sanitized model text into a numbered Twitter thread.
package thread

import (
	"fmt"
	"regexp"
	"strings"

	"ThreadForge/internal/domain/models"
)

// MaxPosts caps a thread regardless of how much the model produced.
const MaxPosts = 10

var (
	numberTokenRe = regexp.MustCompile(`^\s*(?:Post\s+)?(\d+)\s*/\s*(\d+)\s*[:.)\-]?\s*`)
	leadingNumRe  = regexp.MustCompile(`^\s*(\d+)\s*[:.)]\s+`)
	hashtagRe     = regexp.MustCompile(`#[A-Za-z0-9_]+`)
	mentionRe     = regexp.MustCompile(`@[A-Za-z0-9_]+`)
	priceHintRe   = regexp.MustCompile(`\$\d|[0-9]+(\.[0-9]+)?%`)
	blankSplitRe  = regexp.MustCompile(`\n\s*\n`)
)

// Formatter converts free text into ordered, categorized posts.
type Formatter struct{}

func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format splits text into posts on blank lines, strips any numbering the
// model emitted, truncates to MaxPosts and renumbers 1..N. Returns
// ErrInsufficientContent when nothing usable remains.
func (f *Formatter) Format(text string) ([]models.Post, error) {
	blocks := splitBlocks(text)
	if len(blocks) == 0 {
		return nil, models.ErrInsufficientContent
	}

	if len(blocks) > MaxPosts {
		blocks = blocks[:MaxPosts]
	}

	total := len(blocks)
	posts := make([]models.Post, 0, total)
	for i, body := range blocks {
		posts = append(posts, models.Post{
			Index:    i + 1,
			Total:    total,
			Body:     fmt.Sprintf("%d/%d: %s", i+1, total, body),
			Hashtags: hashtagRe.FindAllString(body, -1),
			Mentions: mentionRe.FindAllString(body, -1),
			Category: categorize(body, i, total),
		})
	}
	return posts, nil
}

// splitBlocks breaks the text on blank lines and strips model numbering
// from each block. Blocks that end up empty are dropped.
func splitBlocks(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	raw := blankSplitRe.Split(normalized, -1)

	blocks := make([]string, 0, len(raw))
	for _, b := range raw {
		b = strings.TrimSpace(b)
		b = numberTokenRe.ReplaceAllString(b, "")
		b = leadingNumRe.ReplaceAllString(b, "")
		b = strings.TrimSpace(b)
		if b != "" {
			blocks = append(blocks, strings.Join(strings.Fields(b), " "))
		}
	}
	return blocks
}

func categorize(body string, index, total int) models.PostCategory {
	lower := strings.ToLower(body)

	if index == 0 {
		return models.CategoryHook
	}
	if index == total-1 {
		return models.CategoryCTA
	}
	if priceHintRe.MatchString(body) || containsAny(lower, "price", "market cap", "volume", "ath", "support", "resistance") {
		return models.CategoryPrice
	}
	if containsAny(lower, "announced", "report", "according to", "news", "launched", "partnership") {
		return models.CategoryNews
	}
	if containsAny(lower, "proposal", "governance", "vote", "dao", "quorum") {
		return models.CategoryGovernance
	}
	if containsAny(lower, "alpha", "opportunity", "keep an eye", "watch for", "don't sleep", "accumulate") {
		return models.CategoryAlpha
	}
	return models.CategoryInfo
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
