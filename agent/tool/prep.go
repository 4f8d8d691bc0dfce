package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

func (c *Catalog) listPreps(ctx context.Context, result contractx.ToolResult, ownerKey string) (contractx.ToolResult, error) {
	prefix := prepsPrefix(ownerKey)
	infos, err := c.store.List(ctx, prefix)
	if err != nil {
		return result, err
	}

	preps := make([]contractx.PrepInfo, 0, len(infos))
	for _, info := range infos {
		url, err := c.store.SignedURL(ctx, info.Key, signedURLTTL)
		if err != nil {
			return result, err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(info.Key, prefix), ".pdf")
		preps = append(preps, contractx.PrepInfo{
			Name:      name,
			CreatedAt: info.Created,
			URL:       url,
		})
	}
	sort.Slice(preps, func(i, j int) bool { return preps[i].CreatedAt.After(preps[j].CreatedAt) })

	content, err := json.Marshal(preps)
	if err != nil {
		return result, fmt.Errorf("marshal prep list: %w", err)
	}
	result.Content = string(content)
	result.Preps = preps
	return result, nil
}

// generatePrep is the highest-latency path in the system: fetch resume,
// run the remote research job to a terminal state, render the report, store
// it, and hand back a time-limited URL.
func (c *Catalog) generatePrep(ctx context.Context, result contractx.ToolResult, ownerKey, jobDescription string) (contractx.ToolResult, error) {
	resume, err := c.fetchResumeText(ctx, ownerKey)
	if err != nil {
		return result, err
	}
	if resume == "" {
		// No specialist call without a resume.
		result.Content = NoResumeMessage
		return result, nil
	}

	report, err := c.research.Generate(ctx, contractx.ResearchInput{
		Resume:         resume,
		JobDescription: jobDescription,
	})
	if err != nil {
		result.Error = fmt.Sprintf("research specialist failed: %v", err)
		return result, nil
	}

	pdfBytes, err := c.renderer.Render(report)
	if err != nil {
		result.Error = fmt.Sprintf("could not convert the report to a document: %v", err)
		return result, nil
	}

	key := prepsPrefix(ownerKey) + prepSlug(report, c.now()) + ".pdf"
	if err := c.store.Put(ctx, key, pdfBytes, "application/pdf"); err != nil {
		return result, err
	}
	log.Info().Str("key", key).Msg("saved prep document")

	url, err := c.store.SignedURL(ctx, key, signedURLTTL)
	if err != nil {
		return result, err
	}

	result.Content = url
	result.URL = url
	return result, nil
}

var (
	titleRe      = regexp.MustCompile(`(?m)^#.*?:\s*(.+?)\s*$`)
	nonSlugRe    = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// prepSlug derives the artifact filename from the report's title line,
// e.g. "# Interview Prep: Acme Corp - Staff Engineer" -> "acme-corp---staff-engineer".
// Falls back to a timestamped name when no title is present.
func prepSlug(report string, now time.Time) string {
	if m := titleRe.FindStringSubmatch(report); m != nil {
		slug := nonSlugRe.ReplaceAllString(strings.TrimSpace(m[1]), "")
		slug = whitespaceRe.ReplaceAllString(slug, "-")
		slug = strings.ToLower(strings.Trim(slug, "-"))
		if slug != "" {
			return slug
		}
	}
	return "prep-" + now.Format("20060102-150405")
}
