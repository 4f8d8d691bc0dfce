package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	pdfreader "github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

func (c *Catalog) getResume(ctx context.Context, result contractx.ToolResult, ownerKey string) (contractx.ToolResult, error) {
	text, err := c.fetchResumeText(ctx, ownerKey)
	if err != nil {
		return result, err
	}
	if text == "" {
		result.Content = NoResumeMessage
		return result, nil
	}
	result.Content = text
	return result, nil
}

// fetchResumeText returns "" for a missing resume; any other failure is
// transport-level.
func (c *Catalog) fetchResumeText(ctx context.Context, ownerKey string) (string, error) {
	data, err := c.store.Get(ctx, resumeKey(ownerKey))
	if err != nil {
		if errors.Is(err, contractx.ErrObjectNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

func (c *Catalog) uploadResume(ctx context.Context, result contractx.ToolResult, ownerKey string, attachment []byte) (contractx.ToolResult, error) {
	if len(attachment) == 0 {
		result.Error = "no resume attachment on this message; ask the user to attach their PDF resume"
		return result, nil
	}

	// Extract before any write so a bad document never leaves a partial
	// resume behind.
	text, err := c.extract(attachment)
	if err != nil {
		result.Error = fmt.Sprintf("could not extract text from the attached PDF: %v", err)
		return result, nil
	}

	key := resumeKey(ownerKey)
	if err := c.store.Put(ctx, key, []byte(text), "text/plain; charset=utf-8"); err != nil {
		return result, err
	}
	log.Info().Str("key", key).Msg("saved resume text")

	result.Content = "Resume uploaded successfully."
	return result, nil
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdfreader.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", errors.New("document contains no extractable text")
	}
	return text, nil
}
