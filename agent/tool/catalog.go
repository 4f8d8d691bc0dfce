// Package tool is the closed toolbox bridging the orchestrator to storage
// and the research specialist: four named operations, schema-validated
// dispatch, explicit owner identity on every call.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/prepforge/interview-agent/agent/contract"
)

const (
	ToolGetResume    = "get_resume"
	ToolUploadResume = "upload_resume"
	ToolListPreps    = "list_preps"
	ToolGeneratePrep = "generate_prep"
)

// NoResumeMessage is the sentinel result for a missing resume. A normal
// outcome, not an error: the model asks the user to upload one.
const NoResumeMessage = "No resume found. Please ask the user to upload their PDF resume so you can process it."

const signedURLTTL = time.Hour

// Catalog implements contract.Toolbox over the object store, the research
// specialist, and the document renderer.
type Catalog struct {
	store    contractx.ObjectStore
	research contractx.Researcher
	renderer contractx.Renderer

	now     func() time.Time
	extract func([]byte) (string, error)
}

var _ contractx.Toolbox = (*Catalog)(nil)

func NewCatalog(store contractx.ObjectStore, research contractx.Researcher, renderer contractx.Renderer) (*Catalog, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if research == nil {
		return nil, errors.New("researcher is required")
	}
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	return &Catalog{
		store:    store,
		research: research,
		renderer: renderer,
		now:      time.Now,
		extract:  extractPDFText,
	}, nil
}

// Infos returns the tool definitions advertised to the model.
func Infos() []openaisdk.ChatCompletionToolParam {
	return []openaisdk.ChatCompletionToolParam{
		{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        ToolGetResume,
				Description: openaisdk.String("Get the current user's stored resume text."),
				Parameters: openaisdk.FunctionParameters{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
		},
		{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        ToolUploadResume,
				Description: openaisdk.String("Store the PDF resume the user attached to this message for later use in interview preparation."),
				Parameters: openaisdk.FunctionParameters{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
		},
		{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        ToolListPreps,
				Description: openaisdk.String("List the user's generated interview preparation documents, newest first."),
				Parameters: openaisdk.FunctionParameters{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
		},
		{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        ToolGeneratePrep,
				Description: openaisdk.String("Generate an interview preparation document from the stored resume and a job description. Returns a download URL."),
				Parameters: openaisdk.FunctionParameters{
					"type": "object",
					"properties": map[string]any{
						"job_description": map[string]any{
							"type":        "string",
							"description": "The full job description text to prepare for.",
						},
					},
					"required": []string{"job_description"},
				},
			},
		},
	}
}

// Dispatch validates the call and routes it to its handler. Recoverable
// failures (bad arguments, extraction errors, specialist failures) come back
// inside the ToolResult; a non-nil error is a store-unavailable class
// failure that aborts the request.
func (c *Catalog) Dispatch(ctx context.Context, owner string, call contractx.ToolCall, attachment []byte) (contractx.ToolResult, error) {
	result := contractx.ToolResult{Tool: call.Name, CallID: call.ID}

	ownerKey, err := ownerSegment(owner)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}

	args, err := parseArgs(call.Args)
	if err != nil {
		result.Error = fmt.Sprintf("%v: %v", contractx.ErrInvalidArguments, err)
		return result, nil
	}

	log.Debug().Str("tool", call.Name).Str("owner", ownerKey).Msg("dispatching tool call")

	switch call.Name {
	case ToolGetResume:
		return c.getResume(ctx, result, ownerKey)
	case ToolUploadResume:
		return c.uploadResume(ctx, result, ownerKey, attachment)
	case ToolListPreps:
		return c.listPreps(ctx, result, ownerKey)
	case ToolGeneratePrep:
		jd, ok := args["job_description"].(string)
		if !ok || strings.TrimSpace(jd) == "" {
			result.Error = fmt.Sprintf("%v: job_description must be a non-empty string", contractx.ErrInvalidArguments)
			return result, nil
		}
		return c.generatePrep(ctx, result, ownerKey, jd)
	default:
		result.Error = fmt.Sprintf("%v: unknown tool %q", contractx.ErrInvalidArguments, call.Name)
		return result, nil
	}
}

func parseArgs(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("argument payload is not a JSON object: %v", err)
	}
	return args, nil
}

// ownerSegment normalizes the owner identity into a key-safe path segment.
// Identity always arrives explicitly from the caller, never from ambient
// context.
func ownerSegment(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", errors.New("owner identity is required")
	}
	owner = strings.ReplaceAll(owner, "@", "_at_")
	owner = strings.ReplaceAll(owner, "/", "_")
	return owner, nil
}

func resumeKey(ownerKey string) string {
	return ownerKey + "/resume.txt"
}

func prepsPrefix(ownerKey string) string {
	return ownerKey + "/preps/"
}
