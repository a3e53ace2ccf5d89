package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/webscope/internal/analyzer"
)

// defaultWaitTimeMS matches the HTTP binding's schema default for waitTime.
const defaultWaitTimeMS = 3000

func toolCatalog() []Tool {
	return []Tool{
		{
			Name:        "analyze_website",
			Description: "Load a URL in a headless browser, capture its network traffic, and produce a full analysis report.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "Absolute URL to analyze"},
					"waitTime": {"type": "integer", "description": "Extra settle time in ms after network idle, clamped to [0, 10000], default 3000"},
					"includeImages": {"type": "boolean", "description": "Capture image and media requests"},
					"quickMode": {"type": "boolean", "description": "Force a fixed 1s settle instead of waitTime"}
				},
				"required": ["url"]
			}`),
		},
		{
			Name:        "get_requests_by_domain",
			Description: "List captured requests from a prior analysis filtered by exact hostname.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "Previously analyzed URL"},
					"domain": {"type": "string", "description": "Hostname to filter by"}
				},
				"required": ["url", "domain"]
			}`),
		},
		{
			Name:        "get_request_details",
			Description: "Return the full record of one captured request, including headers and bodies.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "Previously analyzed URL"},
					"requestId": {"type": "string", "description": "Request id from a prior analysis"}
				},
				"required": ["url", "requestId"]
			}`),
		},
		{
			Name:        "get_analysis_summary",
			Description: "Return the condensed summary of a prior analysis.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "Previously analyzed URL"}
				},
				"required": ["url"]
			}`),
		},
		{
			Name:        "extract_elements",
			Description: "Load a URL and extract elements of one kind (text, image, link, script) with CSS selectors.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "Absolute URL to load"},
					"filterType": {"type": "string", "enum": ["text", "image", "link", "script"], "description": "Kind of elements to extract"}
				},
				"required": ["url", "filterType"]
			}`),
		},
		{
			Name:        "fetch_url",
			Description: "Perform a direct HTTP request without the browser and return the raw response.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"url": {"type": "string", "description": "Absolute URL to fetch"},
					"method": {"type": "string", "description": "HTTP method, default GET"},
					"headers": {"type": "object", "additionalProperties": {"type": "string"}, "description": "Request headers"},
					"body": {"type": "string", "description": "Request body"}
				},
				"required": ["url"]
			}`),
		},
	}
}

func (s *Server) callTool(ctx context.Context, params toolCallParams) response {
	switch params.Name {
	case "analyze_website":
		var args struct {
			URL           string `json:"url"`
			WaitTime      *int   `json:"waitTime"`
			IncludeImages bool   `json:"includeImages"`
			QuickMode     bool   `json:"quickMode"`
		}
		if err := unmarshalArgs(params.Arguments, &args); err != nil {
			return errResponse(codeInvalidParams, err.Error())
		}
		waitTime := defaultWaitTimeMS
		if args.WaitTime != nil {
			waitTime = *args.WaitTime
		}
		r, err := s.svc.Analyze(ctx, analyzer.AnalyzeParams{
			URL:           args.URL,
			WaitTime:      waitTime,
			IncludeImages: args.IncludeImages,
			QuickMode:     args.QuickMode,
		})
		if err != nil {
			return mapToolErr(err)
		}
		return toolResponse(r.Summarize())

	case "get_requests_by_domain":
		var args struct {
			URL    string `json:"url"`
			Domain string `json:"domain"`
		}
		if err := unmarshalArgs(params.Arguments, &args); err != nil {
			return errResponse(codeInvalidParams, err.Error())
		}
		requests, err := s.svc.GetByDomain(args.URL, args.Domain)
		if err != nil {
			return mapToolErr(err)
		}
		return toolResponse(map[string]any{
			"domain":   args.Domain,
			"count":    len(requests),
			"requests": requests,
		})

	case "get_request_details":
		var args struct {
			URL       string `json:"url"`
			RequestID string `json:"requestId"`
		}
		if err := unmarshalArgs(params.Arguments, &args); err != nil {
			return errResponse(codeInvalidParams, err.Error())
		}
		if args.RequestID == "" {
			return errResponse(codeInvalidParams, "requestId is required")
		}
		ex, err := s.svc.GetDetails(args.URL, args.RequestID)
		if err != nil {
			return mapToolErr(err)
		}
		return toolResponse(ex)

	case "get_analysis_summary":
		var args struct {
			URL string `json:"url"`
		}
		if err := unmarshalArgs(params.Arguments, &args); err != nil {
			return errResponse(codeInvalidParams, err.Error())
		}
		summary, err := s.svc.GetSummary(args.URL)
		if err != nil {
			return mapToolErr(err)
		}
		return toolResponse(summary)

	case "extract_elements":
		var args struct {
			URL        string `json:"url"`
			FilterType string `json:"filterType"`
		}
		if err := unmarshalArgs(params.Arguments, &args); err != nil {
			return errResponse(codeInvalidParams, err.Error())
		}
		elements, err := s.svc.ExtractElements(ctx, args.URL, args.FilterType)
		if err != nil {
			return mapToolErr(err)
		}
		return toolResponse(map[string]any{
			"count":    len(elements),
			"elements": elements,
		})

	case "fetch_url":
		var args struct {
			URL     string            `json:"url"`
			Method  string            `json:"method"`
			Headers map[string]string `json:"headers"`
			Body    string            `json:"body"`
		}
		if err := unmarshalArgs(params.Arguments, &args); err != nil {
			return errResponse(codeInvalidParams, err.Error())
		}
		result, err := s.svc.Fetch(ctx, analyzer.FetchParams{
			URL:     args.URL,
			Method:  args.Method,
			Headers: args.Headers,
			Body:    args.Body,
		})
		if err != nil {
			return mapToolErr(err)
		}
		return toolResponse(result)

	default:
		return errResponse(codeMethodNotFound, fmt.Sprintf("unknown tool: %s", params.Name))
	}
}

func unmarshalArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing tool arguments")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}
