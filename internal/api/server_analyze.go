package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/webscope/internal/analyzer"
	"github.com/dgnsrekt/webscope/internal/report"
)

func registerAnalyzeHandlers(api huma.API, svc Service) {
	type analyzeInput struct {
		Body struct {
			URL           string `json:"url" doc:"Absolute URL to analyze"`
			WaitTime      int    `json:"waitTime,omitempty" default:"3000" doc:"Extra settle time in ms after network idle, clamped to [0, 10000]"`
			IncludeImages bool   `json:"includeImages,omitempty" doc:"Capture image and media requests"`
			QuickMode     bool   `json:"quickMode,omitempty" doc:"Force a fixed 1s settle instead of waitTime"`
		}
	}
	type summaryOutput struct {
		Body report.Summary
	}
	huma.Register(api, huma.Operation{OperationID: "analyze", Method: http.MethodPost, Path: "/api/v1/analyze", Summary: "Analyze a website's network traffic", Tags: []string{"Analysis"}},
		func(ctx context.Context, input *analyzeInput) (*summaryOutput, error) {
			r, err := svc.Analyze(ctx, analyzer.AnalyzeParams{
				URL:           input.Body.URL,
				WaitTime:      input.Body.WaitTime,
				IncludeImages: input.Body.IncludeImages,
				QuickMode:     input.Body.QuickMode,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			out := &summaryOutput{}
			out.Body = r.Summarize()
			return out, nil
		})

	type summaryInput struct {
		URL string `query:"url" required:"true" doc:"URL of a previously analyzed site"`
	}
	huma.Register(api, huma.Operation{OperationID: "get-summary", Method: http.MethodGet, Path: "/api/v1/summary", Summary: "Re-derive the summary of a stored analysis", Tags: []string{"Analysis"}},
		func(ctx context.Context, input *summaryInput) (*summaryOutput, error) {
			sum, err := svc.GetSummary(input.URL)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &summaryOutput{}
			out.Body = sum
			return out, nil
		})
}
