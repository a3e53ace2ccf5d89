package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/webscope/internal/analyzer"
)

func registerFetchHandlers(api huma.API, svc Service) {
	type fetchInput struct {
		Body struct {
			URL     string            `json:"url" doc:"Absolute URL to fetch"`
			Method  string            `json:"method,omitempty" default:"GET" doc:"HTTP method"`
			Headers map[string]string `json:"headers,omitempty" doc:"Request headers"`
			Body    string            `json:"body,omitempty" doc:"Request body"`
		}
	}
	type fetchOutput struct {
		Body analyzer.FetchResult
	}
	huma.Register(api, huma.Operation{OperationID: "fetch", Method: http.MethodPost, Path: "/api/v1/fetch", Summary: "Direct HTTP fetch without the browser", Tags: []string{"Fetch"}},
		func(ctx context.Context, input *fetchInput) (*fetchOutput, error) {
			result, err := svc.Fetch(ctx, analyzer.FetchParams{
				URL:     input.Body.URL,
				Method:  input.Body.Method,
				Headers: input.Body.Headers,
				Body:    input.Body.Body,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			out := &fetchOutput{}
			out.Body = result
			return out, nil
		})
}
