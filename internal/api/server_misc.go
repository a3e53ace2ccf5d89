package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func registerMiscHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type reportsOutput struct {
		Body struct {
			Count int      `json:"count"`
			URLs  []string `json:"urls"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-reports", Method: http.MethodGet, Path: "/api/v1/reports", Summary: "List analyzed URLs", Tags: []string{"Reports"}},
		func(ctx context.Context, input *struct{}) (*reportsOutput, error) {
			urls := svc.ReportURLs()
			out := &reportsOutput{}
			out.Body.Count = len(urls)
			out.Body.URLs = urls
			return out, nil
		})

	type clearOutput struct {
		Body struct {
			Cleared int `json:"cleared"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "clear-reports", Method: http.MethodDelete, Path: "/api/v1/reports", Summary: "Drop all stored reports", Tags: []string{"Reports"}},
		func(ctx context.Context, input *struct{}) (*clearOutput, error) {
			out := &clearOutput{}
			out.Body.Cleared = svc.ClearReports()
			return out, nil
		})
}
