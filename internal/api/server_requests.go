package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/webscope/internal/capture"
)

func registerRequestHandlers(api huma.API, svc Service) {
	type byDomainInput struct {
		URL    string `query:"url" required:"true" doc:"URL of a previously analyzed site"`
		Domain string `query:"domain" required:"true" doc:"Exact hostname to filter by"`
	}
	type byDomainOutput struct {
		Body struct {
			Domain   string                    `json:"domain"`
			Count    int                       `json:"count"`
			Requests []capture.ExchangeSummary `json:"requests"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-requests-by-domain", Method: http.MethodGet, Path: "/api/v1/requests", Summary: "List captured requests for one domain", Tags: []string{"Requests"}},
		func(ctx context.Context, input *byDomainInput) (*byDomainOutput, error) {
			requests, err := svc.GetByDomain(input.URL, input.Domain)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &byDomainOutput{}
			out.Body.Domain = input.Domain
			out.Body.Count = len(requests)
			out.Body.Requests = requests
			return out, nil
		})

	type detailsInput struct {
		RequestID string `path:"request_id" doc:"Capture id of the exchange"`
		URL       string `query:"url" required:"true" doc:"URL of a previously analyzed site"`
	}
	type detailsOutput struct {
		Body capture.Exchange
	}
	huma.Register(api, huma.Operation{OperationID: "get-request-details", Method: http.MethodGet, Path: "/api/v1/requests/{request_id}", Summary: "Full exchange record including headers and bodies", Tags: []string{"Requests"}},
		func(ctx context.Context, input *detailsInput) (*detailsOutput, error) {
			ex, err := svc.GetDetails(input.URL, input.RequestID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &detailsOutput{}
			out.Body = *ex
			return out, nil
		})
}
