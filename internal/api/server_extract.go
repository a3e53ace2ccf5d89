package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/webscope/internal/classify"
)

func registerExtractHandlers(api huma.API, svc Service) {
	type extractInput struct {
		Body struct {
			URL        string `json:"url" doc:"Absolute URL to load"`
			FilterType string `json:"filterType" enum:"text,image,link,script" doc:"Kind of elements to extract"`
		}
	}
	type extractOutput struct {
		Body struct {
			Count    int                `json:"count"`
			Elements []classify.Element `json:"elements"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "extract-elements", Method: http.MethodPost, Path: "/api/v1/extract", Summary: "Extract page elements with derived CSS selectors", Tags: []string{"Extraction"}},
		func(ctx context.Context, input *extractInput) (*extractOutput, error) {
			elements, err := svc.ExtractElements(ctx, input.Body.URL, input.Body.FilterType)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &extractOutput{}
			out.Body.Count = len(elements)
			out.Body.Elements = elements
			return out, nil
		})
}
