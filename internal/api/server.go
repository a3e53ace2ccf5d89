package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/webscope/internal/analyzer"
	"github.com/dgnsrekt/webscope/internal/capture"
	"github.com/dgnsrekt/webscope/internal/classify"
	"github.com/dgnsrekt/webscope/internal/relay"
	"github.com/dgnsrekt/webscope/internal/report"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the tool surface exposed over both transports.
type Service interface {
	Analyze(ctx context.Context, params analyzer.AnalyzeParams) (*report.Report, error)
	ExtractElements(ctx context.Context, url, filterType string) ([]classify.Element, error)
	Fetch(ctx context.Context, params analyzer.FetchParams) (analyzer.FetchResult, error)
	GetSummary(url string) (report.Summary, error)
	GetByDomain(url, domain string) ([]capture.ExchangeSummary, error)
	GetDetails(url, requestID string) (*capture.Exchange, error)
	ReportURLs() []string
	ClearReports() int
}

// NewServer builds the HTTP binding. broker may be nil; the live event
// stream is then disabled.
func NewServer(svc Service, broker *relay.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Webscope Analysis API", "1.0.0")
	api := humachi.New(router, cfg)

	registerAnalyzeHandlers(api, svc)
	registerRequestHandlers(api, svc)
	registerExtractHandlers(api, svc)
	registerFetchHandlers(api, svc)
	registerMiscHandlers(api, svc)

	if broker != nil {
		router.Get("/api/v1/events", relay.WSHandler(broker))
	}

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *analyzer.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case analyzer.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case analyzer.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case analyzer.CodeNavTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case analyzer.CodeBrowserUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
