package analyzer

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

const fetchTimeout = 30 * time.Second

// FetchParams describes a direct HTTP request made outside the browser.
type FetchParams struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    string
}

// FetchResult carries the raw response of a direct fetch.
type FetchResult struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
	DurationMS int64             `json:"durationMs"`
}

// Fetch performs a plain HTTP exchange without involving the browser.
func (s *Service) Fetch(ctx context.Context, params FetchParams) (FetchResult, error) {
	if err := validateURL(params.URL); err != nil {
		return FetchResult{}, err
	}

	method := strings.ToUpper(params.Method)
	if method == "" {
		method = http.MethodGet
	}

	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	var bodyReader io.Reader
	if params.Body != "" {
		bodyReader = strings.NewReader(params.Body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, params.URL, bodyReader)
	if err != nil {
		return FetchResult{}, newError(CodeValidation, "request construction failed", err)
	}
	for k, v := range params.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return FetchResult{}, classifyRunError(params.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, classifyRunError(params.URL, err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return FetchResult{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    headers,
		Body:       string(body),
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}
