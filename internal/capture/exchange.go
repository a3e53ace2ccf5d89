package capture

import (
	"time"

	"github.com/chromedp/cdproto/network"
)

// Exchange is one observed network request, optionally paired with its
// response once it arrives. Fields under the response section stay zero
// until correlation succeeds.
type Exchange struct {
	ID              string            `json:"id"`
	URL             string            `json:"url"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers"`
	PostData        string            `json:"postData,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
	ResourceType    string            `json:"resourceType"`
	Status          int               `json:"status,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders,omitempty"`
	ResponseBody    string            `json:"responseBody,omitempty"`
}

// ExchangeSummary is the lightweight projection returned by domain-filtered
// request listings.
type ExchangeSummary struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Method       string    `json:"method"`
	ResourceType string    `json:"resourceType"`
	Status       int       `json:"status,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Summarize projects an exchange down to its listing shape.
func (e *Exchange) Summarize() ExchangeSummary {
	return ExchangeSummary{
		ID:           e.ID,
		URL:          e.URL,
		Method:       e.Method,
		ResourceType: e.ResourceType,
		Status:       e.Status,
		Timestamp:    e.Timestamp,
	}
}

// mapResourceType normalizes the browser's resource classification into the
// small set used throughout reports.
func mapResourceType(t network.ResourceType) string {
	switch t {
	case network.ResourceTypeDocument:
		return "document"
	case network.ResourceTypeScript:
		return "script"
	case network.ResourceTypeStylesheet:
		return "stylesheet"
	case network.ResourceTypeImage:
		return "image"
	case network.ResourceTypeFont:
		return "font"
	case network.ResourceTypeXHR:
		return "xhr"
	case network.ResourceTypeFetch:
		return "fetch"
	case network.ResourceTypeMedia:
		return "media"
	default:
		return "other"
	}
}

func headerMapToStringMap(headers map[string]any) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}
