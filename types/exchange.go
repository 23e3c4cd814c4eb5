package types

import (
	"net/url"
	"time"
)

// Exchange is one captured request/response pair.
// It is created when an in-scope response begins streaming and handed to
// the pipeline once the response has been read to completion.
type Exchange struct {
	// ID is a unique identifier for the exchange (uuid).
	ID string `json:"id" msgpack:"id"`
	// URL is the full request URL as seen by the proxy.
	URL string `json:"url" msgpack:"url"`
	// Host is the upstream host (without port).
	Host string `json:"host" msgpack:"host"`
	// Path is the request path.
	Path string `json:"path" msgpack:"path"`
	// RequestBody is the form-encoded request body; nil when the request had none.
	RequestBody []byte `json:"request_body,omitempty" msgpack:"request_body,omitempty"`
	// ResponseBody is the raw response body, still content-encoded.
	ResponseBody []byte `json:"response_body" msgpack:"response_body"`
	// ContentType is the response Content-Type header.
	ContentType string `json:"content_type" msgpack:"content_type"`
	// ContentEncoding is the response Content-Encoding header ("gzip" or empty).
	ContentEncoding string `json:"content_encoding,omitempty" msgpack:"content_encoding,omitempty"`
	// StartedAt is when the request arrived at the proxy.
	StartedAt time.Time `json:"started_at" msgpack:"started_at"`
	// CompletedAt is when the last response byte was read.
	CompletedAt time.Time `json:"completed_at" msgpack:"completed_at"`
}

// Form parses the request body as form values.
// A missing or malformed body yields empty values.
func (e *Exchange) Form() url.Values {
	return ParseForm(e.RequestBody)
}

// ParseForm parses a form-encoded body, ignoring malformed input.
func ParseForm(body []byte) url.Values {
	if len(body) == 0 {
		return url.Values{}
	}
	v, err := url.ParseQuery(string(body))
	if err != nil {
		return url.Values{}
	}
	return v
}

// Decoded is a typed payload produced from a classified exchange.
// Decoded values are never modified after construction.
type Decoded struct {
	// Type is the classification of the source exchange.
	Type DataType `json:"type"`
	// ExchangeID links back to the source exchange.
	ExchangeID string `json:"exchange_id,omitempty"`
	// CapturedAt is the completion time of the source exchange.
	CapturedAt time.Time `json:"captured_at"`
	// Data is one of the payload structs declared in payloads.go.
	Data Payload `json:"data"`
}

// Payload is implemented by every typed payload.
type Payload interface {
	payload()
}
