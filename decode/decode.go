// Package decode turns classified response bodies into typed payloads.
//
// Bodies arrive as `svdata=` prefixed JSON envelopes:
//
//	svdata={"api_result":1,"api_result_msg":"...","api_data":{...}}
//
// Decoding is pure: the same bytes always yield an identical payload.
package decode

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/justapithecus/logbook/types"
)

// svdataPrefix precedes the JSON envelope in every API response.
var svdataPrefix = []byte("svdata=")

// Exchange decodes a captured exchange. The result is linked back to the
// exchange by ID and stamped with its completion time.
func Exchange(dt types.DataType, ex *types.Exchange) (*types.Decoded, error) {
	d, _, err := ExchangeBody(dt, ex)
	return d, err
}

// ExchangeBody is Exchange that also returns the inflated response body.
// The body is returned even when decoding fails.
func ExchangeBody(dt types.DataType, ex *types.Exchange) (*types.Decoded, []byte, error) {
	body := Inflate(ex.ResponseBody, ex.ContentEncoding)
	d, err := Decode(dt, body, "", ex.RequestBody)
	if err != nil {
		return nil, body, err
	}
	d.ExchangeID = ex.ID
	d.CapturedAt = ex.CompletedAt
	return d, body, nil
}

// Decode parses body as the payload for dt. The body is gunzipped first when
// contentEncoding is gzip; a body that fails to inflate is treated as already
// decoded. requestBody carries the form fields some calls are keyed by.
func Decode(dt types.DataType, body []byte, contentEncoding string, requestBody []byte) (*types.Decoded, error) {
	fn, ok := decoders[dt]
	if !ok {
		return nil, &DecodeError{Kind: ErrorUnsupported, Type: dt, Msg: "no decoder"}
	}

	body = Inflate(body, contentEncoding)

	root, err := envelope(dt, body)
	if err != nil {
		return nil, err
	}

	p := &parser{dt: dt, form: types.ParseForm(requestBody)}
	payload := fn(p, root, root.Get("api_data"))
	if p.err != nil {
		return nil, p.err
	}
	return &types.Decoded{Type: dt, Data: payload}, nil
}

// Inflate gunzips body when encoding is gzip. Any inflate failure returns
// body unchanged.
func Inflate(body []byte, encoding string) []byte {
	if !strings.EqualFold(strings.TrimSpace(encoding), "gzip") {
		return body
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer func() { _ = zr.Close() }()
	out, err := io.ReadAll(zr)
	if err != nil {
		return body
	}
	return out
}

// envelope validates the svdata wrapper and api_result.
func envelope(dt types.DataType, body []byte) (gjson.Result, error) {
	body = bytes.TrimSpace(body)
	body = bytes.TrimPrefix(body, svdataPrefix)

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &DecodeError{Kind: ErrorEnvelope, Type: dt, Msg: "body is not valid JSON"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return gjson.Result{}, &DecodeError{Kind: ErrorEnvelope, Type: dt, Msg: "envelope is not an object"}
	}

	result := root.Get("api_result")
	if result.Type != gjson.Number {
		return gjson.Result{}, &DecodeError{Kind: ErrorEnvelope, Type: dt, Path: "api_result", Msg: "missing"}
	}
	if result.Int() != 1 {
		return gjson.Result{}, &DecodeError{
			Kind: ErrorAPIResult,
			Type: dt,
			Path: "api_result",
			Msg:  "server reported " + result.Raw + " " + root.Get("api_result_msg").String(),
		}
	}
	return root, nil
}
