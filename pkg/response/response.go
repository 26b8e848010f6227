// Package response validates Glide API responses and extracts their payloads.
package response

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/ajitpratap0/glidetables/pkg/clients"
	"github.com/ajitpratap0/glidetables/pkg/errors"
	"github.com/ajitpratap0/glidetables/pkg/json"
)

// maxBodyInMessage bounds how much of an error body is copied into the message
const maxBodyInMessage = 2048

// Check returns a transport error for any status outside 2xx.
// The error message and the "body" detail carry the raw response text.
func Check(resp *clients.Response) error {
	if resp == nil {
		return errors.New(errors.ErrorTypeInternal, "nil response")
	}
	if resp.OK() {
		return nil
	}

	body := resp.Text()
	shown := body
	if len(shown) > maxBodyInMessage {
		cut := maxBodyInMessage
		for cut > 0 && !utf8.RuneStart(shown[cut]) {
			cut--
		}
		shown = shown[:cut] + "..."
	}
	return errors.Newf(errors.ErrorTypeTransport, "request failed with status %d: %s", resp.StatusCode, shown).
		WithDetail("status", resp.StatusCode).
		WithDetail("body", body)
}

// StatusCode returns the HTTP status carried by a transport error
func StatusCode(err error) (int, bool) {
	v, ok := errors.Detail(err, "status")
	if !ok {
		return 0, false
	}
	status, ok := v.(int)
	return status, ok
}

// Body returns the raw response body carried by a transport error
func Body(err error) (string, bool) {
	v, ok := errors.Detail(err, "body")
	if !ok {
		return "", false
	}
	body, ok := v.(string)
	return body, ok
}

// envelope is the { data: ... } wrapper every payload arrives in
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Decode checks resp and decodes its data envelope into v
func Decode(resp *clients.Response, v interface{}) error {
	if err := Check(resp); err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "malformed response body").
			WithDetail("body", resp.Text())
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return errors.New(errors.ErrorTypeData, "response has no data").
			WithDetail("body", resp.Text())
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, fmt.Sprintf("unexpected data shape for %T", v)).
			WithDetail("body", resp.Text())
	}
	return nil
}

// RowIDs checks resp and returns data.rowIDs. A missing list is malformed.
func RowIDs(resp *clients.Response) ([]string, error) {
	var m struct {
		RowIDs *[]string `json:"rowIDs"`
	}
	if err := Decode(resp, &m); err != nil {
		return nil, err
	}
	if m.RowIDs == nil {
		return nil, errors.New(errors.ErrorTypeData, "response has no rowIDs").
			WithDetail("body", resp.Text())
	}
	return *m.RowIDs, nil
}
