package clients

import (
	"net/http"

	"github.com/ajitpratap0/glidetables/pkg/json"
)

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Text returns the body as a string
func (r *Response) Text() string {
	return string(r.Body)
}

// JSON decodes the body into v
func (r *Response) JSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}
