package inbound

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Request is the transport-neutral view of one gateway callback. The web
// layer fills it from net/http; tests construct it directly.
type Request struct {
	Method  string
	Host    string
	Path    string
	Query   url.Values
	Form    url.Values
	Headers map[string]string
	Body    []byte

	// RawQuery is the query string exactly as the gateway sent it. Query is
	// the decoded view for lookups; signatures hash the raw bytes.
	RawQuery string

	// Action is the verb segment of the route ("receive", "status", ...).
	// Empty when the provider derives the action from the payload itself.
	Action string

	// Lookup carries the channel key extracted from the route path.
	Lookup Lookup
}

// Lookup is the channel key a route addressed: a channel UUID, a gateway
// address, or both candidates for uuid-or-address routes.
type Lookup struct {
	UUID    string
	Address string
}

// Param returns the first non-empty value for key, checking the POST form
// before the query string. Gateways are inconsistent about which they use.
func (r *Request) Param(key string) string {
	if r == nil {
		return ""
	}
	if r.Form != nil {
		if value := strings.TrimSpace(r.Form.Get(key)); value != "" {
			return value
		}
	}
	if r.Query != nil {
		return strings.TrimSpace(r.Query.Get(key))
	}
	return ""
}

// HasParam reports whether key is present at all, even with an empty value.
func (r *Request) HasParam(key string) bool {
	if r == nil {
		return false
	}
	if r.Form != nil {
		if _, ok := r.Form[key]; ok {
			return true
		}
	}
	if r.Query != nil {
		if _, ok := r.Query[key]; ok {
			return true
		}
	}
	return false
}

func (r *Request) Header(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	for existing, value := range r.Headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// URL reconstructs the absolute URL the gateway signed, query included.
// Signature schemes hash this exact string, so the raw query is used when the
// web layer captured one; Encode would reorder and re-escape the parameters.
func (r *Request) URL() string {
	if r == nil {
		return ""
	}
	u := "https://" + r.Host + r.Path
	if r.RawQuery != "" {
		return u + "?" + r.RawQuery
	}
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}
	return u
}

// DecodeJSON decodes the raw request body into v.
func (r *Request) DecodeJSON(v any) error {
	if r == nil || len(r.Body) == 0 {
		return json.Unmarshal([]byte("null"), v)
	}
	return json.Unmarshal(r.Body, v)
}

// Response is the acknowledgement returned to the gateway. Providers are
// picky about bodies; adapters produce theirs byte-exact.
type Response struct {
	StatusCode  int
	ContentType string
	Body        string
}

func Text(statusCode int, body string) Response {
	return Response{StatusCode: statusCode, ContentType: "text/plain", Body: body}
}

func XML(statusCode int, body string) Response {
	return Response{StatusCode: statusCode, ContentType: "application/xml", Body: body}
}

// JSON marshals v as the response body. Marshal failures degrade to an empty
// object rather than failing the ack.
func JSON(statusCode int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		body = []byte("{}")
	}
	return Response{StatusCode: statusCode, ContentType: "application/json", Body: string(body)}
}

func OK(body string) Response {
	return Text(http.StatusOK, body)
}
