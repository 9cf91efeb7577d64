// Package web mounts the inbound dispatcher on net/http. Each channel type
// is served under /c/{channel_type}/[{action}/[{uuid_or_address}/]]; the
// handler translates the HTTP request into the dispatcher envelope and the
// dispatcher's error taxonomy back into status codes and plain bodies.
package web

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
	"github.com/arundhatirjnavada/relay/ratelimit"
)

const maxRequestBodyBytes int64 = 1 << 20 // gateways post small payloads

// RateLimiter throttles callback sources before they reach the dispatcher.
type RateLimiter interface {
	Allow(ctx context.Context, key ratelimit.Key) error
}

type Server struct {
	dispatcher *inbound.Dispatcher
	config     core.Config
	observer   *core.Observer
	limiter    RateLimiter
}

type ServerOption func(*Server)

func WithRateLimiter(limiter RateLimiter) ServerOption {
	return func(s *Server) {
		s.limiter = limiter
	}
}

func NewServer(dispatcher *inbound.Dispatcher, config core.Config, provider core.LoggerProvider, logger core.Logger, opts ...ServerOption) *Server {
	server := &Server{
		dispatcher: dispatcher,
		config:     config,
		observer:   core.NewObserver("web", provider, logger, nil),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(server)
	}
	return server
}

// Handler returns the route table. Everything lives under /c/ so the relay
// can be mounted next to other services on a shared listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/c/", s.handleChannel)
	return mux
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	channelType, req, err := s.buildRequest(r)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}

	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, limiterKey(channelType, req.Lookup)); err != nil {
			s.writeError(ctx, w, err)
			return
		}
	}

	resp, err := s.dispatcher.Dispatch(ctx, channelType, req)
	if err != nil {
		s.writeError(ctx, w, err)
		return
	}
	writeResponse(w, resp)
}

// buildRequest maps the HTTP request onto the dispatcher envelope. Path
// shape: /c/{channel_type}/{action}/{uuid_or_address}/ with the trailing
// segments optional; adapters that resolve channels from the payload are
// mounted bare as /c/{channel_type}/.
func (s *Server) buildRequest(r *http.Request) (core.ChannelType, *inbound.Request, error) {
	segments := splitPath(strings.TrimPrefix(r.URL.Path, "/c/"))
	if len(segments) == 0 || segments[0] == "" {
		return "", nil, core.ChannelNotFound("channel not found", nil)
	}
	channelType := core.ChannelType(strings.ToLower(segments[0]))

	req := &inbound.Request{
		Method:   r.Method,
		Host:     s.requestHost(r),
		Path:     r.URL.Path,
		Query:    r.URL.Query(),
		RawQuery: r.URL.RawQuery,
		Headers:  flattenHeaders(r.Header),
	}
	if len(segments) > 1 {
		req.Action = segments[1]
	}
	if len(segments) > 2 {
		if looksLikeUUID(segments[2]) {
			req.Lookup.UUID = segments[2]
		} else {
			req.Lookup.Address = segments[2]
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		return "", nil, core.MalformedPayload("unable to read request body", map[string]any{
			"channel_type": string(channelType),
		})
	}
	req.Body = body

	if isFormContentType(r.Header.Get("Content-Type")) {
		form, parseErr := url.ParseQuery(string(body))
		if parseErr != nil {
			return "", nil, core.MalformedPayload("unable to parse form body", map[string]any{
				"channel_type": string(channelType),
			})
		}
		req.Form = form
	}

	return channelType, req, nil
}

// requestHost prefers the configured public host so signature checks that
// reconstruct the request URL see the address the gateway signed, not an
// internal hostname behind the proxy.
func (s *Server) requestHost(r *http.Request) string {
	if host := strings.TrimSpace(s.config.Host); host != "" {
		return host
	}
	return r.Host
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := core.RelayErrorMapper(err)
	s.observer.LogError(ctx, "request rejected", map[string]any{
		"status":    mapped.Code,
		"text_code": mapped.TextCode,
		"error":     mapped.Message,
	})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(mapped.Code)
	_, _ = io.WriteString(w, mapped.Message)
}

func writeResponse(w http.ResponseWriter, resp inbound.Response) {
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}
	statusCode := resp.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)
	_, _ = io.WriteString(w, resp.Body)
}

// limiterKey buckets by the route's lookup value. Adapters that resolve the
// channel from the payload share one bucket per channel type.
func limiterKey(channelType core.ChannelType, lookup inbound.Lookup) ratelimit.Key {
	key := ratelimit.Key{ChannelType: string(channelType)}
	switch {
	case lookup.UUID != "":
		key.Scope = "uuid"
		key.Value = lookup.UUID
	case lookup.Address != "":
		key.Scope = "address"
		key.Value = lookup.Address
	default:
		key.Scope = "type"
	}
	return key
}

func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		segments = append(segments, segment)
	}
	return segments
}

// looksLikeUUID distinguishes channel UUIDs from short codes and phone
// numbers in the trailing path segment.
func looksLikeUUID(segment string) bool {
	if len(segment) != 36 {
		return false
	}
	for i, r := range segment {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
			if !isHex {
				return false
			}
		}
	}
	return true
}

func flattenHeaders(header http.Header) map[string]string {
	out := make(map[string]string, len(header))
	for key, values := range header {
		if len(values) == 0 {
			continue
		}
		out[key] = values[0]
	}
	return out
}

func isFormContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}
