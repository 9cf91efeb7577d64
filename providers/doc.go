// Package providers contains one adapter per supported gateway. Adapters are
// small stateless values implementing the inbound contract; per-gateway
// differences live in data (status tables, route shapes, ack bodies) and in
// the handful of parse functions that cannot be expressed as data.
package providers
