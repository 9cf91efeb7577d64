// Package inbound holds the gateway-agnostic request pipeline: the HTTP
// envelope types, the adapter contract every provider implements, a static
// registry of adapters, and the dispatcher that turns one gateway callback
// into lifecycle operations plus a provider-exact acknowledgement.
package inbound
