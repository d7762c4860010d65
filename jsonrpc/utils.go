package jsonrpc

import (
	"net"
	"net/http"
	"strings"
)

// Method names served over the bridge
const (
	// Ledger methods
	MethodLedgerGetBalance    = "ledger.getbalance"
	MethodLedgerIsInitialized = "ledger.isinitialized"
	MethodLedgerGetNonce      = "ledger.getnonce"
	MethodLedgerGetStateHash  = "ledger.getstatehash"

	// Chain methods
	MethodChainGetTip       = "chain.gettip"
	MethodChainGetBlock     = "chain.getblock"
	MethodChainProposeBlock = "chain.proposeblock"

	// Health
	MethodHealthCheck = "health.check"
)

// extractClientIPFromRequest picks the address rate limiting buckets
// by. The leftmost X-Forwarded-For hop is the original client when a
// proxy fronts the node; otherwise the socket peer is the client.
func extractClientIPFromRequest(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		client, _, _ := strings.Cut(xff, ",")
		if ip := net.ParseIP(strings.TrimSpace(client)); ip != nil {
			return ip.String()
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
