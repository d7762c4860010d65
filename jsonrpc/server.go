package jsonrpc

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"

	"github.com/mtlnet/mtl/block"
	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/errors"
	"github.com/mtlnet/mtl/exception"
	"github.com/mtlnet/mtl/logx"
	"github.com/mtlnet/mtl/ratelimit"
	"github.com/mtlnet/mtl/transaction"
)

// Node is the engine surface the RPC server exposes.
type Node interface {
	Balance(ticker transaction.Ticker, holder string) uint16
	IsInitialized(ticker transaction.Ticker) bool
	NonceOf(sender string) uint64
	StateHash() crypto.Digest
	Tip() *block.Block
	Block(number uint32) (*block.Block, error)
	ProposeBlock(b *block.Block) error
}

// --- Error mapping ---

const (
	rpcCodeLedgerError = -32000
	rpcCodeInternal    = -32603
)

func toJRPC2Error(err error) error {
	var ledgerError *errors.LedgerError
	if stderrors.As(err, &ledgerError) {
		return jrpc2.Errorf(jrpc2.Code(rpcCodeLedgerError), "%s", ledgerError.Message).WithData(ledgerError)
	}
	return jrpc2.Errorf(jrpc2.Code(rpcCodeInternal), "%s", err.Error())
}

// --- Params/Results ---

type getBalanceParams struct {
	Ticker  string `json:"ticker"`
	Address string `json:"address"`
}

type getBalanceResult struct {
	Ticker  string `json:"ticker"`
	Address string `json:"address"`
	Balance uint16 `json:"balance"`
}

type isInitializedParams struct {
	Ticker string `json:"ticker"`
}

type isInitializedResult struct {
	Ticker      string `json:"ticker"`
	Initialized bool   `json:"initialized"`
}

type getNonceParams struct {
	Address string `json:"address"`
}

type getNonceResult struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

type getStateHashResult struct {
	StateHash string `json:"state_hash"`
}

type getBlockParams struct {
	Number uint32 `json:"number"`
}

type proposeBlockParams struct {
	Block *block.Block `json:"block"`
}

type ProposeBlockResult struct {
	Ok        bool   `json:"ok"`
	Number    uint32 `json:"number"`
	BlockHash string `json:"block_hash"`
}

type healthCheckResult struct {
	Ok        bool   `json:"ok"`
	TipNumber uint32 `json:"tip_number"`
}

// --- HTTP server ---

type Server struct {
	addr           string
	node           Node
	proposeLimiter *ratelimit.RateLimiter
	allowedOrigins []string
	httpServer     *http.Server
}

// NewServer wires the RPC surface over a node. proposeLimiter may be
// nil, in which case chain.proposeblock is unthrottled.
func NewServer(addr string, node Node, proposeLimiter *ratelimit.RateLimiter) *Server {
	return &Server{
		addr:           addr,
		node:           node,
		proposeLimiter: proposeLimiter,
	}
}

// SetAllowedOrigins enables CORS responses for browser clients. An
// empty list keeps CORS headers off entirely.
func (s *Server) SetAllowedOrigins(origins []string) {
	s.allowedOrigins = origins
}

// handler assembles the HTTP surface: the JSON-RPC bridge wrapped with
// CORS handling for browser clients.
func (s *Server) handler() http.Handler {
	bridge := jhttp.NewBridge(s.buildMethodMap(), &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.setCORSHeaders(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		bridge.ServeHTTP(w, r)
	}))
	return mux
}

// Start serves the JSON-RPC surface without blocking.
func (s *Server) Start() {
	s.httpServer = &http.Server{Addr: s.addr, Handler: s.handler()}

	// the node is useless without its RPC surface, so a panic here
	// takes the process down
	exception.SafeGoWithPanic("jsonrpc-server", func() {
		logx.Info("JSONRPC", fmt.Sprintf("Serving JSON-RPC on %s", s.addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Error("JSONRPC", "Server stopped: ", err)
		}
	})
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// setCORSHeaders answers for allowed origins only. The RPC surface is
// POST-only JSON, so methods and headers are fixed.
func (s *Server) setCORSHeaders(w http.ResponseWriter, r *http.Request) {
	if len(s.allowedOrigins) == 0 {
		return
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			return
		}
	}
}

func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		MethodLedgerGetBalance: handler.New(func(ctx context.Context, p getBalanceParams) (*getBalanceResult, error) {
			balance := s.node.Balance(transaction.Ticker(p.Ticker), p.Address)
			return &getBalanceResult{Ticker: p.Ticker, Address: p.Address, Balance: balance}, nil
		}),

		MethodLedgerIsInitialized: handler.New(func(ctx context.Context, p isInitializedParams) (*isInitializedResult, error) {
			return &isInitializedResult{Ticker: p.Ticker, Initialized: s.node.IsInitialized(transaction.Ticker(p.Ticker))}, nil
		}),

		MethodLedgerGetNonce: handler.New(func(ctx context.Context, p getNonceParams) (*getNonceResult, error) {
			return &getNonceResult{Address: p.Address, Nonce: s.node.NonceOf(p.Address)}, nil
		}),

		MethodLedgerGetStateHash: handler.New(func(ctx context.Context) (*getStateHashResult, error) {
			return &getStateHashResult{StateHash: s.node.StateHash().Hex()}, nil
		}),

		MethodChainGetTip: handler.New(func(ctx context.Context) (*block.Block, error) {
			return s.node.Tip(), nil
		}),

		MethodChainGetBlock: handler.New(func(ctx context.Context, p getBlockParams) (*block.Block, error) {
			b, err := s.node.Block(p.Number)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			if b == nil {
				return nil, toJRPC2Error(errors.Newf(errors.CodeNotFound, "no block at number %d", p.Number))
			}
			return b, nil
		}),

		MethodChainProposeBlock: handler.New(func(ctx context.Context, p proposeBlockParams) (*ProposeBlockResult, error) {
			if s.proposeLimiter != nil && !s.proposeLimiter.Allow(proposeLimiterKey(ctx)) {
				return nil, toJRPC2Error(errors.New(errors.CodeRateLimited, "too many block proposals"))
			}
			if p.Block == nil {
				return nil, toJRPC2Error(errors.New(errors.CodeDecode, "proposal carries no block"))
			}
			if err := s.node.ProposeBlock(p.Block); err != nil {
				return nil, toJRPC2Error(err)
			}
			return &ProposeBlockResult{Ok: true, Number: p.Block.Number, BlockHash: p.Block.BlockHash.Hex()}, nil
		}),

		MethodHealthCheck: handler.New(func(ctx context.Context) (*healthCheckResult, error) {
			return &healthCheckResult{Ok: true, TipNumber: s.node.Tip().Number}, nil
		}),
	}
}

// proposeLimiterKey buckets proposals by client IP when the bridge
// exposes the request, falling back to a shared key.
func proposeLimiterKey(ctx context.Context) string {
	if req := jhttp.HTTPRequest(ctx); req != nil {
		return extractClientIPFromRequest(req)
	}
	return "propose"
}
