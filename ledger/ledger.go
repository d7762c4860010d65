package ledger

import (
	"sync"

	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/transaction"
)

// balanceKey identifies one (ticker, holder) balance cell.
type balanceKey struct {
	ticker transaction.Ticker
	holder string
}

// Ledger holds committed token state: which tickers are initialized, who
// holds how much of each, and (when nonce enforcement is on) the last
// applied nonce per sender. Reads are concurrent; mutation happens only
// through Commit, which the engine serializes.
type Ledger struct {
	mu           sync.RWMutex
	hasher       crypto.Hasher
	requireNonce bool
	initialized  map[transaction.Ticker]struct{}
	balances     map[balanceKey]uint16
	nonces       map[string]uint64
}

func New(hasher crypto.Hasher, requireNonce bool) *Ledger {
	return &Ledger{
		hasher:       hasher,
		requireNonce: requireNonce,
		initialized:  make(map[transaction.Ticker]struct{}),
		balances:     make(map[balanceKey]uint16),
		nonces:       make(map[string]uint64),
	}
}

// RequireNonce reports whether this ledger enforces per-sender nonces.
func (l *Ledger) RequireNonce() bool {
	return l.requireNonce
}

// Balance is a total read: any (ticker, holder) pair without an explicit
// entry holds zero.
func (l *Ledger) Balance(ticker transaction.Ticker, holder string) uint16 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[balanceKey{ticker: ticker, holder: holder}]
}

// IsInitialized reports whether a mint for ticker has been applied.
func (l *Ledger) IsInitialized(ticker transaction.Ticker) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.initialized[ticker]
	return ok
}

// NonceOf returns the last applied nonce for sender, zero if none.
func (l *Ledger) NonceOf(sender string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nonces[sender]
}

// NewView opens a copy-on-write overlay for staging one block's effects.
func (l *Ledger) NewView() *View {
	return &View{
		base:        l,
		initialized: make(map[transaction.Ticker]struct{}),
		balances:    make(map[balanceKey]uint16),
		nonces:      make(map[string]uint64),
	}
}

// Commit folds a staged view into the committed state. Callers must
// serialize commits; readers block for the duration of the fold and
// never observe a partial one.
func (l *Ledger) Commit(v *View) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ticker := range v.initialized {
		l.initialized[ticker] = struct{}{}
	}
	for key, balance := range v.balances {
		l.balances[key] = balance
	}
	for sender, nonce := range v.nonces {
		l.nonces[sender] = nonce
	}
}
