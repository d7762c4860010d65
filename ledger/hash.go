package ledger

import (
	"encoding/binary"
	"sort"

	"github.com/mtlnet/mtl/crypto"
	"github.com/mtlnet/mtl/transaction"
)

// StateHash digests the committed state in a canonical order: tickers
// sorted, holders sorted within each ticker, then nonces sorted by
// sender. Two ledgers that applied the same blocks produce the same
// digest regardless of map iteration order.
func (l *Ledger) StateHash() crypto.Digest {
	l.mu.RLock()
	defer l.mu.RUnlock()

	holdersByTicker := make(map[transaction.Ticker][]string, len(l.initialized))
	for ticker := range l.initialized {
		holdersByTicker[ticker] = nil
	}
	for key := range l.balances {
		holdersByTicker[key.ticker] = append(holdersByTicker[key.ticker], key.holder)
	}

	tickers := make([]transaction.Ticker, 0, len(holdersByTicker))
	for ticker := range holdersByTicker {
		tickers = append(tickers, ticker)
	}
	sort.Slice(tickers, func(i, j int) bool { return tickers[i] < tickers[j] })

	buf := binary.BigEndian.AppendUint32(nil, uint32(len(tickers)))
	for _, ticker := range tickers {
		holders := holdersByTicker[ticker]
		sort.Strings(holders)
		buf = appendLenPrefixed(buf, []byte(ticker))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(holders)))
		for _, holder := range holders {
			buf = appendLenPrefixed(buf, []byte(holder))
			buf = binary.BigEndian.AppendUint16(buf, l.balances[balanceKey{ticker: ticker, holder: holder}])
		}
	}

	senders := make([]string, 0, len(l.nonces))
	for sender := range l.nonces {
		senders = append(senders, sender)
	}
	sort.Strings(senders)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(senders)))
	for _, sender := range senders {
		buf = appendLenPrefixed(buf, []byte(sender))
		buf = binary.BigEndian.AppendUint64(buf, l.nonces[sender])
	}

	return l.hasher.Sum(buf)
}

func appendLenPrefixed(buf, data []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(data)))
	return append(buf, data...)
}
