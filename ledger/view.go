package ledger

import (
	"github.com/mtlnet/mtl/errors"
	"github.com/mtlnet/mtl/transaction"
)

// View is a copy-on-write overlay on a Ledger. Transactions are checked
// and applied against the view; nothing reaches the underlying ledger
// until Commit. Discarding a view discards every staged effect, which is
// what makes block application all-or-nothing.
type View struct {
	base        *Ledger
	initialized map[transaction.Ticker]struct{}
	balances    map[balanceKey]uint16
	nonces      map[string]uint64
}

// Balance reads through the overlay into the committed state.
func (v *View) Balance(ticker transaction.Ticker, holder string) uint16 {
	if balance, ok := v.balances[balanceKey{ticker: ticker, holder: holder}]; ok {
		return balance
	}
	return v.base.Balance(ticker, holder)
}

// IsInitialized reads through the overlay into the committed state.
func (v *View) IsInitialized(ticker transaction.Ticker) bool {
	if _, ok := v.initialized[ticker]; ok {
		return true
	}
	return v.base.IsInitialized(ticker)
}

// NonceOf reads through the overlay into the committed state.
func (v *View) NonceOf(sender string) uint64 {
	if nonce, ok := v.nonces[sender]; ok {
		return nonce
	}
	return v.base.NonceOf(sender)
}

// setBalance stages a balance write. Giving a ticker its first balance
// marks it initialized as a side effect.
func (v *View) setBalance(ticker transaction.Ticker, holder string, value uint16) {
	v.initialized[ticker] = struct{}{}
	v.balances[balanceKey{ticker: ticker, holder: holder}] = value
}

// CheckTransaction validates content against the staged state without
// modifying anything. It reports the first violated rule.
func (v *View) CheckTransaction(c *transaction.Content) error {
	switch c.Type {
	case transaction.TxTypeMint:
		params, err := transaction.DecodeMintParams(c.Params)
		if err != nil {
			return err
		}
		if v.IsInitialized(params.Ticker) {
			return errors.Newf(errors.CodeTickerAlreadyInitialized,
				"ticker %s is already initialized", params.Ticker)
		}
	case transaction.TxTypeTransfer:
		params, err := transaction.DecodeTransferParams(c.Params)
		if err != nil {
			return err
		}
		if !v.IsInitialized(params.Ticker) {
			return errors.Newf(errors.CodeTickerNotInitialized,
				"ticker %s is not initialized", params.Ticker)
		}
		if balance := v.Balance(params.Ticker, c.Sender); balance < params.Amount {
			return errors.Newf(errors.CodeInsufficientBalance,
				"sender %s holds %d %s, transfer needs %d", c.Sender, balance, params.Ticker, params.Amount)
		}
	default:
		return errors.Newf(errors.CodeInvalidTransactionType,
			"unknown transaction type %d", c.Type)
	}
	if v.base.requireNonce {
		if expected := v.NonceOf(c.Sender) + 1; c.Nonce != expected {
			return errors.Newf(errors.CodeInvalidNonce,
				"sender %s expected nonce %d, got %d", c.Sender, expected, c.Nonce)
		}
	}
	return nil
}

// ApplyTransaction validates content and stages its effect. A transfer
// captures both balances before writing either; when sender and
// recipient coincide the debit and credit cancel and nothing is written.
func (v *View) ApplyTransaction(c *transaction.Content) error {
	if err := v.CheckTransaction(c); err != nil {
		return err
	}
	switch c.Type {
	case transaction.TxTypeMint:
		params, err := transaction.DecodeMintParams(c.Params)
		if err != nil {
			return err
		}
		v.setBalance(params.Ticker, params.Owner, params.Supply)
	case transaction.TxTypeTransfer:
		params, err := transaction.DecodeTransferParams(c.Params)
		if err != nil {
			return err
		}
		if params.To != c.Sender {
			senderBalance := v.Balance(params.Ticker, c.Sender)
			recipientBalance := v.Balance(params.Ticker, params.To)
			newSenderBalance, err := subChecked(senderBalance, params.Amount)
			if err != nil {
				return err
			}
			newRecipientBalance, err := addChecked(recipientBalance, params.Amount)
			if err != nil {
				return err
			}
			v.setBalance(params.Ticker, c.Sender, newSenderBalance)
			v.setBalance(params.Ticker, params.To, newRecipientBalance)
		}
	}
	if v.base.requireNonce {
		v.nonces[c.Sender] = c.Nonce
	}
	return nil
}
