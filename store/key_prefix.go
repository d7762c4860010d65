package store

// Key prefixes for the backing store. Block keys append a 4-byte
// big-endian number; chain metadata hangs off fixed names.
const (
	PrefixBlock     = "blk:"
	PrefixChainMeta = "chain_meta:"

	ChainMetaKeyTip = "tip"
)
