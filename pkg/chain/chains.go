package chain

import "strconv"

// Chain ids of the networks donors can tip from. Matches the set the web
// interface offers.
const (
	ChainEthereum int64 = 1
	ChainOptimism int64 = 10
	ChainBSC      int64 = 56
	ChainPolygon  int64 = 137
	ChainZkSync   int64 = 324
	ChainBase     int64 = 8453
	ChainArbitrum int64 = 42161
	ChainLinea    int64 = 59144
	ChainScroll   int64 = 534352
)

var chainNames = map[int64]string{
	ChainEthereum: "Ethereum",
	ChainOptimism: "Optimism",
	ChainBSC:      "BSC",
	ChainPolygon:  "Polygon",
	ChainZkSync:   "zkSync",
	ChainBase:     "Base",
	ChainArbitrum: "Arbitrum",
	ChainLinea:    "Linea",
	ChainScroll:   "Scroll",
}

// SupportedChainIDs returns the donor-side chain set in a stable order.
func SupportedChainIDs() []int64 {
	return []int64{
		ChainEthereum, ChainOptimism, ChainBSC, ChainPolygon, ChainZkSync,
		ChainBase, ChainArbitrum, ChainLinea, ChainScroll,
	}
}

// Name returns a display name for a chain id, or "Chain <id>" when unknown.
func Name(chainID int64) string {
	if name, ok := chainNames[chainID]; ok {
		return name
	}
	return "Chain " + strconv.FormatInt(chainID, 10)
}
