package config

// NetworkType selects which chain the API talks to.
type NetworkType string

const (
	Testnet NetworkType = "testnet"
	Mainnet NetworkType = "mainnet"
)

// ManagerABIVersion distinguishes manager contract revisions. v1 has no builder fee field.
type ManagerABIVersion string

const (
	ManagerABIV1 ManagerABIVersion = "v1"
	ManagerABIV2 ManagerABIVersion = "v2"
)

// Network is the per-chain data injected into the chain client at startup.
type Network struct {
	Type           NetworkType
	ChainID        int64
	RPCURL         string
	ExplorerURL    string
	ManagerAddress string
	ShareAddress   string
	ManagerABI     ManagerABIVersion
	NativeSymbol   string
}

// Networks is the built-in table; addresses may be overridden through env.
var Networks = map[NetworkType]Network{
	Mainnet: {
		Type:         Mainnet,
		ChainID:      8217,
		RPCURL:       "https://public-en-cypress.klaytn.net",
		ExplorerURL:  "https://scope.klaytn.com",
		ManagerABI:   ManagerABIV2,
		NativeSymbol: "KLAY",
	},
	Testnet: {
		Type:           Testnet,
		ChainID:        1001,
		RPCURL:         "https://public-en-baobab.klaytn.net",
		ExplorerURL:    "https://baobab.scope.klaytn.com",
		ManagerAddress: "0x0d4eF3419af9a0FEE9cc7dBE3EAC4156399f457C",
		ShareAddress:   "0x3ea99bEa8d5D1Cf76aF585ba207147C653297853",
		ManagerABI:     ManagerABIV2,
		NativeSymbol:   "KLAY",
	},
}

// TxURL returns the explorer link for a transaction hash.
func (n Network) TxURL(hash string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	return n.ExplorerURL + "/tx/" + hash
}
