package config

import (
	"github.com/crosslane/bridge-service/chainregistry"
	"github.com/crosslane/bridge-service/log"
	"github.com/pkg/errors"
)

// NetworkConfig holds the chain and lane directory for one deployment
// environment.
type NetworkConfig struct {
	ChainRegistry chainregistry.Config
}

const (
	mainnet = "mainnet"
	testnet = "testnet"
	local   = "local"
)

const (
	selectorEthereum        = 5009297550715157269
	selectorPolygon         = 4051577828743386545
	selectorEthereumSepolia = 16015286601757825753
	selectorPolygonAmoy     = 16281711391670634445
	selectorLocalA          = 1
	selectorLocalB          = 2
)

//nolint:gomnd
var (
	mainnetConfig = NetworkConfig{
		ChainRegistry: chainregistry.Config{
			Chains: []chainregistry.ChainInfo{
				{Selector: selectorEthereum, Name: "ethereum", NetworkID: 1, NativeCurrency: "ETH", Active: true},
				{Selector: selectorPolygon, Name: "polygon", NetworkID: 137, NativeCurrency: "POL", Active: true},
			},
			Lanes: []chainregistry.Lane{
				{SourceChainSelector: selectorEthereum, DestinationChainSelector: selectorPolygon},
				{SourceChainSelector: selectorPolygon, DestinationChainSelector: selectorEthereum},
			},
		},
	}
	testnetConfig = NetworkConfig{
		ChainRegistry: chainregistry.Config{
			Chains: []chainregistry.ChainInfo{
				{Selector: selectorEthereumSepolia, Name: "ethereum-sepolia", NetworkID: 11155111, NativeCurrency: "ETH", Active: true},
				{Selector: selectorPolygonAmoy, Name: "polygon-amoy", NetworkID: 80002, NativeCurrency: "POL", Active: true},
			},
			Lanes: []chainregistry.Lane{
				{SourceChainSelector: selectorEthereumSepolia, DestinationChainSelector: selectorPolygonAmoy},
				{SourceChainSelector: selectorPolygonAmoy, DestinationChainSelector: selectorEthereumSepolia},
			},
		},
	}
	localConfig = NetworkConfig{
		ChainRegistry: chainregistry.Config{
			Chains: []chainregistry.ChainInfo{
				{Selector: selectorLocalA, Name: "local-a", NetworkID: 1337, NativeCurrency: "ETH", Active: true},
				{Selector: selectorLocalB, Name: "local-b", NetworkID: 1338, NativeCurrency: "ETH", Active: true},
			},
			Lanes: []chainregistry.Lane{
				{SourceChainSelector: selectorLocalA, DestinationChainSelector: selectorLocalB},
				{SourceChainSelector: selectorLocalB, DestinationChainSelector: selectorLocalA},
			},
		},
	}
)

func (cfg *Config) loadNetworkConfig(network string) error {
	switch network {
	case mainnet:
		log.Debug("running on mainnet")
		cfg.NetworkConfig = mainnetConfig
	case testnet:
		log.Debug("running on testnet")
		cfg.NetworkConfig = testnetConfig
	case local:
		log.Debug("running on local network")
		cfg.NetworkConfig = localConfig
	default:
		return errors.Errorf("unknown network %q", network)
	}
	return nil
}
