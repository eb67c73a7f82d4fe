package ethproviders

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/setheum-labs/evmkit/ethrpc"
)

// Providers holds one ethrpc.Provider per enabled network of a Config.
type Providers struct {
	byID       map[uint64]*ethrpc.Provider
	byName     map[string]*ethrpc.Provider
	configByID map[uint64]NetworkConfig

	allChainsList []ChainInfo
	mainnetsList  []ChainInfo
	testnetsList  []ChainInfo
}

type ChainInfo struct {
	// ID is the EIP-155 chain id.
	ID uint64 `json:"id"`

	// Name is the network name used in the config, lower-cased.
	Name string `json:"name"`

	Testnet bool `json:"testnet"`
}

// NewProviders validates cfg and creates a provider for every enabled network.
// opts apply to every provider.
func NewProviders(cfg Config, opts ...ethrpc.Option) (*Providers, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	providers := &Providers{
		byID:       map[uint64]*ethrpc.Provider{},
		byName:     map[string]*ethrpc.Provider{},
		configByID: map[uint64]NetworkConfig{},
	}

	chainList := []ChainInfo{}
	for name, details := range cfg {
		if details.Disabled {
			continue
		}
		name = strings.ToLower(name)

		p, err := ethrpc.NewProvider(details.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("ethproviders: network %s: %w", name, err)
		}
		providers.byID[details.ID] = p
		providers.byName[name] = p
		providers.configByID[details.ID] = details

		chainList = append(chainList, ChainInfo{ID: details.ID, Name: name, Testnet: details.Testnet})
	}

	// also record the chain number as string for easier lookup
	for k, p := range providers.byID {
		providers.byName[strconv.FormatUint(k, 10)] = p
	}

	sort.SliceStable(chainList, func(i, j int) bool {
		return chainList[i].ID < chainList[j].ID
	})
	providers.allChainsList = chainList
	for _, chain := range chainList {
		if chain.Testnet {
			providers.testnetsList = append(providers.testnetsList, chain)
		} else {
			providers.mainnetsList = append(providers.mainnetsList, chain)
		}
	}

	return providers, nil
}

// Get returns the provider of a chain by its name or its id in decimal, or nil.
func (p *Providers) Get(chainHandle string) *ethrpc.Provider {
	return p.byName[strings.ToLower(chainHandle)]
}

func (p *Providers) GetByChainID(chainID uint64) *ethrpc.Provider {
	return p.byID[chainID]
}

func (p *Providers) Config(chainID uint64) (NetworkConfig, bool) {
	cfg, ok := p.configByID[chainID]
	return cfg, ok
}

func (p *Providers) ProviderMap() map[uint64]*ethrpc.Provider {
	return p.byID
}

func (p *Providers) ChainList() []ChainInfo {
	return p.allChainsList
}

func (p *Providers) MainnetChainList() []ChainInfo {
	return p.mainnetsList
}

func (p *Providers) TestnetChainList() []ChainInfo {
	return p.testnetsList
}

// FindChain looks a chain up by name or decimal id.
func (p *Providers) FindChain(chainHandle string, optSkipTestnets ...bool) (uint64, ChainInfo, error) {
	chainList := p.allChainsList
	if len(optSkipTestnets) > 0 && optSkipTestnets[0] {
		chainList = p.mainnetsList
	}
	chainHandle = strings.ToLower(chainHandle)
	for _, info := range chainList {
		if chainHandle == info.Name || chainHandle == strconv.FormatUint(info.ID, 10) {
			return info.ID, info, nil
		}
	}
	return 0, ChainInfo{}, fmt.Errorf("ethproviders: chain %q not found", chainHandle)
}
