// Package chainregistry is the directory of chains and lanes the bridge is
// allowed to operate on. Content is loaded once at startup from static
// configuration and treated as read-only afterwards.
package chainregistry

import (
	"sort"
	"sync"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// ChainInfo describes a registered chain. Immutable once registered.
type ChainInfo struct {
	Selector       uint64         `mapstructure:"Selector"`
	Name           string         `mapstructure:"Name"`
	NetworkID      uint64         `mapstructure:"NetworkID"`
	NativeCurrency string         `mapstructure:"NativeCurrency"`
	RouterAddress  common.Address `mapstructure:"RouterAddress"`
	Active         bool           `mapstructure:"Active"`
}

// Lane declares a directional source -> destination pair. Registering A -> B
// says nothing about B -> A.
type Lane struct {
	SourceChainSelector      uint64 `mapstructure:"SourceChainSelector"`
	DestinationChainSelector uint64 `mapstructure:"DestinationChainSelector"`
}

// LaneStatus is the read view of a lane derived from the registry.
type LaneStatus struct {
	SourceChainSelector      uint64
	DestinationChainSelector uint64
	SourceChainName          string
	DestinationChainName     string
	Active                   bool
}

// Config holds the static chain and lane directory.
type Config struct {
	Chains []ChainInfo `mapstructure:"Chains"`
	Lanes  []Lane      `mapstructure:"Lanes"`
}

type laneKey struct {
	src uint64
	dst uint64
}

// Registry answers chain and lane support queries. Safe for concurrent use;
// the lock exists so a future hot-reload does not require an API change.
type Registry struct {
	mu     sync.RWMutex
	chains map[uint64]ChainInfo
	lanes  map[laneKey]struct{}
}

// New builds a Registry from static configuration. Duplicate selectors,
// lanes over unregistered chains and same-chain lanes are configuration
// errors.
func New(cfg Config) (*Registry, error) {
	r := &Registry{
		chains: make(map[uint64]ChainInfo, len(cfg.Chains)),
		lanes:  make(map[laneKey]struct{}, len(cfg.Lanes)),
	}
	for _, c := range cfg.Chains {
		if _, ok := r.chains[c.Selector]; ok {
			return nil, errors.Errorf("duplicate chain selector %d", c.Selector)
		}
		r.chains[c.Selector] = c
	}
	for _, l := range cfg.Lanes {
		if l.SourceChainSelector == l.DestinationChainSelector {
			return nil, errors.Wrapf(gerror.ErrSameChainLane, "lane %d -> %d", l.SourceChainSelector, l.DestinationChainSelector)
		}
		if _, ok := r.chains[l.SourceChainSelector]; !ok {
			return nil, errors.Wrapf(gerror.ErrUnsupportedChain, "lane source %d", l.SourceChainSelector)
		}
		if _, ok := r.chains[l.DestinationChainSelector]; !ok {
			return nil, errors.Wrapf(gerror.ErrUnsupportedChain, "lane destination %d", l.DestinationChainSelector)
		}
		r.lanes[laneKey{src: l.SourceChainSelector, dst: l.DestinationChainSelector}] = struct{}{}
	}
	return r, nil
}

// IsSupported reports whether the selector names a registered, active chain.
func (r *Registry) IsSupported(selector uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chains[selector]
	return ok && c.Active
}

// IsLaneSupported reports whether transfers may flow from src to dst. A lane
// is directional and never supported when src == dst, even if both chains
// are registered.
func (r *Registry) IsLaneSupported(src, dst uint64) bool {
	if src == dst {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.activeLocked(src) || !r.activeLocked(dst) {
		return false
	}
	_, ok := r.lanes[laneKey{src: src, dst: dst}]
	return ok
}

func (r *Registry) activeLocked(selector uint64) bool {
	c, ok := r.chains[selector]
	return ok && c.Active
}

// ChainName returns the display name of a registered chain.
func (r *Registry) ChainName(selector uint64) (string, error) {
	c, err := r.chain(selector)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// RouterAddress returns the router contract address of a registered chain.
func (r *Registry) RouterAddress(selector uint64) (common.Address, error) {
	c, err := r.chain(selector)
	if err != nil {
		return common.Address{}, err
	}
	return c.RouterAddress, nil
}

func (r *Registry) chain(selector uint64) (ChainInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chains[selector]
	if !ok {
		return ChainInfo{}, errors.Wrapf(gerror.ErrUnsupportedChain, "selector %d", selector)
	}
	return c, nil
}

// ListSupportedChains returns the active chains ordered by selector.
// Deactivated chains stay registered for lookups but are not listed.
func (r *Registry) ListSupportedChains() []ChainInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ChainInfo, 0, len(r.chains))
	for _, c := range r.chains {
		if !c.Active {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Selector < out[j].Selector })
	return out
}

// LaneStatus resolves the read view of a directional lane. Both chains must
// be registered; the lane itself may be inactive.
func (r *Registry) LaneStatus(src, dst uint64) (LaneStatus, error) {
	srcChain, err := r.chain(src)
	if err != nil {
		return LaneStatus{}, err
	}
	dstChain, err := r.chain(dst)
	if err != nil {
		return LaneStatus{}, err
	}
	return LaneStatus{
		SourceChainSelector:      src,
		DestinationChainSelector: dst,
		SourceChainName:          srcChain.Name,
		DestinationChainName:     dstChain.Name,
		Active:                   r.IsLaneSupported(src, dst),
	}, nil
}
