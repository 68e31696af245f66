package routing

import "sync/atomic"

// Strategy is the load-balancing policy for a BackendService with more than
// one address.
type Strategy int

const (
	// none means the backend has a single address and no balancing
	// strategy; get_next_address always returns that one address.
	none Strategy = iota
	// RoundRobin cycles through addresses in order.
	RoundRobin
	// Weighted selects addresses in proportion to their configured weight.
	Weighted
)

// weightedAddress pairs a socket address with its load-balancing weight.
type weightedAddress struct {
	addr   string
	weight int
}

// BackendService is one logical upstream: one or more (socket, weight)
// entries plus a load-balancing strategy. The zero value is not usable;
// construct with NewBackendService.
type BackendService struct {
	addresses   []weightedAddress
	strategy    Strategy
	cursor      atomic.Uint64
	totalWeight int

	Middlewares []string
	RouterName  string
}

// NewBackendService creates a single-address backend with no load-balancing
// strategy.
func NewBackendService(addr string) *BackendService {
	return &BackendService{
		addresses: []weightedAddress{{addr: addr, weight: 1}},
		strategy:  none,
	}
}

// HasMiddlewares reports whether the backend names any middlewares.
func (b *BackendService) HasMiddlewares() bool {
	return len(b.Middlewares) > 0
}

// Addresses returns the backend's addresses in insertion order. The slice
// is a defensive copy.
func (b *BackendService) Addresses() []string {
	out := make([]string, len(b.addresses))
	for i, a := range b.addresses {
		out[i] = a.addr
	}
	return out
}

// EnableLoadBalancer transitions a single-address backend to a
// multi-address one under the given strategy; the existing address becomes
// the first entry with weight 1.
func (b *BackendService) EnableLoadBalancer(strategy Strategy) {
	b.strategy = strategy
	if strategy == Weighted {
		b.totalWeight = 0
		for _, a := range b.addresses {
			b.totalWeight += a.weight
		}
	}
}

// AddAddress appends a new address with the given weight. It fails with
// ErrLoadBalancerNotEnabled unless a strategy has already been set via
// EnableLoadBalancer.
func (b *BackendService) AddAddress(addr string, weight int) error {
	if b.strategy == none {
		return &BackendError{Kind: ErrLoadBalancerNotEnabled}
	}
	if weight < 1 {
		weight = 1
	}
	b.addresses = append(b.addresses, weightedAddress{addr: addr, weight: weight})
	if b.strategy == Weighted {
		b.totalWeight += weight
	}
	return nil
}

// GetNextAddress returns the next address to send a request to, per the
// configured strategy. It only fails if the backend's invariant (at least
// one address) has somehow been violated, which is treated as a programmer
// error by callers.
func (b *BackendService) GetNextAddress() (string, error) {
	if len(b.addresses) == 0 {
		return "", &BackendError{Kind: ErrNoAddresses}
	}

	switch b.strategy {
	case none:
		return b.addresses[0].addr, nil

	case RoundRobin:
		idx := b.cursor.Add(1) - 1
		return b.addresses[int(idx)%len(b.addresses)].addr, nil

	case Weighted:
		if b.totalWeight <= 0 {
			return "", &BackendError{Kind: ErrNoAddresses}
		}
		idx := int(b.cursor.Add(1)-1) % b.totalWeight
		running := 0
		for _, a := range b.addresses {
			running += a.weight
			if idx < running {
				return a.addr, nil
			}
		}
		// Unreachable if totalWeight is consistent with the invariant,
		// but fall back to the last address rather than panic.
		return b.addresses[len(b.addresses)-1].addr, nil

	default:
		return "", &BackendError{Kind: ErrNoAddresses}
	}
}

// hasAddressWithPort reports whether any configured address uses the given
// port suffix (":port").
func (b *BackendService) hasAddressWithPort(port string) bool {
	suffix := ":" + port
	for _, a := range b.addresses {
		if hasSuffixPort(a.addr, suffix) {
			return true
		}
	}
	return false
}

func hasSuffixPort(addr, suffix string) bool {
	if len(addr) < len(suffix) {
		return false
	}
	return addr[len(addr)-len(suffix):] == suffix
}
