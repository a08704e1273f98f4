package export

import (
	"errors"
	"fmt"
	"math/bits"
	"net/netip"
	"strconv"
	"strings"

	"smart2onyma/internal/config"
	"smart2onyma/internal/models"
)

var (
	// ErrPoolNotFound is returned when no pool holds the number or address
	ErrPoolNotFound = errors.New("pool not found")
	// ErrSubnetNotPowerOfTwo is returned for an address range that is not a CIDR block
	ErrSubnetNotPowerOfTwo = errors.New("address range size is not a power of two")
	// ErrSubnetMisaligned is returned when the range start is not the network address
	ErrSubnetMisaligned = errors.New("address range start is not aligned to its size")
)

// PhoneNumberPools is an ordered list of phone number ranges
type PhoneNumberPools struct {
	pools []models.PhoneNumberPool
}

// NewPhoneNumberPools keeps pools in the given order
func NewPhoneNumberPools(pools []models.PhoneNumberPool) *PhoneNumberPools {
	p := &PhoneNumberPools{}
	for _, pool := range pools {
		p.Add(pool)
	}
	return p
}

// Add appends a pool; it is matched after the ones added before it
func (p *PhoneNumberPools) Add(pool models.PhoneNumberPool) {
	p.pools = append(p.pools, pool)
}

// Len returns the number of pools
func (p *PhoneNumberPools) Len() int {
	return len(p.pools)
}

// Find returns the first pool whose inclusive range holds number.
// Overlapping pools resolve to the one loaded first.
func (p *PhoneNumberPools) Find(number int64) (models.PhoneNumberPool, error) {
	for _, pool := range p.pools {
		if pool.StartANI <= number && number <= pool.EndANI {
			return pool, nil
		}
	}
	return models.PhoneNumberPool{}, fmt.Errorf("%w: phone number %d", ErrPoolNotFound, number)
}

// FindString looks up a phone number given as text
func (p *PhoneNumberPools) FindString(number string) (models.PhoneNumberPool, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(number), 10, 64)
	if err != nil {
		return models.PhoneNumberPool{}, fmt.Errorf("%w: phone number %q", ErrPoolNotFound, number)
	}
	return p.Find(n)
}

// PoolSize returns the count of numbers in the pool
func PoolSize(pool models.PhoneNumberPool) int64 {
	return pool.EndANI - pool.StartANI + 1
}

// PhoneSeries renders a pool as "start/size@zone"
func PhoneSeries(pool models.PhoneNumberPool) string {
	return fmt.Sprintf("%d/%d@%s", pool.StartANI, PoolSize(pool), pool.ZoneCode)
}

type ipPool struct {
	name   string
	prefix netip.Prefix
}

// IPPools resolves addresses and networks to configured static pool names
type IPPools struct {
	pools []ipPool
}

// NewIPPools parses named CIDR blocks keeping their order
func NewIPPools(networks config.NamedNetworks) (*IPPools, error) {
	p := &IPPools{pools: make([]ipPool, 0, len(networks))}
	for _, n := range networks {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(n.CIDR))
		if err != nil {
			return nil, fmt.Errorf("static ip pool %s: %w", n.Name, err)
		}
		p.pools = append(p.pools, ipPool{name: n.Name, prefix: prefix.Masked()})
	}
	return p, nil
}

// FindAddr returns the first pool containing addr
func (p *IPPools) FindAddr(addr netip.Addr) (string, error) {
	for _, pool := range p.pools {
		if pool.prefix.Contains(addr) {
			return pool.name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPoolNotFound, addr)
}

// FindNet returns the first pool overlapping network
func (p *IPPools) FindNet(network netip.Prefix) (string, error) {
	for _, pool := range p.pools {
		if pool.prefix.Overlaps(network) {
			return pool.name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrPoolNotFound, network)
}

// IntToAddr converts an integer IPv4 address
func IntToAddr(ip int64) netip.Addr {
	v := uint32(ip)
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// TwoIPToNet converts an inclusive integer address range into its network
func TwoIPToNet(start, end int64) (netip.Prefix, error) {
	size := end - start + 1
	if size <= 0 || size > 1<<32 || size&(size-1) != 0 {
		return netip.Prefix{}, fmt.Errorf("%w: %s - %s", ErrSubnetNotPowerOfTwo, IntToAddr(start), IntToAddr(end))
	}
	mask := 32 - bits.TrailingZeros64(uint64(size))
	prefix := netip.PrefixFrom(IntToAddr(start), mask)
	if prefix.Masked() != prefix {
		return netip.Prefix{}, fmt.Errorf("%w: %s", ErrSubnetMisaligned, prefix)
	}
	return prefix, nil
}
