package export

import (
	"net/netip"
	"testing"

	"smart2onyma/internal/config"
	"smart2onyma/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ipInt(t *testing.T, s string) int64 {
	addr := netip.MustParseAddr(s)
	b := addr.As4()
	return int64(b[0])<<24 | int64(b[1])<<16 | int64(b[2])<<8 | int64(b[3])
}

func TestTwoIPToNet(t *testing.T) {
	prefix, err := TwoIPToNet(ipInt(t, "10.0.0.0"), ipInt(t, "10.0.0.3"))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/30", prefix.String())

	prefix, err = TwoIPToNet(ipInt(t, "192.168.1.7"), ipInt(t, "192.168.1.7"))
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.7/32", prefix.String())
}

func TestTwoIPToNet_NotPowerOfTwo(t *testing.T) {
	_, err := TwoIPToNet(ipInt(t, "10.0.0.0"), ipInt(t, "10.0.0.2"))
	assert.ErrorIs(t, err, ErrSubnetNotPowerOfTwo)

	_, err = TwoIPToNet(ipInt(t, "10.0.0.5"), ipInt(t, "10.0.0.1"))
	assert.ErrorIs(t, err, ErrSubnetNotPowerOfTwo)
}

func TestTwoIPToNet_Misaligned(t *testing.T) {
	_, err := TwoIPToNet(ipInt(t, "10.0.0.1"), ipInt(t, "10.0.0.4"))
	assert.ErrorIs(t, err, ErrSubnetMisaligned)
}

func TestIntToAddr(t *testing.T) {
	assert.Equal(t, "10.0.0.5", IntToAddr(167772165).String())
	assert.Equal(t, "0.0.0.0", IntToAddr(0).String())
}

func TestPhoneNumberPools_Find(t *testing.T) {
	pools := NewPhoneNumberPools([]models.PhoneNumberPool{
		{StartANI: 1000, EndANI: 1999, ZoneCode: "Z1"},
		{StartANI: 2000, EndANI: 2999, ZoneCode: "Z2"},
	})

	p, err := pools.Find(1500)
	require.NoError(t, err)
	assert.Equal(t, "Z1", p.ZoneCode)

	p, err = pools.Find(2500)
	require.NoError(t, err)
	assert.Equal(t, "Z2", p.ZoneCode)

	_, err = pools.Find(9999)
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestPhoneNumberPools_OverlapResolvesByLoadOrder(t *testing.T) {
	pools := NewPhoneNumberPools(nil)
	pools.Add(models.PhoneNumberPool{StartANI: 1000, EndANI: 1999, ZoneCode: "first"})
	pools.Add(models.PhoneNumberPool{StartANI: 1500, EndANI: 1600, ZoneCode: "second"})

	p, err := pools.Find(1550)
	require.NoError(t, err)
	assert.Equal(t, "first", p.ZoneCode)
	assert.Equal(t, 2, pools.Len())
}

func TestPhoneNumberPools_FindString(t *testing.T) {
	pools := NewPhoneNumberPools([]models.PhoneNumberPool{{StartANI: 1000, EndANI: 1999, ZoneCode: "Z1"}})

	p, err := pools.FindString(" 1999 ")
	require.NoError(t, err)
	assert.Equal(t, "1000/1000@Z1", PhoneSeries(p))

	_, err = pools.FindString("n/a")
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestIPPools(t *testing.T) {
	pools, err := NewIPPools(config.NamedNetworks{
		{Name: "small", CIDR: "10.0.0.0/24"},
		{Name: "big", CIDR: "10.0.0.0/16"},
	})
	require.NoError(t, err)

	name, err := pools.FindAddr(netip.MustParseAddr("10.0.0.5"))
	require.NoError(t, err)
	assert.Equal(t, "small", name)

	name, err = pools.FindAddr(netip.MustParseAddr("10.0.5.1"))
	require.NoError(t, err)
	assert.Equal(t, "big", name)

	name, err = pools.FindNet(netip.MustParsePrefix("10.0.0.0/30"))
	require.NoError(t, err)
	assert.Equal(t, "small", name)

	name, err = pools.FindNet(netip.MustParsePrefix("8.0.0.0/6"))
	require.NoError(t, err)
	assert.Equal(t, "small", name)

	_, err = pools.FindAddr(netip.MustParseAddr("192.168.0.1"))
	assert.ErrorIs(t, err, ErrPoolNotFound)
}

func TestNewIPPools_BadCIDR(t *testing.T) {
	_, err := NewIPPools(config.NamedNetworks{{Name: "bad", CIDR: "10.0.0.0/33"}})
	assert.Error(t, err)
}
