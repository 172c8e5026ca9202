package reconcile

import (
	"math/rand"
	"net"
)

// genIP returns a uniformly random address inside network: a random address
// is generated, then masked so its network bits match network's and only its
// host bits stay random. Used to occasionally probe an address in the peer
// CIDR that isn't in the peer directory yet, grounded on the reference
// implementation's gen_ip helper.
func genIP(rng *rand.Rand, network *net.IPNet) net.IP {
	if v4 := network.IP.To4(); v4 != nil {
		raw := make([]byte, net.IPv4len)
		rng.Read(raw)
		out := make(net.IP, net.IPv4len)
		for i := range out {
			out[i] = (v4[i] & network.Mask[i]) | (raw[i] &^ network.Mask[i])
		}
		return out
	}
	v6 := network.IP.To16()
	raw := make([]byte, net.IPv6len)
	rng.Read(raw)
	out := make(net.IP, net.IPv6len)
	for i := range out {
		out[i] = (v6[i] & network.Mask[i]) | (raw[i] &^ network.Mask[i])
	}
	return out
}
