// Package packetlog renders plaintext IP datagrams as one-line summaries for
// debug logging, e.g. "192.168.233.1 -> 192.168.233.2, protocol 1 (ICMPv4),
// length 84 bytes".
package packetlog

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/sirupsen/logrus"
)

// Summarize describes the IP header of packet. It never fails; packets whose
// header does not decode are described as malformed. Only the IP header is
// decoded, so a truncated transport payload still gets a summary.
func Summarize(packet []byte) string {
	if len(packet) == 0 {
		return "empty packet"
	}

	switch version := packet[0] >> 4; version {
	case 4:
		var ip layers.IPv4
		if err := ip.DecodeFromBytes(packet, gopacket.NilDecodeFeedback); err != nil {
			return fmt.Sprintf("malformed IPv4 packet (%d bytes)", len(packet))
		}
		return format(ip.SrcIP.String(), ip.DstIP.String(), ip.Protocol, len(packet))
	case 6:
		var ip layers.IPv6
		if err := ip.DecodeFromBytes(packet, gopacket.NilDecodeFeedback); err != nil {
			return fmt.Sprintf("malformed IPv6 packet (%d bytes)", len(packet))
		}
		return format(ip.SrcIP.String(), ip.DstIP.String(), ip.NextHeader, len(packet))
	default:
		return fmt.Sprintf("non-IP packet (version %d, %d bytes)", version, len(packet))
	}
}

func format(src, dst string, proto layers.IPProtocol, length int) string {
	return fmt.Sprintf("%s -> %s, protocol %d (%s), length %d bytes", src, dst, uint8(proto), proto, length)
}

// Log writes a summary of packet at debug level. The packet is only parsed
// when debug logging is enabled.
func Log(direction string, packet []byte) {
	if !logrus.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	logrus.WithFields(logrus.Fields{
		"direction": direction,
	}).Debug(Summarize(packet))
}
