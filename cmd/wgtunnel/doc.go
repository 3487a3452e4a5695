// Command wgtunnel runs a point-to-point IP tunnel over UDP.
//
// The run command creates a TUN interface, assigns its address and route,
// and forwards every IP datagram routed to it to a single configured peer,
// writing datagrams received from that peer back into the host's network
// stack. Keepalives hold NAT mappings open while the tunnel is idle.
//
// The probe command exercises the transport alone: it sends one payload to
// the peer and prints whatever comes back.
//
// Usage:
//
//	wgtunnel run --config /etc/wgtunnel/config.yaml
//	wgtunnel probe --peer 127.0.0.1:51821 --payload "Hello"
//
// Settings are read from the YAML config file (defaults apply when it is
// missing) and individual flags override the file.
package main
