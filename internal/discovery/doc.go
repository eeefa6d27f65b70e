// Package discovery finds hcishell bridges on the local network with mDNS
// and advertises a running bridge.
//
// Bridges register the "_hcishell._tcp" service type. The TXT record
// carries the bridge protocol ("proto=tcp" for a raw H4 stream or
// "proto=ws" for WebSocket), the WebSocket path, and a description of the
// controller behind the bridge.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 2 * time.Second
//	endpoints, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, ep := range endpoints {
//	    fmt.Println(ep.Address(), ep.Proto)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Bridges must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
