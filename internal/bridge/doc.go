// Package bridge exposes one locally opened HCI controller to a remote
// hcishell over the network.
//
// Two wire protocols are supported:
//   - tcp: a raw H4 packet stream, one packet after another
//   - ws: a WebSocket connection carrying one H4 packet per binary message
//
// Only one client is served at a time. A second client is turned away
// while the first is connected (the TCP connection is closed, the
// WebSocket upgrade is answered with 409 Conflict). The controller stays
// open across clients.
//
// When advertising is enabled the bridge registers the "_hcishell._tcp"
// mDNS service so that shells discover it without configuration.
//
// # Usage Example
//
//	srv, err := bridge.New(bridge.Config{Proto: discovery.ProtoTCP, Port: 4000}, ctrl)
//	if err != nil {
//	    return err
//	}
//	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	return srv.Serve(ctx)
package bridge
