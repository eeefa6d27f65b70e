// Package hook intercepts the traffic of backend transports.
//
// Hooks are decorators attached per backend kind through a Registry before
// that kind is opened. Three variants exist:
//
//   - trace: forwards every call and logs direction and length
//   - record: forwards every call and appends each send and successful
//     receive to a trace file, flushing after every frame
//   - replay: never opens the device; receives return recorded frames in
//     order and sends are checked against the recording
//
// Backends open their transport through Registry.Open, which is the only
// place decorators are composed:
//
//	hooks := hook.NewRegistry(logger)
//	if err := hooks.Attach(transport.KindSerial, hook.VariantRecord, hook.Options{Filename: "session.trace"}); err != nil {
//	    return err
//	}
//	t, err := hooks.Open(ctx, transport.KindSerial, dial)
//
// Recording never fails the session: write errors are logged as warnings
// and recording stops. Replay files are loaded at Attach time, so a missing
// or malformed file is reported before any device is touched.
package hook
