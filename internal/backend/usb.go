package backend

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/gousb"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/hcishell/internal/device"
	"github.com/muurk/hcishell/internal/transport"
)

// USB Bluetooth controllers: wireless controller class, RF subclass,
// Bluetooth programming interface.
const (
	usbSubClassRF       = 0x01
	usbProtocolBT       = 0x01
	usbEventEndpoint    = 1
	usbACLEndpoint      = 2
	usbHCICommandRType  = 0x20 // class request, host to device, device recipient
	usbReadBufferLength = 1024
)

type usbBackend struct {
	logger *zap.Logger
}

func newUSB(logger *zap.Logger) *usbBackend {
	return &usbBackend{logger: logger.Named("usb")}
}

func (b *usbBackend) Name() string          { return string(transport.KindUSB) }
func (b *usbBackend) Kind() transport.Kind { return transport.KindUSB }

func isBluetooth(desc *gousb.DeviceDesc) bool {
	if desc.Class == gousb.ClassWireless && desc.SubClass == usbSubClassRF && desc.Protocol == usbProtocolBT {
		return true
	}
	for _, cfg := range desc.Configs {
		for _, intf := range cfg.Interfaces {
			for _, alt := range intf.AltSettings {
				if alt.Class == gousb.ClassWireless && alt.SubClass == usbSubClassRF && alt.Protocol == usbProtocolBT {
					return true
				}
			}
		}
	}
	return false
}

func usbInterface(bus, address int) string {
	return fmt.Sprintf("usb:%d:%d", bus, address)
}

func parseUSBInterface(iface string) (bus, address int, err error) {
	if _, err := fmt.Sscanf(iface, "usb:%d:%d", &bus, &address); err != nil {
		return 0, 0, errors.NotValidf("USB interface %q (want usb:<bus>:<address>)", iface)
	}
	return bus, address, nil
}

func (b *usbBackend) Enumerate(ctx context.Context) ([]device.Record, error) {
	uctx := gousb.NewContext()
	defer uctx.Close()

	var records []device.Record
	// the opener only collects descriptors; nothing is opened
	_, err := uctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if isBluetooth(desc) {
			records = append(records, device.Record{
				Backend:   b,
				Interface: usbInterface(desc.Bus, desc.Address),
				Label:     fmt.Sprintf("USB Bluetooth controller %s:%s", desc.Vendor, desc.Product),
			})
		}
		return false
	})
	if err != nil {
		return records, errors.Trace(usbError(err))
	}
	return records, nil
}

func (b *usbBackend) Dial(ctx context.Context, iface string) (transport.Transport, error) {
	bus, address, err := parseUSBInterface(iface)
	if err != nil {
		return nil, err
	}

	uctx := gousb.NewContext()
	devs, err := uctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == bus && desc.Address == address
	})
	if err != nil && len(devs) == 0 {
		uctx.Close()
		return nil, errors.Annotatef(usbError(err), "open %s", iface)
	}
	if len(devs) == 0 {
		uctx.Close()
		return nil, errors.NotFoundf("USB device %s", iface)
	}
	for _, extra := range devs[1:] {
		extra.Close()
	}
	dev := devs[0]

	t, err := openUSBTransport(uctx, dev, b.logger)
	if err != nil {
		dev.Close()
		uctx.Close()
		return nil, errors.Annotatef(usbError(err), "claim %s", iface)
	}
	b.logger.Info("opened USB controller", zap.String("interface", iface))
	return t, nil
}

// usbError maps libusb access errors to os.ErrPermission so the shell can
// give its privileges hint.
func usbError(err error) error {
	if errors.Is(err, gousb.ErrorAccess) {
		return fmt.Errorf("%w: %v", os.ErrPermission, err)
	}
	return err
}

// endpointReader is the read side of a gousb IN endpoint.
type endpointReader interface {
	ReadContext(ctx context.Context, buf []byte) (int, error)
}

type usbTransport struct {
	uctx *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface

	events *gousb.InEndpoint
	aclIn  *gousb.InEndpoint
	aclOut *gousb.OutEndpoint

	packets chan []byte
	cancel  context.CancelFunc
	// done is closed once both pumps have stopped; err is then the first
	// endpoint failure, or nil after Close.
	done chan struct{}
	err  error

	closeOnce sync.Once
	logger    *zap.Logger
}

func openUSBTransport(uctx *gousb.Context, dev *gousb.Device, logger *zap.Logger) (*usbTransport, error) {
	if err := dev.SetAutoDetach(true); err != nil {
		return nil, err
	}
	cfg, err := dev.Config(1)
	if err != nil {
		return nil, err
	}
	intf, err := cfg.Interface(0, 0)
	if err != nil {
		cfg.Close()
		return nil, err
	}

	t := &usbTransport{uctx: uctx, dev: dev, cfg: cfg, intf: intf, logger: logger}
	if t.events, err = intf.InEndpoint(usbEventEndpoint); err != nil {
		t.release()
		return nil, err
	}
	if t.aclIn, err = intf.InEndpoint(usbACLEndpoint); err != nil {
		t.release()
		return nil, err
	}
	if t.aclOut, err = intf.OutEndpoint(usbACLEndpoint); err != nil {
		t.release()
		return nil, err
	}

	t.startPumps(t.events, t.aclIn)
	return t, nil
}

// startPumps reads both IN endpoints until Close or the first read error,
// which stops the other pump and is returned by later receives.
func (t *usbTransport) startPumps(events, acl endpointReader) {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.packets = make(chan []byte, 64)
	t.done = make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return t.pump(gctx, events, transport.PacketEvent) })
	g.Go(func() error { return t.pump(gctx, acl, transport.PacketACL) })
	go func() {
		t.err = g.Wait()
		close(t.done)
	}()
}

// pump reassembles packets from one IN endpoint and queues them with their
// H4 indicator.
func (t *usbTransport) pump(ctx context.Context, ep endpointReader, indicator byte) error {
	buf := make([]byte, usbReadBufferLength)
	var pending []byte
	for {
		n, err := ep.ReadContext(ctx, buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.logger.Debug("USB endpoint read failed", zap.String("endpoint", transport.PacketTypeName(indicator)), zap.Error(err))
			return fmt.Errorf("read %s endpoint: %w", transport.PacketTypeName(indicator), usbError(err))
		}
		pending = append(pending, buf[:n]...)
		for {
			pkt, rest, ok := splitUSBPacket(indicator, pending)
			if !ok {
				break
			}
			pending = rest
			select {
			case t.packets <- pkt:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// splitUSBPacket extracts one complete packet from data received on the
// endpoint of the given H4 type.
func splitUSBPacket(indicator byte, data []byte) (pkt, rest []byte, ok bool) {
	var total int
	switch indicator {
	case transport.PacketEvent:
		if len(data) < 2 {
			return nil, data, false
		}
		total = 2 + int(data[1])
	case transport.PacketACL:
		if len(data) < 4 {
			return nil, data, false
		}
		total = 4 + (int(data[2]) | int(data[3])<<8)
	default:
		return nil, data, false
	}
	if len(data) < total {
		return nil, data, false
	}
	pkt = make([]byte, 1+total)
	pkt[0] = indicator
	copy(pkt[1:], data[:total])
	rest = append([]byte(nil), data[total:]...)
	return pkt, rest, true
}

func (t *usbTransport) Send(ctx context.Context, data []byte) error {
	if len(data) < 2 {
		return errors.NotValidf("packet of %d bytes", len(data))
	}
	switch data[0] {
	case transport.PacketCommand:
		_, err := t.dev.Control(usbHCICommandRType, 0, 0, 0, data[1:])
		return errors.Trace(err)
	case transport.PacketACL:
		_, err := t.aclOut.WriteContext(ctx, data[1:])
		return errors.Trace(err)
	default:
		return errors.NotSupportedf("%s packets over USB", transport.PacketTypeName(data[0]))
	}
}

func (t *usbTransport) Recv(ctx context.Context) ([]byte, error) {
	select {
	case pkt := <-t.packets:
		return pkt, nil
	case <-t.done:
		// packets queued before the failure are still delivered
		select {
		case pkt := <-t.packets:
			return pkt, nil
		default:
		}
		if t.err != nil {
			return nil, t.err
		}
		return nil, transport.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (t *usbTransport) release() {
	if t.intf != nil {
		t.intf.Close()
	}
	if t.cfg != nil {
		t.cfg.Close()
	}
}

func (t *usbTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.cancel()
		<-t.done
		t.release()
		err = t.dev.Close()
		t.uctx.Close()
	})
	return err
}
