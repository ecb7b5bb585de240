// Package condrv is a reference character-device driver: a serial port
// whose RX side is a byte-stream ring fed by a simulated interrupt
// source, and whose TX side writes straight through. It exists to
// exercise the kernel's ISR-safe ring-buffer enqueue discipline
// (Ring.ISRPutByte, §4.C) end to end, the way the source's uart.c /
// debug_link.c register "serial0" as a character device backed by an
// RX queue an interrupt handler feeds.
package condrv

import (
	"fmt"
	"time"

	"github.com/tenok-go/rtkernel/internal/kernel"
)

// Device is a reference RX/TX serial device: Ring stores bytes an ISR
// (or, here, a simulated interrupt source) has enqueued; Write goes
// straight to stdout, standing in for the real UART's transmit path.
type Device struct {
	Name string
	Ring *kernel.Ring
}

// Init is a kernel.DriverInitFunc: it allocates the RX ring of a device
// named "serial0". It does not start a simulated RX interrupt source
// (see SimulateRX). Registered via
// kernel.RegisterDriver from an init() func, mirroring the source's
// serial0_init.
func Init(k *kernel.Kernel) error {
	_, err := New(k, "serial0")
	return err
}

// New allocates a named serial device with a 256-byte RX ring. No bytes
// arrive on the ring until something calls ISRPutByte on it, such as the
// goroutine SimulateRX starts. Most callers use Init via
// kernel.RegisterDriver instead of calling this directly.
func New(k *kernel.Kernel, name string) (*Device, error) {
	ring, err := k.NewCharDevice(256)
	if err != nil {
		return nil, err
	}
	d := &Device{Name: name, Ring: ring}
	return d, nil
}

// Write implements the TX half: the real driver's uart_puts has no
// analogue here, since there is no wire to put bytes on, so this just
// writes through to stdout.
func (d *Device) Write(p []byte) (int, error) {
	return fmt.Printf("%s", p)
}

// SimulateRX starts a goroutine standing in for the UART RX interrupt:
// it periodically enqueues one byte from data, dropping it silently if
// the ring is full, exactly like a real ISR would (§4.C). It runs for
// the kernel's lifetime; callers that just want to demonstrate the
// device need not manage its lifecycle further.
func (d *Device) SimulateRX(data []byte, period time.Duration) {
	go func() {
		i := 0
		for range time.Tick(period) {
			d.Ring.ISRPutByte(data[i%len(data)])
			i++
		}
	}()
}
