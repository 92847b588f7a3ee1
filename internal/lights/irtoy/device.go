package irtoy

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// IR Toy serial command set (FW v20+).
const (
	cmdReset                  byte = 0x00
	cmdTransmit               byte = 0x03
	cmdEnableByteCountReport  byte = 0x24
	cmdEnableNotifyOnComplete byte = 0x25
	cmdEnableHandshake        byte = 0x26
	cmdSamplingMode           byte = 'S'
	cmdVersion                byte = 'v'
)

// Every recorded code ends with this marker; the device also uses it to
// terminate a transmission.
var terminator = []byte{0xFF, 0xFF}

// completionDelay gives the device time to finish keying the IR LED before
// the completion report is read.
const completionDelay = 50 * time.Millisecond

// Device is an IR Toy USB-serial IR transceiver in sampling mode.
type Device struct {
	port            io.ReadWriteCloser
	protocolVersion string
}

// Open connects to the IR Toy on the named serial port and puts it into
// sampling mode.
func Open(portName string) (*Device, error) {
	port, err := serial.OpenPort(&serial.Config{Name: portName, Baud: 115200})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	return NewDevice(port)
}

// NewDevice wraps an already-open port. The port is closed if the device does
// not answer the sampling mode handshake.
func NewDevice(port io.ReadWriteCloser) (*Device, error) {
	d := &Device{port: port}
	if err := d.EnterSamplingMode(); err != nil {
		port.Close()
		return nil, err
	}
	return d, nil
}

// ProtocolVersion is the 3-byte version string the device reports when
// entering sampling mode, e.g. "S01".
func (d *Device) ProtocolVersion() string {
	return d.protocolVersion
}

func (d *Device) Close() error {
	return d.port.Close()
}

// reset returns the device to remote decoder mode. The terminator is written
// first so a half-finished transmission is flushed rather than concatenated
// with the reset bytes.
func (d *Device) reset() error {
	if _, err := d.port.Write(terminator); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if _, err := d.port.Write([]byte{cmdReset, cmdReset, cmdReset, cmdReset, cmdReset}); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	time.Sleep(completionDelay)
	return nil
}

// EnterSamplingMode resets the device and switches it to IR sampling mode,
// recording the protocol version it replies with.
func (d *Device) EnterSamplingMode() error {
	if err := d.reset(); err != nil {
		return err
	}
	if _, err := d.port.Write([]byte{cmdSamplingMode}); err != nil {
		return fmt.Errorf("enter sampling mode: %w", err)
	}
	version := make([]byte, 3)
	if _, err := io.ReadFull(d.port, version); err != nil {
		return fmt.Errorf("read protocol version: %w", err)
	}
	d.protocolVersion = string(version)
	return nil
}

// setTransmitMode enables the transmit handshake and reports and switches the
// device into transmit mode, returning the initial free buffer size.
func (d *Device) setTransmitMode() (int, error) {
	setup := []byte{cmdEnableHandshake, cmdEnableByteCountReport, cmdEnableNotifyOnComplete, cmdTransmit}
	if _, err := d.port.Write(setup); err != nil {
		return 0, fmt.Errorf("enter transmit mode: %w", err)
	}
	buf := make([]byte, 1)
	if _, err := io.ReadFull(d.port, buf); err != nil {
		return 0, fmt.Errorf("read transmit buffer size: %w", err)
	}
	return int(buf[0]), nil
}

// Transmit sends a recorded IR code. The code is chunked to the device's
// buffer size, paced by the handshake byte the device sends after each chunk,
// and verified against the completion report. The device is returned to
// sampling mode afterwards.
func (d *Device) Transmit(code []byte) error {
	if len(code) < 2 || len(code)%2 != 0 {
		return fmt.Errorf("ir code length must be a non-zero multiple of 2, got %d", len(code))
	}
	if !bytes.HasSuffix(code, terminator) {
		code = append(append(make([]byte, 0, len(code)+2), code...), terminator...)
	}

	bufferSize, err := d.setTransmitMode()
	if err != nil {
		return err
	}

	sent := 0
	for sent < len(code) {
		if bufferSize <= 0 {
			return d.abortTransmit(fmt.Errorf("device reported empty transmit buffer after %d bytes", sent))
		}
		end := sent + bufferSize
		if end > len(code) {
			end = len(code)
		}
		n, err := d.port.Write(code[sent:end])
		sent += n
		if err != nil {
			return d.abortTransmit(fmt.Errorf("write ir code: %w", err))
		}
		handshake := make([]byte, 1)
		if _, err := io.ReadFull(d.port, handshake); err != nil {
			return d.abortTransmit(fmt.Errorf("read transmit handshake: %w", err))
		}
		bufferSize = int(handshake[0])
	}

	time.Sleep(completionDelay)

	// 't', 16-bit byte count, then 'C' on success or 'F' on underrun.
	report := make([]byte, 4)
	if _, err := io.ReadFull(d.port, report); err != nil {
		return d.abortTransmit(fmt.Errorf("read completion report: %w", err))
	}
	if report[3] != 'C' {
		return d.abortTransmit(fmt.Errorf("transmit failed: completion report %q", report))
	}

	return d.EnterSamplingMode()
}

func (d *Device) abortTransmit(err error) error {
	if resetErr := d.reset(); resetErr == nil {
		_ = d.EnterSamplingMode()
	}
	return err
}

// Record captures one IR signal from the remote, reading until the device
// emits the terminator. The returned code includes the terminator and can be
// passed to Transmit as-is.
func (d *Device) Record() ([]byte, error) {
	if err := d.EnterSamplingMode(); err != nil {
		return nil, err
	}
	code := make([]byte, 0, 128)
	buf := make([]byte, 1)
	for {
		n, err := d.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("read ir sample: %w", err)
		}
		if n == 0 {
			continue
		}
		code = append(code, buf[0])
		if len(code) >= 2 && bytes.Equal(code[len(code)-2:], terminator) {
			return code, nil
		}
	}
}

// Version reports the hardware identifier and firmware revision.
func (d *Device) Version() (string, int, error) {
	if err := d.reset(); err != nil {
		return "", 0, err
	}
	if _, err := d.port.Write([]byte{cmdVersion}); err != nil {
		return "", 0, fmt.Errorf("request version: %w", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(d.port, buf); err != nil {
		return "", 0, fmt.Errorf("read version: %w", err)
	}
	revision := 0
	if _, err := fmt.Sscanf(string(buf[2:]), "%d", &revision); err != nil {
		return "", 0, fmt.Errorf("parse firmware revision %q: %w", buf[2:], err)
	}
	if err := d.EnterSamplingMode(); err != nil {
		return "", 0, err
	}
	return string(buf[:2]), revision, nil
}
