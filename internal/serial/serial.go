// Package serial opens the USB serial device the growth unit is attached to.
package serial

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is an open serial device.
type Port interface {
	io.ReadWriteCloser
}

// Config holds serial port configuration
type Config struct {
	Name        string        // Device path (e.g., /dev/ttyUSB0)
	Baud        int           // Baud rate
	ReadTimeout time.Duration // Read timeout, 0 blocks until data arrives
}

// Open opens the device in 8N1 mode and discards whatever the device
// buffered before the host was listening.
func Open(cfg Config) (Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Name,
		Baud:        cfg.Baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s at %d baud: %w", cfg.Name, cfg.Baud, err)
	}

	if err := port.Flush(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("flush %s: %w", cfg.Name, err)
	}

	return port, nil
}
