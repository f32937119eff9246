package serial

import (
	"time"

	tarm "github.com/tarm/serial"
)

// Port is the serial link surface the gateway drives. The tarm port
// satisfies it directly.
type Port interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Flush() error
	Close() error
}

// Config describes how to open the serial device. ReadTimeout bounds a
// single Read so the read loop can observe its stop signal.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
}

// Open opens the configured serial device.
func Open(config Config) (Port, error) {
	return tarm.OpenPort(&tarm.Config{
		Name:        config.Device,
		Baud:        config.Baud,
		ReadTimeout: config.ReadTimeout,
	})
}
