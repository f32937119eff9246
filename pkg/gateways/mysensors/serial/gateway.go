package serial

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MessageHandler receives every decoded message in arrival order, one
// at a time.
type MessageHandler func(entities.Message)

// ErrNotConnected is returned by Write while the serial link is down.
var ErrNotConnected = errors.New("serial port not connected")

const (
	defaultRetryInterval = 10 * time.Second
	readBufferSize       = 256
)

// Stats is a snapshot of the gateway counters.
type Stats struct {
	Connects        uint64
	LinesRead       uint64
	DecodeFailures  uint64
	MessagesWritten uint64
}

// Gateway owns the serial link. Run keeps the port open, accumulates
// bytes into lines and hands decoded messages to the handler. Writes
// copy the port reference under the lock, so a blocked reader never
// stalls a writer.
type Gateway struct {
	config  Config
	handler MessageHandler
	log     *logrus.Entry

	mutex sync.RWMutex
	port  Port

	done     chan struct{}
	stopOnce sync.Once

	open          func(Config) (Port, error)
	retryInterval time.Duration

	connects        atomic.Uint64
	linesRead       atomic.Uint64
	decodeFailures  atomic.Uint64
	messagesWritten atomic.Uint64
}

func NewGateway(config Config, handler MessageHandler, log *logrus.Entry) *Gateway {
	return &Gateway{
		config:        config,
		handler:       handler,
		log:           log,
		done:          make(chan struct{}),
		open:          Open,
		retryInterval: defaultRetryInterval,
	}
}

// Connect opens the serial device if it is not already open.
func (g *Gateway) Connect() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.port != nil {
		return nil
	}
	port, err := g.open(g.config)
	if err != nil {
		return errors.Wrap(err, "open serial port")
	}
	if err := port.Flush(); err != nil {
		g.log.WithError(err).Warn("could not flush serial port")
	}
	g.port = port
	g.connects.Add(1)
	g.log.WithField("device", g.config.Device).Info("serial port connected")
	return nil
}

// Run blocks reading the serial link until Stop is called. A connection
// failure is retried at a fixed interval; a read failure closes the
// port and goes back to connecting. The stop signal is observed at the
// top of every iteration, so shutdown latency is bounded by the read
// timeout.
func (g *Gateway) Run() {
	retry := backoff.NewConstantBackOff(g.retryInterval)
	buffer := make([]byte, readBufferSize)
	var pending []byte

	for {
		select {
		case <-g.done:
			g.closePort()
			return
		default:
		}

		port := g.currentPort()
		if port == nil {
			if err := g.Connect(); err != nil {
				g.log.WithError(err).Error("serial connection failed")
				g.wait(retry.NextBackOff())
				continue
			}
			pending = pending[:0]
			continue
		}

		n, err := port.Read(buffer)
		if n > 0 {
			pending = g.deliverLines(append(pending, buffer[:n]...))
		}
		if err != nil && !isReadTimeout(err) {
			g.log.WithError(err).Error("serial read failed")
			g.closePort()
		}
	}
}

// Write encodes the message and writes it to the link.
func (g *Gateway) Write(message entities.Message) error {
	port := g.currentPort()
	if port == nil {
		return ErrNotConnected
	}
	line := Encode(message)
	if _, err := port.Write([]byte(line)); err != nil {
		return errors.Wrap(err, "serial write")
	}
	g.messagesWritten.Add(1)
	g.log.WithField("line", strings.TrimRight(line, "\n")).Info("writing to serial")
	return nil
}

// Stop signals the read loop to exit and closes the port. Safe to call
// more than once.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		close(g.done)
	})
	g.closePort()
}

// Stats returns a snapshot of the gateway counters.
func (g *Gateway) Stats() Stats {
	return Stats{
		Connects:        g.connects.Load(),
		LinesRead:       g.linesRead.Load(),
		DecodeFailures:  g.decodeFailures.Load(),
		MessagesWritten: g.messagesWritten.Load(),
	}
}

func (g *Gateway) deliverLines(pending []byte) []byte {
	for {
		index := bytes.IndexByte(pending, '\n')
		if index < 0 {
			return pending
		}
		line := string(pending[:index+1])
		pending = pending[index+1:]
		g.handleLine(line)
	}
}

func (g *Gateway) handleLine(line string) {
	g.linesRead.Add(1)
	message, err := Decode(line)
	if err != nil {
		g.decodeFailures.Add(1)
		g.log.WithError(err).Error("dropping unparseable line")
		return
	}
	if g.handler != nil {
		g.handler(message)
	}
}

func (g *Gateway) currentPort() Port {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.port
}

func (g *Gateway) closePort() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.port == nil {
		return
	}
	if err := g.port.Close(); err != nil {
		g.log.WithError(err).Warn("serial close failed")
	}
	g.port = nil
}

func (g *Gateway) wait(interval time.Duration) {
	select {
	case <-g.done:
	case <-time.After(interval):
	}
}

// A timed-out read surfaces as io.EOF with no data; that is the loop
// tick, not a link failure.
func isReadTimeout(err error) bool {
	return errors.Is(err, io.EOF)
}
