package serial

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/janael-pinheiro/mysensors-gateway-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func createNullLogger() (*logrus.Entry, *test.Hook) {
	log, hook := test.NewNullLogger()
	logger := log.WithFields(logrus.Fields{
		"Context": "testing",
	})
	return logger, hook
}

type readResult struct {
	data []byte
	err  error
}

type fakePort struct {
	reads chan readResult

	mutex  sync.Mutex
	writes []string

	done      chan struct{}
	closeOnce sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{
		reads: make(chan readResult, 16),
		done:  make(chan struct{}),
	}
}

func (f *fakePort) queueRead(data string, err error) {
	f.reads <- readResult{data: []byte(data), err: err}
}

func (f *fakePort) Read(p []byte) (int, error) {
	select {
	case result := <-f.reads:
		return copy(p, result.data), result.err
	case <-f.done:
		return 0, errors.New("port closed")
	}
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.writes = append(f.writes, string(p))
	return len(p), nil
}

func (f *fakePort) writtenLines() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	lines := make([]string, len(f.writes))
	copy(lines, f.writes)
	return lines
}

func (f *fakePort) Flush() error { return nil }

func (f *fakePort) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

func startGateway(t *testing.T, ports ...Port) (*Gateway, chan entities.Message, *test.Hook) {
	t.Helper()
	logger, hook := createNullLogger()
	messages := make(chan entities.Message, 16)
	gateway := NewGateway(Config{Device: "/dev/ttyTest", Baud: 115200}, func(message entities.Message) { messages <- message }, logger)
	gateway.retryInterval = time.Millisecond
	opened := 0
	gateway.open = func(Config) (Port, error) {
		if opened >= len(ports) {
			return nil, errors.New("no more ports")
		}
		port := ports[opened]
		opened++
		return port, nil
	}
	return gateway, messages, hook
}

func receiveMessage(t *testing.T, messages chan entities.Message) entities.Message {
	t.Helper()
	select {
	case message := <-messages:
		return message
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return entities.Message{}
	}
}

func TestGivenSerialDataThenHandlerReceivesMessagesInOrder(t *testing.T) {
	port := newFakePort()
	port.queueRead("12;6;1;0;0;2", nil)
	port.queueRead("2.5\n255;255;3;0;3;\n", nil)
	gateway, messages, _ := startGateway(t, port)
	go gateway.Run()
	defer gateway.Stop()

	first := receiveMessage(t, messages)
	second := receiveMessage(t, messages)

	assert.Equal(t, entities.ClassSet, first.Class)
	assert.Equal(t, "22.5", first.Payload)
	assert.Equal(t, entities.ClassInternal, second.Class)
	assert.Equal(t, int(entities.IIDRequest), second.SubType)
}

func TestGivenUnparseableLineThenGatewayDropsItAndContinues(t *testing.T) {
	port := newFakePort()
	port.queueRead("this is not a message\n", nil)
	port.queueRead("0;0;3;0;14;Gateway startup complete\n", nil)
	gateway, messages, hook := startGateway(t, port)
	go gateway.Run()
	defer gateway.Stop()

	message := receiveMessage(t, messages)

	assert.Equal(t, int(entities.IGatewayReady), message.SubType)
	assert.Equal(t, uint64(1), gateway.Stats().DecodeFailures)
	assert.Equal(t, "dropping unparseable line", hook.LastEntry().Message)
}

func TestGivenReadTimeoutThenLoopContinues(t *testing.T) {
	port := newFakePort()
	port.queueRead("", io.EOF)
	port.queueRead("0;0;3;0;14;Gateway startup complete\n", nil)
	gateway, messages, _ := startGateway(t, port)
	go gateway.Run()
	defer gateway.Stop()

	message := receiveMessage(t, messages)

	assert.Equal(t, int(entities.IGatewayReady), message.SubType)
	assert.Equal(t, uint64(1), gateway.Stats().Connects)
}

func TestGivenReadFailureThenGatewayReconnects(t *testing.T) {
	first := newFakePort()
	first.queueRead("1;0;1;0;0;10\n", nil)
	first.queueRead("", errors.New("input/output error"))
	second := newFakePort()
	second.queueRead("1;0;1;0;0;11\n", nil)
	gateway, messages, _ := startGateway(t, first, second)
	go gateway.Run()
	defer gateway.Stop()

	assert.Equal(t, "10", receiveMessage(t, messages).Payload)
	assert.Equal(t, "11", receiveMessage(t, messages).Payload)
	assert.Equal(t, uint64(2), gateway.Stats().Connects)
}

func TestGivenConnectFailureThenGatewayRetries(t *testing.T) {
	port := newFakePort()
	port.queueRead("0;0;3;0;14;Gateway startup complete\n", nil)
	logger, _ := createNullLogger()
	messages := make(chan entities.Message, 1)
	gateway := NewGateway(Config{Device: "/dev/ttyTest"}, func(message entities.Message) { messages <- message }, logger)
	gateway.retryInterval = time.Millisecond
	attempts := 0
	gateway.open = func(Config) (Port, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("no such device")
		}
		return port, nil
	}
	go gateway.Run()
	defer gateway.Stop()

	receiveMessage(t, messages)

	assert.GreaterOrEqual(t, attempts, 3)
}

func TestGivenStopThenRunReturns(t *testing.T) {
	port := newFakePort()
	gateway, _, _ := startGateway(t, port)
	finished := make(chan struct{})
	go func() {
		gateway.Run()
		close(finished)
	}()
	time.Sleep(10 * time.Millisecond)

	gateway.Stop()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after stop")
	}
}

func TestGivenConnectedGatewayThenWriteSendsEncodedLine(t *testing.T) {
	port := newFakePort()
	gateway, _, _ := startGateway(t, port)
	assert.NoError(t, gateway.Connect())
	defer gateway.Stop()
	message, err := entities.NewMessage(3, 1, entities.ClassSet, false, int(entities.VLight), "1")
	assert.NoError(t, err)

	assert.NoError(t, gateway.Write(message))

	assert.Equal(t, []string{"3;1;1;0;2;1\n"}, port.writtenLines())
	assert.Equal(t, uint64(1), gateway.Stats().MessagesWritten)
}

func TestGivenDisconnectedGatewayThenWriteFails(t *testing.T) {
	gateway, _, _ := startGateway(t)
	message, err := entities.NewMessage(3, 1, entities.ClassSet, false, int(entities.VLight), "1")
	assert.NoError(t, err)

	assert.ErrorIs(t, gateway.Write(message), ErrNotConnected)
}

func TestGivenWriteFailureThenWriteReturnsError(t *testing.T) {
	logger, _ := createNullLogger()
	mockPort := new(portMock)
	mockPort.On("Flush").Return(nil)
	mockPort.On("Write", "3;1;1;0;2;1\n").Return(0, errors.New("broken pipe"))
	gateway := NewGateway(Config{Device: "/dev/ttyTest"}, nil, logger)
	gateway.open = func(Config) (Port, error) { return mockPort, nil }
	assert.NoError(t, gateway.Connect())
	message, err := entities.NewMessage(3, 1, entities.ClassSet, false, int(entities.VLight), "1")
	assert.NoError(t, err)

	assert.Error(t, gateway.Write(message))
	mockPort.AssertExpectations(t)
}

func TestGivenConnectedGatewayThenConnectIsIdempotent(t *testing.T) {
	port := newFakePort()
	gateway, _, _ := startGateway(t, port)

	assert.NoError(t, gateway.Connect())
	assert.NoError(t, gateway.Connect())

	assert.Equal(t, uint64(1), gateway.Stats().Connects)
	gateway.Stop()
}
