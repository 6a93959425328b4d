package reader

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// quietPort is an SPI port with nothing attached: every read returns zeros,
// so the chip never reports a card.
type quietPort struct {
	mu     sync.Mutex
	writes int
	closed bool
}

func (p *quietPort) String() string                      { return "quiet" }
func (p *quietPort) LimitSpeed(f physic.Frequency) error { return nil }
func (p *quietPort) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	return &quietConn{p: p}, nil
}
func (p *quietPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type quietConn struct{ p *quietPort }

func (c *quietConn) String() string { return "quiet" }
func (c *quietConn) Tx(w, r []byte) error {
	c.p.mu.Lock()
	c.p.writes++
	c.p.mu.Unlock()
	for i := range r {
		r[i] = 0
	}
	return nil
}
func (c *quietConn) Duplex() conn.Duplex            { return conn.Full }
func (c *quietConn) TxPackets(p []spi.Packet) error { return nil }

func newTestPins() (*gpiotest.Pin, *gpiotest.Pin) {
	reset := &gpiotest.Pin{N: "GPIO25", Num: 25}
	irq := &gpiotest.Pin{N: "GPIO24", Num: 24, EdgesChan: make(chan gpio.Level)}
	return reset, irq
}

func TestMFRC522NoCard(t *testing.T) {
	port := &quietPort{}
	reset, irq := newTestPins()

	m, err := newMFRC522(port, reset, irq, 0, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, defaultCardTimeout, m.timeout)
	assert.Equal(t, gpio.High, reset.Read(), "reset released after init")

	for i := 0; i < 2; i++ {
		uid, err := m.Read(context.Background())
		assert.NoError(t, err)
		assert.Nil(t, uid)
	}

	require.NoError(t, m.Close())
	assert.True(t, port.closed)
	assert.Positive(t, port.writes)
}

func TestMFRC522CancelledContext(t *testing.T) {
	reset, irq := newTestPins()
	m, err := newMFRC522(&quietPort{}, reset, irq, 0, zap.NewNop())
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	uid, err := m.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, uid)
}

func TestMFRC522RequiresIRQPin(t *testing.T) {
	port := &quietPort{}
	reset, _ := newTestPins()

	_, err := newMFRC522(port, reset, nil, 0, zap.NewNop())
	assert.Error(t, err)
	assert.True(t, port.closed)
}
