package mavlink

import (
	"testing"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointForSerial(t *testing.T) {
	ep, err := endpointFor(Config{Target: "/dev/ttyUSB0", BaudRate: 921600})
	require.NoError(t, err)

	serial, ok := ep.(gomavlib.EndpointSerial)
	require.True(t, ok, "expected a serial endpoint, got %T", ep)
	assert.Equal(t, "/dev/ttyUSB0", serial.Device)
	assert.Equal(t, 921600, serial.Baud)
}

func TestEndpointForUDP(t *testing.T) {
	ep, err := endpointFor(Config{Target: "udp://127.0.0.1:14550"})
	require.NoError(t, err)

	udp, ok := ep.(gomavlib.EndpointUDPClient)
	require.True(t, ok, "expected a UDP endpoint, got %T", ep)
	assert.Equal(t, "127.0.0.1:14550", udp.Address)
}

func TestEndpointForTCP(t *testing.T) {
	ep, err := endpointFor(Config{Target: "tcp://10.0.0.2:5760"})
	require.NoError(t, err)

	tcp, ok := ep.(gomavlib.EndpointTCPClient)
	require.True(t, ok, "expected a TCP endpoint, got %T", ep)
	assert.Equal(t, "10.0.0.2:5760", tcp.Address)
}

func TestEndpointForInvalid(t *testing.T) {
	_, err := endpointFor(Config{})
	assert.Error(t, err, "empty target must be rejected")

	_, err = endpointFor(Config{Target: "/dev/ttyUSB0"})
	assert.Error(t, err, "serial target without baud rate must be rejected")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
}
