package transport

import "net"

// NewTCP wraps a connected net.Conn (owned by the connection supervisor,
// spec §4.1) as a Transport, bounding fragment sizes by the configured
// tx/rx buffers (spec §6 defaults: tx_buffer=2048 min 249, rx_buffer=2048
// min 2048).
func NewTCP(conn net.Conn, txBufferSize, rxBufferSize int) Transport {
	return newStreamTransport(conn, txBufferSize, rxBufferSize)
}
