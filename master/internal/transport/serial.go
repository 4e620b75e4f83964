package transport

import "io"

// SerialPort is the minimal capability the serial adapter needs from the
// (out-of-scope, spec §1) serial-port implementation: a byte stream plus
// close. Real port settings (baud rate, parity, flow control) are applied
// by whatever opens the port before handing it to NewSerial.
type SerialPort interface {
	io.ReadWriteCloser
}

// NewSerial wraps an open serial port as a Transport, using the same
// length-prefixed framing as the TCP adapter (spec §4.1 "substitute
// TcpStream::connect with open_serial(path, settings)").
func NewSerial(port SerialPort, txBufferSize, rxBufferSize int) Transport {
	return newStreamTransport(port, txBufferSize, rxBufferSize)
}
