package dnp3

import "fmt"

// AppControl is the application control octet: FIR|FIN|CON|UNS|SEQ(4).
type AppControl struct {
	FIR bool
	FIN bool
	CON bool
	UNS bool
	Seq uint8 // 4-bit sequence number, 0..15
}

// Byte encodes the control octet per IEEE 1815.
func (c AppControl) Byte() byte {
	var b byte
	if c.FIR {
		b |= 0x80
	}
	if c.FIN {
		b |= 0x40
	}
	if c.CON {
		b |= 0x20
	}
	if c.UNS {
		b |= 0x10
	}
	b |= c.Seq & 0x0F
	return b
}

// ParseAppControl decodes the application control octet.
func ParseAppControl(b byte) AppControl {
	return AppControl{
		FIR: b&0x80 != 0,
		FIN: b&0x40 != 0,
		CON: b&0x20 != 0,
		UNS: b&0x10 != 0,
		Seq: b & 0x0F,
	}
}

func (c AppControl) String() string {
	return fmt.Sprintf("FIR=%v FIN=%v CON=%v UNS=%v SEQ=%d", c.FIR, c.FIN, c.CON, c.UNS, c.Seq)
}

// NextSeq returns the next 4-bit sequence number, wrapping modulo 16.
func NextSeq(seq uint8) uint8 {
	return (seq + 1) % 16
}
