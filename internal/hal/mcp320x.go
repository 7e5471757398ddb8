package hal

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// First-byte bit layout of the request frame: start bit, single-ended/
// differential select, then the three channel bits.
const (
	startBit       = 0x80
	singleEndedBit = 0x40
)

// MCP320x reads the MCP3204/3208 family of 12-bit SPI converters.
//
// One sample is one 3-byte full-duplex exchange. The converter clocks the
// result back most-significant bit first, seven bit times after the
// channel configuration, so the 12-bit code spans the tail of the three
// received bytes.
type MCP320x struct {
	conn spi.Conn
}

var _ AnalogReader = (*MCP320x)(nil)

// NewMCP320x connects the converter on port. The device speaks SPI mode 0,
// MSB first. At a 3.3 V supply the datasheet caps the clock at 1 MHz.
func NewMCP320x(port spi.Port, clock physic.Frequency) (*MCP320x, error) {
	c, err := port.Connect(clock, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("connect MCP320x on %s: %w", port, err)
	}
	return &MCP320x{conn: c}, nil
}

// ReadChannel samples one channel.
func (d *MCP320x) ReadChannel(ch Channel) (uint16, error) {
	cfg, err := ch.config()
	if err != nil {
		return 0, err
	}

	tx := [3]byte{cfg, 0, 0}
	var rx [3]byte
	if err := d.conn.Tx(tx[:], rx[:]); err != nil {
		return 0, fmt.Errorf("read %s: %w", ch, err)
	}

	code := uint16(rx[0]&0x01)<<11 | uint16(rx[1])<<3 | uint16(rx[2]&0xe0)>>5
	return code, nil
}
