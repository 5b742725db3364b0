// Package relayboard mirrors confirmed relay states onto a USB serial
// relay board. The store stays authoritative; a board write failure is
// logged and the next confirmed transition retries the channel.
package relayboard

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// Board wraps a serial connection to the relay board.
type Board struct {
	port serial.Port
	mu   sync.Mutex
}

// Open opens the board's serial port, 8N1 at the given baud rate.
func Open(portPath string, baudRate int) (*Board, error) {
	if baudRate <= 0 {
		baudRate = 9600
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portPath, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portPath, err)
	}
	log.Info().Str("port", portPath).Int("baud", baudRate).Msg("Relay board opened")
	return &Board{port: port}, nil
}

// Apply drives the board channel matching the relay identifier. Relay
// identifiers carry their channel as a trailing number ("relay4" -> 4).
func (b *Board) Apply(relayID string, on bool) error {
	channel, err := Channel(relayID)
	if err != nil {
		return err
	}

	// LC-style USB relay boards take a four byte frame:
	// start, channel, state, checksum.
	state := byte(0)
	if on {
		state = 1
	}
	frame := []byte{0xA0, byte(channel), state, 0}
	frame[3] = frame[0] + frame[1] + frame[2]

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.port.Write(frame); err != nil {
		return fmt.Errorf("relay board write channel %d: %w", channel, err)
	}
	return nil
}

// Close closes the serial port.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.port.Close()
}

// Channel extracts the board channel from a relay identifier.
func Channel(relayID string) (int, error) {
	digits := strings.TrimLeftFunc(relayID, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if digits == "" {
		return 0, fmt.Errorf("relay %q has no channel number", relayID)
	}
	channel, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("relay %q has no channel number", relayID)
	}
	return channel, nil
}
