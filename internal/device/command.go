package device

import "encoding/binary"

// Opcodes understood by the motor controller firmware. Command length is
// implied by the opcode; there is no framing or checksum.
const (
	OpPlay  byte = 0x00
	OpStop  byte = 0x01
	OpReset byte = 0x02
	OpWipe  byte = 0x03
	OpAdd   byte = 0x04
)

// Flags is the option bitfield sent with Add.
type Flags byte

const (
	FlagEnabled Flags = 0x01
	FlagFloppy  Flags = 0x08
	FlagNoReset Flags = 0x10
)

// Index is the handle the controller assigns to a motor on Add. It is only
// valid until the next Wipe.
type Index uint8

// command is one encoded request and the number of response bytes it
// expects before any payload that depends on the status.
type command struct {
	op      byte
	payload []byte
	resp    int
}

// Encode builds the on-wire representation: [OP][payload...].
func (c command) Encode() []byte {
	out := make([]byte, 0, 1+len(c.payload))
	out = append(out, c.op)
	return append(out, c.payload...)
}

func opName(op byte) string {
	switch op {
	case OpPlay:
		return "PLAY"
	case OpStop:
		return "STOP"
	case OpReset:
		return "RESET"
	case OpWipe:
		return "WIPE"
	case OpAdd:
		return "ADD"
	}
	return "UNKNOWN"
}

func wipeCmd() command { return command{op: OpWipe, resp: 1} }

func addCmd(stepPin, dirPin byte, flags Flags) command {
	return command{op: OpAdd, payload: []byte{stepPin, dirPin, byte(flags)}, resp: 1}
}

func playCmd(idx Index, delay uint16) command {
	p := []byte{byte(idx), 0, 0}
	binary.BigEndian.PutUint16(p[1:], delay)
	return command{op: OpPlay, payload: p}
}

func stopCmd(idx Index) command { return command{op: OpStop, payload: []byte{byte(idx)}} }

func resetCmd(idx Index) command { return command{op: OpReset, payload: []byte{byte(idx)}, resp: 1} }
