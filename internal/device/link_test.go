package device_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/chase3718/motor-organ/internal/device"
	"github.com/chase3718/motor-organ/internal/device/devicetest"
)

func newLink(t *testing.T) (*Link, *devicetest.Port) {
	t.Helper()
	port := new(devicetest.Port).Respond(0)
	link, err := New(port)
	require.NoError(t, err)
	port.Reset()
	return link, port
}

func TestNewWipesFirst(t *testing.T) {
	port := new(devicetest.Port).Respond(0)
	_, err := New(port)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x03}}, port.Writes())
}

func TestNewFailsOnWipeError(t *testing.T) {
	port := new(devicetest.Port).Respond(byte(StatusUnknownOpcode))
	_, err := New(port)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDevice)

	_, err = New(new(devicetest.Port))
	assert.ErrorIs(t, err, ErrUnresponsive)
}

func TestAdd(t *testing.T) {
	link, port := newLink(t)
	port.Respond(0, 7)

	idx, err := link.Add(2, 3, FlagEnabled|FlagFloppy)
	require.NoError(t, err)
	assert.Equal(t, Index(7), idx)
	assert.Equal(t, []byte{0x04, 2, 3, 0x09}, port.Last())
}

func TestAddMotorBusy(t *testing.T) {
	link, port := newLink(t)
	port.Respond(byte(StatusMotorBusy))

	_, err := link.Add(2, 0, FlagEnabled)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDevice)
	assert.False(t, errors.Is(err, ErrUnresponsive))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusMotorBusy, se.Status)
	assert.Equal(t, "ADD", se.Op)
	assert.Contains(t, err.Error(), "motor busy")
}

func TestAddMissingIndexByte(t *testing.T) {
	link, port := newLink(t)
	port.Respond(0)

	_, err := link.Add(2, 0, FlagEnabled)
	assert.ErrorIs(t, err, ErrUnresponsive)
	assert.Contains(t, err.Error(), "device: ADD index: device unresponsive")
}

func TestErrorsCarryStack(t *testing.T) {
	link, port := newLink(t)

	err := link.Reset(3)
	require.ErrorIs(t, err, ErrUnresponsive)
	assert.Contains(t, fmt.Sprintf("%+v", err), "link.go")

	port.Respond(byte(StatusBadIndex))
	err = link.Reset(3)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusBadIndex, se.Status)

	require.NoError(t, link.Close())
	err = link.Play(0, 1000)
	assert.EqualError(t, err, "device: PLAY on closed link")
	assert.Contains(t, fmt.Sprintf("%+v", err), "link.go")
}

func TestPlayEncodesDelayBigEndian(t *testing.T) {
	link, port := newLink(t)

	require.NoError(t, link.Play(3, 0x1D65))
	assert.Equal(t, []byte{0x00, 3, 0x1D, 0x65}, port.Last())
}

func TestStopAndReset(t *testing.T) {
	link, port := newLink(t)

	require.NoError(t, link.Stop(4))
	assert.Equal(t, []byte{0x01, 4}, port.Last())

	port.Respond(0)
	require.NoError(t, link.Reset(4))
	assert.Equal(t, []byte{0x02, 4}, port.Last())

	err := link.Reset(4)
	assert.ErrorIs(t, err, ErrUnresponsive)

	port.Respond(byte(StatusBadIndex))
	err = link.Reset(9)
	assert.ErrorIs(t, err, ErrDevice)
}

func TestLinkUsableAfterFailure(t *testing.T) {
	link, port := newLink(t)

	assert.ErrorIs(t, link.Wipe(), ErrUnresponsive)

	port.Respond(0)
	assert.NoError(t, link.Wipe())
	require.NoError(t, link.Play(0, 1000))
}

func TestUnrecognizedStatus(t *testing.T) {
	link, port := newLink(t)
	port.Respond(0xEE)

	err := link.Wipe()
	assert.ErrorIs(t, err, ErrDevice)
	assert.Contains(t, err.Error(), "unrecognized status 238")
}

func TestWriteError(t *testing.T) {
	link, port := newLink(t)
	port.WriteErr = errors.New("cable pulled")

	err := link.Play(0, 1000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cable pulled")
}

func TestClose(t *testing.T) {
	link, port := newLink(t)

	require.NoError(t, link.Close())
	require.NoError(t, link.Close())
	assert.True(t, port.Closed)
	assert.Error(t, link.Stop(0))
}

func TestLoopback(t *testing.T) {
	lb := NewLoopback(nil)
	link, err := New(lb)
	require.NoError(t, err)

	a, err := link.Add(2, 3, FlagEnabled|FlagFloppy)
	require.NoError(t, err)
	b, err := link.Add(4, 0, FlagEnabled)
	require.NoError(t, err)
	assert.Equal(t, Index(0), a)
	assert.Equal(t, Index(1), b)

	require.NoError(t, link.Reset(a))
	require.NoError(t, link.Play(b, 1893))
	assert.Equal(t, map[byte]uint16{1: 1893}, lb.Sounding())

	require.NoError(t, link.Stop(b))
	assert.Empty(t, lb.Sounding())

	assert.ErrorIs(t, link.Reset(5), ErrDevice)

	require.NoError(t, link.Wipe())
	c, err := link.Add(2, 3, FlagEnabled)
	require.NoError(t, err)
	assert.Equal(t, Index(0), c)
}
