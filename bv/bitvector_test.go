package bv_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/onderjan/machine-check-sub004/bv"
)

func TestNewWrapsModuloWidth(t *testing.T) {
	v := bv.New(4, 0x1F) // 0b11111, width 4 keeps low 4 bits
	require.Equal(t, uint64(0xF), v.Uint64())
}

func TestInt64SignExtendsNegative(t *testing.T) {
	v := bv.New(4, 0b1000) // -8 in 4-bit two's complement
	require.Equal(t, int64(-8), v.Int64())
}

func TestArithWrapsModuloWidth(t *testing.T) {
	a := bv.New(4, 15)
	b := bv.New(4, 2)
	require.Equal(t, uint64(1), a.Add(b).Uint64()) // 15+2 = 17 mod 16 = 1
	require.Equal(t, uint64(13), a.Sub(b).Uint64())
}

func TestShiftByWidthOrMoreYieldsZero(t *testing.T) {
	a := bv.New(8, 0xFF)
	require.Equal(t, uint64(0), a.Shl(8).Uint64())
	require.Equal(t, uint64(0), a.Lshr(9).Uint64())
}

func TestAshrSignExtendsFill(t *testing.T) {
	a := bv.New(8, 0x80) // -128
	require.Equal(t, uint64(0xFF), a.Ashr(7).Uint64())
}

func TestSliceExtractsBits(t *testing.T) {
	a := bv.New(8, 0b10110100)
	s := a.Slice(5, 2) // bits 2..5 = 1101
	require.Equal(t, bv.Width(4), s.Width())
	require.Equal(t, uint64(0b1101), s.Uint64())
}

func TestHighestSetBit(t *testing.T) {
	a := bv.New(8, 0b00101000)
	pos, ok := a.HighestSetBit()
	require.True(t, ok)
	require.Equal(t, uint(5), pos)

	zero := bv.New(8, 0)
	_, ok = zero.HighestSetBit()
	require.False(t, ok)
}

func TestMismatchedWidthPanics(t *testing.T) {
	a := bv.New(4, 1)
	b := bv.New(8, 1)
	require.Panics(t, func() { a.Add(b) })
}
