package indexwriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocatorOccurrenceCodes(t *testing.T) {
	a := NewAllocator()

	var got []string
	for _, seq := range []string{"000000001", "000000001", "000000002"} {
		got = append(got, a.Next(seq))
	}

	assert.Equal(t, []string{"00", "01", "00"}, got)
}

func TestAllocatorKeysOnPaddedNumber(t *testing.T) {
	a := NewAllocator()

	assert.Equal(t, "00", a.Next("1"))
	assert.Equal(t, "01", a.Next("000000000001"))
	assert.Equal(t, "02", a.Next("0001"))
	assert.Equal(t, "00", a.Next("10"))
}

func TestAllocatorCountsPastNine(t *testing.T) {
	a := NewAllocator()
	var last string
	for i := 0; i < 12; i++ {
		last = a.Next("5")
	}
	assert.Equal(t, "11", last)
}

func TestPadHelpers(t *testing.T) {
	assert.Equal(t, "000123", PadLeft("123", 6, '0'))
	assert.Equal(t, "1234567", PadLeft("1234567", 6, '0'))
	assert.Equal(t, "ab    ", PadRight("ab", 6, ' '))
	assert.Equal(t, "abcdefg", PadRight("abcdefg", 6, ' '))
	assert.Equal(t, "1111", lastN("4111111111111111", 4))
	assert.Equal(t, "12", lastN("12", 4))
}
