package hrtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type binString string

func (s binString) MarshalBinary() ([]byte, error) { return []byte(s), nil }

func TestDefaultHashKVDeterministicAndSensitiveToBoth(t *testing.T) {
	h1 := DefaultHashKV[binString, binString]("k1", "v1")
	h2 := DefaultHashKV[binString, binString]("k1", "v1")
	assert.Equal(t, h1, h2)

	assert.NotEqual(t, h1, DefaultHashKV[binString, binString]("k1", "v2"))
	assert.NotEqual(t, h1, DefaultHashKV[binString, binString]("k2", "v1"))
}
