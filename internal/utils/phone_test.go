package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"canonical", "77001234567", "77001234567", true},
		{"plus prefix", "+77001234567", "77001234567", true},
		{"local eight", "87001234567", "77001234567", true},
		{"no country code", "7001234567", "77001234567", true},
		{"separators", "+7 (700) 123-45-67", "77001234567", true},
		{"letters", "7700abc4567", "", false},
		{"too short", "12345", "", false},
		{"foreign 11 digits", "12025550100", "", false},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.in)
			if !tc.ok {
				require.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	var km KeyedMutex
	counter := 0

	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func() {
			unlock := km.Lock("77001234567")
			counter++
			unlock()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	assert.Equal(t, 50, counter)
}
