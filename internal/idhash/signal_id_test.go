package idhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSignalID_Deterministic(t *testing.T) {
	a := ComputeSignalID("mintA", "sig1")
	b := ComputeSignalID("mintA", "sig1")

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeSignalID_Distinct(t *testing.T) {
	tests := []struct {
		name  string
		token string
		sig   string
	}{
		{"different token", "mintB", "sig1"},
		{"different signature", "mintA", "sig2"},
		{"separator shift", "mintA|s", "ig1"},
	}

	base := ComputeSignalID("mintA", "sig1")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, base, ComputeSignalID(tt.token, tt.sig))
		})
	}
}
