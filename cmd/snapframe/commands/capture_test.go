package commands

import (
	"testing"

	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		message string
		input   string
		want    geometry.Rect
		wantErr bool
	}{
		{message: "parse four numbers", input: "10,20,300,200", want: geometry.R(10, 20, 300, 200)},
		{message: "allow spaces and fractions", input: " 1.5, 2 ,3,4", want: geometry.R(1.5, 2, 3, 4)},
		{message: "reject too few parts", input: "1,2,3", wantErr: true},
		{message: "reject non-numbers", input: "a,b,c,d", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("Should "+tt.message, func(t *testing.T) {
			got, err := parseRegion(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWindowID(t *testing.T) {
	id, err := parseWindowID("0x3a00007")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3a00007), id)

	id, err = parseWindowID("42")
	require.NoError(t, err)
	assert.Equal(t, uint32(42), id)

	_, err = parseWindowID("0x1ffffffff")
	assert.Error(t, err)
}
