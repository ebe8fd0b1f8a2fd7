package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    ItemStatus
		wantErr bool
	}{
		{name: "in storage", in: "保管中", want: StatusInStorage},
		{name: "returned", in: "返還済", want: StatusReturned},
		{name: "transferred", in: "警察届出済", want: StatusTransferred},
		{name: "unknown", in: "紛失", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
