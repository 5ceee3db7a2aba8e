package tg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSystemErr(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("Too Many Requests: retry after 5 (429)"), true},
		{errors.New("Bad Gateway 502"), true},
		{errors.New("net/http: request canceled (Client.Timeout exceeded): timeout"), true},
		{errors.New("Bad Request: chat not found"), false},
		{errors.New("Forbidden: bot was blocked by the user"), false},
		{errors.New("Bad Request: can't parse entities"), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isSystemErr(tt.err), "%v", tt.err)
	}
}
