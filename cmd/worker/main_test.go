package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		retry int
		want  time.Duration
	}{
		{retry: 0, want: time.Second},
		{retry: 1, want: 2 * time.Second},
		{retry: 5, want: 32 * time.Second},
		{retry: 9, want: 8*time.Minute + 32*time.Second},
		{retry: 10, want: 10 * time.Minute},
		{retry: 70, want: 10 * time.Minute},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, exponentialBackoff(tt.retry, nil, nil), "retry %d", tt.retry)
	}
}
