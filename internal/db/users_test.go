package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	cases := map[string]string{
		"Иванов":     "%Иванов%",
		"100%":       `%100\%%`,
		"Иван_в":     `%Иван\_в%`,
		`C:\teacher`: `%C:\\teacher%`,
		"":           "%%",
	}
	for in, want := range cases {
		assert.Equal(t, want, containsPattern(in), in)
	}
}
