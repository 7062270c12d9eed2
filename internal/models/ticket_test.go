package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketMaskedKey(t *testing.T) {
	long := Ticket{FinalKey: "abcdef1234567890"}
	assert.Equal(t, "abcdef12...", long.MaskedKey())

	short := Ticket{FinalKey: "abc"}
	assert.Equal(t, "abc", short.MaskedKey())

	empty := Ticket{}
	assert.Equal(t, "", empty.MaskedKey())
}
