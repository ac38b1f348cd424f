package db

import (
	"testing"

	"github.com/kasuganosora/roguebt/config"
	"github.com/stretchr/testify/assert"
)

func TestOpen_Modes(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Mode: ModeNone})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Open(config.DatabaseConfig{})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = Open(config.DatabaseConfig{Mode: "oracle"})
	assert.Error(t, err)
}
