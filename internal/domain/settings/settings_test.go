package settings

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewEntry_InfersTypeAndDefaults(t *testing.T) {
	e := NewEntry(KeyCustoKWh, 0.95, "", "")
	assert.Equal(t, Entry{Key: "custo_kwh", Value: "0.95", Type: TypeNumber, Description: "custo_kwh", Category: "geral"}, e)

	e = NewEntry("modo_escuro", true, "Tema", "ui")
	assert.Equal(t, TypeBoolean, e.Type)
	assert.Equal(t, "true", e.Value)
	assert.Equal(t, "ui", e.Category)

	e = NewEntry(KeyMoeda, "BRL", "", "")
	assert.Equal(t, TypeString, e.Type)

	e = NewEntry(KeyPrecoBotijaoGas, decimal.RequireFromString("110.50"), "", "")
	assert.Equal(t, "110.5", e.Value)
	assert.Equal(t, TypeNumber, e.Type)
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "1", " yes "} {
		assert.True(t, ParseBool(s), s)
	}
	for _, s := range []string{"false", "0", "sim", ""} {
		assert.False(t, ParseBool(s), s)
	}
}
