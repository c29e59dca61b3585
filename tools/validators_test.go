package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("maria@exemplo.com"))
	assert.True(t, ValidateEmail("maria.silva+tag@sub.exemplo.com.br"))
	assert.False(t, ValidateEmail("maria@"))
	assert.False(t, ValidateEmail("sem-arroba.com"))
	assert.False(t, ValidateEmail(""))
}

func TestValidateCPF(t *testing.T) {
	// com e sem pontuação
	assert.True(t, ValidateCPF("529.982.247-25"))
	assert.True(t, ValidateCPF("52998224725"))
	assert.True(t, ValidateCPF("111.444.777-35"))

	// dígito verificador errado
	assert.False(t, ValidateCPF("529.982.247-24"))
	// todos os dígitos iguais passam no cálculo mas não valem
	assert.False(t, ValidateCPF("111.111.111-11"))
	// tamanho errado
	assert.False(t, ValidateCPF("1234567890"))
	assert.False(t, ValidateCPF(""))
}

func TestNormalizeWhatsAppTo(t *testing.T) {
	casos := map[string]string{
		"11 98888-7777":     "5511988887777",
		"(11) 98888-7777":   "5511988887777",
		"+55 11 98888-7777": "5511988887777",
		"5511988887777":     "5511988887777",
		"11 3333-4444":      "551133334444",
	}
	for entrada, esperado := range casos {
		got, err := NormalizeWhatsAppTo(entrada)
		require.NoError(t, err, entrada)
		assert.Equal(t, esperado, got, entrada)
	}

	_, err := NormalizeWhatsAppTo("")
	assert.Error(t, err)
	_, err = NormalizeWhatsAppTo("12345")
	assert.Error(t, err)
}
