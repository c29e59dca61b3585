package sessions

import (
	"testing"

	"atende/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessaoColeta(t *testing.T, m *Manager) *models.SessaoAtendimento {
	t.Helper()
	return m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)
}

func TestColetaEmail(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	s := sessaoColeta(t, m)

	prompt := m.IniciarColeta(s, models.ColetaEmail)
	assert.Equal(t, "Qual é o seu e-mail?", prompt)

	// resposta inválida re-pergunta e mantém o sub-fluxo
	res := m.ProcessMessage(s, "não sei")
	assert.Empty(t, res.DadoColetado)
	assert.NotEmpty(t, res.Resposta)
	assert.Equal(t, models.ColetaEmail, s.AcaoColeta)

	res = m.ProcessMessage(s, "pode ser Maria@Exemplo.com mesmo")
	assert.Equal(t, "email", res.DadoColetado)
	assert.Equal(t, "maria@exemplo.com", s.DadosColetados["email"])
	assert.Equal(t, models.ColetaNenhuma, s.AcaoColeta)
}

func TestColetaTelefoneNormaliza(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	s := sessaoColeta(t, m)

	m.IniciarColeta(s, models.ColetaTelefone)
	res := m.ProcessMessage(s, "11 98888-7777")
	require.Equal(t, "telefone", res.DadoColetado)
	assert.Equal(t, "5511988887777", s.DadosColetados["telefone"])
}

func TestColetaCPFValidaDigitos(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	s := sessaoColeta(t, m)

	m.IniciarColeta(s, models.ColetaCPF)

	res := m.ProcessMessage(s, "529.982.247-24") // dígito verificador errado
	assert.Empty(t, res.DadoColetado)
	assert.Equal(t, models.ColetaCPF, s.AcaoColeta)

	res = m.ProcessMessage(s, "meu cpf é 529.982.247-25")
	assert.Equal(t, "cpf", res.DadoColetado)
	assert.Equal(t, "529.982.247-25", s.DadosColetados["cpf"])
}

func TestColetaNome(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	s := sessaoColeta(t, m)

	m.IniciarColeta(s, models.ColetaNome)
	res := m.ProcessMessage(s, "Maria da Silva")
	assert.Equal(t, "nome", res.DadoColetado)
	assert.Equal(t, "Maria da Silva", s.DadosColetados["nome"])
}

func TestColetaConfirmacao(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	s := sessaoColeta(t, m)

	m.IniciarColeta(s, models.ColetaConfirmacao)
	res := m.ProcessMessage(s, "talvez")
	assert.Empty(t, res.DadoColetado)

	res = m.ProcessMessage(s, "sim, pode marcar")
	assert.Equal(t, "confirmacao", res.DadoColetado)
	assert.Equal(t, "sim", s.DadosColetados["confirmacao"])

	m.IniciarColeta(s, models.ColetaConfirmacao)
	res = m.ProcessMessage(s, "não, melhor não")
	assert.Equal(t, "confirmacao", res.DadoColetado)
	assert.Equal(t, "nao", s.DadosColetados["confirmacao"])
}

func TestColetaTemPrioridadeSobreIntencao(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	s := sessaoColeta(t, m)

	// dentro do sub-fluxo, a resposta é tratada como resposta ao prompt
	m.IniciarColeta(s, models.ColetaEmail)
	res := m.ProcessMessage(s, "atendente@empresa.com")
	assert.False(t, res.Escalar)
	assert.Equal(t, "email", res.DadoColetado)
}
