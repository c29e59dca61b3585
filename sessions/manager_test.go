package sessions

import (
	"testing"
	"time"

	"atende/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func novoManagerTeste(cfg Config) *Manager {
	return NewManager(cfg, nil)
}

func TestGetOrCreateReutilizaSessaoViva(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())

	a := m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)
	b := m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 1, m.Ativas())
}

func TestGetOrCreateRecriaAposTimeout(t *testing.T) {
	m := novoManagerTeste(Config{Timeout: 50 * time.Millisecond})

	a := m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)
	a.Interacoes = 7

	time.Sleep(70 * time.Millisecond)

	b := m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)
	assert.NotEqual(t, a.ID, b.ID, "sessão expirada deve ser descartada")
	assert.Equal(t, 0, b.Interacoes, "a nova sessão começa zerada")
	assert.Equal(t, models.ModoAssistenteVirtual, b.Modo)
}

func TestPedidoDeHumanoSinalizaEscalacao(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	s := m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)

	res := m.ProcessMessage(s, "quero falar com um atendente, por favor")
	assert.True(t, res.Escalar)
	assert.Equal(t, MotivoUsuarioSolicitou, res.Motivo)
	// o manager só sinaliza: o modo não muda sozinho
	assert.Equal(t, models.ModoAssistenteVirtual, s.Modo)

	res = m.ProcessMessage(s, "bom dia, tudo bem?")
	assert.False(t, res.Escalar)
}

func TestOfertaDeHumanoUmaUnicaVez(t *testing.T) {
	m := novoManagerTeste(Config{OfertaHumanoApos: 3})
	s := m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)

	assert.False(t, m.ProcessMessage(s, "bom dia").OferecerHumano)
	assert.False(t, m.ProcessMessage(s, "tudo bem").OferecerHumano)
	assert.True(t, m.ProcessMessage(s, "ok, entendi").OferecerHumano, "oferta exatamente no limiar")
	assert.False(t, m.ProcessMessage(s, "mais uma coisa").OferecerHumano, "a oferta não se repete")
}

func TestErrosConsecutivosDoBotEscalamNoLimite(t *testing.T) {
	m := novoManagerTeste(Config{LimiteErrosBot: 2})
	s := m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)

	assert.False(t, m.RegistrarErroBot(s))
	assert.True(t, m.RegistrarErroBot(s))
}

func TestTransferenciaRegistraHistoricoEContexto(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	s := m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)

	fila := int64(4)
	m.TransferirParaHumano(s, "USUARIO_SOLICITOU", &fila)

	assert.Equal(t, models.ModoAtendenteHumano, s.Modo)
	assert.Equal(t, string(models.ModoAssistenteVirtual), s.Contexto["modo_anterior"])
	assert.Equal(t, "USUARIO_SOLICITOU", s.Contexto["motivo_transferencia"])
	assert.Equal(t, "4", s.Contexto["fila_destino"])
	require.Len(t, s.Transicoes, 1)
	assert.Equal(t, models.ModoAssistenteVirtual, s.Transicoes[0].De)
	assert.Equal(t, models.ModoAtendenteHumano, s.Transicoes[0].Para)

	// transferir de novo é no-op
	m.TransferirParaHumano(s, "denovo", nil)
	assert.Len(t, s.Transicoes, 1)

	s.ErrosBot = 2
	m.RetornarParaBot(s, "atendimento concluído")
	assert.Equal(t, models.ModoAssistenteVirtual, s.Modo)
	assert.Len(t, s.Transicoes, 2)
	assert.Equal(t, 0, s.ErrosBot, "handoff reverso zera os erros do bot")
}

func TestExtracaoDeDadosDoTextoLivre(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	s := m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)

	m.ProcessMessage(s, "meu email é Maria@Exemplo.com e meu cpf é 529.982.247-25")
	assert.Equal(t, "maria@exemplo.com", s.DadosColetados["email"])
	assert.Equal(t, "529.982.247-25", s.DadosColetados["cpf"])

	// o que já foi coletado não é sobrescrito por matches posteriores
	m.ProcessMessage(s, "ah não, usa outro@exemplo.com")
	assert.Equal(t, "maria@exemplo.com", s.DadosColetados["email"])
}

func TestSweepRemoveSessoesAbandonadas(t *testing.T) {
	m := novoManagerTeste(Config{Timeout: 30 * time.Millisecond})

	m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)
	assert.Equal(t, 0, m.SweepExpired(), "sessão recém criada não é removida")

	time.Sleep(70 * time.Millisecond) // além de 2x o timeout
	assert.Equal(t, 1, m.SweepExpired())
	assert.Equal(t, 0, m.Ativas())
}

func TestEncerrarRemoveDaTabela(t *testing.T) {
	m := novoManagerTeste(DefaultConfig())
	m.GetOrCreate("whatsapp:555", "555", 1, models.ModoAssistenteVirtual)

	m.Encerrar("whatsapp:555")
	assert.Equal(t, 0, m.Ativas())
}
