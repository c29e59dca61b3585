package fila

import (
	"testing"
	"time"

	"atende/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func novaFilaTeste(id int64, dist models.ModoDistribuicao, capacidade int, atendentes ...int64) *models.FilaAtendimento {
	f := &models.FilaAtendimento{
		ID:                  id,
		UserID:              1,
		Nome:                "fila-teste",
		Ativa:               true,
		Distribuicao:        dist,
		CapacidadeAtendente: capacidade,
	}
	for i, a := range atendentes {
		f.Atendentes = append(f.Atendentes, models.FilaAtendente{
			FilaID:      id,
			AtendenteID: a,
			Ordem:       i,
		})
	}
	return f
}

func novoServicoTeste(filas ...*models.FilaAtendimento) *Service {
	s := NewService(DefaultConfig(), nil, nil)
	for _, f := range filas {
		s.RegistrarFila(f)
	}
	return s
}

func TestRodizioDistribuiEmOrdemComWrap(t *testing.T) {
	s := novoServicoTeste(novaFilaTeste(1, models.DistribuicaoRodizio, 5, 10, 20, 30))

	esperados := []int64{10, 20, 30, 10}
	for i, esperado := range esperados {
		item, err := s.Rotear("conv-"+string(rune('a'+i)), "contato", 1, nil, 0, "teste")
		require.NoError(t, err)
		require.Equal(t, models.AtendimentoEmAndamento, item.Status)
		require.NotNil(t, item.AtendenteID)
		assert.Equal(t, esperado, *item.AtendenteID, "atribuição %d", i)
	}
}

func TestRodizioPulaAtendenteNoTeto(t *testing.T) {
	s := novoServicoTeste(novaFilaTeste(1, models.DistribuicaoRodizio, 1, 10, 20))

	a, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	require.NotNil(t, a.AtendenteID)
	assert.Equal(t, int64(10), *a.AtendenteID)

	b, err := s.Rotear("conv-b", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	require.NotNil(t, b.AtendenteID)
	assert.Equal(t, int64(20), *b.AtendenteID)

	// todo mundo no teto: o item fica aguardando na posição 1, sem erro
	c, err := s.Rotear("conv-c", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	assert.Equal(t, models.AtendimentoAguardando, c.Status)
	assert.Nil(t, c.AtendenteID)
	require.NotNil(t, c.Posicao)
	assert.Equal(t, 1, *c.Posicao)
}

func TestMenosOcupadoEscolhePorOcupacao(t *testing.T) {
	s := novoServicoTeste(novaFilaTeste(1, models.DistribuicaoMenosOcupado, 5, 10, 20))

	a, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	// empate inicial: fica com o primeiro da lista
	assert.Equal(t, int64(10), *a.AtendenteID)

	b, err := s.Rotear("conv-b", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	assert.Equal(t, int64(20), *b.AtendenteID)

	c, err := s.Rotear("conv-c", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	assert.Equal(t, int64(10), *c.AtendenteID)
}

func TestNoMaximoUmTicketAbertoPorConversa(t *testing.T) {
	s := novoServicoTeste(novaFilaTeste(1, models.DistribuicaoManual, 5, 10))

	a, err := s.Rotear("conv-a", "contato", 1, nil, 0, "primeiro")
	require.NoError(t, err)

	b, err := s.Rotear("conv-a", "contato", 1, nil, 0, "segundo")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID, "o ticket aberto existente deve ser devolvido")

	// depois de finalizado, a conversa pode abrir outro
	_, err = s.Atribuir(a.ID, 10)
	require.NoError(t, err)
	_, err = s.Finalizar(a.ID, nil, "")
	require.NoError(t, err)

	c, err := s.Rotear("conv-a", "contato", 1, nil, 0, "terceiro")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestResolucaoDeFila(t *testing.T) {
	comum := novaFilaTeste(1, models.DistribuicaoManual, 5, 10)
	padrao := novaFilaTeste(2, models.DistribuicaoManual, 5, 10)
	padrao.Padrao = true
	s := novoServicoTeste(comum, padrao)

	// sem fila explícita, vence a fila padrão do tenant
	item, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	assert.Equal(t, int64(2), item.FilaID)

	// fila explícita vence a padrão
	um := int64(1)
	item, err = s.Rotear("conv-b", "contato", 1, &um, 0, "teste")
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.FilaID)

	// fila inexistente é erro
	nove := int64(9)
	_, err = s.Rotear("conv-c", "contato", 1, &nove, 0, "teste")
	assert.ErrorIs(t, err, ErrFilaNaoEncontrada)

	// tenant sem fila nenhuma é erro
	_, err = s.Rotear("conv-d", "contato", 42, nil, 0, "teste")
	assert.ErrorIs(t, err, ErrFilaNaoEncontrada)
}

func TestTransicoesDeAtribuicao(t *testing.T) {
	s := novoServicoTeste(novaFilaTeste(1, models.DistribuicaoManual, 5, 10))

	item, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	require.Equal(t, models.AtendimentoAguardando, item.Status)

	atribuido, err := s.Atribuir(item.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, models.AtendimentoEmAndamento, atribuido.Status)
	assert.Nil(t, atribuido.Posicao)
	require.NotNil(t, atribuido.InicioEm)

	// reatribuir item em andamento é no-op
	denovo, err := s.Atribuir(item.ID, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(10), *denovo.AtendenteID)

	_, err = s.Finalizar(item.ID, nil, "")
	require.NoError(t, err)

	// item finalizado não volta
	_, err = s.Atribuir(item.ID, 10)
	assert.ErrorIs(t, err, ErrTransicaoInvalida)

	_, err = s.Atribuir("nao-existe", 10)
	assert.ErrorIs(t, err, ErrItemNaoEncontrado)
}

func TestFinalizarExigeEmAndamento(t *testing.T) {
	s := novoServicoTeste(novaFilaTeste(1, models.DistribuicaoManual, 5, 10))

	item, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)

	// não existe Aguardando -> Finalizado
	_, err = s.Finalizar(item.ID, nil, "")
	assert.ErrorIs(t, err, ErrTransicaoInvalida)

	_, err = s.Finalizar("nao-existe", nil, "")
	assert.ErrorIs(t, err, ErrItemNaoEncontrado)
}

func TestFinalizarAtualizaMediaEContadorDiario(t *testing.T) {
	f := novaFilaTeste(1, models.DistribuicaoManual, 5, 10)
	s := novoServicoTeste(f)

	primeiro, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	_, err = s.Atribuir(primeiro.ID, 10)
	require.NoError(t, err)
	inicio := time.Now().Add(-4 * time.Second)
	primeiro.InicioEm = &inicio

	cinco := 5
	done, err := s.Finalizar(primeiro.ID, &cinco, "ótimo atendimento")
	require.NoError(t, err)
	assert.Equal(t, models.AtendimentoFinalizado, done.Status)
	require.NotNil(t, done.FimEm)
	assert.Equal(t, 5, *done.Avaliacao)
	assert.InDelta(t, 4.0, f.TempoMedioSegundos, 0.5)

	segundo, err := s.Rotear("conv-b", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	_, err = s.Atribuir(segundo.ID, 10)
	require.NoError(t, err)
	inicio2 := time.Now().Add(-8 * time.Second)
	segundo.InicioEm = &inicio2

	_, err = s.Finalizar(segundo.ID, nil, "")
	require.NoError(t, err)
	// média móvel de dois pontos: (4 + 8) / 2
	assert.InDelta(t, 6.0, f.TempoMedioSegundos, 0.5)

	assert.Equal(t, 2, s.FinalizadosHoje(1))
}

func TestTransferirCriaNovoTicketNoDestino(t *testing.T) {
	origem := novaFilaTeste(1, models.DistribuicaoManual, 5, 10)
	destino := novaFilaTeste(2, models.DistribuicaoManual, 5, 20)
	s := novoServicoTeste(origem, destino)

	um := int64(1)
	item, err := s.Rotear("conv-a", "contato", 1, &um, 3, "teste")
	require.NoError(t, err)

	dois := int64(2)
	novo, err := s.Transferir(item.ID, &dois, nil, "setor especializado")
	require.NoError(t, err)

	assert.Equal(t, int64(2), novo.FilaID)
	assert.Equal(t, 1, novo.Transferencias)
	assert.Equal(t, 3, novo.Prioridade, "prioridade preservada na linhagem")
	assert.NotEqual(t, item.ID, novo.ID)

	antigo, ok := s.Item(item.ID)
	require.True(t, ok)
	assert.Equal(t, models.AtendimentoTransferido, antigo.Status)
	assert.Contains(t, antigo.Observacoes, "transferido: setor especializado")

	// item transferido não pode ser transferido de novo
	_, err = s.Transferir(item.ID, &dois, nil, "denovo")
	assert.ErrorIs(t, err, ErrTransicaoInvalida)
}

func TestTransferirComAtendenteDestino(t *testing.T) {
	origem := novaFilaTeste(1, models.DistribuicaoManual, 5, 10)
	destino := novaFilaTeste(2, models.DistribuicaoManual, 5, 20)
	s := novoServicoTeste(origem, destino)

	item, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)

	dois := int64(2)
	vinte := int64(20)
	novo, err := s.Transferir(item.ID, &dois, &vinte, "direto pro especialista")
	require.NoError(t, err)
	assert.Equal(t, models.AtendimentoEmAndamento, novo.Status)
	require.NotNil(t, novo.AtendenteID)
	assert.Equal(t, int64(20), *novo.AtendenteID)
}

func TestProximoParaAtendente(t *testing.T) {
	s := novoServicoTeste(novaFilaTeste(1, models.DistribuicaoManual, 1, 7))

	baixa1, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	alta, err := s.Rotear("conv-b", "contato", 1, nil, 5, "urgente")
	require.NoError(t, err)
	_, err = s.Rotear("conv-c", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)

	// maior prioridade primeiro, mesmo tendo entrado depois
	puxado, err := s.ProximoParaAtendente(7, nil)
	require.NoError(t, err)
	require.NotNil(t, puxado)
	assert.Equal(t, alta.ID, puxado.ID)

	// teto de capacidade do atendente: nil sem erro
	nada, err := s.ProximoParaAtendente(7, nil)
	require.NoError(t, err)
	assert.Nil(t, nada)

	_, err = s.Finalizar(puxado.ID, nil, "")
	require.NoError(t, err)

	// empate de prioridade: vence quem entrou antes
	puxado, err = s.ProximoParaAtendente(7, nil)
	require.NoError(t, err)
	require.NotNil(t, puxado)
	assert.Equal(t, baixa1.ID, puxado.ID)

	// atendente fora da fila não é elegível
	nada, err = s.ProximoParaAtendente(99, nil)
	require.NoError(t, err)
	assert.Nil(t, nada)
}

func TestPosicaoNaFilaContaSoAguardando(t *testing.T) {
	s := novoServicoTeste(novaFilaTeste(1, models.DistribuicaoManual, 5, 10))

	a, _ := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	b, _ := s.Rotear("conv-b", "contato", 1, nil, 0, "teste")
	require.NotNil(t, a.Posicao)
	require.NotNil(t, b.Posicao)
	assert.Equal(t, 1, *a.Posicao)
	assert.Equal(t, 2, *b.Posicao)

	f, ok := s.Fila(1)
	require.True(t, ok)
	assert.Equal(t, 2, f.Aguardando)

	_, err := s.Atribuir(a.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Aguardando)
}

func TestTransferirParaFilaInvalidaNaoFechaOrigem(t *testing.T) {
	s := novoServicoTeste(novaFilaTeste(1, models.DistribuicaoRodizio, 5, 10))

	item, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	require.Equal(t, models.AtendimentoEmAndamento, item.Status)

	inexistente := int64(99)
	_, err = s.Transferir(item.ID, &inexistente, nil, "destino errado")
	assert.ErrorIs(t, err, ErrFilaNaoEncontrada)

	// a origem segue aberta e a conversa continua com o mesmo ticket
	assert.Equal(t, models.AtendimentoEmAndamento, item.Status)
	assert.Nil(t, item.FimEm)
	assert.NotContains(t, item.Observacoes, "destino errado")

	mesmo, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)
	assert.Equal(t, item.ID, mesmo.ID)
}

func TestProximoComFilaExplicitaExigeElegibilidade(t *testing.T) {
	fila := novaFilaTeste(1, models.DistribuicaoManual, 5, 10)
	s := novoServicoTeste(fila)

	_, err := s.Rotear("conv-a", "contato", 1, nil, 0, "teste")
	require.NoError(t, err)

	// atendente fora da lista da fila não puxa item nem com id explícito
	id := fila.ID
	item, err := s.ProximoParaAtendente(99, &id)
	require.NoError(t, err)
	assert.Nil(t, item)

	// quem está na lista puxa normalmente
	item, err = s.ProximoParaAtendente(10, &id)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(10), *item.AtendenteID)
}
