package sessions

import (
	"strconv"
	"sync"
	"time"

	"atende/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

/************************************************
/**** MARK: MOTIVOS DE ESCALAÇÃO ****/
/************************************************/

type MotivoEscalacao string

const (
	MotivoUsuarioSolicitou MotivoEscalacao = "USUARIO_SOLICITOU"
	MotivoErrosBot         MotivoEscalacao = "ERROS_BOT"
)

// Resultado é o que ProcessMessage devolve para o chamador decidir o próximo
// passo. O manager nunca faz a transferência sozinho: Escalar é um sinal.
type Resultado struct {
	Resposta       string          // prompt/confirmação do sub-fluxo de coleta
	Escalar        bool            // pedir encaminhamento para humano
	Motivo         MotivoEscalacao // preenchido quando Escalar
	OferecerHumano bool            // sinalizado uma única vez por sessão
	DadoColetado   string          // chave coletada neste turno, se houver
}

// Config do manager de sessões.
type Config struct {
	Timeout          time.Duration // inatividade até descartar a sessão (30min)
	OfertaHumanoApos int           // interações até oferecer humano (10)
	LimiteErrosBot   int           // erros consecutivos até escalar (3)
	SweepTick        time.Duration // intervalo da varredura de expiradas
}

func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Minute,
		OfertaHumanoApos: 10,
		LimiteErrosBot:   3,
		SweepTick:        time.Minute,
	}
}

// Manager é a tabela em memória de sessões vivas e a máquina de estados
// da conversa (modo de atendimento × ação de coleta).
type Manager struct {
	cfg      Config
	detector DetectorIntencao

	mu      sync.Mutex
	sessoes map[string]*models.SessaoAtendimento // por conversa id
	running bool
	done    chan struct{}
}

func NewManager(cfg Config, detector DetectorIntencao) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.OfertaHumanoApos <= 0 {
		cfg.OfertaHumanoApos = DefaultConfig().OfertaHumanoApos
	}
	if cfg.LimiteErrosBot <= 0 {
		cfg.LimiteErrosBot = DefaultConfig().LimiteErrosBot
	}
	if cfg.SweepTick <= 0 {
		cfg.SweepTick = DefaultConfig().SweepTick
	}
	if detector == nil {
		detector = NovoDetectorRegex()
	}
	return &Manager{
		cfg:      cfg,
		detector: detector,
		sessoes:  make(map[string]*models.SessaoAtendimento),
	}
}

// Start liga a varredura periódica de sessões expiradas. Idempotente.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.done = make(chan struct{})
	go m.sweepLoop(m.done)
}

func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.done)
}

// GetOrCreate devolve a sessão viva da conversa se a última atividade está
// dentro do timeout; senão descarta e cria uma nova (modo inicial, contadores
// zerados). Atualiza a última atividade em toda chamada.
func (m *Manager) GetOrCreate(conversaID, contatoID string, userID int64, modoInicial models.ModoAtendimento) *models.SessaoAtendimento {
	if modoInicial == "" {
		modoInicial = models.ModoAssistenteVirtual
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if s, ok := m.sessoes[conversaID]; ok {
		if now.Sub(s.UltimaAtividade) <= m.cfg.Timeout {
			s.UltimaAtividade = now
			return s
		}
		delete(m.sessoes, conversaID)
		logrus.WithField("conversa", conversaID).Debug("sessions: sessão expirada, recriando")
	}

	s := &models.SessaoAtendimento{
		ID:              uuid.NewString(),
		ConversaID:      conversaID,
		ContatoID:       contatoID,
		UserID:          userID,
		Modo:            modoInicial,
		AcaoColeta:      models.ColetaNenhuma,
		DadosColetados:  make(map[string]string),
		Contexto:        make(map[string]string),
		InicioEm:        now,
		UltimaAtividade: now,
		Ativa:           true,
	}
	m.sessoes[conversaID] = s
	return s
}

// ProcessMessage roda um turno da conversa sobre o texto consolidado.
// Ordem: sub-fluxo de coleta ativo > detecção de pedido de humano >
// extração de dados + contagem de interações.
// Qualquer falha de pattern matching vira "sem match" e a conversa segue.
func (m *Manager) ProcessMessage(s *models.SessaoAtendimento, texto string) Resultado {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UltimaAtividade = time.Now()

	if s.AcaoColeta != models.ColetaNenhuma {
		return processarColeta(s, texto)
	}

	if m.detector.PediuHumano(texto) {
		// não muda o modo aqui: quem transfere é o chamador
		return Resultado{Escalar: true, Motivo: MotivoUsuarioSolicitou}
	}

	extrairDados(texto, s.DadosColetados)

	s.Interacoes++
	var res Resultado
	// oferta de humano exatamente uma vez, no turno em que atinge o limiar
	if s.Interacoes == m.cfg.OfertaHumanoApos {
		res.OferecerHumano = true
	}
	return res
}

// TransferirParaHumano muda o modo, registra a transição no histórico e
// guarda motivo + modo anterior no contexto da sessão.
func (m *Manager) TransferirParaHumano(s *models.SessaoAtendimento, motivo string, filaID *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Modo == models.ModoAtendenteHumano {
		return
	}
	anterior := s.Modo
	s.Contexto["modo_anterior"] = string(anterior)
	s.Contexto["motivo_transferencia"] = motivo
	if filaID != nil {
		s.Contexto["fila_destino"] = strconv.FormatInt(*filaID, 10)
	}
	m.transicionar(s, models.ModoAtendenteHumano, motivo)
}

// RetornarParaBot devolve a conversa ao assistente virtual (handoff reverso).
func (m *Manager) RetornarParaBot(s *models.SessaoAtendimento, motivo string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Modo == models.ModoAssistenteVirtual {
		return
	}
	m.transicionar(s, models.ModoAssistenteVirtual, motivo)
	s.ErrosBot = 0
}

func (m *Manager) transicionar(s *models.SessaoAtendimento, para models.ModoAtendimento, motivo string) {
	s.Transicoes = append(s.Transicoes, models.TransicaoModo{
		De:     s.Modo,
		Para:   para,
		Motivo: motivo,
		Em:     time.Now(),
	})
	s.Modo = para
	logrus.WithFields(logrus.Fields{
		"conversa": s.ConversaID,
		"de":       s.Transicoes[len(s.Transicoes)-1].De,
		"para":     para,
		"motivo":   motivo,
	}).Info("sessions: transição de modo")
}

// RegistrarErroBot incrementa o contador de erros consecutivos do bot e
// devolve true quando atinge o limite, que é o sinal determinístico de
// escalação automática; a transferência em si fica com o chamador.
func (m *Manager) RegistrarErroBot(s *models.SessaoAtendimento) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ErrosBot++
	return s.ErrosBot >= m.cfg.LimiteErrosBot
}

// Encerrar remove explicitamente a sessão da tabela.
func (m *Manager) Encerrar(conversaID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessoes[conversaID]; ok {
		s.Ativa = false
		delete(m.sessoes, conversaID)
	}
}

// SweepExpired remove sessões paradas há mais de 2× o timeout,
// limitando o crescimento de memória. Devolve quantas removeu.
func (m *Manager) SweepExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	limite := 2 * m.cfg.Timeout
	now := time.Now()
	removidas := 0
	for id, s := range m.sessoes {
		if now.Sub(s.UltimaAtividade) > limite {
			delete(m.sessoes, id)
			removidas++
		}
	}
	if removidas > 0 {
		logrus.WithField("removidas", removidas).Debug("sessions: varredura de expiradas")
	}
	return removidas
}

// Ativas devolve o número de sessões vivas (para métricas e testes).
func (m *Manager) Ativas() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessoes)
}

func (m *Manager) sweepLoop(done chan struct{}) {
	ticker := time.NewTicker(m.cfg.SweepTick)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.SweepExpired()
		}
	}
}
