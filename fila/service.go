package fila

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"atende/events"
	"atende/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrFilaNaoEncontrada: nenhuma fila pôde ser resolvida para o tenant.
	ErrFilaNaoEncontrada = errors.New("fila não encontrada")
	// ErrItemNaoEncontrado: id de item desconhecido.
	ErrItemNaoEncontrado = errors.New("item de atendimento não encontrado")
	// ErrTransicaoInvalida: operação incompatível com o status atual do item
	// (distinta de não-encontrado para a UI mostrar a mensagem certa).
	ErrTransicaoInvalida = errors.New("transição de status inválida")
)

type Config struct {
	CapacidadePadrao int // atendimentos simultâneos por atendente quando a fila não define (5)
}

func DefaultConfig() Config {
	return Config{CapacidadePadrao: 5}
}

// Service converte escalações em tickets de fila e os distribui entre
// atendentes humanos sob a política configurada, respeitando capacidade.
// Todo o estado vivo fica em memória sob um único mutex; Store e Publisher
// são colaboradores best effort.
type Service struct {
	cfg   Config
	store Store
	pub   events.Publisher

	mu              sync.Mutex
	filas           map[int64]*models.FilaAtendimento
	itens           map[string]*models.AtendimentoItem
	ultimoAtribuido map[int64]int // índice do último atendente atribuído por fila (-1 = nenhum)
	finalizadosDia  map[int64]int
	dia             string
}

func NewService(cfg Config, store Store, pub events.Publisher) *Service {
	if cfg.CapacidadePadrao <= 0 {
		cfg.CapacidadePadrao = DefaultConfig().CapacidadePadrao
	}
	if pub == nil {
		pub = events.NewFallback()
	}
	return &Service{
		cfg:             cfg,
		store:           store,
		pub:             pub,
		filas:           make(map[int64]*models.FilaAtendimento),
		itens:           make(map[string]*models.AtendimentoItem),
		ultimoAtribuido: make(map[int64]int),
		finalizadosDia:  make(map[int64]int),
		dia:             time.Now().Format("2006-01-02"),
	}
}

// CarregarFilas registra todas as filas do Store (chamado no boot).
func (s *Service) CarregarFilas() error {
	if s.store == nil {
		return nil
	}
	filas, err := s.store.ListarFilas()
	if err != nil {
		return fmt.Errorf("carregar filas: %w", err)
	}
	for i := range filas {
		s.RegistrarFila(&filas[i])
	}
	return nil
}

// RegistrarFila coloca (ou substitui) uma fila na tabela do serviço.
// A lista de atendentes é ordenada por Ordem, que define o rodízio.
func (s *Service) RegistrarFila(f *models.FilaAtendimento) {
	sort.SliceStable(f.Atendentes, func(i, j int) bool {
		return f.Atendentes[i].Ordem < f.Atendentes[j].Ordem
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.filas[f.ID] = f
	if _, ok := s.ultimoAtribuido[f.ID]; !ok {
		s.ultimoAtribuido[f.ID] = -1
	}
}

// Fila devolve a fila registrada (usado pelo glue HTTP e pelos testes).
func (s *Service) Fila(id int64) (*models.FilaAtendimento, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.filas[id]
	return f, ok
}

// Filas lista as filas registradas de um tenant, ordenadas por id.
// userID 0 lista todas.
func (s *Service) Filas(userID int64) []*models.FilaAtendimento {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.FilaAtendimento
	for _, f := range s.filas {
		if userID == 0 || f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

// Item devolve um item pelo id.
func (s *Service) Item(id string) (*models.AtendimentoItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.itens[id]
	return i, ok
}

// ItensDaFila lista os itens de uma fila, aguardando primeiro,
// por prioridade desc e entrada asc.
func (s *Service) ItensDaFila(filaID int64) []*models.AtendimentoItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.AtendimentoItem
	for _, i := range s.itens {
		if i.FilaID == filaID {
			out = append(out, i)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Status != out[b].Status {
			return out[a].Status == models.AtendimentoAguardando
		}
		if out[a].Prioridade != out[b].Prioridade {
			return out[a].Prioridade > out[b].Prioridade
		}
		return out[a].EntradaEm.Before(out[b].EntradaEm)
	})
	return out
}

// Rotear converte uma escalação em um ticket: resolve a fila (explícita >
// padrão do tenant > mais antiga ativa), garante no máximo um ticket aberto
// por conversa, calcula a posição e tenta atribuição automática.
func (s *Service) Rotear(conversaID, contatoID string, userID int64, filaID *int64, prioridade int, motivo string) (*models.AtendimentoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotearLocked(conversaID, contatoID, userID, filaID, prioridade, motivo, 0)
}

func (s *Service) rotearLocked(conversaID, contatoID string, userID int64, filaID *int64, prioridade int, motivo string, transferencias int) (*models.AtendimentoItem, error) {
	f, err := s.resolverFilaLocked(userID, filaID)
	if err != nil {
		return nil, err
	}

	// no máximo um ticket aberto por conversa
	for _, i := range s.itens {
		if i.ConversaID == conversaID && i.Aberto() {
			return i, nil
		}
	}

	now := time.Now()
	pos := s.aguardandoLocked(f.ID) + 1
	item := &models.AtendimentoItem{
		ID:             uuid.NewString(),
		FilaID:         f.ID,
		ConversaID:     conversaID,
		ContatoID:      contatoID,
		UserID:         userID,
		Prioridade:     prioridade,
		Posicao:        &pos,
		Status:         models.AtendimentoAguardando,
		Motivo:         motivo,
		Transferencias: transferencias,
		EntradaEm:      now,
	}
	s.itens[item.ID] = item
	f.Aguardando = s.aguardandoLocked(f.ID)

	s.persistirItem(item)
	s.persistirFila(f)
	s.publicar(events.TipoAtendimentoCriado, item)

	logrus.WithFields(logrus.Fields{
		"item":     item.ID,
		"fila":     f.ID,
		"conversa": conversaID,
		"posicao":  pos,
	}).Info("fila: item criado")

	// atribuição automática conforme a política da fila
	switch f.Distribuicao {
	case models.DistribuicaoRodizio:
		if atendenteID, ok := s.proximoRodizioLocked(f); ok {
			s.atribuirLocked(item, f, atendenteID)
		}
	case models.DistribuicaoMenosOcupado:
		if atendenteID, ok := s.menosOcupadoLocked(f); ok {
			s.atribuirLocked(item, f, atendenteID)
		}
	case models.DistribuicaoManual:
		// fica aguardando até alguém puxar via ProximoParaAtendente
	}

	return item, nil
}

// resolução: id explícito > fila padrão do tenant > fila ativa mais antiga.
func (s *Service) resolverFilaLocked(userID int64, filaID *int64) (*models.FilaAtendimento, error) {
	if filaID != nil {
		f, ok := s.filas[*filaID]
		if !ok || !f.Ativa {
			return nil, ErrFilaNaoEncontrada
		}
		return f, nil
	}

	var maisAntiga *models.FilaAtendimento
	for _, f := range s.filas {
		if !f.Ativa || f.UserID != userID {
			continue
		}
		if f.Padrao {
			return f, nil
		}
		if maisAntiga == nil || f.ID < maisAntiga.ID {
			maisAntiga = f
		}
	}
	if maisAntiga == nil {
		return nil, ErrFilaNaoEncontrada
	}
	return maisAntiga, nil
}

// Atribuir passa um item Aguardando para um atendente. Reatribuir um item
// já em atendimento é no-op e devolve o estado atual; item finalizado ou
// transferido é transição inválida.
func (s *Service) Atribuir(itemID string, atendenteID int64) (*models.AtendimentoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.itens[itemID]
	if !ok {
		return nil, ErrItemNaoEncontrado
	}
	if item.Status == models.AtendimentoEmAndamento {
		return item, nil
	}
	if item.Status != models.AtendimentoAguardando {
		return nil, fmt.Errorf("%w: %s não pode ser atribuído", ErrTransicaoInvalida, item.Status)
	}

	f := s.filas[item.FilaID]
	if f == nil {
		return nil, ErrFilaNaoEncontrada
	}
	s.atribuirLocked(item, f, atendenteID)
	return item, nil
}

// atribuirLocked só é chamado com item Aguardando.
func (s *Service) atribuirLocked(item *models.AtendimentoItem, f *models.FilaAtendimento, atendenteID int64) {
	now := time.Now()
	item.Status = models.AtendimentoEmAndamento
	item.AtendenteID = &atendenteID
	item.InicioEm = &now
	item.Posicao = nil
	f.Aguardando = s.aguardandoLocked(f.ID)

	// o rodízio avança no índice do último atribuído, inclusive em
	// atribuições diretas, para não repetir o mesmo atendente em seguida
	for idx, a := range f.Atendentes {
		if a.AtendenteID == atendenteID {
			s.ultimoAtribuido[f.ID] = idx
			break
		}
	}

	s.persistirItem(item)
	s.persistirFila(f)
	s.publicar(events.TipoAtendimentoAtribuido, item)

	logrus.WithFields(logrus.Fields{
		"item":      item.ID,
		"fila":      f.ID,
		"atendente": atendenteID,
	}).Info("fila: item atribuído")
}

// Finalizar encerra um atendimento em andamento e dobra o tempo decorrido
// na média móvel de dois pontos da fila. Não existe Aguardando→Finalizado:
// um item precisa ser atribuído antes de finalizar.
func (s *Service) Finalizar(itemID string, avaliacao *int, feedback string) (*models.AtendimentoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.itens[itemID]
	if !ok {
		return nil, ErrItemNaoEncontrado
	}
	if item.Status != models.AtendimentoEmAndamento {
		return nil, fmt.Errorf("%w: %s não pode ser finalizado", ErrTransicaoInvalida, item.Status)
	}

	now := time.Now()
	item.Status = models.AtendimentoFinalizado
	item.FimEm = &now
	item.Avaliacao = avaliacao
	item.Feedback = feedback

	if f := s.filas[item.FilaID]; f != nil && item.InicioEm != nil {
		decorrido := now.Sub(*item.InicioEm).Seconds()
		if f.TempoMedioSegundos == 0 {
			f.TempoMedioSegundos = decorrido
		} else {
			f.TempoMedioSegundos = (f.TempoMedioSegundos + decorrido) / 2
		}
		s.contarFinalizadoLocked(f.ID)
		s.persistirFila(f)
	}

	s.persistirItem(item)
	s.publicar(events.TipoAtendimentoFinalizado, item)
	return item, nil
}

// Transferir fecha o item de origem como Transferido e abre um novo ticket
// no destino via o mesmo caminho do Rotear, preservando a prioridade e
// carregando o contador de transferências da linhagem.
func (s *Service) Transferir(itemID string, destFilaID *int64, destAtendenteID *int64, motivo string) (*models.AtendimentoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.itens[itemID]
	if !ok {
		return nil, ErrItemNaoEncontrado
	}
	if !item.Aberto() {
		return nil, fmt.Errorf("%w: %s não pode ser transferido", ErrTransicaoInvalida, item.Status)
	}

	// resolve o destino antes de tocar na origem: destino inválido devolve
	// erro com o ticket de origem intacto, a conversa nunca fica sem ticket
	dest, err := s.resolverFilaLocked(item.UserID, destFilaID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	item.Status = models.AtendimentoTransferido
	item.FimEm = &now
	item.Posicao = nil
	if item.Observacoes != "" {
		item.Observacoes += "\n"
	}
	item.Observacoes += "transferido: " + motivo

	if f := s.filas[item.FilaID]; f != nil {
		f.Aguardando = s.aguardandoLocked(f.ID)
		s.persistirFila(f)
	}
	s.persistirItem(item)
	s.publicar(events.TipoAtendimentoTransferido, item)

	novo, err := s.rotearLocked(item.ConversaID, item.ContatoID, item.UserID, &dest.ID, item.Prioridade, "transferência: "+motivo, item.Transferencias+1)
	if err != nil {
		return nil, err
	}

	if destAtendenteID != nil && novo.Status == models.AtendimentoAguardando {
		if f := s.filas[novo.FilaID]; f != nil {
			s.atribuirLocked(novo, f, *destAtendenteID)
		}
	}
	return novo, nil
}

// ProximoParaAtendente puxa o próximo item Aguardando para o atendente,
// respeitando a capacidade da fila. Devolve nil (sem erro) quando não há
// item elegível ou o atendente está no teto. Capacidade não é erro.
func (s *Service) ProximoParaAtendente(atendenteID int64, filaID *int64) (*models.AtendimentoItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidatas []*models.FilaAtendimento
	if filaID != nil {
		f, ok := s.filas[*filaID]
		if !ok {
			return nil, ErrFilaNaoEncontrada
		}
		if s.elegivelLocked(f, atendenteID) {
			candidatas = append(candidatas, f)
		}
	} else {
		for _, f := range s.filas {
			if f.Ativa && s.elegivelLocked(f, atendenteID) {
				candidatas = append(candidatas, f)
			}
		}
	}

	var melhor *models.AtendimentoItem
	var melhorFila *models.FilaAtendimento
	for _, f := range candidatas {
		if s.emAndamentoLocked(f.ID, atendenteID) >= s.capacidadeLocked(f) {
			continue
		}
		for _, i := range s.itens {
			if i.FilaID != f.ID || i.Status != models.AtendimentoAguardando {
				continue
			}
			if melhor == nil ||
				i.Prioridade > melhor.Prioridade ||
				(i.Prioridade == melhor.Prioridade && i.EntradaEm.Before(melhor.EntradaEm)) {
				melhor = i
				melhorFila = f
			}
		}
	}

	if melhor == nil {
		return nil, nil
	}
	s.atribuirLocked(melhor, melhorFila, atendenteID)
	return melhor, nil
}

/************************************************
/**** MARK: HELPERS ****/
/************************************************/

func (s *Service) aguardandoLocked(filaID int64) int {
	n := 0
	for _, i := range s.itens {
		if i.FilaID == filaID && i.Status == models.AtendimentoAguardando {
			n++
		}
	}
	return n
}

func (s *Service) emAndamentoLocked(filaID, atendenteID int64) int {
	n := 0
	for _, i := range s.itens {
		if i.FilaID == filaID && i.Status == models.AtendimentoEmAndamento &&
			i.AtendenteID != nil && *i.AtendenteID == atendenteID {
			n++
		}
	}
	return n
}

func (s *Service) capacidadeLocked(f *models.FilaAtendimento) int {
	if f.CapacidadeAtendente > 0 {
		return f.CapacidadeAtendente
	}
	return s.cfg.CapacidadePadrao
}

func (s *Service) elegivelLocked(f *models.FilaAtendimento, atendenteID int64) bool {
	for _, a := range f.Atendentes {
		if a.AtendenteID == atendenteID {
			return true
		}
	}
	return false
}

func (s *Service) contarFinalizadoLocked(filaID int64) {
	hoje := time.Now().Format("2006-01-02")
	if hoje != s.dia {
		s.dia = hoje
		s.finalizadosDia = make(map[int64]int)
	}
	s.finalizadosDia[filaID]++
}

// FinalizadosHoje devolve o contador diário de atendimentos concluídos.
func (s *Service) FinalizadosHoje(filaID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Now().Format("2006-01-02") != s.dia {
		return 0
	}
	return s.finalizadosDia[filaID]
}

// durabilidade e eventos são best effort: falha é logada, o estado em
// memória segue valendo e o loop nunca para por causa disso.
func (s *Service) persistirItem(item *models.AtendimentoItem) {
	if s.store == nil {
		return
	}
	if err := s.store.SalvarItem(item); err != nil {
		logrus.WithField("item", item.ID).WithError(err).Error("fila: falha ao persistir item")
	}
}

func (s *Service) persistirFila(f *models.FilaAtendimento) {
	if s.store == nil {
		return
	}
	if err := s.store.SalvarFila(f); err != nil {
		logrus.WithField("fila", f.ID).WithError(err).Error("fila: falha ao persistir fila")
	}
}

// publicar emite o evento fora do caminho crítico (o lock nunca atravessa
// uma chamada de rede).
func (s *Service) publicar(tipo string, item *models.AtendimentoItem) {
	ev := events.AtendimentoEvento{
		ItemID:      item.ID,
		FilaID:      item.FilaID,
		ConversaID:  item.ConversaID,
		ContatoID:   item.ContatoID,
		UserID:      item.UserID,
		AtendenteID: item.AtendenteID,
		Status:      string(item.Status),
		Prioridade:  item.Prioridade,
		Motivo:      item.Motivo,
		Em:          time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.pub.Publish(ctx, tipo, events.NovoEnvelope(tipo, ev)); err != nil {
			logrus.WithField("tipo", tipo).WithError(err).Warn("fila: falha ao publicar evento")
		}
	}()
}
