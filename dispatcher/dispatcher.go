package dispatcher

import (
	"errors"
	"strings"
	"sync"
	"time"

	"atende/models"

	"github.com/sirupsen/logrus"
)

// ErrEncerrado é devolvido por Enqueue depois que Stop começou.
var ErrEncerrado = errors.New("dispatcher encerrado")

// Handler recebe o resultado de um flush: o texto combinado do burst,
// todas as mensagens na ordem de chegada e as de mídia em separado.
// Falha de um handler não bloqueia os demais nem perde o grupo.
type Handler func(senderID string, textoCombinado string, mensagens []models.QueuedMessage, midia []models.QueuedMessage, userID int64, channelID string) error

// Config controla a política de flush do agrupamento.
type Config struct {
	Debounce     time.Duration // inatividade até considerar o burst completo
	MaxGroupSize int           // flush imediato ao atingir
	MaxGroupAge  time.Duration // flush forçado mesmo com atividade contínua
	SweepTick    time.Duration // intervalo da varredura de idade
}

// DefaultConfig espelha os padrões de produção: 2s de debounce,
// 10 mensagens por grupo, 10s de idade máxima, varredura a cada 200ms.
func DefaultConfig() Config {
	return Config{
		Debounce:     2 * time.Second,
		MaxGroupSize: 10,
		MaxGroupAge:  10 * time.Second,
		SweepTick:    200 * time.Millisecond,
	}
}

type groupKey struct {
	Canal    models.Canal
	SenderID string
}

// messageGroup agrega o burst de um remetente. No máximo um grupo vivo
// por chave; exatamente um flush por grupo.
type messageGroup struct {
	mensagens  []models.QueuedMessage
	primeiraEm time.Time
	ultimaEm   time.Time
	timer      *time.Timer
	geracao    int64 // incrementa a cada rearme; callback atrasado de timer antigo não flusha
	userID     int64
	channelID  string
}

// MessageDispatcher normaliza e agrupa mensagens inbound por (canal, remetente),
// emitindo uma unidade de trabalho consolidada por burst.
// Criar com NewMessageDispatcher e chamar Start/Stop explicitamente.
type MessageDispatcher struct {
	cfg Config

	mu       sync.Mutex
	grupos   map[groupKey]*messageGroup
	cadeias  map[groupKey]chan struct{} // fim da cadeia de flushes em voo por chave
	handlers map[models.Canal][]Handler
	running  bool
	done     chan struct{}
	wg       sync.WaitGroup

	totalRecebidas   int64
	totalProcessadas int64
	totalAgrupadas   int64
	gruposCriados    int64
}

func NewMessageDispatcher(cfg Config) *MessageDispatcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultConfig().Debounce
	}
	if cfg.MaxGroupSize <= 0 {
		cfg.MaxGroupSize = DefaultConfig().MaxGroupSize
	}
	if cfg.MaxGroupAge <= 0 {
		cfg.MaxGroupAge = DefaultConfig().MaxGroupAge
	}
	if cfg.SweepTick <= 0 {
		cfg.SweepTick = DefaultConfig().SweepTick
	}
	return &MessageDispatcher{
		cfg:      cfg,
		grupos:   make(map[groupKey]*messageGroup),
		cadeias:  make(map[groupKey]chan struct{}),
		handlers: make(map[models.Canal][]Handler),
	}
}

// RegisterHandler registra um handler para um canal. Pode haver vários;
// todos são chamados a cada flush daquele canal.
func (d *MessageDispatcher) RegisterHandler(canal models.Canal, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[canal] = append(d.handlers[canal], h)
}

// Start liga a varredura de idade máxima. Idempotente.
func (d *MessageDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return
	}
	d.running = true
	d.done = make(chan struct{})

	go d.sweepLoop(d.done)
	logrus.WithFields(logrus.Fields{
		"debounce":  d.cfg.Debounce,
		"max_size":  d.cfg.MaxGroupSize,
		"max_idade": d.cfg.MaxGroupAge,
	}).Info("dispatcher: iniciado")
}

// Stop cancela timers pendentes e força o flush de todos os grupos
// exatamente uma vez, para não perder input já recebido.
func (d *MessageDispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.done)

	for key := range d.grupos {
		d.flushLocked(key, "shutdown")
	}
	d.mu.Unlock()

	// espera os handlers em voo terminarem
	d.wg.Wait()
	logrus.Info("dispatcher: encerrado")
}

// Enqueue adiciona uma mensagem ao grupo do remetente, criando o grupo
// se necessário e rearmando o timer de debounce. Só falha durante shutdown.
func (d *MessageDispatcher) Enqueue(msg models.QueuedMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return ErrEncerrado
	}

	d.totalRecebidas++
	if msg.RecebidaEm.IsZero() {
		msg.RecebidaEm = time.Now()
	}

	key := groupKey{Canal: msg.Canal, SenderID: msg.SenderID}
	g, ok := d.grupos[key]
	if !ok {
		g = &messageGroup{
			primeiraEm: msg.RecebidaEm,
			userID:     msg.UserID,
			channelID:  msg.ChannelID,
		}
		d.grupos[key] = g
		d.gruposCriados++
	}

	g.mensagens = append(g.mensagens, msg)
	g.ultimaEm = msg.RecebidaEm

	if len(g.mensagens) >= d.cfg.MaxGroupSize {
		d.flushLocked(key, "size")
		return nil
	}

	// debounce: timer anterior é sempre cancelado e substituído. Stop pode
	// devolver false se o callback antigo já disparou e espera o lock; a
	// geração capturada abaixo o invalida quando ele finalmente rodar.
	if g.timer != nil {
		g.timer.Stop()
	}
	g.geracao++
	gen := g.geracao
	g.timer = time.AfterFunc(d.cfg.Debounce, func() {
		d.flushTimer(key, g, gen)
	})

	return nil
}

// flushTimer é o caminho dos timers: revalida que o grupo ainda existe,
// é o mesmo (não um sucessor para a mesma chave) e que este timer não foi
// substituído por um rearme posterior.
func (d *MessageDispatcher) flushTimer(key groupKey, g *messageGroup, gen int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	atual, ok := d.grupos[key]
	if !ok || atual != g || g.geracao != gen {
		return
	}
	d.flushLocked(key, "debounce")
}

// flushLocked consome o grupo: remove da tabela, cancela o timer em voo
// e despacha os handlers em goroutine própria. Flushes da mesma chave são
// encadeados na ordem em que foram criados, então os bursts de um mesmo
// remetente nunca se atropelam; chaves diferentes seguem independentes.
func (d *MessageDispatcher) flushLocked(key groupKey, motivo string) {
	g := d.grupos[key]
	if g == nil {
		return
	}
	delete(d.grupos, key)
	if g.timer != nil {
		g.timer.Stop()
	}

	d.totalProcessadas += int64(len(g.mensagens))
	if len(g.mensagens) > 1 {
		d.totalAgrupadas += int64(len(g.mensagens))
	}

	var partes []string
	var midia []models.QueuedMessage
	for _, m := range g.mensagens {
		if m.Tipo.EhTexto() {
			if t := strings.TrimSpace(m.Conteudo); t != "" {
				partes = append(partes, t)
			}
			continue
		}
		midia = append(midia, m)
	}
	textoCombinado := strings.Join(partes, " ")

	handlers := make([]Handler, len(d.handlers[key.Canal]))
	copy(handlers, d.handlers[key.Canal])

	logrus.WithFields(logrus.Fields{
		"canal":     key.Canal,
		"sender":    key.SenderID,
		"mensagens": len(g.mensagens),
		"motivo":    motivo,
	}).Debug("dispatcher: flush")

	mensagens := g.mensagens
	userID, channelID := g.userID, g.channelID

	anterior := d.cadeias[key]
	atual := make(chan struct{})
	d.cadeias[key] = atual

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if anterior != nil {
			<-anterior
		}
		for _, h := range handlers {
			d.invocar(h, key, textoCombinado, mensagens, midia, userID, channelID)
		}
		close(atual)

		d.mu.Lock()
		if d.cadeias[key] == atual {
			delete(d.cadeias, key)
		}
		d.mu.Unlock()
	}()
}

// invocar isola pânicos e erros por handler.
func (d *MessageDispatcher) invocar(h Handler, key groupKey, texto string, mensagens, midia []models.QueuedMessage, userID int64, channelID string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"canal":  key.Canal,
				"sender": key.SenderID,
				"panic":  r,
			}).Error("dispatcher: handler em pânico")
		}
	}()
	if err := h(key.SenderID, texto, mensagens, midia, userID, channelID); err != nil {
		logrus.WithFields(logrus.Fields{
			"canal":  key.Canal,
			"sender": key.SenderID,
		}).WithError(err).Error("dispatcher: handler falhou")
	}
}

// sweepLoop garante progresso sob digitação patológica: um grupo que nunca
// fica 2s em silêncio ainda assim é consumido ao atingir a idade máxima.
func (d *MessageDispatcher) sweepLoop(done chan struct{}) {
	ticker := time.NewTicker(d.cfg.SweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			d.sweepOnce()
		}
	}
}

func (d *MessageDispatcher) sweepOnce() {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, g := range d.grupos {
		if now.Sub(g.primeiraEm) >= d.cfg.MaxGroupAge {
			d.flushLocked(key, "idade")
		}
	}
}

// Stats são os contadores operacionais expostos em /stats.
type Stats struct {
	TotalRecebidas   int64 `json:"totalReceived"`
	TotalProcessadas int64 `json:"totalProcessed"`
	TotalAgrupadas   int64 `json:"totalGrouped"`
	GruposCriados    int64 `json:"groupsCreated"`
	GruposPendentes  int   `json:"pendingGroups"`
	TamanhoFila      int   `json:"queueSize"`
	Rodando          bool  `json:"isRunning"`
}

func (d *MessageDispatcher) GetStats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	tamanho := 0
	for _, g := range d.grupos {
		tamanho += len(g.mensagens)
	}
	return Stats{
		TotalRecebidas:   d.totalRecebidas,
		TotalProcessadas: d.totalProcessadas,
		TotalAgrupadas:   d.totalAgrupadas,
		GruposCriados:    d.gruposCriados,
		GruposPendentes:  len(d.grupos),
		TamanhoFila:      tamanho,
		Rodando:          d.running,
	}
}
