package models

import "time"

/************************************************
/**** MARK: MODO DE ATENDIMENTO ****/
/************************************************/

type ModoAtendimento string

const (
	ModoAssistenteVirtual ModoAtendimento = "ASSISTENTE_VIRTUAL"
	ModoAtendenteHumano   ModoAtendimento = "ATENDENTE_HUMANO"
	ModoHibrido           ModoAtendimento = "HIBRIDO"
)

/************************************************
/**** MARK: AÇÃO DE COLETA ****/
/************************************************/

type AcaoColeta string

const (
	ColetaNenhuma     AcaoColeta = "NENHUMA"
	ColetaEmail       AcaoColeta = "COLETA_EMAIL"
	ColetaTelefone    AcaoColeta = "COLETA_TELEFONE"
	ColetaNome        AcaoColeta = "COLETA_NOME"
	ColetaCPF         AcaoColeta = "COLETA_CPF"
	ColetaConfirmacao AcaoColeta = "CONFIRMACAO"
)

// TransicaoModo registra uma mudança de responsável pela conversa.
type TransicaoModo struct {
	De     ModoAtendimento `json:"de"`
	Para   ModoAtendimento `json:"para"`
	Motivo string          `json:"motivo"`
	Em     time.Time       `json:"em"`
}

// SessaoAtendimento é o estado vivo de uma conversa ativa.
// Não é persistida: vive na tabela em memória do sessions.Manager
// e é recriada do zero depois do timeout de inatividade.
type SessaoAtendimento struct {
	ID              string            `json:"id"`
	ConversaID      string            `json:"conversa_id"`
	ContatoID       string            `json:"contato_id"`
	UserID          int64             `json:"user_id"` // tenant
	Modo            ModoAtendimento   `json:"modo"`
	AcaoColeta      AcaoColeta        `json:"acao_coleta"`
	DadosColetados  map[string]string `json:"dados_coletados"`
	Contexto        map[string]string `json:"contexto"`
	Transicoes      []TransicaoModo   `json:"transicoes"`
	Interacoes      int               `json:"interacoes"`
	ErrosBot        int               `json:"erros_bot"` // consecutivos
	InicioEm        time.Time         `json:"inicio_em"`
	UltimaAtividade time.Time         `json:"ultima_atividade"`
	Ativa           bool              `json:"ativa"`
}
