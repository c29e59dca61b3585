package sessions

import (
	"regexp"
	"strings"

	"atende/models"
	"atende/tools"
)

// prompts e confirmações do sub-fluxo de coleta
var promptsColeta = map[models.AcaoColeta]string{
	models.ColetaEmail:       "Qual é o seu e-mail?",
	models.ColetaTelefone:    "Qual é o seu telefone com DDD?",
	models.ColetaNome:        "Qual é o seu nome completo?",
	models.ColetaCPF:         "Qual é o seu CPF?",
	models.ColetaConfirmacao: "Pode confirmar? Responda sim ou não.",
}

var reprompsColeta = map[models.AcaoColeta]string{
	models.ColetaEmail:       "Esse e-mail não parece válido. Pode conferir e enviar de novo?",
	models.ColetaTelefone:    "Não consegui entender o telefone. Envie com DDD, por exemplo 11 99999-0000.",
	models.ColetaNome:        "Não consegui entender. Pode enviar seu nome completo?",
	models.ColetaCPF:         "Esse CPF não parece válido. Pode conferir os números?",
	models.ColetaConfirmacao: "Não entendi. Responda com sim ou não, por favor.",
}

var (
	nomeRe = regexp.MustCompile(`^\pL[\pL\s'.\-]{1,}$`)
	simRe  = regexp.MustCompile(`(?i)^\s*(sim|s|claro|confirmo|pode|ok|isso)\b`)
	naoRe  = regexp.MustCompile(`(?i)^\s*(n[aã]o|n|negativo|errado)\b`)
)

// PromptColeta devolve a pergunta da ação ativa (vazio para NENHUMA).
func PromptColeta(acao models.AcaoColeta) string {
	return promptsColeta[acao]
}

// IniciarColeta coloca a sessão em um sub-fluxo de coleta e devolve o prompt.
func (m *Manager) IniciarColeta(s *models.SessaoAtendimento, acao models.AcaoColeta) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.AcaoColeta = acao
	return promptsColeta[acao]
}

// processarColeta valida a resposta contra o padrão da ação ativa.
// Sucesso: armazena o valor, limpa a ação e devolve uma confirmação.
// Falha: devolve o re-prompt e mantém a ação, o fluxo nunca abandona
// silenciosamente um campo pedido.
func processarColeta(s *models.SessaoAtendimento, texto string) Resultado {
	acao := s.AcaoColeta
	texto = strings.TrimSpace(texto)

	switch acao {
	case models.ColetaEmail:
		email := emailExtratorRe.FindString(texto)
		if email == "" || !tools.ValidateEmail(email) {
			return Resultado{Resposta: reprompsColeta[acao]}
		}
		s.DadosColetados["email"] = strings.ToLower(email)
		s.AcaoColeta = models.ColetaNenhuma
		return Resultado{Resposta: "E-mail anotado: " + strings.ToLower(email), DadoColetado: "email"}

	case models.ColetaTelefone:
		fone, err := tools.NormalizeWhatsAppTo(texto)
		if err != nil {
			return Resultado{Resposta: reprompsColeta[acao]}
		}
		s.DadosColetados["telefone"] = fone
		s.AcaoColeta = models.ColetaNenhuma
		return Resultado{Resposta: "Telefone anotado: " + fone, DadoColetado: "telefone"}

	case models.ColetaNome:
		if !nomeRe.MatchString(texto) || len([]rune(texto)) < 2 {
			return Resultado{Resposta: reprompsColeta[acao]}
		}
		s.DadosColetados["nome"] = texto
		s.AcaoColeta = models.ColetaNenhuma
		return Resultado{Resposta: "Obrigado, " + texto + "!", DadoColetado: "nome"}

	case models.ColetaCPF:
		cpf := cpfExtratorRe.FindString(texto)
		if cpf == "" || !tools.ValidateCPF(cpf) {
			return Resultado{Resposta: reprompsColeta[acao]}
		}
		s.DadosColetados["cpf"] = cpf
		s.AcaoColeta = models.ColetaNenhuma
		return Resultado{Resposta: "CPF anotado.", DadoColetado: "cpf"}

	case models.ColetaConfirmacao:
		if simRe.MatchString(texto) {
			s.DadosColetados["confirmacao"] = "sim"
			s.AcaoColeta = models.ColetaNenhuma
			return Resultado{Resposta: "Confirmado!", DadoColetado: "confirmacao"}
		}
		if naoRe.MatchString(texto) {
			s.DadosColetados["confirmacao"] = "nao"
			s.AcaoColeta = models.ColetaNenhuma
			return Resultado{Resposta: "Sem problemas, cancelado.", DadoColetado: "confirmacao"}
		}
		return Resultado{Resposta: reprompsColeta[acao]}
	}

	// ação desconhecida: limpa e segue o fluxo normal
	s.AcaoColeta = models.ColetaNenhuma
	return Resultado{}
}
