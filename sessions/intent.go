package sessions

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// DetectorIntencao decide se o usuário está pedindo atendimento humano.
// É uma interface para que a detecção por regex possa ser trocada por um
// classificador de verdade sem mexer na máquina de estados.
type DetectorIntencao interface {
	PediuHumano(texto string) bool
}

// padrões case-insensitive, PT-BR com variações comuns em inglês
var padroesPedidoHumano = []string{
	`falar com (um |uma |o |a )?(atendente|humano|pessoa|gente|alguém|alguem)`,
	`quero (um |uma )?(atendente|humano|pessoa)`,
	`\batendente\b`,
	`\bhumano\b`,
	`n[aã]o quero (falar com |conversar com )?(o |um )?(rob[oô]|bot|assistente)`,
	`chega de (rob[oô]|bot)`,
	`(transferir|passar) para (um |uma )?(atendente|humano|pessoa)`,
	`talk to (a |an )?(human|person|agent)`,
	`\bhuman\b`,
}

type detectorRegex struct {
	padroes []*regexp.Regexp
}

// NovoDetectorRegex compila os padrões de pedido de humano. Padrão que não
// compila é pulado com log: falha de regex nunca derruba a sessão.
func NovoDetectorRegex() DetectorIntencao {
	d := &detectorRegex{}
	for _, p := range padroesPedidoHumano {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			logrus.WithField("padrao", p).WithError(err).Warn("sessions: padrão de intenção inválido, ignorado")
			continue
		}
		d.padroes = append(d.padroes, re)
	}
	return d
}

func (d *detectorRegex) PediuHumano(texto string) bool {
	texto = strings.TrimSpace(texto)
	if texto == "" {
		return false
	}
	for _, re := range d.padroes {
		if re.MatchString(texto) {
			return true
		}
	}
	return false
}
