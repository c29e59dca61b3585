package sessions

import (
	"regexp"
	"strings"

	"atende/tools"
)

// extração best-effort de dados estruturados do texto livre
var (
	emailExtratorRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	cpfExtratorRe   = regexp.MustCompile(`\b\d{3}\.?\d{3}\.?\d{3}-?\d{2}\b`)
	foneExtratorRe  = regexp.MustCompile(`\+?\d{2}[\s\-.]?\(?\d{2}\)?[\s\-.]?\d{4,5}[\s\-.]?\d{4}`)
)

// extrairDados casa email/telefone/CPF no texto e mescla no mapa de dados
// coletados, sem sobrescrever o que o usuário já informou explicitamente.
func extrairDados(texto string, dados map[string]string) {
	if dados == nil {
		return
	}

	if _, ok := dados["email"]; !ok {
		if m := emailExtratorRe.FindString(texto); m != "" && tools.ValidateEmail(m) {
			dados["email"] = strings.ToLower(m)
		}
	}

	if _, ok := dados["cpf"]; !ok {
		if m := cpfExtratorRe.FindString(texto); m != "" && tools.ValidateCPF(m) {
			dados["cpf"] = m
		}
	}

	if _, ok := dados["telefone"]; !ok {
		if m := foneExtratorRe.FindString(texto); m != "" {
			if fone, err := tools.NormalizeWhatsAppTo(m); err == nil {
				dados["telefone"] = fone
			}
		}
	}
}
