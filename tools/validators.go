package tools

import "regexp"

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

var cpfDigitsRe = regexp.MustCompile(`[^0-9]`)

// ValidateCPF valida um CPF pelos dígitos verificadores.
// Aceita com ou sem pontuação (000.000.000-00 ou 00000000000).
func ValidateCPF(cpf string) bool {
	digits := cpfDigitsRe.ReplaceAllString(cpf, "")
	if len(digits) != 11 {
		return false
	}

	// CPFs com todos os dígitos iguais passam no cálculo mas são inválidos
	todosIguais := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			todosIguais = false
			break
		}
	}
	if todosIguais {
		return false
	}

	calc := func(n int) int {
		soma := 0
		for i := 0; i < n; i++ {
			soma += int(digits[i]-'0') * (n + 1 - i)
		}
		resto := (soma * 10) % 11
		if resto == 10 {
			resto = 0
		}
		return resto
	}

	return calc(9) == int(digits[9]-'0') && calc(10) == int(digits[10]-'0')
}
