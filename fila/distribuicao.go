package fila

import "atende/models"

// proximoRodizioLocked acha o próximo atendente do rodízio: parte do índice
// do último atribuído da fila e percorre a lista com wrap-around, pulando
// quem está no teto de capacidade. O ponteiro explícito por fila evita o
// problema clássico de derivar "o último que começou" de uma consulta ao
// histórico, que pode pular um atendente quando o início não foi registrado.
func (s *Service) proximoRodizioLocked(f *models.FilaAtendimento) (int64, bool) {
	n := len(f.Atendentes)
	if n == 0 {
		return 0, false
	}

	inicio := s.ultimoAtribuido[f.ID] // -1 quando nunca houve atribuição
	for passo := 1; passo <= n; passo++ {
		idx := (inicio + passo) % n
		if idx < 0 {
			idx += n
		}
		candidato := f.Atendentes[idx].AtendenteID
		if s.emAndamentoLocked(f.ID, candidato) < s.capacidadeLocked(f) {
			return candidato, true
		}
	}
	return 0, false
}

// menosOcupadoLocked escolhe o atendente elegível com menos atendimentos
// em andamento que ainda esteja abaixo do teto. Empate fica com quem vem
// primeiro na ordem da fila.
func (s *Service) menosOcupadoLocked(f *models.FilaAtendimento) (int64, bool) {
	cap := s.capacidadeLocked(f)

	var escolhido int64
	menor := -1
	for _, a := range f.Atendentes {
		ocupacao := s.emAndamentoLocked(f.ID, a.AtendenteID)
		if ocupacao >= cap {
			continue
		}
		if menor == -1 || ocupacao < menor {
			menor = ocupacao
			escolhido = a.AtendenteID
		}
	}
	if menor == -1 {
		return 0, false
	}
	return escolhido, true
}
