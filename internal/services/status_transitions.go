package services

import "mediation/internal/models"

// Допустимые переходы статуса обращения. Единственное место, где решается
// легальность перехода; сервисы и обработчики сюда только заглядывают.
//
//	new → in_progress → document_sent → document_viewed → document_signed → resolved
//	        └──────────────┴────────────────┴──→ rejected (из любого нефинального)
//
// Подписание допустимо и напрямую из document_sent: часть клиентов не шлёт
// отдельный сигнал «просмотрено».
var requestTransitions = map[models.RequestStatus]map[models.RequestStatus]bool{
	models.StatusNew: {
		models.StatusInProgress:   true,
		models.StatusDocumentSent: true,
		models.StatusRejected:     true,
	},
	models.StatusInProgress: {
		models.StatusDocumentSent: true,
		models.StatusRejected:     true,
	},
	models.StatusDocumentSent: {
		models.StatusDocumentViewed: true,
		models.StatusDocumentSigned: true,
		models.StatusRejected:       true,
	},
	models.StatusDocumentViewed: {
		models.StatusDocumentSigned: true,
		models.StatusRejected:       true,
	},
	models.StatusDocumentSigned: {
		models.StatusResolved: true,
	},
	models.StatusResolved: {},
	models.StatusRejected: {},
}

func CanTransition(current, to models.RequestStatus) bool {
	nexts, ok := requestTransitions[current]
	if !ok {
		return false
	}
	return nexts[to]
}

// transitionSources — из каких статусов разрешён переход в to; используется
// репозиторием как условие CAS-обновления.
func transitionSources(to models.RequestStatus) []models.RequestStatus {
	var out []models.RequestStatus
	for from, nexts := range requestTransitions {
		if nexts[to] {
			out = append(out, from)
		}
	}
	return out
}

// statusRank — позиция статуса на основной цепочке; для проверок вида
// «document_viewed или дальше». rejected на цепочке не лежит.
func statusRank(s models.RequestStatus) int {
	switch s {
	case models.StatusNew:
		return 0
	case models.StatusInProgress:
		return 1
	case models.StatusDocumentSent:
		return 2
	case models.StatusDocumentViewed:
		return 3
	case models.StatusDocumentSigned:
		return 4
	case models.StatusResolved:
		return 5
	}
	return -1
}
