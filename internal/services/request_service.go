package services

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediation/internal/models"
	"mediation/internal/pdf"
	"mediation/internal/repositories"
	"mediation/internal/utils"
)

var (
	ErrRequestNotFound      = errors.New("request not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrConflict             = errors.New("concurrent update, try again")
	ErrMissingFields        = errors.New("organization and reason type are required")
	ErrDocumentNotAvailable = errors.New("document is not available for this request")
)

const defaultDocumentType = "general"

// RequestService — движок жизненного цикла обращения. Статус двигается
// только вперёд по таблице переходов; повторный вызов с уже достигнутой
// целью — успешный no-op. Мутации по одному id сериализованы KeyedMutex,
// поверх — условные обновления репозитория, так что при гонке двух
// экземпляров сервиса пишет ровно один.
type RequestService struct {
	repo     repositories.RequestRepository
	chat     *ChatService
	pdfGen   pdf.Generator
	notifier *Notifier

	filesRoot string
	locks     utils.KeyedMutex
}

func NewRequestService(
	repo repositories.RequestRepository,
	chat *ChatService,
	pdfGen pdf.Generator,
	notifier *Notifier,
	filesRoot string,
) *RequestService {
	return &RequestService{
		repo:      repo,
		chat:      chat,
		pdfGen:    pdfGen,
		notifier:  notifier,
		filesRoot: filesRoot,
	}
}

type CreateRequestInput struct {
	Phone           string
	IIN             string
	OrganizationRef string
	ReasonType      string
	ReasonText      string
}

func (s *RequestService) Create(in CreateRequestInput) (*models.ClientRequest, error) {
	phone, err := utils.NormalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.OrganizationRef) == "" || strings.TrimSpace(in.ReasonType) == "" {
		return nil, ErrMissingFields
	}

	now := time.Now()
	req := &models.ClientRequest{
		ID:              uuid.NewString(),
		Phone:           phone,
		IIN:             strings.TrimSpace(in.IIN),
		OrganizationRef: strings.TrimSpace(in.OrganizationRef),
		ReasonType:      strings.TrimSpace(in.ReasonType),
		ReasonText:      strings.TrimSpace(in.ReasonText),
		Status:          models.StatusNew,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(req); err != nil {
		return nil, err
	}
	s.systemNote(req.ID, "Обращение зарегистрировано")
	s.notifier.RequestCreated(req)
	log.Printf("[request][create] id=%s org=%s reason=%s", req.ID, req.OrganizationRef, req.ReasonType)
	return req, nil
}

func (s *RequestService) Get(id string) (*models.ClientRequest, error) {
	req, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (s *RequestService) ListByPhone(phone string) ([]*models.ClientRequest, error) {
	return s.repo.ListByPhone(phone)
}

// Take — медиатор берёт обращение в работу.
func (s *RequestService) Take(id string) error {
	return s.applyTransition(id, transitionSpec{
		to:   models.StatusInProgress,
		noop: func(cur models.RequestStatus) bool { return cur == models.StatusInProgress },
		apply: func(from []models.RequestStatus) (bool, error) {
			return s.repo.TransitionStatus(id, from, models.StatusInProgress)
		},
	})
}

// SendDocument — формирует соглашение и отправляет его клиенту. Повторный
// вызов при уже отправленном документе — no-op: файл не перегенерируется,
// document_sent_at не меняется, уведомление не дублируется.
func (s *RequestService) SendDocument(id, docType string) error {
	docType = strings.TrimSpace(docType)
	if docType == "" {
		docType = defaultDocumentType
	}
	return s.applyTransition(id, transitionSpec{
		to:   models.StatusDocumentSent,
		noop: func(cur models.RequestStatus) bool { return cur == models.StatusDocumentSent },
		prepare: func(req *models.ClientRequest) error {
			// документ собираем до смены статуса: не удался PDF — статус не трогаем
			if s.pdfGen == nil {
				return nil
			}
			_, err := s.pdfGen.GenerateAgreement(pdf.AgreementData{
				RequestID:    req.ID,
				Organization: req.OrganizationRef,
				Phone:        req.Phone,
				IIN:          req.IIN,
				ReasonType:   req.ReasonType,
				ReasonText:   req.ReasonText,
				DocumentType: docType,
				CreatedAt:    req.CreatedAt,
			})
			if err != nil {
				return fmt.Errorf("generate agreement: %w", err)
			}
			return nil
		},
		apply: func(from []models.RequestStatus) (bool, error) {
			return s.repo.TransitionDocumentSent(id, from, docType)
		},
		onWin: func(req *models.ClientRequest) {
			req.DocumentType = docType
			s.systemNote(id, fmt.Sprintf("Документ «%s» направлен клиенту", docType))
			s.notifier.DocumentSent(req)
		},
	})
}

// MarkViewed — отметка о просмотре документа; уже просмотрен или дальше по
// цепочке — успешный no-op.
func (s *RequestService) MarkViewed(id string) error {
	return s.applyTransition(id, transitionSpec{
		to: models.StatusDocumentViewed,
		noop: func(cur models.RequestStatus) bool {
			return statusRank(cur) >= statusRank(models.StatusDocumentViewed)
		},
		apply: func(from []models.RequestStatus) (bool, error) {
			return s.repo.TransitionViewed(id, from)
		},
	})
}

// MarkSigned — подписание по SMS-подтверждению. Допустимо и напрямую из
// document_sent: отдельный сигнал «просмотрено» обязателен не для всех UI.
func (s *RequestService) MarkSigned(id string) error {
	return s.applyTransition(id, transitionSpec{
		to: models.StatusDocumentSigned,
		noop: func(cur models.RequestStatus) bool {
			return statusRank(cur) >= statusRank(models.StatusDocumentSigned)
		},
		apply: func(from []models.RequestStatus) (bool, error) {
			return s.repo.TransitionSigned(id, from)
		},
		onWin: func(req *models.ClientRequest) {
			s.systemNote(id, "Документ подписан клиентом")
			s.notifier.DocumentSigned(req)
		},
	})
}

// Resolve — закрытие обращения после подписания.
func (s *RequestService) Resolve(id string) error {
	return s.applyTransition(id, transitionSpec{
		to:   models.StatusResolved,
		noop: func(cur models.RequestStatus) bool { return cur == models.StatusResolved },
		apply: func(from []models.RequestStatus) (bool, error) {
			return s.repo.TransitionStatus(id, from, models.StatusResolved)
		},
	})
}

// Reject — отказ; недоступен после подписания и закрытия.
func (s *RequestService) Reject(id, reason string) error {
	reason = strings.TrimSpace(reason)
	return s.applyTransition(id, transitionSpec{
		to:   models.StatusRejected,
		noop: func(cur models.RequestStatus) bool { return cur == models.StatusRejected },
		apply: func(from []models.RequestStatus) (bool, error) {
			return s.repo.TransitionRejected(id, from, reason)
		},
		onWin: func(req *models.ClientRequest) {
			if reason != "" {
				s.systemNote(id, "Обращение отклонено: "+reason)
			} else {
				s.systemNote(id, "Обращение отклонено")
			}
		},
	})
}

// ResolveDocumentFile — путь к PDF соглашения для отдачи по HTTP.
func (s *RequestService) ResolveDocumentFile(id string) (absPath, fileName string, err error) {
	req, err := s.Get(id)
	if err != nil {
		return "", "", err
	}
	if req.DocumentSentAt == nil {
		return "", "", ErrDocumentNotAvailable
	}
	name := pdf.AgreementFilename(req.ID)
	abs := filepath.Join(s.filesRoot, filepath.Base(name))
	info, statErr := os.Stat(abs)
	if statErr != nil || info.IsDir() {
		return "", "", ErrDocumentNotAvailable
	}
	return abs, name, nil
}

type transitionSpec struct {
	to      models.RequestStatus
	noop    func(cur models.RequestStatus) bool
	prepare func(req *models.ClientRequest) error
	apply   func(from []models.RequestStatus) (bool, error)
	onWin   func(req *models.ClientRequest)
}

// applyTransition — общий каркас перехода: проверка легальности по текущему
// состоянию, условное обновление, при проигрыше CAS внешнему писателю —
// одно свежее перечитывание, дальше ErrConflict.
func (s *RequestService) applyTransition(id string, spec transitionSpec) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	for try := 0; try < 2; try++ {
		req, err := s.repo.GetByID(id)
		if err != nil {
			return err
		}
		if req == nil {
			return ErrRequestNotFound
		}
		if spec.noop(req.Status) {
			return nil
		}
		if !CanTransition(req.Status, spec.to) {
			return ErrInvalidTransition
		}
		if spec.prepare != nil {
			if err := spec.prepare(req); err != nil {
				return err
			}
		}
		ok, err := spec.apply(transitionSources(spec.to))
		if err != nil {
			return err
		}
		if ok {
			if spec.onWin != nil {
				spec.onWin(req)
			}
			log.Printf("[request][status] id=%s %s -> %s", id, req.Status, spec.to)
			return nil
		}
	}
	return ErrConflict
}

func (s *RequestService) systemNote(requestID, text string) {
	if s.chat == nil {
		return
	}
	if _, err := s.chat.Append(requestID, models.SenderSystem, text); err != nil {
		log.Printf("[request][note] append failed: request_id=%s err=%v", requestID, err)
	}
}
