package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediation/internal/models"
	"mediation/internal/pdf"
	"mediation/internal/realtime"
)

// memRequestRepo — хранилище обращений в памяти с той же CAS-семантикой,
// что и у Postgres-реализации: переход применяется только из перечисленных
// статусов, milestone ставится один раз.
type memRequestRepo struct {
	mu   sync.Mutex
	reqs map[string]*models.ClientRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{reqs: make(map[string]*models.ClientRequest)}
}

func (m *memRequestRepo) Create(req *models.ClientRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.reqs[req.ID] = &cp
	return nil
}

func (m *memRequestRepo) GetByID(id string) (*models.ClientRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.reqs[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (m *memRequestRepo) ListByPhone(phone string) ([]*models.ClientRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.ClientRequest
	for _, req := range m.reqs {
		if req.Phone == phone {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRequestRepo) cas(id string, from []models.RequestStatus, mutate func(*models.ClientRequest)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.reqs[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if req.Status == s {
			mutate(req)
			req.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (m *memRequestRepo) TransitionStatus(id string, from []models.RequestStatus, to models.RequestStatus) (bool, error) {
	return m.cas(id, from, func(r *models.ClientRequest) { r.Status = to })
}

func (m *memRequestRepo) TransitionDocumentSent(id string, from []models.RequestStatus, docType string) (bool, error) {
	return m.cas(id, from, func(r *models.ClientRequest) {
		r.Status = models.StatusDocumentSent
		r.DocumentType = docType
		if r.DocumentSentAt == nil {
			now := time.Now()
			r.DocumentSentAt = &now
		}
	})
}

func (m *memRequestRepo) TransitionViewed(id string, from []models.RequestStatus) (bool, error) {
	return m.cas(id, from, func(r *models.ClientRequest) {
		r.Status = models.StatusDocumentViewed
		if r.DocumentViewedAt == nil {
			now := time.Now()
			r.DocumentViewedAt = &now
		}
	})
}

func (m *memRequestRepo) TransitionSigned(id string, from []models.RequestStatus) (bool, error) {
	return m.cas(id, from, func(r *models.ClientRequest) {
		r.Status = models.StatusDocumentSigned
		if r.DocumentSignedAt == nil {
			now := time.Now()
			r.DocumentSignedAt = &now
		}
	})
}

func (m *memRequestRepo) TransitionRejected(id string, from []models.RequestStatus, reason string) (bool, error) {
	return m.cas(id, from, func(r *models.ClientRequest) {
		r.Status = models.StatusRejected
		r.RejectReason = reason
	})
}

// memMessageRepo — журнал в памяти; время монотонное, чтобы порядок чтения
// совпадал с порядком записи.
type memMessageRepo struct {
	mu   sync.Mutex
	seq  int64
	msgs []*models.Message
	now  time.Time
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (m *memMessageRepo) Create(requestID string, sender models.Sender, text string) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.now = m.now.Add(time.Second)
	msg := &models.Message{
		ID:        m.seq,
		RequestID: requestID,
		Sender:    sender,
		Text:      text,
		CreatedAt: m.now,
	}
	m.msgs = append(m.msgs, msg)
	cp := *msg
	return &cp, nil
}

func (m *memMessageRepo) ListByRequest(requestID string) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.msgs {
		if msg.RequestID == requestID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

// countingPDF — считает генерации; файл не пишет.
type countingPDF struct {
	mu    sync.Mutex
	calls int
	fail  error
}

func (p *countingPDF) GenerateAgreement(data pdf.AgreementData) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return "", p.fail
	}
	p.calls++
	return pdf.AgreementFilename(data.RequestID), nil
}

func (p *countingPDF) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type requestFixture struct {
	svc  *RequestService
	repo *memRequestRepo
	msgs *memMessageRepo
	pdf  *countingPDF
}

func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()
	f := &requestFixture{
		repo: newMemRequestRepo(),
		msgs: newMemMessageRepo(),
		pdf:  &countingPDF{},
	}
	chat := NewChatService(f.msgs, realtime.NewHub())
	f.svc = NewRequestService(f.repo, chat, f.pdf, nil, t.TempDir())
	return f
}

func (f *requestFixture) create(t *testing.T) *models.ClientRequest {
	t.Helper()
	req, err := f.svc.Create(CreateRequestInput{
		Phone:           "+77001234567",
		IIN:             "900101300123",
		OrganizationRef: "ТОО Ломбард Алтын",
		ReasonType:      "debt_restructuring",
		ReasonText:      "Просрочка по займу",
	})
	require.NoError(t, err)
	return req
}

func (f *requestFixture) status(t *testing.T, id string) models.RequestStatus {
	t.Helper()
	req, err := f.repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, req)
	return req.Status
}

func TestRequest_Create(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)

	assert.Equal(t, models.StatusNew, req.Status)
	assert.Equal(t, "77001234567", req.Phone)
	assert.NotEmpty(t, req.ID)

	// регистрация оставляет системную запись в журнале
	list, err := f.msgs.ListByRequest(req.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.SenderSystem, list[0].Sender)
}

func TestRequest_CreateValidation(t *testing.T) {
	f := newRequestFixture(t)

	_, err := f.svc.Create(CreateRequestInput{Phone: "bad", OrganizationRef: "org", ReasonType: "x"})
	require.Error(t, err)

	_, err = f.svc.Create(CreateRequestInput{Phone: "77001234567", ReasonType: "x"})
	require.ErrorIs(t, err, ErrMissingFields)

	_, err = f.svc.Create(CreateRequestInput{Phone: "77001234567", OrganizationRef: "org"})
	require.ErrorIs(t, err, ErrMissingFields)
}

func TestRequest_FullChain(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)

	require.NoError(t, f.svc.Take(req.ID))
	assert.Equal(t, models.StatusInProgress, f.status(t, req.ID))

	require.NoError(t, f.svc.SendDocument(req.ID, "agreement"))
	assert.Equal(t, models.StatusDocumentSent, f.status(t, req.ID))

	require.NoError(t, f.svc.MarkViewed(req.ID))
	assert.Equal(t, models.StatusDocumentViewed, f.status(t, req.ID))

	require.NoError(t, f.svc.MarkSigned(req.ID))
	assert.Equal(t, models.StatusDocumentSigned, f.status(t, req.ID))

	require.NoError(t, f.svc.Resolve(req.ID))
	assert.Equal(t, models.StatusResolved, f.status(t, req.ID))

	stored, _ := f.repo.GetByID(req.ID)
	assert.NotNil(t, stored.DocumentSentAt)
	assert.NotNil(t, stored.DocumentViewedAt)
	assert.NotNil(t, stored.DocumentSignedAt)
	assert.Equal(t, "agreement", stored.DocumentType)
}

func TestRequest_SendDocumentIdempotent(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)

	require.NoError(t, f.svc.SendDocument(req.ID, "agreement"))
	first, _ := f.repo.GetByID(req.ID)
	require.NotNil(t, first.DocumentSentAt)
	notes, _ := f.msgs.ListByRequest(req.ID)
	notesAfterFirst := len(notes)

	// повторная отправка: статус, отметка времени, PDF и журнал не меняются
	require.NoError(t, f.svc.SendDocument(req.ID, "agreement"))
	second, _ := f.repo.GetByID(req.ID)
	assert.Equal(t, models.StatusDocumentSent, second.Status)
	assert.Equal(t, first.DocumentSentAt, second.DocumentSentAt)
	assert.Equal(t, 1, f.pdf.count())
	notes, _ = f.msgs.ListByRequest(req.ID)
	assert.Len(t, notes, notesAfterFirst)
}

func TestRequest_SendDocumentPDFFailureKeepsStatus(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)
	f.pdf.fail = assert.AnError

	err := f.svc.SendDocument(req.ID, "agreement")
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, models.StatusNew, f.status(t, req.ID))

	stored, _ := f.repo.GetByID(req.ID)
	assert.Nil(t, stored.DocumentSentAt)
}

func TestRequest_MarkViewedIdempotent(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)
	require.NoError(t, f.svc.SendDocument(req.ID, ""))
	require.NoError(t, f.svc.MarkViewed(req.ID))

	first, _ := f.repo.GetByID(req.ID)
	require.NoError(t, f.svc.MarkViewed(req.ID))
	second, _ := f.repo.GetByID(req.ID)
	assert.Equal(t, first.DocumentViewedAt, second.DocumentViewedAt)

	// после подписания «просмотрено» тоже no-op, а не ошибка
	require.NoError(t, f.svc.MarkSigned(req.ID))
	require.NoError(t, f.svc.MarkViewed(req.ID))
	assert.Equal(t, models.StatusDocumentSigned, f.status(t, req.ID))
}

func TestRequest_SignedDirectlyFromSent(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)
	require.NoError(t, f.svc.SendDocument(req.ID, ""))

	// без отдельного сигнала «просмотрено»
	require.NoError(t, f.svc.MarkSigned(req.ID))
	assert.Equal(t, models.StatusDocumentSigned, f.status(t, req.ID))

	stored, _ := f.repo.GetByID(req.ID)
	assert.Nil(t, stored.DocumentViewedAt)
	assert.NotNil(t, stored.DocumentSignedAt)
}

func TestRequest_IllegalTransitions(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)

	// подписать нечего: документ ещё не отправлялся
	require.ErrorIs(t, f.svc.MarkSigned(req.ID), ErrInvalidTransition)
	require.ErrorIs(t, f.svc.MarkViewed(req.ID), ErrInvalidTransition)
	require.ErrorIs(t, f.svc.Resolve(req.ID), ErrInvalidTransition)

	// после подписания отказ недоступен
	require.NoError(t, f.svc.SendDocument(req.ID, ""))
	require.NoError(t, f.svc.MarkSigned(req.ID))
	require.ErrorIs(t, f.svc.Reject(req.ID, "поздно"), ErrInvalidTransition)

	// из закрытого не выйти никуда
	require.NoError(t, f.svc.Resolve(req.ID))
	require.ErrorIs(t, f.svc.Take(req.ID), ErrInvalidTransition)
	require.ErrorIs(t, f.svc.SendDocument(req.ID, ""), ErrInvalidTransition)
}

func TestRequest_Reject(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)
	require.NoError(t, f.svc.Take(req.ID))

	require.NoError(t, f.svc.Reject(req.ID, "клиент отозвал обращение"))
	stored, _ := f.repo.GetByID(req.ID)
	assert.Equal(t, models.StatusRejected, stored.Status)
	assert.Equal(t, "клиент отозвал обращение", stored.RejectReason)

	// повторный отказ — no-op, из rejected переходов нет
	require.NoError(t, f.svc.Reject(req.ID, "другая причина"))
	stored, _ = f.repo.GetByID(req.ID)
	assert.Equal(t, "клиент отозвал обращение", stored.RejectReason)
	require.ErrorIs(t, f.svc.Take(req.ID), ErrInvalidTransition)
}

func TestRequest_NotFound(t *testing.T) {
	f := newRequestFixture(t)
	require.ErrorIs(t, f.svc.Take("missing"), ErrRequestNotFound)
	_, err := f.svc.Get("missing")
	require.ErrorIs(t, err, ErrRequestNotFound)
}

func TestRequest_ConcurrentMarkViewed(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)
	require.NoError(t, f.svc.SendDocument(req.ID, ""))

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.svc.MarkViewed(req.ID)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	stored, _ := f.repo.GetByID(req.ID)
	assert.Equal(t, models.StatusDocumentViewed, stored.Status)
	assert.NotNil(t, stored.DocumentViewedAt)
}

func TestRequest_DocumentFileRequiresSentStatus(t *testing.T) {
	f := newRequestFixture(t)
	req := f.create(t)

	_, _, err := f.svc.ResolveDocumentFile(req.ID)
	require.ErrorIs(t, err, ErrDocumentNotAvailable)
}
