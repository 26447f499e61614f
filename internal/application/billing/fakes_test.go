package billing_test

// Dobles en memoria que replican la semántica CAS del repositorio Postgres,
// para ejercitar los casos de uso sin base de datos.

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
)

// ── Repositorio de documentos en memoria ─────────────────────────────────────

type fakeDocumentRepo struct {
	mu       sync.Mutex
	docs     map[string]*entity.FiscalDocument
	seqs     map[entity.DocumentKind]int64
	failNext error // si está puesto, la siguiente operación de escritura falla
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		docs: make(map[string]*entity.FiscalDocument),
		seqs: make(map[entity.DocumentKind]int64),
	}
}

func (r *fakeDocumentRepo) put(doc *entity.FiscalDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.ID] = &cp
}

func (r *fakeDocumentRepo) get(id string) *entity.FiscalDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.docs[id]; ok {
		cp := *d
		return &cp
	}
	return nil
}

func (r *fakeDocumentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func (r *fakeDocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	for _, d := range r.docs {
		if doc.SourceOrderID != "" && d.SourceOrderID == doc.SourceOrderID {
			return fmt.Errorf("unique_violation: source_order_id %s", doc.SourceOrderID)
		}
		if d.Kind == doc.Kind && d.DocumentNumber == doc.DocumentNumber {
			return fmt.Errorf("unique_violation: document_number %s", doc.DocumentNumber)
		}
	}
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeDocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	return r.get(id), nil
}

func (r *fakeDocumentRepo) GetByOrderID(ctx context.Context, orderID string) (*entity.FiscalDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.SourceOrderID == orderID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeDocumentRepo) GetByNumber(ctx context.Context, kind entity.DocumentKind, number string) (*entity.FiscalDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.Kind == kind && d.DocumentNumber == number {
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeDocumentRepo) List(ctx context.Context, f repository.DocumentFilter) ([]*entity.FiscalDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FiscalDocument
	for _, d := range r.docs {
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Kind != "" && d.Kind != f.Kind {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeDocumentRepo) ListRetryable(ctx context.Context, maxRetries int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, d := range r.docs {
		if d.Status == entity.StatusFailed && d.RetryCount < maxRetries {
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

func (r *fakeDocumentRepo) ListUndelivered(ctx context.Context) ([]*entity.FiscalDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.FiscalDocument
	for _, d := range r.docs {
		if d.Status == entity.StatusAuthorized && d.EmailSentAt == nil {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) UpdateCustomer(ctx context.Context, doc *entity.FiscalDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	d.CustomerIdentificationType = doc.CustomerIdentificationType
	d.CustomerIdentification = doc.CustomerIdentification
	d.CustomerName = doc.CustomerName
	d.CustomerEmail = doc.CustomerEmail
	d.CustomerAddress = doc.CustomerAddress
	d.CustomerPhone = doc.CustomerPhone
	return nil
}

// ClaimSubmission replica el CAS DRAFT|FAILED → SENT del UPDATE condicionado.
func (r *fakeDocumentRepo) ClaimSubmission(ctx context.Context, id string, maxRetries int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return false, nil
	}
	if d.Status == entity.StatusDraft || (d.Status == entity.StatusFailed && d.RetryCount < maxRetries) {
		d.Status = entity.StatusSent
		return true, nil
	}
	return false, nil
}

func (r *fakeDocumentRepo) ApplyAuthorityResult(ctx context.Context, id string, status entity.DocumentStatus, accessKey, authNumber, errDetail string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return false, nil
	}
	switch d.Status {
	case entity.StatusSent, entity.StatusPending, entity.StatusProcessing, entity.StatusReceived:
	default:
		return false, nil
	}
	d.Status = status
	if accessKey != "" {
		d.AccessKey = accessKey
	}
	if authNumber != "" {
		d.AuthorizationNumber = authNumber
	}
	d.AuthorityErrorDetail = errDetail
	return true, nil
}

func (r *fakeDocumentRepo) RecordSubmissionFailure(ctx context.Context, id string, at time.Time, maxRetries int) (int, entity.DocumentStatus, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.Status != entity.StatusSent {
		return 0, "", false, nil
	}
	d.RetryCount++
	t := at
	d.LastRetryAt = &t
	if d.RetryCount >= maxRetries {
		d.Status = entity.StatusDefinitivelyFailed
	} else {
		d.Status = entity.StatusFailed
	}
	return d.RetryCount, d.Status, true, nil
}

func (r *fakeDocumentRepo) SetPDFPath(ctx context.Context, id, path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	if d.PDFPath == "" {
		d.PDFPath = path
	}
	return d.PDFPath, nil
}

func (r *fakeDocumentRepo) MarkEmailed(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.EmailSentAt != nil {
		return false, nil
	}
	t := at
	d.EmailSentAt = &t
	return true, nil
}

func (r *fakeDocumentRepo) NextDocumentNumber(ctx context.Context, kind entity.DocumentKind) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs[kind]++
	return fmt.Sprintf("%09d", r.seqs[kind]), nil
}

// ── Repositorios de órdenes y clientes ───────────────────────────────────────

type fakeOrderRepo struct {
	orders map[string]*entity.Order
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	if o, ok := r.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

type fakeCustomerRepo struct {
	customers map[string]*entity.Customer
}

func (r *fakeCustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	if c, ok := r.customers[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

// ── Transacciones, SRI, scheduler, bus ───────────────────────────────────────

// fakeDocTxRunner pasa el mismo repositorio: las pruebas de atomicidad real
// viven en la capa Postgres, aquí solo importa que fn se ejecute.
type fakeDocTxRunner struct {
	repo *fakeDocumentRepo
}

func (t *fakeDocTxRunner) RunDocument(ctx context.Context, fn func(repo repository.DocumentRepository) error) error {
	return fn(t.repo)
}

// scriptedCall es una respuesta programada del SRI falso.
type scriptedCall struct {
	receipt *billing.AuthorityReceipt
	err     error
}

type fakeAuthority struct {
	mu          sync.Mutex
	submits     []string // números de documento enviados, en orden
	checks      []string // claves de acceso consultadas
	submitQueue []scriptedCall
	checkQueue  []scriptedCall
}

func (a *fakeAuthority) Submit(ctx context.Context, doc *entity.FiscalDocument) (*billing.AuthorityReceipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.submits = append(a.submits, doc.DocumentNumber)
	if len(a.submitQueue) == 0 {
		return nil, fmt.Errorf("fakeAuthority: sin respuesta programada")
	}
	call := a.submitQueue[0]
	a.submitQueue = a.submitQueue[1:]
	return call.receipt, call.err
}

func (a *fakeAuthority) CheckStatus(ctx context.Context, accessKey string) (*billing.AuthorityReceipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checks = append(a.checks, accessKey)
	if len(a.checkQueue) == 0 {
		return nil, fmt.Errorf("fakeAuthority: sin respuesta programada")
	}
	call := a.checkQueue[0]
	a.checkQueue = a.checkQueue[1:]
	return call.receipt, call.err
}

func (a *fakeAuthority) submitCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.submits)
}

type scheduledRetry struct {
	documentID string
	delay      time.Duration
}

type fakeScheduler struct {
	mu      sync.Mutex
	retries []scheduledRetry
}

func (s *fakeScheduler) ScheduleRetry(documentID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retries = append(s.retries, scheduledRetry{documentID: documentID, delay: delay})
}

type fakePublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *fakePublisher) Publish(ctx context.Context, evt event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *fakePublisher) byTopic(topic string) []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []event.Event
	for _, e := range p.events {
		if e.Topic() == topic {
			out = append(out, e)
		}
	}
	return out
}

// ── Render, store y mailer ───────────────────────────────────────────────────

type fakeRenderer struct {
	mu      sync.Mutex
	renders int
	err     error
}

func (r *fakeRenderer) RenderDocument(ctx context.Context, doc *entity.FiscalDocument) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.7 " + doc.DocumentNumber), nil
}

type fakeStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (s *fakeStore) Put(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = data
	return nil
}

func (s *fakeStore) Get(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.files[path]; ok {
		return data, nil
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) Exists(ctx context.Context, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok
}

func (s *fakeStore) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

type sentMail struct {
	to, subject, body, pdfName string
	pdf                        []byte
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendDocument(ctx context.Context, to, subject, body, pdfName string, pdf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body, pdfName: pdfName, pdf: pdf})
	return nil
}
