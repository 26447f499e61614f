package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

type notifyFixture struct {
	dispatcher *billing.NotificationDispatcher
	repo       *fakeDocumentRepo
	store      *fakeStore
	mailer     *fakeMailer
}

// buildNotifier prepara un documento autorizado con su PDF ya en el store.
func buildNotifier(t *testing.T, mutate func(doc *entity.FiscalDocument)) notifyFixture {
	t.Helper()
	repo := newFakeDocumentRepo()
	store := newFakeStore()
	mailer := &fakeMailer{}

	doc := authorizedDocument("doc-1")
	doc.PDFPath = "invoices/000000007.pdf"
	if mutate != nil {
		mutate(doc)
	}
	repo.put(doc)
	if doc.PDFPath != "" {
		require.NoError(t, store.Put(context.Background(), doc.PDFPath, []byte("%PDF-1.7")))
	}

	return notifyFixture{
		dispatcher: billing.NewNotificationDispatcher(repo, store, mailer, logger.Nop()),
		repo:       repo,
		store:      store,
		mailer:     mailer,
	}
}

// ── EnsureEmailed ────────────────────────────────────────────────────────────

func TestEnsureEmailed_EnviaConAdjunto(t *testing.T) {
	fx := buildNotifier(t, nil)

	err := fx.dispatcher.EnsureEmailed(context.Background(), "doc-1")

	require.NoError(t, err)
	require.Len(t, fx.mailer.sent, 1)
	mail := fx.mailer.sent[0]
	assert.Equal(t, "maria@example.com", mail.to)
	assert.Contains(t, mail.subject, "Factura electrónica 000000007")
	assert.Contains(t, mail.body, "María Pérez")
	assert.Contains(t, mail.body, "1234567890", "el cuerpo menciona el número de autorización")
	assert.Equal(t, "000000007.pdf", mail.pdfName)
	assert.NotEmpty(t, mail.pdf)
	assert.NotNil(t, fx.repo.get("doc-1").EmailSentAt, "la cerca email_sent_at queda fijada")
}

func TestEnsureEmailed_IdempotenteNoReenvia(t *testing.T) {
	fx := buildNotifier(t, nil)

	require.NoError(t, fx.dispatcher.EnsureEmailed(context.Background(), "doc-1"))
	require.NoError(t, fx.dispatcher.EnsureEmailed(context.Background(), "doc-1"))

	assert.Len(t, fx.mailer.sent, 1, "el cliente recibe exactamente un correo")
}

func TestEnsureEmailed_CercaYaFijadaEsNoOp(t *testing.T) {
	sent := time.Now().Add(-time.Hour)
	fx := buildNotifier(t, func(doc *entity.FiscalDocument) {
		doc.EmailSentAt = &sent
	})

	err := fx.dispatcher.EnsureEmailed(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Empty(t, fx.mailer.sent)
}

func TestEnsureEmailed_FallaDeEnvioDejaLaCercaSinFijar(t *testing.T) {
	fx := buildNotifier(t, nil)
	fx.mailer.err = errors.New("SMTP 421 service not available")

	err := fx.dispatcher.EnsureEmailed(context.Background(), "doc-1")
	require.Error(t, err)
	assert.Nil(t, fx.repo.get("doc-1").EmailSentAt,
		"la falla deja email_sent_at NULL para que la redelivery reintente")

	// La siguiente redelivery sí envía.
	fx.mailer.err = nil
	require.NoError(t, fx.dispatcher.EnsureEmailed(context.Background(), "doc-1"))
	assert.Len(t, fx.mailer.sent, 1)
}

func TestEnsureEmailed_NoAutorizadoEsConflicto(t *testing.T) {
	fx := buildNotifier(t, func(doc *entity.FiscalDocument) {
		doc.Status = entity.StatusSent
	})

	err := fx.dispatcher.EnsureEmailed(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, fx.mailer.sent)
}

func TestEnsureEmailed_SinPDFEsConflicto(t *testing.T) {
	fx := buildNotifier(t, func(doc *entity.FiscalDocument) {
		doc.PDFPath = ""
	})

	err := fx.dispatcher.EnsureEmailed(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrConflict, "el correo requiere el PDF generado")
}

func TestEnsureEmailed_SinEmailDeClienteSeOmite(t *testing.T) {
	fx := buildNotifier(t, func(doc *entity.FiscalDocument) {
		doc.CustomerEmail = ""
	})

	err := fx.dispatcher.EnsureEmailed(context.Background(), "doc-1")

	require.NoError(t, err, "sin email no hay nada que enviar, no es un error")
	assert.Empty(t, fx.mailer.sent)
}

func TestEnsureEmailed_NotaDeCreditoEnElAsunto(t *testing.T) {
	fx := buildNotifier(t, func(doc *entity.FiscalDocument) {
		doc.Kind = entity.KindCreditNote
		doc.PDFPath = "credit-notes/000000007.pdf"
	})

	require.NoError(t, fx.dispatcher.EnsureEmailed(context.Background(), "doc-1"))
	require.Len(t, fx.mailer.sent, 1)
	assert.Contains(t, fx.mailer.sent[0].subject, "Nota de crédito")
}
