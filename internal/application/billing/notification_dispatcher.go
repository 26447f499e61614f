package billing

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// NotificationDispatcher envía al cliente exactamente un correo con el PDF
// adjunto. La cerca de idempotencia es email_sent_at persistido: si ya está
// puesto, no hay reenvío. Si el envío falla, email_sent_at queda NULL y una
// redelivery posterior del evento vuelve a intentar ("al menos una vez hasta
// lograrlo", nunca fire-and-forget).
type NotificationDispatcher struct {
	docRepo repository.DocumentRepository
	store   ArtifactStore
	mailer  Mailer
	log     *logger.Logger
}

// NewNotificationDispatcher construye el despachador de notificaciones.
func NewNotificationDispatcher(docRepo repository.DocumentRepository, store ArtifactStore, mailer Mailer, log *logger.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{docRepo: docRepo, store: store, mailer: mailer, log: log}
}

// EnsureEmailed garantiza la notificación única al cliente.
// Precondiciones: documento AUTHORIZED con pdf_path fijado y artefacto presente.
func (d *NotificationDispatcher) EnsureEmailed(ctx context.Context, documentID string) error {
	doc, err := d.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("notify: obtener documento: %w", err)
	}
	if doc == nil {
		return domain.ErrNotFound
	}
	if doc.Status != entity.StatusAuthorized {
		return fmt.Errorf("%w: documento en %s, solo se notifica un documento autorizado", domain.ErrConflict, doc.Status)
	}
	if doc.PDFPath == "" || !d.store.Exists(ctx, doc.PDFPath) {
		return fmt.Errorf("%w: el documento no tiene PDF disponible", domain.ErrConflict)
	}

	// Cerca de idempotencia: ya notificado.
	if doc.EmailSentAt != nil {
		return nil
	}
	if doc.CustomerEmail == "" {
		d.log.Warn().Str("document_id", documentID).Msg("documento sin email de cliente, notificación omitida")
		return nil
	}

	pdf, err := d.store.Get(ctx, doc.PDFPath)
	if err != nil {
		return fmt.Errorf("notify: leer PDF: %w", err)
	}

	subject, body := emailContent(doc)
	if err := d.mailer.SendDocument(ctx, doc.CustomerEmail, subject, body, path.Base(doc.PDFPath), pdf); err != nil {
		// email_sent_at queda sin fijar: la siguiente redelivery reintenta.
		d.log.Error().Err(err).Str("document_id", documentID).Str("to", doc.CustomerEmail).
			Msg("envío de correo falló")
		return fmt.Errorf("notify: enviar correo: %w", err)
	}

	if ok, err := d.docRepo.MarkEmailed(ctx, documentID, time.Now()); err != nil {
		return fmt.Errorf("notify: fijar email_sent_at: %w", err)
	} else if !ok {
		d.log.Debug().Str("document_id", documentID).Msg("email_sent_at ya estaba fijado por otro worker")
		return nil
	}

	d.log.Info().Str("document_id", documentID).Str("to", doc.CustomerEmail).Msg("documento notificado al cliente")
	return nil
}

func emailContent(doc *entity.FiscalDocument) (subject, body string) {
	kindLabel := "Factura electrónica"
	if doc.Kind == entity.KindCreditNote {
		kindLabel = "Nota de crédito"
	}
	subject = fmt.Sprintf("%s %s", kindLabel, doc.DocumentNumber)
	body = fmt.Sprintf(
		"Estimado/a %s,\n\nAdjuntamos su %s N° %s autorizada por el SRI (autorización %s) por un total de %s %s.\n\nGracias por su compra.",
		doc.CustomerName, kindLabel, doc.DocumentNumber, doc.AuthorizationNumber,
		doc.TotalAmount.Round(2).StringFixed(2), doc.Currency,
	)
	return subject, body
}
