package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// SubmissionCoordinator orquesta la máquina de estados del envío al SRI:
//
//	DRAFT ──submit──▶ SENT ──SRI──▶ AUTHORIZED | PENDING/PROCESSING/RECEIVED |
//	                                REJECTED/NOT_AUTHORIZED/RETURNED
//	SENT ──falla transporte──▶ FAILED ──retry──▶ SENT ... ──agotado──▶ DEFINITIVELY_FAILED
//
// Garantía de concurrencia: a lo sumo un envío en vuelo por documento. La
// reserva es el CAS DRAFT|FAILED → SENT en la base de datos; no hay locks
// externos. El documento pasa a SENT ANTES de llamar al SRI, de modo que un
// crash a mitad de la llamada lo deja reintenable, nunca atascado en DRAFT.
type SubmissionCoordinator struct {
	docRepo   repository.DocumentRepository
	authority TaxAuthorityClient
	scheduler RetryScheduler
	publisher Publisher
	policy    RetryPolicy
	timeout   time.Duration
	log       *logger.Logger
}

// NewSubmissionCoordinator construye el coordinador. timeout acota cada llamada
// al SRI; al expirar cuenta como falla transitoria.
func NewSubmissionCoordinator(
	docRepo repository.DocumentRepository,
	authority TaxAuthorityClient,
	scheduler RetryScheduler,
	publisher Publisher,
	policy RetryPolicy,
	timeout time.Duration,
	log *logger.Logger,
) *SubmissionCoordinator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SubmissionCoordinator{
		docRepo:   docRepo,
		authority: authority,
		scheduler: scheduler,
		publisher: publisher,
		policy:    policy,
		timeout:   timeout,
		log:       log,
	}
}

// Policy expone la política de reintentos vigente (para el API administrativo).
func (c *SubmissionCoordinator) Policy() RetryPolicy { return c.policy }

// Submit envía el documento al SRI.
//
// Solo es legal desde DRAFT o FAILED con reintentos disponibles; en cualquier
// otro estado es un no-op que devuelve el estado actual (defensa contra
// entregas duplicadas del bus). Dos llamadas concurrentes hacen exactamente
// una llamada al SRI: la que pierde el CAS retorna sin efectos.
func (c *SubmissionCoordinator) Submit(ctx context.Context, documentID string) (entity.DocumentStatus, error) {
	doc, err := c.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("coordinator: obtener documento: %w", err)
	}
	if doc == nil {
		return "", domain.ErrNotFound
	}

	if !doc.CanSubmit(c.policy.MaxRetries) {
		c.log.Debug().Str("document_id", documentID).Str("status", string(doc.Status)).
			Msg("submit ignorado: estado no admite envío")
		return doc.Status, nil
	}

	claimed, err := c.docRepo.ClaimSubmission(ctx, documentID, c.policy.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("coordinator: reservar envío: %w", err)
	}
	if !claimed {
		// Otro worker ganó el CAS; devolver el estado vigente sin tocar nada.
		if current, gerr := c.docRepo.GetByID(ctx, documentID); gerr == nil && current != nil {
			return current.Status, nil
		}
		return doc.Status, nil
	}

	c.log.Info().Str("document_id", documentID).Str("number", doc.DocumentNumber).
		Int("retry_count", doc.RetryCount).Msg("enviando documento al SRI")

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := c.authority.Submit(callCtx, doc)
	if err != nil {
		// Falla de transporte (timeout, red, 5xx): transitoria por definición.
		return c.recordFailure(ctx, documentID, err)
	}

	return c.applyReceipt(ctx, documentID, receipt)
}

// CheckStatus consulta al SRI por clave de acceso y transiciona los estados
// transitorios (PENDING/PROCESSING/RECEIVED). En estados terminales es no-op.
func (c *SubmissionCoordinator) CheckStatus(ctx context.Context, documentID string) (entity.DocumentStatus, error) {
	doc, err := c.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("coordinator: obtener documento: %w", err)
	}
	if doc == nil {
		return "", domain.ErrNotFound
	}
	if !doc.Status.IsAuthorityPending() {
		return doc.Status, nil
	}
	if doc.AccessKey == "" {
		return doc.Status, fmt.Errorf("%w: documento sin clave de acceso", domain.ErrConflict)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := c.authority.CheckStatus(callCtx, doc.AccessKey)
	if err != nil {
		// La consulta fallida no muta estado: se reintenta con otra consulta.
		c.log.Warn().Err(err).Str("document_id", documentID).Msg("consulta de autorización fallida")
		return doc.Status, nil
	}
	return c.applyReceipt(ctx, documentID, receipt)
}

// RetryAllFailed reenvía todos los documentos FAILED con reintentos disponibles.
// Devuelve cuántos envíos se dispararon.
func (c *SubmissionCoordinator) RetryAllFailed(ctx context.Context) (int, error) {
	ids, err := c.docRepo.ListRetryable(ctx, c.policy.MaxRetries)
	if err != nil {
		return 0, fmt.Errorf("coordinator: listar reintenables: %w", err)
	}
	count := 0
	for _, id := range ids {
		if _, err := c.Submit(ctx, id); err != nil {
			c.log.Error().Err(err).Str("document_id", id).Msg("reenvío masivo: submit falló")
			continue
		}
		count++
	}
	return count, nil
}

// applyReceipt aplica el estado reportado por el SRI. El CAS en el repositorio
// protege contra reordenamiento de eventos: solo transiciona desde SENT o un
// estado transitorio, nunca desde un terminal.
func (c *SubmissionCoordinator) applyReceipt(ctx context.Context, documentID string, receipt *AuthorityReceipt) (entity.DocumentStatus, error) {
	status := receipt.Status
	switch status {
	case entity.StatusAuthorized,
		entity.StatusPending, entity.StatusProcessing, entity.StatusReceived,
		entity.StatusRejected, entity.StatusNotAuthorized, entity.StatusReturned:
		// estados válidos reportables por el SRI
	default:
		// Respuesta no clasificable: se registra como error de autoridad,
		// transitorio (el documento queda consultable/reintenable).
		c.log.Warn().Str("document_id", documentID).Str("status", string(status)).
			Msg("estado SRI no reconocido")
		status = entity.StatusAuthorityError
	}

	if status == entity.StatusAuthorityError {
		return c.recordFailure(ctx, documentID, fmt.Errorf("respuesta SRI no clasificable: %s", receipt.Message))
	}

	ok, err := c.docRepo.ApplyAuthorityResult(ctx, documentID, status,
		receipt.AccessKey, receipt.AuthorizationNumber, receipt.Message)
	if err != nil {
		return "", fmt.Errorf("coordinator: aplicar resultado SRI: %w", err)
	}
	if !ok {
		// El documento ya no estaba en un estado transicionable (evento viejo
		// o duplicado); devolver lo que haya sin sobreescribir.
		if current, gerr := c.docRepo.GetByID(ctx, documentID); gerr == nil && current != nil {
			return current.Status, nil
		}
		return status, nil
	}

	switch status {
	case entity.StatusAuthorized:
		c.log.Info().Str("document_id", documentID).
			Str("authorization_number", receipt.AuthorizationNumber).
			Msg("documento AUTORIZADO por el SRI")
		c.publisher.Publish(ctx, event.DocumentAuthorized{DocumentID: documentID})
	case entity.StatusRejected, entity.StatusNotAuthorized, entity.StatusReturned:
		// Rechazo de contenido: terminal, requiere documento nuevo corregido.
		c.log.Warn().Str("document_id", documentID).Str("status", string(status)).
			Str("detail", receipt.Message).Msg("documento rechazado por el SRI")
	default:
		c.log.Info().Str("document_id", documentID).Str("status", string(status)).
			Msg("documento en estado transitorio SRI")
	}
	return status, nil
}

// recordFailure registra una falla transitoria: incrementa retry_count y
// programa el reintento con backoff, o declara DEFINITIVELY_FAILED si se
// agotaron los reintentos (terminal, accionable por operadores).
func (c *SubmissionCoordinator) recordFailure(ctx context.Context, documentID string, cause error) (entity.DocumentStatus, error) {
	retryCount, status, ok, err := c.docRepo.RecordSubmissionFailure(ctx, documentID, time.Now(), c.policy.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("coordinator: registrar falla: %w", err)
	}
	if !ok {
		if current, gerr := c.docRepo.GetByID(ctx, documentID); gerr == nil && current != nil {
			return current.Status, nil
		}
		return entity.StatusFailed, nil
	}

	if status == entity.StatusDefinitivelyFailed {
		// Alerta de operador: falla de infraestructura/alcance del SRI, no de
		// contenido del documento. No se programan más reintentos.
		c.log.Error().Err(cause).Str("document_id", documentID).Int("retry_count", retryCount).
			Msg("reintentos agotados: documento DEFINITIVAMENTE FALLIDO, requiere intervención manual")
		return status, nil
	}

	delay := c.policy.Backoff(retryCount)
	c.log.Warn().Err(cause).Str("document_id", documentID).Int("retry_count", retryCount).
		Dur("retry_in", delay).Msg("envío al SRI falló, reintento programado")
	c.scheduler.ScheduleRetry(documentID, delay)
	return status, nil
}
