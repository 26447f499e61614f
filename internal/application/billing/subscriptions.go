package billing

import (
	"context"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// Subscriber es el puerto de entrada del bus de eventos.
type Subscriber interface {
	Subscribe(topic string, handler func(ctx context.Context, evt event.Event))
}

// RegisterSubscriptions conecta el pipeline fiscal al bus de eventos:
//
//	OrderCompleted     → DocumentFactory.BuildFromOrder
//	DocumentGenerated  → SubmissionCoordinator.Submit
//	DocumentAuthorized → ArtifactPipeline.EnsurePDF → NotificationDispatcher.EnsureEmailed
//
// Ningún handler re-lanza errores hacia el bus: una falla de PDF o de correo
// se registra y se resuelve re-invocando la operación idempotente, no
// reprocesando la autorización como si hubiera fallado.
func RegisterSubscriptions(
	bus Subscriber,
	factory *DocumentFactory,
	coordinator *SubmissionCoordinator,
	artifacts *ArtifactPipeline,
	notifier *NotificationDispatcher,
	log *logger.Logger,
) {
	bus.Subscribe(event.TopicOrderCompleted, func(ctx context.Context, evt event.Event) {
		oc, ok := evt.(event.OrderCompleted)
		if !ok {
			return
		}
		if _, err := factory.BuildFromOrder(ctx, oc.OrderID); err != nil {
			log.Error().Err(err).Str("order_id", oc.OrderID).Msg("generación de documento fiscal falló")
		}
	})

	bus.Subscribe(event.TopicDocumentGenerated, func(ctx context.Context, evt event.Event) {
		dg, ok := evt.(event.DocumentGenerated)
		if !ok {
			return
		}
		if _, err := coordinator.Submit(ctx, dg.DocumentID); err != nil {
			log.Error().Err(err).Str("document_id", dg.DocumentID).Msg("submit desde evento falló")
		}
	})

	bus.Subscribe(event.TopicDocumentAuthorized, func(ctx context.Context, evt event.Event) {
		da, ok := evt.(event.DocumentAuthorized)
		if !ok {
			return
		}
		if _, err := artifacts.EnsurePDF(ctx, da.DocumentID); err != nil {
			// El PDF es reintenable por re-invocación (descarga bajo demanda);
			// no bloquea ni revierte la autorización.
			log.Error().Err(err).Str("document_id", da.DocumentID).Msg("generación de PDF desde evento falló")
			return
		}
		if err := notifier.EnsureEmailed(ctx, da.DocumentID); err != nil {
			log.Error().Err(err).Str("document_id", da.DocumentID).Msg("notificación desde evento falló")
		}
	})
}
