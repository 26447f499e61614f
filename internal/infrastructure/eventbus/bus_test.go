package eventbus_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/infrastructure/eventbus"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

func TestPublish_EntregaATodosLosSuscriptores(t *testing.T) {
	bus := eventbus.NewSync(logger.Nop())
	var received []string
	bus.Subscribe(event.TopicOrderCompleted, func(ctx context.Context, evt event.Event) {
		received = append(received, "a:"+evt.(event.OrderCompleted).OrderID)
	})
	bus.Subscribe(event.TopicOrderCompleted, func(ctx context.Context, evt event.Event) {
		received = append(received, "b:"+evt.(event.OrderCompleted).OrderID)
	})

	bus.Publish(context.Background(), event.OrderCompleted{OrderID: "order-1"})

	assert.Equal(t, []string{"a:order-1", "b:order-1"}, received)
}

func TestPublish_SoloAlTopicoDelEvento(t *testing.T) {
	bus := eventbus.NewSync(logger.Nop())
	var calls int
	bus.Subscribe(event.TopicDocumentAuthorized, func(ctx context.Context, evt event.Event) {
		calls++
	})

	bus.Publish(context.Background(), event.OrderCompleted{OrderID: "order-1"})
	assert.Zero(t, calls, "el suscriptor de otro tópico no recibe nada")

	bus.Publish(context.Background(), event.DocumentAuthorized{DocumentID: "doc-1"})
	assert.Equal(t, 1, calls)
}

func TestPublish_TopicoSinSuscriptoresEsNoOp(t *testing.T) {
	bus := eventbus.NewSync(logger.Nop())
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), event.DocumentGenerated{DocumentID: "doc-1"})
	})
}

func TestPublish_PanicoEnUnHandlerNoImpideLosDemas(t *testing.T) {
	bus := eventbus.NewSync(logger.Nop())
	var delivered bool
	bus.Subscribe(event.TopicOrderCompleted, func(ctx context.Context, evt event.Event) {
		panic("handler roto")
	})
	bus.Subscribe(event.TopicOrderCompleted, func(ctx context.Context, evt event.Event) {
		delivered = true
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), event.OrderCompleted{OrderID: "order-1"})
	})
	assert.True(t, delivered, "el pánico de un handler no corta la entrega al resto")
}

func TestPublishAsync_DrainEsperaLasEntregas(t *testing.T) {
	bus := eventbus.New(logger.Nop())
	var count atomic.Int32
	bus.Subscribe(event.TopicOrderCompleted, func(ctx context.Context, evt event.Event) {
		count.Add(1)
	})

	for i := 0; i < 20; i++ {
		bus.Publish(context.Background(), event.OrderCompleted{OrderID: "order-1"})
	}
	bus.Drain()

	assert.Equal(t, int32(20), count.Load())
}

func TestPublishAsync_SobreviveAlContextoCancelado(t *testing.T) {
	// El contexto del publicador se cancela inmediatamente después de publicar;
	// el consumidor debe recibir un contexto vivo.
	bus := eventbus.New(logger.Nop())
	var wg sync.WaitGroup
	wg.Add(1)
	var ctxErr error
	bus.Subscribe(event.TopicOrderCompleted, func(ctx context.Context, evt event.Event) {
		defer wg.Done()
		ctxErr = ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, event.OrderCompleted{OrderID: "order-1"})
	cancel()
	wg.Wait()

	assert.NoError(t, ctxErr, "la cancelación del publicador no mata la entrega")
}
