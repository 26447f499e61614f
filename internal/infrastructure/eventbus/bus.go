// Package eventbus implementa un bus de eventos en proceso con entrega
// at-least-once. Cada publicación entrega el evento a todos los handlers
// suscritos al tópico; un handler que entra en pánico no tumba el proceso ni
// impide la entrega a los demás.
//
// En modo asíncrono (producción) cada entrega corre en su propia goroutine;
// en modo síncrono (tests) Publish ejecuta los handlers en línea, lo que hace
// deterministas las aserciones.
package eventbus

import (
	"context"
	"sync"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// Handler procesa un evento entregado. Los errores de negocio los resuelve el
// propio handler; el bus solo protege contra pánicos.
type Handler func(ctx context.Context, evt event.Event)

// Bus es el bus de eventos en proceso.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	sync     bool
	wg       sync.WaitGroup
	log      *logger.Logger
}

// New crea un bus asíncrono.
func New(log *logger.Logger) *Bus {
	return &Bus{handlers: make(map[string][]Handler), log: log}
}

// NewSync crea un bus síncrono para tests: Publish ejecuta los handlers en línea.
func NewSync(log *logger.Logger) *Bus {
	return &Bus{handlers: make(map[string][]Handler), sync: true, log: log}
}

// Subscribe registra un handler para un tópico. No es seguro suscribirse
// concurrentemente con publicaciones en vuelo del mismo tópico durante el
// arranque; el cableado se hace antes de aceptar tráfico.
func (b *Bus) Subscribe(topic string, handler func(ctx context.Context, evt event.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], Handler(handler))
}

// Publish entrega el evento a todos los suscriptores de su tópico.
// Un tópico sin suscriptores es un no-op silencioso.
func (b *Bus) Publish(ctx context.Context, evt event.Event) {
	b.mu.RLock()
	subs := b.handlers[evt.Topic()]
	b.mu.RUnlock()

	for _, h := range subs {
		if b.sync {
			b.deliver(ctx, h, evt)
			continue
		}
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			// El contexto del publicador puede morir antes que el consumidor;
			// la entrega usa un contexto independiente.
			b.deliver(context.WithoutCancel(ctx), h, evt)
		}(h)
	}
}

// deliver ejecuta el handler con recuperación de pánico.
func (b *Bus) deliver(ctx context.Context, h Handler, evt event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Str("topic", evt.Topic()).Interface("panic", r).
				Msg("pánico en handler de evento")
		}
	}()
	h(ctx, evt)
}

// Drain espera a que terminen las entregas en vuelo (apagado ordenado).
func (b *Bus) Drain() {
	b.wg.Wait()
}
