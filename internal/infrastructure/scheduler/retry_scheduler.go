// Package scheduler reencola envíos fallidos al SRI después del retraso que
// dicta la política de backoff. El reintento es una republicación de
// DocumentGenerated: el coordinador decide al consumirla si el documento sigue
// siendo elegible (claim CAS), así que un timer duplicado o tardío es inocuo.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/event"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// RetryScheduler implementa billing.RetryScheduler con timers en proceso.
// Los timers no sobreviven a un reinicio; POST /admin/documents/retry-failed
// y el barrido de arranque cubren ese hueco.
type RetryScheduler struct {
	publisher billing.Publisher
	log       *logger.Logger

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// New crea el planificador de reintentos.
func New(publisher billing.Publisher, log *logger.Logger) *RetryScheduler {
	return &RetryScheduler{
		publisher: publisher,
		log:       log,
		timers:    make(map[string]*time.Timer),
	}
}

var _ billing.RetryScheduler = (*RetryScheduler)(nil)

// ScheduleRetry programa la republicación de DocumentGenerated tras delay.
// Un segundo schedule para el mismo documento reemplaza al anterior.
func (s *RetryScheduler) ScheduleRetry(documentID string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if prev, ok := s.timers[documentID]; ok {
		prev.Stop()
	}
	s.log.Info().Str("document_id", documentID).Dur("delay", delay).Msg("reintento programado")
	s.timers[documentID] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, documentID)
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		s.publisher.Publish(context.Background(), event.DocumentGenerated{DocumentID: documentID})
	})
}

// Stop cancela los timers pendientes; los reintentos perdidos se recuperan
// con el barrido de documentos FAILED al siguiente arranque.
func (s *RetryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
