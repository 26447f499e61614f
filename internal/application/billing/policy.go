package billing

import "time"

// RetryPolicy gobierna los reintentos de envío al SRI: límite fijo y backoff
// exponencial acotado. Se inyecta al coordinador; los valores por defecto son
// constantes compiladas, no configuración dinámica.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy política por defecto: 12 reintentos, backoff 30s·2^n con tope de 1h.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 12,
		BaseDelay:  30 * time.Second,
		MaxDelay:   time.Hour,
	}
}

// Backoff devuelve el retraso para el reintento n (1-based): BaseDelay·2^(n-1),
// acotado por MaxDelay. Creciente y acotado; la precisión no es contractual.
func (p RetryPolicy) Backoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	d := p.BaseDelay
	for i := 1; i < retryCount; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
