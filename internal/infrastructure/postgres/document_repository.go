package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
// Las transiciones de estado son UPDATEs condicionados al estado vigente
// (compare-and-set): el conteo de filas afectadas es la señal de éxito.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `
	id, document_number, kind,
	modified_document_type, modified_document_number, modified_document_date, reason,
	customer_identification_type, customer_identification, customer_name,
	customer_email, customer_address, customer_phone,
	subtotal, tax_amount, total_amount, currency,
	status, access_key, authorization_number, authority_error,
	retry_count, last_retry_at, pdf_path, email_sent_at,
	source_order_id, created_via, created_at, updated_at`

// Create persiste el documento con sus líneas.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.FiscalDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	const q = `
		INSERT INTO fiscal_documents (
			id, document_number, kind,
			modified_document_type, modified_document_number, modified_document_date, reason,
			customer_identification_type, customer_identification, customer_name,
			customer_email, customer_address, customer_phone,
			subtotal, tax_amount, total_amount, currency,
			status, retry_count, source_order_id, created_via, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		)`

	var modType, modNumber *string
	var modDate *time.Time
	if doc.ModifiedDocument != nil {
		t := string(doc.ModifiedDocument.Type)
		modType = &t
		modNumber = &doc.ModifiedDocument.Number
		modDate = &doc.ModifiedDocument.Date
	}

	_, err := r.q.Exec(ctx, q,
		doc.ID, doc.DocumentNumber, string(doc.Kind),
		modType, modNumber, modDate, nullIfEmpty(doc.Reason),
		doc.CustomerIdentificationType, doc.CustomerIdentification, doc.CustomerName,
		nullIfEmpty(doc.CustomerEmail), nullIfEmpty(doc.CustomerAddress), nullIfEmpty(doc.CustomerPhone),
		doc.Subtotal, doc.TaxAmount, doc.TotalAmount, doc.Currency,
		string(doc.Status), doc.RetryCount, nullIfEmpty(doc.SourceOrderID), doc.CreatedVia,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrDuplicateDocument, err)
		}
		return fmt.Errorf("insert fiscal_document: %w", err)
	}

	const ql = `
		INSERT INTO fiscal_document_lines
			(id, document_id, code, description, quantity, unit_price, discount, tax_rate, subtotal, tax_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for i := range doc.Lines {
		l := &doc.Lines[i]
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.DocumentID = doc.ID
		if _, err := r.q.Exec(ctx, ql,
			l.ID, l.DocumentID, l.Code, l.Description,
			l.Quantity, l.UnitPrice, l.Discount, l.TaxRate, l.Subtotal, l.TaxAmount,
		); err != nil {
			return fmt.Errorf("insert fiscal_document_line: %w", err)
		}
	}
	return nil
}

// GetByID obtiene el documento completo (con líneas) por ID.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.FiscalDocument, error) {
	q := `SELECT ` + documentColumns + ` FROM fiscal_documents WHERE id = $1`
	doc, err := scanDocument(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal_document: %w", err)
	}
	if err := r.loadLines(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetByOrderID busca el documento generado para una orden (cerca de unicidad).
func (r *DocumentRepo) GetByOrderID(ctx context.Context, orderID string) (*entity.FiscalDocument, error) {
	q := `SELECT ` + documentColumns + ` FROM fiscal_documents WHERE source_order_id = $1`
	doc, err := scanDocument(r.q.QueryRow(ctx, q, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal_document by order: %w", err)
	}
	if err := r.loadLines(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GetByNumber busca por tipo y número visible (para referencias de notas de crédito).
func (r *DocumentRepo) GetByNumber(ctx context.Context, kind entity.DocumentKind, number string) (*entity.FiscalDocument, error) {
	q := `SELECT ` + documentColumns + ` FROM fiscal_documents WHERE kind = $1 AND document_number = $2`
	doc, err := scanDocument(r.q.QueryRow(ctx, q, string(kind), number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fiscal_document by number: %w", err)
	}
	return doc, nil
}

// List lista documentos con filtros opcionales, más recientes primero.
func (r *DocumentRepo) List(ctx context.Context, f repository.DocumentFilter) ([]*entity.FiscalDocument, error) {
	q := `SELECT ` + documentColumns + ` FROM fiscal_documents WHERE 1=1`
	args := []any{}
	n := 0
	add := func(cond string, val any) {
		n++
		q += fmt.Sprintf(" AND %s $%d", cond, n)
		args = append(args, val)
	}
	if f.Status != "" {
		add("status =", string(f.Status))
	}
	if f.Kind != "" {
		add("kind =", string(f.Kind))
	}
	if f.CustomerID != "" {
		add("customer_identification =", f.CustomerID)
	}
	if f.From != nil {
		add("created_at >=", *f.From)
	}
	if f.To != nil {
		add("created_at <=", *f.To)
	}
	q += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		n++
		q += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		n++
		q += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, f.Offset)
	}

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list fiscal_documents: %w", err)
	}
	defer rows.Close()

	var list []*entity.FiscalDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fiscal_document: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

// ListRetryable IDs de documentos FAILED con reintentos disponibles.
func (r *DocumentRepo) ListRetryable(ctx context.Context, maxRetries int) ([]string, error) {
	const q = `
		SELECT id FROM fiscal_documents
		WHERE status = 'FAILED' AND retry_count < $1
		ORDER BY last_retry_at NULLS FIRST`
	rows, err := r.q.Query(ctx, q, maxRetries)
	if err != nil {
		return nil, fmt.Errorf("list retryable: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListUndelivered documentos autorizados sin notificación enviada.
func (r *DocumentRepo) ListUndelivered(ctx context.Context) ([]*entity.FiscalDocument, error) {
	q := `SELECT ` + documentColumns + `
		FROM fiscal_documents
		WHERE status = 'AUTHORIZED' AND email_sent_at IS NULL
		ORDER BY created_at`
	rows, err := r.q.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list undelivered: %w", err)
	}
	defer rows.Close()
	var list []*entity.FiscalDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fiscal_document: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

// UpdateCustomer actualiza los datos del cliente; el WHERE excluye estados
// terminales para que la inmutabilidad post-autorización también rija en la DB.
func (r *DocumentRepo) UpdateCustomer(ctx context.Context, doc *entity.FiscalDocument) error {
	const q = `
		UPDATE fiscal_documents
		SET customer_identification_type = $2,
		    customer_identification      = $3,
		    customer_name                = $4,
		    customer_email               = $5,
		    customer_address             = $6,
		    customer_phone               = $7,
		    updated_at                   = $8
		WHERE id = $1
		  AND status NOT IN ('AUTHORIZED', 'REJECTED', 'NOT_AUTHORIZED', 'RETURNED', 'DEFINITIVELY_FAILED')`
	tag, err := r.q.Exec(ctx, q,
		doc.ID, doc.CustomerIdentificationType, doc.CustomerIdentification, doc.CustomerName,
		nullIfEmpty(doc.CustomerEmail), nullIfEmpty(doc.CustomerAddress), nullIfEmpty(doc.CustomerPhone),
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

// ClaimSubmission CAS DRAFT|FAILED → SENT. Una fila afectada = reserva ganada.
func (r *DocumentRepo) ClaimSubmission(ctx context.Context, id string, maxRetries int) (bool, error) {
	const q = `
		UPDATE fiscal_documents
		SET status = 'SENT', updated_at = now()
		WHERE id = $1
		  AND (status = 'DRAFT' OR (status = 'FAILED' AND retry_count < $2))`
	tag, err := r.q.Exec(ctx, q, id, maxRetries)
	if err != nil {
		return false, fmt.Errorf("claim submission: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyAuthorityResult aplica el estado reportado por el SRI desde SENT o un
// estado transitorio. COALESCE/NULLIF preservan clave y autorización previas.
func (r *DocumentRepo) ApplyAuthorityResult(ctx context.Context, id string, status entity.DocumentStatus, accessKey, authNumber, errDetail string) (bool, error) {
	const q = `
		UPDATE fiscal_documents
		SET status               = $2,
		    access_key           = COALESCE(NULLIF($3, ''), access_key),
		    authorization_number = COALESCE(NULLIF($4, ''), authorization_number),
		    authority_error      = NULLIF($5, ''),
		    updated_at           = now()
		WHERE id = $1
		  AND status IN ('SENT', 'PENDING', 'PROCESSING', 'RECEIVED')`
	tag, err := r.q.Exec(ctx, q, id, string(status), accessKey, authNumber, errDetail)
	if err != nil {
		return false, fmt.Errorf("apply authority result: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordSubmissionFailure incrementa retry_count desde SENT y decide FAILED o
// DEFINITIVELY_FAILED en el mismo UPDATE (atómico respecto a otros workers).
func (r *DocumentRepo) RecordSubmissionFailure(ctx context.Context, id string, at time.Time, maxRetries int) (int, entity.DocumentStatus, bool, error) {
	const q = `
		UPDATE fiscal_documents
		SET retry_count   = retry_count + 1,
		    last_retry_at = $2,
		    status        = CASE WHEN retry_count + 1 >= $3 THEN 'DEFINITIVELY_FAILED' ELSE 'FAILED' END,
		    updated_at    = now()
		WHERE id = $1 AND status = 'SENT'
		RETURNING retry_count, status`
	var count int
	var status string
	err := r.q.QueryRow(ctx, q, id, at, maxRetries).Scan(&count, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", false, nil
		}
		return 0, "", false, fmt.Errorf("record submission failure: %w", err)
	}
	return count, entity.DocumentStatus(status), true, nil
}

// SetPDFPath fija pdf_path solo si es NULL y devuelve la ruta ganadora.
func (r *DocumentRepo) SetPDFPath(ctx context.Context, id, path string) (string, error) {
	const q = `
		UPDATE fiscal_documents
		SET pdf_path = $2, updated_at = now()
		WHERE id = $1 AND pdf_path IS NULL`
	tag, err := r.q.Exec(ctx, q, id, path)
	if err != nil {
		return "", fmt.Errorf("set pdf_path: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return path, nil
	}
	// Otro worker fijó la ruta primero: devolver la existente.
	var existing *string
	if err := r.q.QueryRow(ctx, `SELECT pdf_path FROM fiscal_documents WHERE id = $1`, id).Scan(&existing); err != nil {
		return "", fmt.Errorf("get pdf_path: %w", err)
	}
	return derefStr(existing), nil
}

// MarkEmailed fija email_sent_at solo si es NULL (una notificación única).
func (r *DocumentRepo) MarkEmailed(ctx context.Context, id string, at time.Time) (bool, error) {
	const q = `
		UPDATE fiscal_documents
		SET email_sent_at = $2, updated_at = now()
		WHERE id = $1 AND email_sent_at IS NULL`
	tag, err := r.q.Exec(ctx, q, id, at)
	if err != nil {
		return false, fmt.Errorf("mark emailed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// NextDocumentNumber consume el consecutivo del tipo con un incremento atómico
// (nunca read-then-write) y lo devuelve con ceros a la izquierda a 9 dígitos.
func (r *DocumentRepo) NextDocumentNumber(ctx context.Context, kind entity.DocumentKind) (string, error) {
	const q = `
		INSERT INTO document_sequences (kind, last_value)
		VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET last_value = document_sequences.last_value + 1
		RETURNING last_value`
	var value int64
	if err := r.q.QueryRow(ctx, q, string(kind)).Scan(&value); err != nil {
		return "", fmt.Errorf("next document number: %w", err)
	}
	return fmt.Sprintf("%09d", value), nil
}

func (r *DocumentRepo) loadLines(ctx context.Context, doc *entity.FiscalDocument) error {
	const q = `
		SELECT id, document_id, code, description, quantity, unit_price, discount, tax_rate, subtotal, tax_amount
		FROM fiscal_document_lines WHERE document_id = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, q, doc.ID)
	if err != nil {
		return fmt.Errorf("list document lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.DocumentLine
		if err := rows.Scan(&l.ID, &l.DocumentID, &l.Code, &l.Description,
			&l.Quantity, &l.UnitPrice, &l.Discount, &l.TaxRate, &l.Subtotal, &l.TaxAmount); err != nil {
			return fmt.Errorf("scan line: %w", err)
		}
		doc.Lines = append(doc.Lines, l)
	}
	return rows.Err()
}

// scanDocument lee una fila con documentColumns.
func scanDocument(row pgx.Row) (*entity.FiscalDocument, error) {
	var doc entity.FiscalDocument
	var kind, status string
	var modType, modNumber, reason *string
	var modDate *time.Time
	var email, address, phone, accessKey, authNumber, authErr, pdfPath, orderID *string

	err := row.Scan(
		&doc.ID, &doc.DocumentNumber, &kind,
		&modType, &modNumber, &modDate, &reason,
		&doc.CustomerIdentificationType, &doc.CustomerIdentification, &doc.CustomerName,
		&email, &address, &phone,
		&doc.Subtotal, &doc.TaxAmount, &doc.TotalAmount, &doc.Currency,
		&status, &accessKey, &authNumber, &authErr,
		&doc.RetryCount, &doc.LastRetryAt, &pdfPath, &doc.EmailSentAt,
		&orderID, &doc.CreatedVia, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Kind = entity.DocumentKind(kind)
	doc.Status = entity.DocumentStatus(status)
	doc.Reason = derefStr(reason)
	doc.CustomerEmail = derefStr(email)
	doc.CustomerAddress = derefStr(address)
	doc.CustomerPhone = derefStr(phone)
	doc.AccessKey = derefStr(accessKey)
	doc.AuthorizationNumber = derefStr(authNumber)
	doc.AuthorityErrorDetail = derefStr(authErr)
	doc.PDFPath = derefStr(pdfPath)
	doc.SourceOrderID = derefStr(orderID)
	if modType != nil && modNumber != nil {
		ref := &entity.ModifiedDocumentRef{
			Type:   entity.DocumentKind(*modType),
			Number: *modNumber,
		}
		if modDate != nil {
			ref.Date = *modDate
		}
		doc.ModifiedDocument = ref
	}
	return &doc, nil
}
