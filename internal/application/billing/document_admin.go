package billing

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/dto"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
)

// DocumentAdminUseCase es la superficie administrativa sobre el pipeline:
// listados, detalle, reintentos manuales, consulta SRI y descarga de PDF.
// El reintento manual es simplemente una re-invocación de Submit y se rechaza
// si el estado no lo permite.
type DocumentAdminUseCase struct {
	docRepo     repository.DocumentRepository
	coordinator *SubmissionCoordinator
	artifacts   *ArtifactPipeline
	store       ArtifactStore
}

// NewDocumentAdminUseCase construye el caso de uso administrativo.
func NewDocumentAdminUseCase(
	docRepo repository.DocumentRepository,
	coordinator *SubmissionCoordinator,
	artifacts *ArtifactPipeline,
	store ArtifactStore,
) *DocumentAdminUseCase {
	return &DocumentAdminUseCase{
		docRepo:     docRepo,
		coordinator: coordinator,
		artifacts:   artifacts,
		store:       store,
	}
}

// List lista documentos con filtros de estado, tipo, cliente y rango de fechas.
func (uc *DocumentAdminUseCase) List(ctx context.Context, in dto.ListDocumentsRequest) ([]dto.DocumentResponse, error) {
	in.DefaultPage()
	f := repository.DocumentFilter{
		Status:     entity.DocumentStatus(in.Status),
		Kind:       entity.DocumentKind(in.Kind),
		CustomerID: in.CustomerID,
		Limit:      in.Limit,
		Offset:     in.Offset,
	}
	if in.From != "" {
		if t, err := time.Parse("2006-01-02", in.From); err == nil {
			f.From = &t
		}
	}
	if in.To != "" {
		if t, err := time.Parse("2006-01-02", in.To); err == nil {
			// inclusivo hasta el final del día
			end := t.Add(24*time.Hour - time.Nanosecond)
			f.To = &end
		}
	}

	docs, err := uc.docRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("admin: listar documentos: %w", err)
	}
	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d, false))
	}
	return out, nil
}

// Get devuelve el detalle completo de un documento.
func (uc *DocumentAdminUseCase) Get(ctx context.Context, id string) (*dto.DocumentResponse, error) {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("admin: obtener documento: %w", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	resp := toDocumentResponse(doc, true)
	return &resp, nil
}

// UpdateCustomer edita los datos del cliente del documento. Solo legal antes
// de que el documento alcance un estado terminal (inmutable tras autorización).
func (uc *DocumentAdminUseCase) UpdateCustomer(ctx context.Context, id string, in dto.UpdateCustomerRequest) (*dto.DocumentResponse, error) {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("admin: obtener documento: %w", err)
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	if doc.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: los datos del cliente son inmutables en estado %s", domain.ErrIllegalTransition, doc.Status)
	}

	if in.IdentificationType != "" {
		doc.CustomerIdentificationType = in.IdentificationType
	}
	if in.Identification != "" {
		doc.CustomerIdentification = in.Identification
	}
	if in.Name != "" {
		doc.CustomerName = in.Name
	}
	if in.Email != "" {
		doc.CustomerEmail = in.Email
	}
	if in.Address != "" {
		doc.CustomerAddress = in.Address
	}
	if in.Phone != "" {
		doc.CustomerPhone = in.Phone
	}
	doc.UpdatedAt = time.Now()

	if err := uc.docRepo.UpdateCustomer(ctx, doc); err != nil {
		return nil, fmt.Errorf("admin: actualizar cliente: %w", err)
	}
	resp := toDocumentResponse(doc, true)
	return &resp, nil
}

// Retry reintento manual: re-invoca Submit. Un documento fuera de FAILED viola
// la máquina de estados (ErrIllegalTransition); uno en FAILED sin reintentos
// disponibles agotó su presupuesto (ErrRetriesExhausted).
func (uc *DocumentAdminUseCase) Retry(ctx context.Context, id string) (entity.DocumentStatus, error) {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("admin: obtener documento: %w", err)
	}
	if doc == nil {
		return "", domain.ErrNotFound
	}
	if doc.Status != entity.StatusFailed {
		return doc.Status, fmt.Errorf("%w: el documento en %s no admite retry manual",
			domain.ErrIllegalTransition, doc.Status)
	}
	if !doc.CanRetry(uc.coordinator.Policy().MaxRetries) {
		return doc.Status, fmt.Errorf("%w: el documento acumula %d reintentos",
			domain.ErrRetriesExhausted, doc.RetryCount)
	}
	return uc.coordinator.Submit(ctx, id)
}

// CheckStatus consulta manual de autorización al SRI.
func (uc *DocumentAdminUseCase) CheckStatus(ctx context.Context, id string) (entity.DocumentStatus, error) {
	return uc.coordinator.CheckStatus(ctx, id)
}

// RetryAllFailed reenvío masivo de documentos FAILED reintenables.
func (uc *DocumentAdminUseCase) RetryAllFailed(ctx context.Context) (int, error) {
	return uc.coordinator.RetryAllFailed(ctx)
}

// ListUndelivered documentos autorizados pero sin notificar: la condición
// "autorizado y no entregado" visible para operadores.
func (uc *DocumentAdminUseCase) ListUndelivered(ctx context.Context) ([]dto.DocumentResponse, error) {
	docs, err := uc.docRepo.ListUndelivered(ctx)
	if err != nil {
		return nil, fmt.Errorf("admin: listar no entregados: %w", err)
	}
	out := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d, false))
	}
	return out, nil
}

// DownloadPDF devuelve el PDF del documento, generándolo bajo demanda si el
// documento está autorizado y el artefacto falta.
func (uc *DocumentAdminUseCase) DownloadPDF(ctx context.Context, id string) (pdf []byte, filename string, err error) {
	doc, err := uc.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("admin: obtener documento: %w", err)
	}
	if doc == nil {
		return nil, "", domain.ErrNotFound
	}

	pdfPath, err := uc.artifacts.EnsurePDF(ctx, id)
	if err != nil {
		return nil, "", err
	}
	data, err := uc.store.Get(ctx, pdfPath)
	if err != nil {
		return nil, "", fmt.Errorf("admin: leer PDF: %w", err)
	}
	return data, path.Base(pdfPath), nil
}

func toDocumentResponse(d *entity.FiscalDocument, withLines bool) dto.DocumentResponse {
	resp := dto.DocumentResponse{
		ID:                  d.ID,
		DocumentNumber:      d.DocumentNumber,
		Kind:                string(d.Kind),
		Status:              string(d.Status),
		CustomerName:        d.CustomerName,
		CustomerEmail:       d.CustomerEmail,
		CustomerID:          d.CustomerIdentification,
		Subtotal:            d.Subtotal,
		TaxAmount:           d.TaxAmount,
		TotalAmount:         d.TotalAmount,
		Currency:            d.Currency,
		AccessKey:           d.AccessKey,
		AuthorizationNumber: d.AuthorizationNumber,
		AuthorityError:      d.AuthorityErrorDetail,
		RetryCount:          d.RetryCount,
		PDFPath:             d.PDFPath,
		EmailSentAt:         d.EmailSentAt,
		SourceOrderID:       d.SourceOrderID,
		CreatedVia:          d.CreatedVia,
		CreatedAt:           d.CreatedAt,
	}
	if withLines {
		for _, l := range d.Lines {
			resp.Lines = append(resp.Lines, dto.DocumentLineResponse{
				Code:        l.Code,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Discount:    l.Discount,
				TaxRate:     l.TaxRate,
				Subtotal:    l.Subtotal,
				TaxAmount:   l.TaxAmount,
			})
		}
	}
	return resp
}
