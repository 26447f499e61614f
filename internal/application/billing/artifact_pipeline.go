package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/repository"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// ArtifactPipeline genera el PDF del documento autorizado exactamente una vez.
//
// Cerca de idempotencia: pdf_path persistido + verificación de existencia en el
// store. Si dos workers renderizan en paralelo, el compare-and-set de pdf_path
// decide el ganador y el perdedor descarta su copia. Una falla de render no
// revierte AUTHORIZED: se reintenta re-invocando, nunca reenviando al SRI.
type ArtifactPipeline struct {
	docRepo  repository.DocumentRepository
	renderer PDFRenderer
	store    ArtifactStore
	log      *logger.Logger
}

// NewArtifactPipeline construye el pipeline de artefactos.
func NewArtifactPipeline(docRepo repository.DocumentRepository, renderer PDFRenderer, store ArtifactStore, log *logger.Logger) *ArtifactPipeline {
	return &ArtifactPipeline{docRepo: docRepo, renderer: renderer, store: store, log: log}
}

// EnsurePDF garantiza que el documento autorizado tiene su PDF y devuelve la ruta.
func (p *ArtifactPipeline) EnsurePDF(ctx context.Context, documentID string) (string, error) {
	doc, err := p.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("artifacts: obtener documento: %w", err)
	}
	if doc == nil {
		return "", domain.ErrNotFound
	}
	if doc.Status != entity.StatusAuthorized {
		return "", fmt.Errorf("%w: el documento está en %s, solo se genera PDF de documentos autorizados",
			domain.ErrConflict, doc.Status)
	}

	// No-op idempotente: ya existe y el artefacto está en el store.
	if doc.PDFPath != "" && p.store.Exists(ctx, doc.PDFPath) {
		return doc.PDFPath, nil
	}

	data, err := p.renderer.RenderDocument(ctx, doc)
	if err != nil {
		// La falla se registra y propaga, pero el documento sigue AUTHORIZED.
		p.log.Error().Err(err).Str("document_id", documentID).Msg("render de PDF falló")
		return "", fmt.Errorf("artifacts: render: %w", err)
	}

	path := artifactPath(doc)
	if err := p.store.Put(ctx, path, data); err != nil {
		p.log.Error().Err(err).Str("document_id", documentID).Str("path", path).
			Msg("no se pudo guardar el PDF")
		return "", fmt.Errorf("artifacts: guardar: %w", err)
	}

	winner, err := p.docRepo.SetPDFPath(ctx, documentID, path)
	if err != nil {
		return "", fmt.Errorf("artifacts: fijar pdf_path: %w", err)
	}
	if winner != path {
		// Otro worker fijó la ruta primero: descartar la copia recién generada.
		_ = p.store.Remove(ctx, path)
		p.log.Debug().Str("document_id", documentID).Str("winner", winner).
			Msg("pdf_path ya fijado por otro worker, copia descartada")
		return winner, nil
	}

	p.log.Info().Str("document_id", documentID).Str("path", path).Msg("PDF generado y almacenado")
	return path, nil
}

// artifactPath ruta del artefacto según el tipo: invoices/<número>.pdf o
// credit-notes/<número>.pdf.
func artifactPath(doc *entity.FiscalDocument) string {
	dir := "invoices"
	if doc.Kind == entity.KindCreditNote {
		dir = "credit-notes"
	}
	return dir + "/" + strings.TrimSpace(doc.DocumentNumber) + ".pdf"
}
