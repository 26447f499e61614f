// Package pdf genera la Representación Impresa del Documento Electrónico (RIDE)
// de facturas y notas de crédito autorizadas por el SRI.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + RUC  │  Tipo + Número + Fecha        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  COMPRADOR: Nombre + identificación + contacto              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Desc. | Subtotal       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / IVA / VALOR TOTAL                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER SRI: Clave de acceso + N° autorización + QR          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	marotocfg "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/config"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 16, Green: 78, Blue: 139}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// RIDERenderer implementa billing.PDFRenderer usando Maroto v2.
type RIDERenderer struct {
	emitter config.SRIConfig
}

// NewRIDERenderer construye el renderizador con los datos del emisor.
func NewRIDERenderer(emitter config.SRIConfig) *RIDERenderer {
	return &RIDERenderer{emitter: emitter}
}

var _ billing.PDFRenderer = (*RIDERenderer)(nil)

// RenderDocument genera el RIDE del documento y devuelve sus bytes.
func (r *RIDERenderer) RenderDocument(_ context.Context, doc *entity.FiscalDocument) ([]byte, error) {
	cfg := marotocfg.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(kindLabel(doc.Kind)+" "+doc.DocumentNumber, true).
		WithAuthor(r.emitter.BusinessName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(r.headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(r.buyerRow(doc))
	if doc.Kind == entity.KindCreditNote && doc.ModifiedDocument != nil {
		m.AddRows(modifiedDocRow(doc))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, lr := range tableLineRows(doc.Lines) {
		m.AddRows(lr)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, fr := range sriFooterRows(doc) {
		m.AddRows(fr)
	}

	rendered, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar RIDE: %w", err)
	}
	return rendered.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func (r *RIDERenderer) headerRow(doc *entity.FiscalDocument) core.Row {
	number := r.emitter.EstablishmentID + "-" + r.emitter.EmissionPoint + "-" + doc.DocumentNumber
	return row.New(20).Add(
		col.New(7).Add(
			text.New(r.emitter.BusinessName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RUC: "+r.emitter.RUC, props.Text{Size: 9, Top: 9, Color: colorGray}),
			text.New(r.emitter.Address, props.Text{Size: 8, Top: 14, Color: colorGray}),
		),
		col.New(5).Add(
			text.New(kindLabel(doc.Kind), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha emisión: "+doc.CreatedAt.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func (r *RIDERenderer) buyerRow(doc *entity.FiscalDocument) core.Row {
	return row.New(14).Add(
		col.New(12).Add(
			text.New("COMPRADOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(doc.CustomerName, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("Identificación: %s   |   Email: %s   |   Dirección: %s",
				doc.CustomerIdentification,
				nonEmpty(doc.CustomerEmail, "—"),
				nonEmpty(doc.CustomerAddress, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// modifiedDocRow: referencia al comprobante que la nota de crédito modifica.
func modifiedDocRow(doc *entity.FiscalDocument) core.Row {
	ref := doc.ModifiedDocument
	return row.New(10).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Modifica: %s %s del %s",
				kindLabel(ref.Type), ref.Number, ref.Date.Format("02/01/2006"),
			), props.Text{Size: 8, Top: 1}),
			text.New("Motivo: "+doc.Reason, props.Text{Size: 8, Top: 6, Color: colorGray}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 5, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Dscto.", 1, align.Right),
		h("Subtotal", 3, align.Right),
	)
}

func tableLineRows(lines []entity.DocumentLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				l.Quantity.String(),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(5).Add(text.New(
				l.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"$"+l.UnitPrice.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				"$"+l.Discount.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(3).Add(text.New(
				"$"+l.Subtotal.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

func totalsRow(doc *entity.FiscalDocument) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grand := func(s string, isLabel bool) core.Component {
		right := 1.0
		if isLabel {
			right = 2.0
		}
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: right,
		})
	}

	return row.New(26).Add(
		col.New(3),
		col.New(3).Add(
			label("Subtotal:"),
			label("IVA:"),
			grand("VALOR TOTAL:", true),
		),
		col.New(3).Add(
			value("$"+doc.Subtotal.StringFixed(2)),
			value("$"+doc.TaxAmount.StringFixed(2)),
			grand("$"+doc.TotalAmount.StringFixed(2), false),
		),
		col.New(3),
	)
}

// sriFooterRows: clave de acceso, número de autorización y código QR.
func sriFooterRows(doc *entity.FiscalDocument) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN SRI", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	if doc.AuthorizationNumber != "" {
		rows = append(rows, row.New(5).Add(col.New(12).Add(
			text.New("N° Autorización: "+doc.AuthorizationNumber, props.Text{Size: 8, Top: 1}),
		)))
	}
	if doc.AccessKey != "" {
		rows = append(rows,
			row.New(5).Add(col.New(12).Add(
				text.New("Clave de acceso:", props.Text{Style: fontstyle.Bold, Size: 7, Top: 1}),
			)),
			row.New(4).Add(col.New(12).Add(
				text.New(doc.AccessKey, props.Text{Size: 7, Color: colorGray, Top: 0.5, Left: 2}),
			)),
			row.New(3),
			row.New(40).Add(
				col.New(4).Add(code.NewQr(doc.AccessKey, props.Rect{Percent: 95, Center: true})),
				col.New(8).Add(
					text.New("Consulte la validez de este comprobante\nen el portal del SRI con la clave de acceso.", props.Text{
						Size: 8, Top: 4, Left: 3, Color: colorGray,
					}),
					text.New("DOCUMENTO AUTORIZADO POR EL SRI", props.Text{
						Style: fontstyle.Bold, Size: 10, Top: 24, Left: 3, Color: colorPrimary,
					}),
				),
			),
		)
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Comprobante electrónico emitido conforme a la Resolución NAC-DGERCGC18-00000233 del SRI. "+
				"Conserve este documento como soporte tributario.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func kindLabel(kind entity.DocumentKind) string {
	if kind == entity.KindCreditNote {
		return "NOTA DE CRÉDITO"
	}
	return "FACTURA"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
