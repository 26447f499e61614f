// Construcción del XML del comprobante electrónico según los esquemas XSD del
// SRI (factura v1.1.0, nota de crédito v1.1.0), sin firma XAdES.

package sri

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
)

// Código de porcentaje de IVA de la tabla 17 del SRI. El pipeline maneja una
// sola tarifa por documento; la tarifa concreta viaja en cada línea.
const codigoPorcentajeIVA = "4" // 15%

// EmitterInfo identifica al emisor ante el SRI; proviene de configuración.
type EmitterInfo struct {
	RUC           string
	BusinessName  string
	Address       string
	Environment   string // "1" pruebas, "2" producción
	Establishment string
	EmissionPoint string
}

// BuildComprobanteXML serializa el documento como XML de comprobante SRI.
// El documento debe tener ya su clave de acceso asignada.
func BuildComprobanteXML(doc *entity.FiscalDocument, emitter EmitterInfo) ([]byte, error) {
	if doc.AccessKey == "" {
		return nil, fmt.Errorf("sri: documento %s sin clave de acceso", doc.ID)
	}

	xmlDoc := etree.NewDocument()
	xmlDoc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	rootTag := "factura"
	if doc.Kind == entity.KindCreditNote {
		rootTag = "notaCredito"
	}
	root := xmlDoc.CreateElement(rootTag)
	root.CreateAttr("id", "comprobante")
	root.CreateAttr("version", "1.1.0")

	writeInfoTributaria(root, doc, emitter)

	switch doc.Kind {
	case entity.KindCreditNote:
		if err := writeInfoNotaCredito(root, doc); err != nil {
			return nil, err
		}
	default:
		writeInfoFactura(root, doc)
	}

	writeDetalles(root, doc)

	xmlDoc.Indent(2)
	return xmlDoc.WriteToBytes()
}

func writeInfoTributaria(root *etree.Element, doc *entity.FiscalDocument, emitter EmitterInfo) {
	it := root.CreateElement("infoTributaria")
	addText(it, "ambiente", emitter.Environment)
	addText(it, "tipoEmision", "1")
	addText(it, "razonSocial", emitter.BusinessName)
	addText(it, "ruc", emitter.RUC)
	addText(it, "claveAcceso", doc.AccessKey)
	addText(it, "codDoc", codDocFor(doc.Kind))
	addText(it, "estab", emitter.Establishment)
	addText(it, "ptoEmi", emitter.EmissionPoint)
	addText(it, "secuencial", doc.DocumentNumber)
	addText(it, "dirMatriz", emitter.Address)
}

func writeInfoFactura(root *etree.Element, doc *entity.FiscalDocument) {
	inf := root.CreateElement("infoFactura")
	addText(inf, "fechaEmision", doc.CreatedAt.Format("02/01/2006"))
	addText(inf, "tipoIdentificacionComprador", doc.CustomerIdentificationType)
	addText(inf, "razonSocialComprador", doc.CustomerName)
	addText(inf, "identificacionComprador", doc.CustomerIdentification)
	addText(inf, "totalSinImpuestos", money(doc.Subtotal))
	addText(inf, "totalDescuento", money(totalDiscount(doc)))
	writeTotalConImpuestos(inf, doc)
	addText(inf, "propina", "0.00")
	addText(inf, "importeTotal", money(doc.TotalAmount))
	addText(inf, "moneda", currencyName(doc.Currency))
}

func writeInfoNotaCredito(root *etree.Element, doc *entity.FiscalDocument) error {
	if doc.ModifiedDocument == nil {
		return fmt.Errorf("sri: nota de crédito %s sin documento modificado", doc.ID)
	}
	inf := root.CreateElement("infoNotaCredito")
	addText(inf, "fechaEmision", doc.CreatedAt.Format("02/01/2006"))
	addText(inf, "tipoIdentificacionComprador", doc.CustomerIdentificationType)
	addText(inf, "razonSocialComprador", doc.CustomerName)
	addText(inf, "identificacionComprador", doc.CustomerIdentification)
	addText(inf, "codDocModificado", codDocFor(doc.ModifiedDocument.Type))
	addText(inf, "numDocModificado", doc.ModifiedDocument.Number)
	addText(inf, "fechaEmisionDocSustento", doc.ModifiedDocument.Date.Format("02/01/2006"))
	addText(inf, "totalSinImpuestos", money(doc.Subtotal))
	addText(inf, "valorModificacion", money(doc.TotalAmount))
	addText(inf, "moneda", currencyName(doc.Currency))
	writeTotalConImpuestos(inf, doc)
	addText(inf, "motivo", doc.Reason)
	return nil
}

func writeTotalConImpuestos(parent *etree.Element, doc *entity.FiscalDocument) {
	tci := parent.CreateElement("totalConImpuestos")
	ti := tci.CreateElement("totalImpuesto")
	addText(ti, "codigo", "2") // IVA
	addText(ti, "codigoPorcentaje", codigoPorcentajeIVA)
	addText(ti, "baseImponible", money(doc.Subtotal))
	addText(ti, "valor", money(doc.TaxAmount))
}

func writeDetalles(root *etree.Element, doc *entity.FiscalDocument) {
	det := root.CreateElement("detalles")
	for _, line := range doc.Lines {
		d := det.CreateElement("detalle")
		addText(d, "codigoPrincipal", line.Code)
		addText(d, "descripcion", line.Description)
		addText(d, "cantidad", line.Quantity.String())
		addText(d, "precioUnitario", line.UnitPrice.String())
		addText(d, "descuento", money(line.Discount))
		addText(d, "precioTotalSinImpuesto", money(line.Subtotal))

		imp := d.CreateElement("impuestos").CreateElement("impuesto")
		addText(imp, "codigo", "2")
		addText(imp, "codigoPorcentaje", codigoPorcentajeIVA)
		addText(imp, "tarifa", line.TaxRate.String())
		addText(imp, "baseImponible", money(line.Subtotal))
		addText(imp, "valor", money(line.TaxAmount))
	}
}

func addText(parent *etree.Element, tag, value string) {
	parent.CreateElement(tag).SetText(value)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func totalDiscount(doc *entity.FiscalDocument) decimal.Decimal {
	total := decimal.Zero
	for _, l := range doc.Lines {
		total = total.Add(l.Discount)
	}
	return total
}

func currencyName(code string) string {
	if code == "" || code == "USD" {
		return "DOLAR"
	}
	return code
}
