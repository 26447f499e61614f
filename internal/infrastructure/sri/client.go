// Cliente SOAP de los web services de comprobantes electrónicos del SRI
// (RecepcionComprobantesOffline y AutorizacionComprobantesOffline).
//
// Contrato de errores: un error de Go significa falla de transporte (red,
// timeout, SOAP Fault) y es reintenable; los rechazos de contenido del SRI
// viajan en el Status del recibo, nunca como error.

package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/application/billing"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/config"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/logger"
)

// ── Constantes SOAP ────────────────────────────────────────────────────────────

const (
	soapNS         = "http://schemas.xmlsoap.org/soap/envelope/"
	nsRecepcion    = "http://ec.gob.sri.ws.recepcion"
	nsAutorizacion = "http://ec.gob.sri.ws.autorizacion"

	// Estados devueltos por los WS del SRI.
	estadoRecibida     = "RECIBIDA"
	estadoDevuelta     = "DEVUELTA"
	estadoAutorizado   = "AUTORIZADO"
	estadoNoAutorizado = "NO AUTORIZADO"
	estadoRechazada    = "RECHAZADA"
	estadoEnProceso    = "EN PROCESO"
)

// Client implementa billing.TaxAuthorityClient contra los WS SOAP del SRI.
type Client struct {
	receptionURL     string
	authorizationURL string
	emitter          EmitterInfo
	httpClient       *http.Client
	log              *logger.Logger
	now              func() time.Time
}

// NewClient construye el cliente SRI desde configuración. El timeout del
// http.Client es un tope duro; el contexto por llamada puede ser más corto.
func NewClient(cfg config.SRIConfig, log *logger.Logger) *Client {
	return &Client{
		receptionURL:     cfg.ReceptionURL,
		authorizationURL: cfg.AuthorizationURL,
		emitter: EmitterInfo{
			RUC:           cfg.RUC,
			BusinessName:  cfg.BusinessName,
			Address:       cfg.Address,
			Environment:   cfg.Environment,
			Establishment: cfg.EstablishmentID,
			EmissionPoint: cfg.EmissionPoint,
		},
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
		now:        time.Now,
	}
}

var _ billing.TaxAuthorityClient = (*Client)(nil)

// ── Submit ─────────────────────────────────────────────────────────────────────

// Submit entrega el comprobante al WS de recepción. Si el SRI lo recibe,
// consulta de inmediato la autorización; si aún no hay veredicto, el recibo
// queda en RECEIVED y se resuelve después vía CheckStatus.
func (c *Client) Submit(ctx context.Context, doc *entity.FiscalDocument) (*billing.AuthorityReceipt, error) {
	accessKey := doc.AccessKey
	if accessKey == "" {
		var err error
		accessKey, err = BuildAccessKey(c.now(), doc.Kind, c.emitter.RUC, c.emitter.Environment,
			c.emitter.Establishment, c.emitter.EmissionPoint, doc.DocumentNumber)
		if err != nil {
			return nil, err
		}
	}

	comprobante := *doc
	comprobante.AccessKey = accessKey
	xmlBytes, err := BuildComprobanteXML(&comprobante, c.emitter)
	if err != nil {
		return nil, err
	}

	body := buildValidarComprobante(xmlBytes)
	respDoc, err := c.call(ctx, c.receptionURL, body)
	if err != nil {
		return nil, fmt.Errorf("sri: recepción: %w", err)
	}

	estado := findText(respDoc, "estado")
	switch estado {
	case estadoRecibida:
		// Recibido: intentamos resolver la autorización en la misma llamada.
		receipt, err := c.CheckStatus(ctx, accessKey)
		if err != nil {
			c.log.Warn().Err(err).Str("access_key", accessKey).
				Msg("comprobante recibido pero la consulta de autorización falló, queda pendiente")
			return &billing.AuthorityReceipt{Status: entity.StatusReceived, AccessKey: accessKey}, nil
		}
		receipt.AccessKey = accessKey
		return receipt, nil
	case estadoDevuelta:
		return &billing.AuthorityReceipt{
			Status:    entity.StatusReturned,
			AccessKey: accessKey,
			Message:   collectMessages(respDoc),
		}, nil
	default:
		return nil, fmt.Errorf("sri: estado de recepción desconocido %q", estado)
	}
}

// ── CheckStatus ────────────────────────────────────────────────────────────────

// CheckStatus consulta la autorización de un comprobante por clave de acceso.
func (c *Client) CheckStatus(ctx context.Context, accessKey string) (*billing.AuthorityReceipt, error) {
	body := buildAutorizacionComprobante(accessKey)
	respDoc, err := c.call(ctx, c.authorizationURL, body)
	if err != nil {
		return nil, fmt.Errorf("sri: autorización: %w", err)
	}

	auth := respDoc.FindElement("//autorizacion")
	if auth == nil {
		// El SRI aún no registra la autorización: sigue en cola.
		return &billing.AuthorityReceipt{Status: entity.StatusPending, AccessKey: accessKey}, nil
	}

	estado := childText(auth, "estado")
	receipt := &billing.AuthorityReceipt{
		AccessKey: accessKey,
		Message:   collectMessages(respDoc),
	}
	switch estado {
	case estadoAutorizado:
		receipt.Status = entity.StatusAuthorized
		receipt.AuthorizationNumber = childText(auth, "numeroAutorizacion")
	case estadoNoAutorizado:
		receipt.Status = entity.StatusNotAuthorized
	case estadoRechazada:
		receipt.Status = entity.StatusRejected
	case estadoEnProceso, "EN PROCESAMIENTO", "PPR":
		receipt.Status = entity.StatusProcessing
	default:
		return nil, fmt.Errorf("sri: estado de autorización desconocido %q", estado)
	}
	return receipt, nil
}

// ── Construcción y transporte de envelopes ─────────────────────────────────────

func buildValidarComprobante(comprobante []byte) *etree.Document {
	doc, bodyEl := newEnvelope(nsRecepcion)
	op := bodyEl.CreateElement("ec:validarComprobante")
	op.CreateElement("xml").SetText(base64.StdEncoding.EncodeToString(comprobante))
	return doc
}

func buildAutorizacionComprobante(accessKey string) *etree.Document {
	doc, bodyEl := newEnvelope(nsAutorizacion)
	op := bodyEl.CreateElement("ec:autorizacionComprobante")
	op.CreateElement("claveAccesoComprobante").SetText(accessKey)
	return doc
}

func newEnvelope(operationNS string) (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", soapNS)
	env.CreateAttr("xmlns:ec", operationNS)
	env.CreateElement("soapenv:Header")
	return doc, env.CreateElement("soapenv:Body")
}

// call hace el POST SOAP y devuelve el documento de respuesta parseado.
// Un SOAP Fault se reporta como error de transporte: no es un veredicto del SRI.
func (c *Client) call(ctx context.Context, url string, envelope *etree.Document) (*etree.Document, error) {
	payload, err := envelope.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("timeout o cancelación: %w", ctx.Err())
		}
		return nil, fmt.Errorf("llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // max 4 MB
	if err != nil {
		return nil, fmt.Errorf("leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d del WS SRI", resp.StatusCode)
	}

	respDoc := etree.NewDocument()
	if err := respDoc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parsear respuesta SOAP: %w", err)
	}
	if fault := respDoc.FindElement("//Fault"); fault != nil {
		return nil, fmt.Errorf("SOAP Fault: %s", childText(fault, "faultstring"))
	}
	return respDoc, nil
}

// ── Lectura de respuestas ──────────────────────────────────────────────────────

func findText(doc *etree.Document, tag string) string {
	if el := doc.FindElement("//" + tag); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

func childText(parent *etree.Element, tag string) string {
	if el := parent.FindElement(tag); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// collectMessages concatena los mensajes del SRI (identificador: mensaje).
func collectMessages(doc *etree.Document) string {
	var parts []string
	for _, m := range doc.FindElements("//mensaje") {
		// El tag <mensaje> aparece como contenedor y como campo de texto.
		if len(m.ChildElements()) == 0 {
			continue
		}
		id := childText(m, "identificador")
		text := childText(m, "mensaje")
		info := childText(m, "informacionAdicional")
		part := text
		if id != "" {
			part = id + ": " + text
		}
		if info != "" {
			part += " (" + info + ")"
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "; ")
}
