package docmail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	soapEnvNS       = "http://schemas.xmlsoap.org/soap/envelope/"
	soapContentType = "text/xml; charset=utf-8"
	maxResponseSize = 64 << 20
)

// SOAP is the Transport speaking Docmail's SOAP 1.1 interface.
type SOAP struct {
	endpoint  string
	namespace string
	client    *http.Client
}

// NewSOAP returns a SOAP transport for cfg.
//
// A nil client gets an instrumented one bounded by cfg.Timeout.
func NewSOAP(cfg Config, client *http.Client) *SOAP {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		}
	}

	endpoint, _, _ := strings.Cut(cfg.WSDL, "?")

	return &SOAP{
		endpoint:  endpoint,
		namespace: strings.TrimSuffix(cfg.Namespace, "/") + "/",
		client:    client,
	}
}

func (s *SOAP) Call(ctx context.Context, proc string, params Params) (map[string]string, error) {
	body, err := s.envelope(proc, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", soapContentType)
	req.Header.Set("SOAPAction", `"`+s.namespace+proc+`"`)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	out, fault, err := s.decode(proc, raw)
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
		}
		return nil, err
	}
	if fault != "" {
		return nil, fmt.Errorf("soap fault: %s", fault)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	return out, nil
}

func (s *SOAP) envelope(proc string, params Params) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	env := doc.CreateElement("soap:Envelope")
	env.CreateAttr("xmlns:soap", soapEnvNS)
	body := env.CreateElement("soap:Body")

	call := body.CreateElement(proc)
	call.CreateAttr("xmlns", s.namespace)
	if err := writeParams(call, params); err != nil {
		return nil, err
	}

	return doc.WriteToBytes()
}

// writeParams appends params to parent in key order.
func writeParams(parent *etree.Element, params Params) error {
	for _, k := range slices.Sorted(maps.Keys(params)) {
		el := parent.CreateElement(k)
		switch v := params[k].(type) {
		case string:
			el.SetText(v)
		case bool:
			el.SetText(strconv.FormatBool(v))
		case int:
			el.SetText(strconv.Itoa(v))
		case float64:
			el.SetText(strconv.FormatFloat(v, 'f', -1, 64))
		case Params:
			if err := writeParams(el, v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("parameter %s has unsupported type %T", k, v)
		}
	}
	return nil
}

// decode flattens the children of <proc>Response, or returns the fault string.
func (s *SOAP) decode(proc string, raw []byte) (map[string]string, string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, "", fmt.Errorf("failed to parse envelope: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, "", errors.New("response has no soap envelope")
	}

	body := childByTag(root, "Body")
	if body == nil {
		return nil, "", errors.New("response has no soap body")
	}

	if fault := childByTag(body, "Fault"); fault != nil {
		msg := "unknown fault"
		if fs := childByTag(fault, "faultstring"); fs != nil {
			msg = fs.Text()
		}
		return nil, msg, nil
	}

	out := map[string]string{}
	if resp := childByTag(body, proc+"Response"); resp != nil {
		for _, el := range resp.ChildElements() {
			out[el.Tag] = el.Text()
		}
	}
	return out, "", nil
}

func childByTag(parent *etree.Element, tag string) *etree.Element {
	for _, el := range parent.ChildElements() {
		if el.Tag == tag {
			return el
		}
	}
	return nil
}
