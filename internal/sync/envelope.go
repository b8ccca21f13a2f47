package sync

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/internal/ingest"
)

// RequestVariant is one shape of the query envelope. The external system's
// accepted shape varies across versions, so variants are tried in order.
type RequestVariant struct {
	Name       string
	Collection string
	Version    int
}

// DefaultVariants returns the known envelope shapes, newest first.
func DefaultVariants() []RequestVariant {
	return []RequestVariant{
		{Name: "item-collection", Collection: "StockItems", Version: 2},
		{Name: "legacy-allstock", Collection: "AllStockItems", Version: 1},
	}
}

type requestEnvelope struct {
	XMLName xml.Name      `xml:"ENVELOPE"`
	Header  requestHeader `xml:"HEADER"`
	Body    requestBody   `xml:"BODY"`
}

type requestHeader struct {
	Version int    `xml:"VERSION"`
	Request string `xml:"REQTYPE"`
	ID      string `xml:"ID"`
}

type requestBody struct {
	Company  string `xml:"DESC>COMPANY"`
	Location string `xml:"DESC>LOCATION,omitempty"`
}

// Envelope renders the outbound request for a company and location.
func (v RequestVariant) Envelope(company, location string) ([]byte, error) {
	env := requestEnvelope{
		Header: requestHeader{
			Version: v.Version,
			Request: "EXPORT",
			ID:      v.Collection,
		},
		Body: requestBody{
			Company:  company,
			Location: location,
		},
	}
	body, err := xml.MarshalIndent(env, "", " ")
	if err != nil {
		return nil, fmt.Errorf("failed to build envelope: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// stockItem is one inbound item: name attribute plus child elements for
// parent/brand, base unit and the combined closing-balance string.
type stockItem struct {
	Name           string `xml:"NAME,attr"`
	Parent         string `xml:"PARENT"`
	BaseUnits      string `xml:"BASEUNITS"`
	ClosingBalance string `xml:"CLOSINGBALANCE"`
}

// parsedResponse is the digest of one response document.
type parsedResponse struct {
	Items    []domain.RawItem
	Fetched  int
	Invalid  int
	ErrorMsg string // embedded error indicator, empty when none
}

// parseResponse walks the response document without assuming a stable outer
// shape: STOCKITEM elements are collected wherever they appear, and any
// error element marks the response as failed.
func parseResponse(data []byte) (*parsedResponse, error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	out := &parsedResponse{}

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		local := strings.ToUpper(start.Name.Local)

		if local == "ERROR" || local == "LINEERROR" {
			var msg string
			if err := dec.DecodeElement(&msg, &start); err == nil {
				if msg = strings.TrimSpace(msg); msg != "" {
					out.ErrorMsg = msg
				}
			}
			continue
		}

		if local != "STOCKITEM" {
			continue
		}
		var item stockItem
		if err := dec.DecodeElement(&item, &start); err != nil {
			out.Fetched++
			out.Invalid++
			continue
		}
		out.Fetched++

		name := strings.TrimSpace(item.Name)
		if name == "" {
			out.Invalid++
			continue
		}

		raw := domain.RawItem{Name: name}
		if parent := strings.TrimSpace(item.Parent); parent != "" {
			raw.Brand = &parent
		}
		raw.Quantity, raw.Unit = ingest.SplitQtyUnit(item.ClosingBalance)
		if raw.Unit == nil {
			if unit := strings.TrimSpace(item.BaseUnits); unit != "" {
				raw.Unit = &unit
			}
		}
		out.Items = append(out.Items, raw)
	}

	if out.Fetched == 0 && out.ErrorMsg == "" {
		return out, fmt.Errorf("no stock items in response")
	}
	return out, nil
}
