package intacct

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
)

// Response is the parsed gateway envelope. The gateway mirrors the request
// shape: a control block, then one operation with an authentication section
// and one result per submitted function.
type Response struct {
	XMLName      xml.Name       `xml:"response"`
	Control      ControlResult  `xml:"control"`
	ErrorMessage *ErrorMessage  `xml:"errormessage"`
	Operation    *OperationBody `xml:"operation"`
}

// ControlResult is the response control block.
type ControlResult struct {
	Status    string `xml:"status"`
	ControlID string `xml:"controlid"`
}

// OperationBody holds the per-operation sections of a response.
type OperationBody struct {
	Authentication AuthenticationResult `xml:"authentication"`
	Results        []Result             `xml:"result"`
	ErrorMessage   *ErrorMessage        `xml:"errormessage"`
}

// AuthenticationResult reports whether the session or login was accepted.
type AuthenticationResult struct {
	Status         string `xml:"status"`
	UserID         string `xml:"userid"`
	CompanyID      string `xml:"companyid"`
	SessionTimeout string `xml:"sessiontimeout"`
}

// Result is one per-function outcome, tagged with the control id the
// request assigned to that function.
type Result struct {
	Status       string        `xml:"status"`
	Function     string        `xml:"function"`
	ControlID    string        `xml:"controlid"`
	Key          string        `xml:"key"`
	Data         ResultData    `xml:"data"`
	ErrorMessage *ErrorMessage `xml:"errormessage"`
}

// ResultData keeps the dynamic payload section unparsed; its element names
// depend on the function that produced it.
type ResultData struct {
	ListType string `xml:"listtype,attr"`
	Count    int    `xml:"count,attr"`
	Inner    []byte `xml:",innerxml"`
}

// ErrorMessage is the gateway's error structure, one or more <error>
// entries with numbered descriptions.
type ErrorMessage struct {
	Errors []GatewayError `xml:"error"`
}

// GatewayError is a single gateway error entry.
type GatewayError struct {
	ErrorNo      string `xml:"errorno"`
	Description  string `xml:"description"`
	Description2 string `xml:"description2"`
	Correction   string `xml:"correction"`
}

// Message flattens the error entries into one line.
func (m *ErrorMessage) Message() string {
	if m == nil || len(m.Errors) == 0 {
		return "unknown gateway error"
	}
	parts := make([]string, 0, len(m.Errors))
	for _, e := range m.Errors {
		desc := e.Description2
		if desc == "" {
			desc = e.Description
		}
		if e.ErrorNo != "" {
			desc = e.ErrorNo + ": " + desc
		}
		parts = append(parts, desc)
	}
	return strings.Join(parts, "; ")
}

// Err converts a failed result into a remote-operation error; successful
// results return nil.
func (r Result) Err() error {
	if r.Status == "success" {
		return nil
	}
	return fmt.Errorf("%w: %s", syncdomain.ErrRemoteOperationFailed, r.ErrorMessage.Message())
}

// parseResponse decodes a raw gateway body. Any body that does not decode
// into the envelope shape is a fatal malformed response.
func parseResponse(body []byte) (*Response, error) {
	var resp Response
	if err := xml.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", syncdomain.ErrMalformedResponse, err)
	}
	return &resp, nil
}

// parseDataRecords flattens the dynamic <data> section into one map per
// top-level record element, keeping scalar fields only. Nested structures
// (contact blocks, line lists) are not needed for reference resolution.
func parseDataRecords(inner []byte) ([]map[string]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(inner))
	var records []map[string]string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", syncdomain.ErrMalformedResponse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		record, err := decodeFlatRecord(dec, start)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeFlatRecord(dec *xml.Decoder, start xml.StartElement) (map[string]string, error) {
	record := make(map[string]string)
	depth := 0
	field := ""
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", syncdomain.ErrMalformedResponse, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				field = t.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth == 1 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				return record, nil
			}
			if depth == 1 && field != "" {
				if v := strings.TrimSpace(text.String()); v != "" {
					record[field] = v
				}
				field = ""
			}
			depth--
		}
	}
}

// recordNo extracts the remote record number from a create/update result.
// Legacy functions report it as a bare <key> instead of a data record.
func (r Result) RecordNo() string {
	if len(r.Data.Inner) > 0 {
		if records, err := parseDataRecords(r.Data.Inner); err == nil && len(records) > 0 {
			if no, ok := records[0]["RECORDNO"]; ok {
				return no
			}
		}
	}
	return r.Key
}
