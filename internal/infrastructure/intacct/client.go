package intacct

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
)

// queryPageSize matches the gateway's maximum page size.
const queryPageSize = 1000

// Client issues single-function session-authenticated calls: reference
// queries, supdoc lookups and the compensating supdoc delete. Batched
// record writes go through the Correlator instead.
type Client struct {
	transport *Transport
	sessions  *SessionManager
	creds     Credentials
	log       *zap.Logger
	now       func() time.Time
}

// NewClient wires a client over a shared transport and session manager.
func NewClient(transport *Transport, sessions *SessionManager, creds Credentials, log *zap.Logger) *Client {
	return &Client{
		transport: transport,
		sessions:  sessions,
		creds:     creds,
		log:       log.Named("client"),
		now:       time.Now,
	}
}

// call submits one function under scope and returns its result.
func (c *Client) call(ctx context.Context, scope syncdomain.ScopeID, controlID string, body *Element) (Result, error) {
	session, err := c.sessions.EnsureSession(ctx, scope)
	if err != nil {
		return Result{}, err
	}

	envelope := sessionEnvelope(c.creds, session.Token, []Function{{ControlID: controlID, Body: body}}, false, c.now())
	raw, err := envelope.Encode()
	if err != nil {
		return Result{}, fmt.Errorf("intacct: encoding request: %w", err)
	}

	respBody, err := c.transport.Send(ctx, raw)
	if err != nil {
		return Result{}, err
	}
	resp, err := parseResponse(respBody)
	if err != nil {
		return Result{}, err
	}
	if resp.Operation == nil {
		return Result{}, fmt.Errorf("%w: %s", syncdomain.ErrMalformedResponse, resp.ErrorMessage.Message())
	}
	if resp.Operation.Authentication.Status != "success" {
		return Result{}, fmt.Errorf("%w: session rejected", syncdomain.ErrAuthenticationFailed)
	}
	if len(resp.Operation.Results) == 0 {
		return Result{}, fmt.Errorf("%w: response carried no result", syncdomain.ErrMalformedResponse)
	}
	return resp.Operation.Results[0], nil
}

// GetRecords pages through a query for one remote object, returning the
// flattened field maps of every matching record.
func (c *Client) GetRecords(ctx context.Context, scope syncdomain.ScopeID, object string, fields []string, filter *Element) ([]map[string]string, error) {
	var all []map[string]string
	offset := 0
	for {
		sel := El("select")
		for _, f := range fields {
			sel.AppendText("field", f)
		}
		query := El("query",
			Text("object", object),
			sel,
		)
		query.Append(filter)
		query.Append(
			El("options", Text("showprivate", "true")),
			Text("pagesize", strconv.Itoa(queryPageSize)),
			Text("offset", strconv.Itoa(offset)),
		)

		result, err := c.call(ctx, scope, fmt.Sprintf("query-%s-%d", object, offset), query)
		if err != nil {
			return nil, err
		}
		if err := result.Err(); err != nil {
			return nil, err
		}

		records, err := parseDataRecords(result.Data.Inner)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)

		offset += queryPageSize
		if offset > result.Data.Count {
			break
		}
	}
	c.log.Debug("fetched reference records",
		zap.String("object", object),
		zap.Int("count", len(all)))
	return all, nil
}

// InFilter builds an <in> filter over one field.
func InFilter(field string, values []string) *Element {
	in := El("in", Text("field", field))
	for _, v := range values {
		in.AppendText("value", v)
	}
	return El("filter", in)
}

// supDocData is the nested attachment listing of one supdoc.
type supDocData struct {
	XMLName     xml.Name           `xml:"supdoc"`
	SupDocID    string             `xml:"supdocid"`
	FolderName  string             `xml:"supdocfoldername"`
	Attachments []AttachmentRecord `xml:"attachments>attachment"`
}

// AttachmentRecord is one attachment already present on a remote supdoc.
type AttachmentRecord struct {
	Name string `xml:"attachmentname"`
	Type string `xml:"attachmenttype"`
	Data string `xml:"attachmentdata"`
}

// GetSupDoc fetches an attachment bundle by id. A nil bundle with nil error
// means the supdoc does not exist.
func (c *Client) GetSupDoc(ctx context.Context, scope syncdomain.ScopeID, supDocID string) (*SupDoc, error) {
	body := El("get").Attr("object", "supdoc").Attr("key", supDocID)
	result, err := c.call(ctx, scope, "get-supdoc-"+supDocID, body)
	if err != nil {
		return nil, err
	}
	if result.Err() != nil || len(result.Data.Inner) == 0 {
		return nil, nil
	}
	var data supDocData
	if err := xml.Unmarshal(result.Data.Inner, &data); err != nil || data.SupDocID == "" {
		return nil, nil
	}
	return &SupDoc{ID: data.SupDocID, FolderName: data.FolderName, Attachments: data.Attachments}, nil
}

// SupDoc describes a remote attachment bundle.
type SupDoc struct {
	ID          string
	FolderName  string
	Attachments []AttachmentRecord
}

// SupDocFolderExists checks for an attachment folder by name.
func (c *Client) SupDocFolderExists(ctx context.Context, scope syncdomain.ScopeID, name string) (bool, error) {
	body := El("get").Attr("object", "supdocfolder").Attr("key", name)
	result, err := c.call(ctx, scope, "get-supdocfolder-"+name, body)
	if err != nil {
		return false, err
	}
	if result.Err() != nil || len(result.Data.Inner) == 0 {
		return false, nil
	}
	records, err := parseDataRecords(result.Data.Inner)
	if err != nil {
		return false, nil
	}
	return len(records) > 0, nil
}

// DeleteSupDoc is the best-effort compensating delete for an attachment
// bundle uploaded alongside a record whose creation then failed.
func (c *Client) DeleteSupDoc(ctx context.Context, scope syncdomain.ScopeID, supDocID string) error {
	body := El("delete_supdoc").Attr("key", supDocID)
	result, err := c.call(ctx, scope, "delete-supdoc-"+supDocID, body)
	if err != nil {
		return err
	}
	return result.Err()
}
