package mappers

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	syncdomain "github.com/connectorhq/intacct-sync/internal/domain/sync"
	"github.com/connectorhq/intacct-sync/internal/domain/unified"
	"github.com/connectorhq/intacct-sync/internal/infrastructure/intacct"
)

// supDocIDMaxLen is the gateway's limit on supdoc identifiers.
const supDocIDMaxLen = 20

// FormatSupDocID derives a stable supdoc identifier from a record type and
// id, squeezed into the gateway's length limit.
func FormatSupDocID(recordType, recordID string) string {
	id := strings.ReplaceAll(recordType+"-"+recordID, "-", "")
	if len(id) > supDocIDMaxLen {
		id = id[len(id)-supDocIDMaxLen:]
	}
	return id
}

// SupDocFolderName names the attachment folder for one bill.
func SupDocFolderName(recordID string) string {
	return "bill-" + recordID
}

// Fetcher fetches attachment content by URL. *http.Client satisfies it.
type Fetcher interface {
	Get(url string) (*http.Response, error)
}

// MappedAttachment is one attachment ready to upload.
type MappedAttachment struct {
	Name string
	Type string
	Data string
}

// AttachmentMapper turns unified attachments into base64 supdoc entries,
// reading content from a URL or from the configured input directory.
type AttachmentMapper struct {
	InputDir string
	Fetcher  Fetcher
	Log      *zap.Logger
}

// Map loads one attachment's content and skips it when the remote supdoc
// already holds an attachment with the same name or identical content.
func (m AttachmentMapper) Map(att unified.Attachment, existing []intacct.AttachmentRecord) (*MappedAttachment, error) {
	if att.Name == "" {
		return nil, fmt.Errorf("%w: attachment name is required", syncdomain.ErrMissingReference)
	}
	ext := filepath.Ext(att.Name)
	if ext == "" {
		return nil, fmt.Errorf("%w: attachment %q has no file extension", syncdomain.ErrMissingReference, att.Name)
	}
	name := strings.TrimSuffix(att.Name, ext)
	attType := strings.TrimPrefix(ext, ".")

	data, err := m.load(att)
	if err != nil {
		return nil, err
	}

	for _, ex := range existing {
		if ex.Name == name && ex.Type == attType {
			m.Log.Info("attachment already exists, skipping",
				zap.String("name", att.Name))
			return nil, nil
		}
		if ex.Data == data {
			m.Log.Info("attachment with identical content already exists, skipping",
				zap.String("name", att.Name))
			return nil, nil
		}
	}

	return &MappedAttachment{Name: name, Type: attType, Data: data}, nil
}

func (m AttachmentMapper) load(att unified.Attachment) (string, error) {
	if att.URL != "" {
		resp, err := m.Fetcher.Get(att.URL)
		if err != nil {
			return "", fmt.Errorf("mappers: fetching attachment from %s: %w", att.URL, err)
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("mappers: reading attachment from %s: %w", att.URL, err)
		}
		return base64.StdEncoding.EncodeToString(raw), nil
	}

	path := filepath.Join(m.InputDir, att.Name)
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: attachment file %s: %v", syncdomain.ErrMissingReference, path, err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// SupDocFunction builds a create_supdoc/update_supdoc function body.
func SupDocFunction(update bool, supDocID, folderName string, attachments []MappedAttachment) *intacct.Element {
	name := "create_supdoc"
	if update {
		name = "update_supdoc"
	}
	atts := intacct.El("attachments")
	for _, a := range attachments {
		atts.Append(intacct.El("attachment",
			intacct.Text("attachmentname", a.Name),
			intacct.Text("attachmenttype", a.Type),
			intacct.Text("attachmentdata", a.Data),
		))
	}
	return intacct.El(name,
		intacct.Text("supdocid", supDocID),
		intacct.Text("supdocfoldername", folderName),
		atts,
	)
}

// SupDocFolderFunction builds a create_supdocfolder function body.
func SupDocFolderFunction(folderName string) *intacct.Element {
	return intacct.El("create_supdocfolder",
		intacct.Text("supdocfoldername", folderName),
	)
}
