package http

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"kern/internal/api"
	"kern/internal/format"
	"kern/internal/htmx"
	"kern/internal/log"
)

// MaxUploadSize bounds a document upload.
const MaxUploadSize = 20 << 20

type documentRow struct {
	ID          uuid.UUID
	Filename    string
	Type        string
	Size        string
	Status      api.DocumentStatus
	Uploaded    string
	Processable bool
	Error       string
}

type documentsData struct {
	Rows    []documentRow
	Paging  Paging
	Next    Paging
	Prev    Paging
	HasNext bool
	HasPrev bool
	Accept  string
}

func documentRowOf(d api.Document) documentRow {
	row := documentRow{
		ID:          d.ID,
		Filename:    d.Filename,
		Type:        format.OrPlaceholder(d.FileType),
		Size:        format.Placeholder,
		Status:      d.Status,
		Uploaded:    format.Date(d.UploadedAt.Time),
		Processable: d.Status == api.DocumentPending || d.Status == api.DocumentFailed,
	}
	if d.FileSize != nil && *d.FileSize >= 0 {
		row.Size = humanize.Bytes(uint64(*d.FileSize))
	}
	if d.ErrorMessage != nil {
		row.Error = *d.ErrorMessage
	}
	return row
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	paging := ParsePaging(r.URL.Query())
	paging.Status = ""

	resp, err := s.api.ListDocuments(r.Context(), api.ListDocumentsParams{Skip: paging.Skip, Limit: paging.Limit})
	if err != nil {
		s.apiFailed(w, r, "load documents", err)
		return
	}

	data := documentsData{
		Rows:    make([]documentRow, 0, len(resp.Data)),
		Paging:  paging,
		Next:    paging.Next(),
		Prev:    paging.Prev(),
		HasNext: len(resp.Data) >= paging.Limit,
		HasPrev: paging.Skip > 0,
		Accept:  strings.Join(api.UploadContentTypes, ","),
	}
	for _, d := range resp.Data {
		data.Rows = append(data.Rows, documentRowOf(d))
	}

	if htmx.IsRequest(r) {
		s.render(w, r, "documents_list", data)
		return
	}
	s.render(w, r, "documents_page", s.page(r, "Documents", data))
}

// uploadContentType picks the declared type of the part, falling back to
// the file extension.
func uploadContentType(declared, filename string) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if mt, _, err := mime.ParseMediaType(mime.TypeByExtension(filepath.Ext(filename))); err == nil {
		return mt
	}
	return declared
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "File is too large").Write(w)
			return
		}
		BadRequestError("Choose a file to upload").Write(w)
		return
	}
	defer file.Close()

	contentType := uploadContentType(header.Header.Get("Content-Type"), header.Filename)
	if !slices.Contains(api.UploadContentTypes, contentType) {
		BadRequestError("Unsupported file type: upload CSV, PDF or Excel").Write(w)
		return
	}

	resp, err := s.api.UploadDocument(ctx, filepath.Base(header.Filename), contentType, file)
	if err != nil {
		s.apiFailed(w, r, "upload document", err)
		return
	}

	log.FromContext(ctx).InfoContext(ctx, "Document uploaded",
		log.FieldOperation, log.OpUpload,
		"document_id", resp.Data.ID.String(),
		"size", header.Size)

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerDocumentsChanged().
		TriggerFormReset().
		TriggerSuccessNotification("Uploaded " + resp.Data.Filename).
		Write(w)
}

func (s *Server) handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		BadRequestError("Invalid document id").Write(w)
		return
	}

	resp, err := s.api.ProcessDocument(r.Context(), id)
	if err != nil {
		s.apiFailed(w, r, "process document", err)
		return
	}

	msg := resp.Data.Message
	if msg == "" {
		msg = "Processing started"
	}
	NewHTMXResponse().
		Status(http.StatusAccepted).
		TriggerDocumentsChanged().
		TriggerSuccessNotification(msg).
		Write(w)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := ParseIDParam(r, "id")
	if err != nil {
		BadRequestError("Invalid document id").Write(w)
		return
	}

	if _, err := s.api.DeleteDocument(r.Context(), id); err != nil {
		s.apiFailed(w, r, "delete document", err)
		return
	}

	NewHTMXResponse().
		TriggerDocumentsChanged().
		TriggerSuccessNotification("Document deleted").
		Write(w)
}
