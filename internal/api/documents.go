package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apierrors "github.com/dharsanguruparan/docdesk/internal/api/errors"
	"github.com/dharsanguruparan/docdesk/internal/api/middleware"
	"github.com/dharsanguruparan/docdesk/internal/model"
	pdfutil "github.com/dharsanguruparan/docdesk/internal/pdf"
	"github.com/dharsanguruparan/docdesk/internal/s3storage"
)

// errUpload marks problems with the uploaded file itself; they map to 400.
var errUpload = errors.New("invalid upload")

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.ClaimsFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+1024*1024)
	mr, err := r.MultipartReader()
	if err != nil {
		apierrors.ValidationError(w, "expecting multipart form")
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		apierrors.ValidationError(w, `multipart field "file" is required`)
		return
	}
	defer part.Close()

	tmp, err := s.persistTemp(part)
	if err != nil {
		if errors.Is(err, errUpload) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		s.logger.Error("buffer upload", zap.Error(err))
		apierrors.InternalError(w, "failed to read upload")
		return
	}
	defer tmp.cleanup()

	if err := s.checkContent(tmp); err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	objectKey := s3storage.ObjectKey(tmp.filename)
	if _, err := tmp.f.Seek(0, io.SeekStart); err != nil {
		s.logger.Error("rewind upload", zap.Error(err))
		apierrors.InternalError(w, "failed to store file")
		return
	}
	if err := s.deps.Files.Put(ctx, objectKey, tmp.f, tmp.size, tmp.contentType); err != nil {
		s.logger.Error("put object", zap.String("key", objectKey), zap.Error(err))
		apierrors.InternalError(w, "failed to store file")
		return
	}

	doc := &model.Document{UserID: caller.UserID, File: objectKey}
	if err := s.deps.Documents.Create(ctx, doc); err != nil {
		s.discardObject(objectKey)
		if errors.Is(err, model.ErrUnknownOwner) {
			apierrors.Forbidden(w, "unknown user")
			return
		}
		s.logger.Error("create document", zap.Error(err))
		apierrors.InternalError(w, "failed to store metadata")
		return
	}

	// The upload is committed; a lost admin email must not fail it.
	if err := s.deps.Queue.EnqueueAdminNotify(ctx, doc.ID); err != nil {
		s.logger.Error("enqueue admin notification", zap.Int64("document_id", doc.ID), zap.Error(err))
	}
	s.logger.Info("document uploaded",
		zap.Int64("document_id", doc.ID),
		zap.Int64("user_id", doc.UserID),
		zap.Int64("size", tmp.size),
		zap.String("content_type", tmp.contentType),
	)
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) discardObject(objectKey string) {
	// Detached so a cancelled request still cleans up.
	if err := s.deps.Files.Remove(context.Background(), objectKey); err != nil {
		s.logger.Warn("remove orphaned object", zap.String("key", objectKey), zap.Error(err))
	}
}

func (s *Server) handleListOwn(w http.ResponseWriter, r *http.Request) {
	caller := middleware.ClaimsFromContext(r.Context())
	docs, err := s.deps.Documents.ListByOwner(r.Context(), caller.UserID)
	if err != nil {
		s.logger.Error("list documents", zap.Error(err))
		apierrors.InternalError(w, "failed to list documents")
		return
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.ownedDocument(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.ownedDocument(w, r)
	if !ok {
		return
	}
	url, err := s.deps.Files.PresignGet(r.Context(), doc.File, s.cfg.Upload.DownloadURLTTL)
	if err != nil {
		s.logger.Error("presign download", zap.Int64("document_id", doc.ID), zap.Error(err))
		apierrors.InternalError(w, "failed to generate url")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"url":        url,
		"expires_in": int(s.cfg.Upload.DownloadURLTTL.Seconds()),
	})
}

// ownedDocument loads the {id} document and checks the caller owns it,
// writing the error response itself when not.
func (s *Server) ownedDocument(w http.ResponseWriter, r *http.Request) (*model.Document, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		apierrors.NotFound(w, "document not found")
		return nil, false
	}
	doc, err := s.deps.Documents.Get(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		apierrors.NotFound(w, "document not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("get document", zap.Int64("document_id", id), zap.Error(err))
		apierrors.InternalError(w, "failed to load document")
		return nil, false
	}
	if caller := middleware.ClaimsFromContext(r.Context()); doc.UserID != caller.UserID {
		apierrors.Forbidden(w, "you do not own this document")
		return nil, false
	}
	return doc, true
}

type tempUpload struct {
	f           *os.File
	size        int64
	contentType string
	filename    string
}

func (t *tempUpload) cleanup() {
	t.f.Close()
	os.Remove(t.f.Name())
}

// persistTemp streams part to a temp file, enforcing the size cap and
// sniffing the content type from the first 512 bytes.
func (s *Server) persistTemp(part *multipart.Part) (*tempUpload, error) {
	f, err := os.CreateTemp("", "docdesk-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmp := &tempUpload{f: f, filename: part.FileName()}

	limit := s.cfg.Upload.MaxFileSize
	var sniff []byte
	buf := make([]byte, 32*1024)
	for {
		n, readErr := part.Read(buf)
		if n > 0 {
			tmp.size += int64(n)
			if tmp.size > limit {
				tmp.cleanup()
				return nil, fmt.Errorf("%w: file exceeds limit (%d bytes)", errUpload, limit)
			}
			if len(sniff) < 512 {
				sniff = append(sniff, buf[:min(n, 512-len(sniff))]...)
			}
			if _, err := f.Write(buf[:n]); err != nil {
				tmp.cleanup()
				return nil, fmt.Errorf("write temp file: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.cleanup()
			var tooLarge *http.MaxBytesError
			if errors.As(readErr, &tooLarge) {
				return nil, fmt.Errorf("%w: file exceeds limit (%d bytes)", errUpload, limit)
			}
			return nil, fmt.Errorf("read upload: %w", readErr)
		}
	}
	if tmp.size == 0 {
		tmp.cleanup()
		return nil, fmt.Errorf("%w: the submitted file is empty", errUpload)
	}
	tmp.contentType = http.DetectContentType(sniff)
	return tmp, nil
}

// checkContent applies the type allow-list and validates PDFs.
func (s *Server) checkContent(tmp *tempUpload) error {
	mediaType, _, err := mime.ParseMediaType(tmp.contentType)
	if err != nil {
		mediaType = tmp.contentType
	}
	if allowed := s.cfg.Upload.AllowedTypes; len(allowed) > 0 && !typeAllowed(allowed, mediaType) {
		return fmt.Errorf("file type %s is not allowed", mediaType)
	}
	if mediaType != pdfutil.ContentType {
		return nil
	}
	if _, err := pdfutil.PageCount(tmp.f, tmp.size); err != nil {
		return fmt.Errorf("invalid pdf: %v", err)
	}
	return nil
}

func typeAllowed(allowed []string, mediaType string) bool {
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), mediaType) {
			return true
		}
	}
	return false
}

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		part.Close()
	}
}
