package server

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"leaddesk/internal/util"
	"leaddesk/pkg/domain"
	"leaddesk/pkg/storage"
	"leaddesk/services/site/internal/app"
)

type collectionRoute struct {
	coll  domain.Collection
	label string
}

var (
	contacts     = collectionRoute{coll: domain.CollectionContacts, label: "Contact"}
	applications = collectionRoute{coll: domain.CollectionApplications, label: "Application"}
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
}

// public handlers

func (s *Server) handleSubmitContact(w http.ResponseWriter, r *http.Request) {
	var req app.ContactInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sub, err := s.app.SubmitContact(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	util.LoggerFromContext(r.Context()).Info("contact submitted", "submission_id", sub.ID)
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleSubmitApplication(w http.ResponseWriter, r *http.Request) {
	var req app.ApplicationInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sub, err := s.app.SubmitApplication(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	util.LoggerFromContext(r.Context()).Info("application submitted", "submission_id", sub.ID)
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handlePublicBlog(w http.ResponseWriter, r *http.Request) {
	posts, err := s.app.PublicPosts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handlePublicPost(w http.ResponseWriter, r *http.Request) {
	slug, ok := pathParam(w, r, "slug")
	if !ok {
		return
	}
	post, err := s.app.GetPost(r.Context(), slug)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	obj, err := s.app.OpenFile(r.Context(), name)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	defer obj.Body.Close()
	w.Header().Set("Content-Type", storage.ContentType(obj.Info.Name))
	if obj.Info.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		util.LoggerFromContext(r.Context()).Warn("file stream interrupted", "name", obj.Info.Name, "err", err)
	}
}

// admin auth handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "admin.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.audit(r, "admin.login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	res, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "admin.login", "fail", "reason", "invalid_credentials")
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "admin.login", "success", "email", res.Email)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, verifyResponse{Valid: true, Email: adminEmail(r)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Stats(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// submissions

func (s *Server) handleListSubmissions(c collectionRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := s.app.ListSubmissions(r.Context(), c.coll, r.URL.Query().Get("status"))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) handleUpdateSubmission(c collectionRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch domain.SubmissionPatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		id, ok := pathParam(w, r, "id")
		if !ok {
			return
		}
		updated, err := s.app.UpdateSubmission(r.Context(), c.coll, id, patch)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		s.audit(r, "admin."+string(c.coll)+".update", "success", "id", id)
		writeJSON(w, http.StatusOK, updated)
	}
}

func (s *Server) handleDeleteSubmission(c collectionRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathParam(w, r, "id")
		if !ok {
			return
		}
		if err := s.app.DeleteSubmission(r.Context(), c.coll, id); err != nil {
			writeAppError(w, r, err)
			return
		}
		s.audit(r, "admin."+string(c.coll)+".delete", "success", "id", id)
		writeMessage(w, c.label+" deleted successfully")
	}
}

// blog

func (s *Server) handleAdminBlog(w http.ResponseWriter, r *http.Request) {
	posts, err := s.app.AdminPosts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req app.PostInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	post, err := s.app.CreatePost(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "admin.blog.create", "success", "slug", post.Slug)
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req app.PostInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	slug, ok := pathParam(w, r, "slug")
	if !ok {
		return
	}
	post, err := s.app.UpdatePost(r.Context(), slug, req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "admin.blog.update", "success", "slug", slug, "new_slug", post.Slug)
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	slug, ok := pathParam(w, r, "slug")
	if !ok {
		return
	}
	if err := s.app.DeletePost(r.Context(), slug); err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "admin.blog.delete", "success", "slug", slug)
	writeMessage(w, "Blog post deleted successfully")
}

// files

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.app.ListFiles(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// handleUploadFile streams the "file" part of a multipart body straight into
// the file store.
func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}
	part, err := nextFilePart(mr)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, errMissingFilePart) {
			writeUploadError(w, r, err)
			return
		}
		writeError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}
	defer part.Close()

	uploaded, err := s.app.UploadFile(r.Context(), part.FileName(), part)
	if err != nil {
		writeUploadError(w, r, err)
		return
	}
	s.audit(r, "admin.files.upload", "success", "name", uploaded.Name, "size", uploaded.Size)
	writeJSON(w, http.StatusOK, uploaded)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	if err := s.app.DeleteFile(r.Context(), name); err != nil {
		writeAppError(w, r, err)
		return
	}
	s.audit(r, "admin.files.delete", "success", "name", name)
	writeMessage(w, "File deleted successfully")
}

// pathParam returns a route parameter in decoded form. chi matches on
// RawPath when the request carries one, and then hands back the escaped
// segment; stored names may contain ',' or ';' which url.PathEscape encodes.
func pathParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, true
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not Found")
		return "", false
	}
	return decoded, true
}

var errMissingFilePart = errors.New("missing file part")

func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errMissingFilePart
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func writeUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file too large")
	case errors.Is(err, errMissingFilePart):
		writeError(w, http.StatusBadRequest, "file field is required")
	default:
		writeAppError(w, r, err)
	}
}
