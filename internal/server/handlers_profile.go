package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/profile"
)

// Blob store categories.
const (
	categoryCoverLetters = "cover-letters"
	categoryResumes      = "resumes"
)

// CoverLetterUploadResponse reports how many samples were stored and which
// files were skipped.
type CoverLetterUploadResponse struct {
	Stored   int             `json:"stored"`
	Warnings []UploadWarning `json:"warnings"`
}

// handleUploadCoverLetters stores every readable file as a new sample.
func (s *Server) handleUploadCoverLetters(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := r.Context()

	headers, err := s.parseUploads(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := CoverLetterUploadResponse{Warnings: []UploadWarning{}}
	var lastErr error
	for _, u := range s.extractUploads(ctx, headers) {
		if u.Err == nil {
			u.Err = s.storeCoverLetter(ctx, user.ID, u)
		}
		if u.Err != nil {
			lastErr = u.Err
			s.logger.Warn(ctx, "skipped cover letter upload", "user_id", user.ID, "filename", u.Filename, "error", u.Err)
			resp.Warnings = append(resp.Warnings, UploadWarning{Filename: u.Filename, Error: Classify(u.Err).Message})
			continue
		}
		resp.Stored++
	}

	if resp.Stored == 0 {
		if len(headers) == 1 {
			s.fail(w, r, lastErr)
			return
		}
		s.fail(w, r, &APIError{Status: http.StatusBadRequest, Kind: KindUnreadableFile, Message: "None of the uploaded files could be read.", Cause: lastErr})
		return
	}

	s.logger.Info(ctx, "cover letters uploaded", "user_id", user.ID, "stored", resp.Stored, "skipped", len(resp.Warnings))
	s.jsonResponse(w, r, http.StatusOK, resp)
}

func (s *Server) storeCoverLetter(ctx context.Context, userID uuid.UUID, u upload) error {
	location, err := s.storeOriginal(ctx, userID, categoryCoverLetters, u)
	if err != nil {
		return err
	}
	_, err = s.profiles.AddCoverLetter(ctx, userID, profile.CoverLetterInput{
		Content:    u.Text,
		Filename:   u.Filename,
		StoredPath: location,
	})
	if err != nil {
		s.deleteOriginal(ctx, location)
		return err
	}
	return nil
}

// handleListCoverLetters returns the samples in upload order.
func (s *Server) handleListCoverLetters(w http.ResponseWriter, r *http.Request) {
	letters, err := s.profiles.ListCoverLetters(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"cover_letters": letters})
}

// handleAnalyzeStyle summarizes the stored samples and replaces the saved style.
func (s *Server) handleAnalyzeStyle(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := r.Context()

	texts, err := s.profiles.CoverLetterTexts(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(texts) == 0 {
		s.fail(w, r, badRequest(KindMissingCoverLetters, msgUploadCoverLetters))
		return
	}

	style, err := s.analyzeAndSave(ctx, user.ID, texts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"writing_style": style})
}

func (s *Server) analyzeAndSave(ctx context.Context, userID uuid.UUID, texts []string) (*profile.WritingStyle, error) {
	analysis, err := s.analyzer.Analyze(ctx, texts)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.SetWritingStyle(ctx, userID, analysis); err != nil {
		return nil, err
	}
	return s.profiles.GetWritingStyle(ctx, userID)
}

// handleGetStyle returns the saved style or null.
func (s *Server) handleGetStyle(w http.ResponseWriter, r *http.Request) {
	style, err := s.profiles.GetWritingStyle(r.Context(), currentUser(r).ID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"writing_style": style})
}

// handleUploadMasterResume extracts one file and replaces the master resume.
func (s *Server) handleUploadMasterResume(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := r.Context()

	headers, err := s.parseUploads(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(headers) != 1 {
		s.fail(w, r, badRequest(KindValidation, "Upload exactly one resume file."))
		return
	}

	u := s.extractUpload(headers[0])
	if u.Err != nil {
		s.fail(w, r, u.Err)
		return
	}

	location, err := s.storeOriginal(ctx, user.ID, categoryResumes, u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	previous, err := s.profiles.SetMasterResume(ctx, user.ID, profile.ResumeInput{
		Content:    u.Text,
		Filename:   u.Filename,
		StoredPath: location,
	})
	if err != nil {
		s.deleteOriginal(ctx, location)
		s.fail(w, r, err)
		return
	}
	if previous != "" && previous != location {
		s.deleteOriginal(ctx, previous)
	}

	resume, err := s.profiles.GetMasterResume(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info(ctx, "master resume replaced", "user_id", user.ID, "filename", u.Filename)
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"master_resume": resume})
}

// handleGetMasterResume returns the master resume or null.
func (s *Server) handleGetMasterResume(w http.ResponseWriter, r *http.Request) {
	resume, err := s.profiles.GetMasterResume(r.Context(), currentUser(r).ID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"master_resume": resume})
}

// handleExtractText returns the text of one upload without storing anything.
func (s *Server) handleExtractText(w http.ResponseWriter, r *http.Request) {
	headers, err := s.parseUploads(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(headers) != 1 {
		s.fail(w, r, badRequest(KindValidation, "Upload exactly one file."))
		return
	}

	u := s.extractUpload(headers[0])
	if u.Err != nil {
		s.fail(w, r, u.Err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]string{"text": u.Text, "filename": u.Filename})
}
