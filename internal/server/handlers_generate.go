package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/auth"
	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/generation"
	"github.com/jonathan/resume-optimizer/internal/profile"
	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/storage"
)

// GenerateResumeRequest is the body of POST /generate/resume.
type GenerateResumeRequest struct {
	JobDescription string `json:"job_description" validate:"required_without=JobURL"`
	JobURL         string `json:"job_url" validate:"omitempty,http_url"`
	Format         string `json:"format" validate:"omitempty,oneof=text latex latex_fragment"`
}

// GenerateCoverLetterRequest is the body of POST /generate/cover-letter.
type GenerateCoverLetterRequest struct {
	JobDescription string `json:"job_description" validate:"required_without=JobURL"`
	JobURL         string `json:"job_url" validate:"omitempty,http_url"`
	Company        string `json:"company" validate:"max=200"`
	Title          string `json:"title" validate:"max=200"`
}

// GenerateResponse carries a generated document. ArtifactID is omitted when
// the document could not be saved.
type GenerateResponse struct {
	ArtifactID *uuid.UUID `json:"artifact_id,omitempty"`
	Kind       string     `json:"kind"`
	Format     string     `json:"format"`
	Content    string     `json:"content"`
}

// generationInputs is what both generators need from the profile.
type generationInputs struct {
	resume         string
	style          string
	jobDescription string
}

// handleGenerateResume writes a resume tailored to the job.
func (s *Server) handleGenerateResume(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := r.Context()

	var req GenerateResumeRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	format, err := generation.ParseFormat(req.Format)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	in, err := s.loadInputs(ctx, user, req.JobDescription, req.JobURL)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	content, err := s.generator.GenerateResume(ctx, generation.ResumeRequest{
		MasterResume:   in.resume,
		JobDescription: in.jobDescription,
		StyleSummary:   in.style,
		Format:         format,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := GenerateResponse{Kind: profile.KindResume, Format: string(format), Content: content}
	resp.ArtifactID = s.saveArtifact(ctx, user.ID, profile.ArtifactInput{
		Kind:    profile.KindResume,
		Format:  string(format),
		JobKey:  profile.JobKey(string(format), in.jobDescription, "", ""),
		Content: content,
	})
	s.jsonResponse(w, r, http.StatusOK, resp)
}

// handleGenerateCoverLetter writes a cover letter for the job in the user's voice.
func (s *Server) handleGenerateCoverLetter(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	ctx := r.Context()

	var req GenerateCoverLetterRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	in, err := s.loadInputs(ctx, user, req.JobDescription, req.JobURL)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	company := strings.TrimSpace(req.Company)
	title := strings.TrimSpace(req.Title)
	content, err := s.generator.GenerateCoverLetter(ctx, generation.CoverLetterRequest{
		MasterResume:   in.resume,
		JobDescription: in.jobDescription,
		StyleSummary:   in.style,
		Company:        company,
		Title:          title,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	format := string(generation.FormatText)
	resp := GenerateResponse{Kind: profile.KindCoverLetter, Format: format, Content: content}
	resp.ArtifactID = s.saveArtifact(ctx, user.ID, profile.ArtifactInput{
		Kind:     profile.KindCoverLetter,
		Format:   format,
		JobKey:   profile.JobKey(format, in.jobDescription, company, title),
		JobTitle: title,
		Company:  company,
		Content:  content,
	})
	s.jsonResponse(w, r, http.StatusOK, resp)
}

// loadInputs resolves the job description and reads the master resume and
// writing style. A missing style is derived from stored cover letters when
// there are any; otherwise the generator falls back to its default style.
func (s *Server) loadInputs(ctx context.Context, user *auth.User, jobDescription, jobURL string) (*generationInputs, error) {
	resume, err := s.profiles.GetMasterResume(ctx, user.ID)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, badRequest(KindMissingResume, msgUploadResume)
	}
	if err != nil {
		return nil, err
	}

	jd, err := s.jobDescription(ctx, jobDescription, jobURL)
	if err != nil {
		return nil, err
	}

	return &generationInputs{
		resume:         resume.Content,
		style:          s.writingStyle(ctx, user),
		jobDescription: jd,
	}, nil
}

// jobDescription prefers pasted text. Pasted HTML is reduced to text; a URL is
// fetched only when fetching is enabled.
func (s *Server) jobDescription(ctx context.Context, text, url string) (string, error) {
	if text = strings.TrimSpace(text); text != "" {
		if fetch.LooksLikeHTML(text) {
			text = fetch.HTMLToText(text)
		}
		return text, nil
	}
	if url == "" {
		return "", generation.ErrMissingInput
	}
	if s.fetcher == nil {
		return "", badRequest(KindValidation, "Fetching job descriptions by URL is disabled. Paste the job description instead.")
	}
	return s.fetcher.JobDescription(ctx, url)
}

// writingStyle returns the saved style summary, analyzing stored cover
// letters on first use. Failures degrade to the default style.
func (s *Server) writingStyle(ctx context.Context, user *auth.User) string {
	style, err := s.profiles.GetWritingStyle(ctx, user.ID)
	if err == nil {
		return style.Analysis
	}
	if !errors.Is(err, profile.ErrNotFound) {
		s.logger.Warn(ctx, "failed to read writing style, using default", "user_id", user.ID, "error", err)
		return ""
	}

	texts, err := s.profiles.CoverLetterTexts(ctx, user.ID)
	if err != nil || len(texts) == 0 {
		if err != nil {
			s.logger.Warn(ctx, "failed to read cover letters, using default style", "user_id", user.ID, "error", err)
		}
		return ""
	}
	style, err = s.analyzeAndSave(ctx, user.ID, texts)
	if err != nil {
		s.logger.Warn(ctx, "style analysis failed, using default style", "user_id", user.ID, "error", err)
		return ""
	}
	return style.Analysis
}

// saveArtifact stores a generated document. A failed save is logged and the
// document is still returned to the client.
func (s *Server) saveArtifact(ctx context.Context, userID uuid.UUID, in profile.ArtifactInput) *uuid.UUID {
	a, err := s.profiles.SaveArtifact(ctx, userID, in)
	if err != nil {
		s.logger.Error(ctx, "failed to save generated artifact", "user_id", userID, "kind", in.Kind, "error", err)
		return nil
	}
	return &a.ID
}

// handleListArtifacts returns artifact summaries without content.
func (s *Server) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	artifacts, err := s.profiles.ListArtifacts(r.Context(), currentUser(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"artifacts": artifacts})
}

// handleGetArtifact returns one artifact with content.
func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	artifact, err := s.artifactFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, map[string]any{"artifact": artifact})
}

// handleArtifactDocument downloads an artifact. Latex resumes are wrapped in
// the document template; everything else is sent as plain text.
func (s *Server) handleArtifactDocument(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	artifact, err := s.artifactFromPath(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	base := storage.SanitizeFilename(strings.TrimSpace(artifact.Kind + " " + artifact.Company))
	body, contentType, ext := artifact.Content, "text/plain; charset=utf-8", ".txt"

	if artifact.Format == string(generation.FormatLatexFragment) {
		body, err = s.renderer.Render(artifact.Content, rendering.Header{
			Name:  strings.TrimSpace(r.URL.Query().Get("name")),
			Email: user.Email,
		})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		contentType, ext = "application/x-tex", ".tex"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s%s"`, base, ext))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		s.logger.Warn(r.Context(), "failed to write document", "error", err)
	}
}

func (s *Server) artifactFromPath(r *http.Request) (*profile.Artifact, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, notFound("Artifact not found.")
	}
	artifact, err := s.profiles.GetArtifact(r.Context(), currentUser(r).ID, id)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, notFound("Artifact not found.")
	}
	return artifact, err
}
