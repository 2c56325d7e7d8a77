package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/colonyops/sage/internal/core/auth"
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
)

type workspaceWire struct {
	ID        flexID     `json:"id"`
	Name      flexString `json:"name"`
	Title     flexString `json:"title"`
	Role      flexString `json:"role"`
	UserRole  flexString `json:"user_role"`
	IsAdmin   flexBool   `json:"is_admin"`
	OwnerID   flexRef    `json:"owner_id"`
	Owner     flexRef    `json:"owner"`
	CreatedAt flexTime   `json:"created_at"`
}

func (w workspaceWire) domain() workspace.Workspace {
	return workspace.Workspace{
		ID:        int64(w.ID),
		Name:      string(first(w.Name, w.Title)),
		Role:      workspace.NormalizeRole(string(first(w.Role, w.UserRole))),
		IsAdmin:   bool(w.IsAdmin),
		OwnerID:   int64(first(w.OwnerID, w.Owner)),
		CreatedAt: w.CreatedAt.Time,
	}
}

type integrationWire struct {
	ID              flexID     `json:"id"`
	Workspace       flexRef    `json:"workspace"`
	WorkspaceID     flexRef    `json:"workspace_id"`
	Name            flexString `json:"name"`
	Provider        flexString `json:"provider"`
	BaseURL         flexString `json:"base_url"`
	HasAccessToken  flexBool   `json:"has_access_token"`
	AccessTokenSet  flexBool   `json:"access_token_set"`
	HasRefreshToken flexBool   `json:"has_refresh_token"`
	RefreshTokenSet flexBool   `json:"refresh_token_set"`
}

func (w integrationWire) domain() workspace.Integration {
	return workspace.Integration{
		ID:              int64(w.ID),
		WorkspaceID:     int64(first(w.WorkspaceID, w.Workspace)),
		Name:            string(w.Name),
		Provider:        workspace.Provider(lower(w.Provider)),
		BaseURL:         string(w.BaseURL),
		HasAccessToken:  bool(w.HasAccessToken || w.AccessTokenSet),
		HasRefreshToken: bool(w.HasRefreshToken || w.RefreshTokenSet),
	}
}

type repositoryWire struct {
	ID                flexID     `json:"id"`
	Integration       flexRef    `json:"integration"`
	IntegrationID     flexRef    `json:"integration_id"`
	ExternalID        flexString `json:"external_id"`
	Name              flexString `json:"name"`
	FullPath          flexString `json:"full_path"`
	PathWithNamespace flexString `json:"path_with_namespace"`
	FullName          flexString `json:"full_name"`
	DefaultBranch     flexString `json:"default_branch"`
	Provider          flexString `json:"provider"`
}

// UnmarshalJSON also accepts a bare "owner/name" string, which some
// available-repository listings return.
func (w *repositoryWire) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*w = repositoryWire{FullPath: flexString(s), ExternalID: flexString(s)}
		return nil
	}
	type alias repositoryWire
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*w = repositoryWire(a)
	return nil
}

func (w repositoryWire) fullPath() string {
	return string(first(w.FullPath, w.PathWithNamespace, w.FullName, w.Name))
}

func (w repositoryWire) name() string {
	if w.Name != "" {
		return string(w.Name)
	}
	p := w.fullPath()
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func (w repositoryWire) domain() workspace.Repository {
	return workspace.Repository{
		ID:            int64(w.ID),
		IntegrationID: int64(first(w.IntegrationID, w.Integration)),
		ExternalID:    string(w.ExternalID),
		Name:          w.name(),
		FullPath:      w.fullPath(),
		DefaultBranch: string(w.DefaultBranch),
		Provider:      workspace.Provider(lower(w.Provider)),
	}
}

func (w repositoryWire) available() workspace.AvailableRepository {
	ext := string(w.ExternalID)
	if ext == "" && w.ID != 0 {
		ext = strconv.FormatInt(int64(w.ID), 10)
	}
	return workspace.AvailableRepository{
		ExternalID:    ext,
		Name:          w.name(),
		FullPath:      w.fullPath(),
		DefaultBranch: string(w.DefaultBranch),
	}
}

type mergeRequestWire struct {
	ID           flexID          `json:"id"`
	Repository   flexRef         `json:"repository"`
	RepositoryID flexRef         `json:"repository_id"`
	IID          flexID          `json:"iid"`
	Number       flexID          `json:"number"`
	Title        flexString      `json:"title"`
	State        flexString      `json:"state"`
	AuthorName   flexString      `json:"author_name"`
	Author       json.RawMessage `json:"author"`
	SourceBranch flexString      `json:"source_branch"`
	TargetBranch flexString      `json:"target_branch"`
	CreatedAt    flexTime        `json:"created_at"`
	WebURL       flexString      `json:"web_url"`
	URL          flexString      `json:"url"`
	HTMLURL      flexString      `json:"html_url"`
}

func (w mergeRequestWire) author() string {
	if w.AuthorName != "" {
		return string(w.AuthorName)
	}
	if isNull(w.Author) {
		return ""
	}
	var s flexString
	if json.Unmarshal(w.Author, &s) == nil {
		return string(s)
	}
	var obj struct {
		Name     flexString `json:"name"`
		Username flexString `json:"username"`
		Login    flexString `json:"login"`
	}
	if json.Unmarshal(w.Author, &obj) == nil {
		return string(first(obj.Username, obj.Login, obj.Name))
	}
	return ""
}

func normalizeMergeRequestState(s flexString) workspace.MergeRequestState {
	switch lower(s) {
	case "opened", "open", "reopened":
		return workspace.MergeRequestOpen
	case "merged":
		return workspace.MergeRequestMerged
	case "closed", "locked":
		return workspace.MergeRequestClosed
	default:
		return workspace.MergeRequestState(lower(s))
	}
}

func (w mergeRequestWire) domain() workspace.MergeRequest {
	return workspace.MergeRequest{
		ID:           int64(w.ID),
		RepositoryID: int64(first(w.RepositoryID, w.Repository)),
		IID:          int64(first(w.IID, w.Number)),
		Title:        string(w.Title),
		State:        normalizeMergeRequestState(w.State),
		AuthorName:   w.author(),
		SourceBranch: string(w.SourceBranch),
		TargetBranch: string(w.TargetBranch),
		CreatedAt:    w.CreatedAt.Time,
		WebURL:       string(first(w.WebURL, w.HTMLURL, w.URL)),
	}
}

type runWire struct {
	ID               flexID          `json:"id"`
	MergeRequest     flexRef         `json:"merge_request"`
	MergeRequestID   flexRef         `json:"merge_request_id"`
	LLMIntegration   flexRef         `json:"llm_integration"`
	LLMIntegrationID flexRef         `json:"llm_integration_id"`
	Status           flexString      `json:"status"`
	State            flexString      `json:"state"`
	Summary          flexString      `json:"summary"`
	Label            flexString      `json:"label"`
	Title            flexString      `json:"title"`
	CreatedAt        flexTime        `json:"created_at"`
	StartedAt        flexTime        `json:"started_at"`
	FinishedAt       flexTime        `json:"finished_at"`
	CompletedAt      flexTime        `json:"completed_at"`
	StructuredOutput json.RawMessage `json:"structured_output"`
	RawOutput        flexString      `json:"raw_output"`
}

// NormalizeStatus maps every status spelling the service has used onto the
// canonical review.Status values.
func NormalizeStatus(s string) review.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "queued", "pending", "created", "scheduled":
		return review.StatusQueued
	case "running", "in_progress", "processing", "started":
		return review.StatusRunning
	case "succeeded", "success", "completed", "done", "finished":
		return review.StatusSucceeded
	case "failed", "failure", "error", "errored":
		return review.StatusFailed
	case "canceled", "cancelled", "aborted":
		return review.StatusCanceled
	default:
		return review.Status(strings.ToLower(strings.TrimSpace(s)))
	}
}

func (w runWire) domain() review.Run {
	var structured json.RawMessage
	if !isNull(w.StructuredOutput) {
		structured = append(json.RawMessage(nil), w.StructuredOutput...)
	}
	finished := w.FinishedAt
	if finished.IsZero() {
		finished = w.CompletedAt
	}
	return review.Run{
		ID:               int64(w.ID),
		MergeRequestID:   int64(first(w.MergeRequestID, w.MergeRequest)),
		LLMIntegrationID: int64(first(w.LLMIntegrationID, w.LLMIntegration)),
		Status:           NormalizeStatus(string(first(w.Status, w.State))),
		Summary:          string(first(w.Summary, w.Label, w.Title)),
		CreatedAt:        w.CreatedAt.Time,
		StartedAt:        w.StartedAt.ptr(),
		FinishedAt:       finished.ptr(),
		StructuredOutput: structured,
		RawOutput:        string(w.RawOutput),
	}
}

type commentWire struct {
	ID          flexID     `json:"id"`
	ReviewRun   flexRef    `json:"review_run"`
	ReviewRunID flexRef    `json:"review_run_id"`
	RunID       flexRef    `json:"run_id"`
	Severity    flexString `json:"severity"`
	CommentType flexString `json:"comment_type"`
	Type        flexString `json:"type"`
	Category    flexString `json:"category"`
	FilePath    flexString `json:"file_path"`
	Path        flexString `json:"path"`
	File        flexString `json:"file"`
	Line        flexInt    `json:"line"`
	LineNumber  flexInt    `json:"line_number"`
	Message     flexString `json:"message"`
	Body        flexString `json:"body"`
	Text        flexString `json:"text"`
	PostedToVCS flexBool   `json:"posted_to_vcs"`
	Posted      flexBool   `json:"posted"`
	IsPosted    flexBool   `json:"is_posted"`
}

// NormalizeSeverity maps severity spellings onto review.Severity.
func NormalizeSeverity(s string) review.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "err", "critical", "blocker", "high":
		return review.SeverityError
	case "warning", "warn", "medium", "major":
		return review.SeverityWarning
	case "info", "information", "note", "low", "minor", "suggestion":
		return review.SeverityInfo
	default:
		return review.Severity(strings.ToLower(strings.TrimSpace(s)))
	}
}

func (w commentWire) domain() review.Comment {
	line := w.Line.Value
	if line == nil {
		line = w.LineNumber.Value
	}
	return review.Comment{
		ID:          int64(w.ID),
		RunID:       int64(first(w.ReviewRunID, w.ReviewRun, w.RunID)),
		Severity:    NormalizeSeverity(string(w.Severity)),
		Type:        string(first(w.CommentType, w.Type, w.Category)),
		FilePath:    string(first(w.FilePath, w.Path, w.File)),
		Line:        line,
		Message:     string(first(w.Message, w.Body, w.Text)),
		PostedToVCS: bool(w.PostedToVCS || w.Posted || w.IsPosted),
	}
}

type llmWire struct {
	ID            flexID     `json:"id"`
	Name          flexString `json:"name"`
	Provider      flexString `json:"provider"`
	Model         flexString `json:"model"`
	ModelName     flexString `json:"model_name"`
	BaseURL       flexString `json:"base_url"`
	APIKeyPresent flexBool   `json:"api_key_present"`
	HasAPIKey     flexBool   `json:"has_api_key"`
	APIKeySet     flexBool   `json:"api_key_set"`
}

func (w llmWire) domain() llm.Integration {
	return llm.Integration{
		ID:            int64(w.ID),
		Name:          string(w.Name),
		Provider:      llm.Provider(lower(w.Provider)),
		Model:         string(first(w.Model, w.ModelName)),
		BaseURL:       string(w.BaseURL),
		APIKeyPresent: bool(w.APIKeyPresent || w.HasAPIKey || w.APIKeySet),
	}
}

type publishWire struct {
	Posted      flexID `json:"posted"`
	PostedCount flexID `json:"posted_count"`
	Published   flexID `json:"published"`
	Count       flexID `json:"count"`
}

func (w publishWire) domain() review.PublishResult {
	return review.PublishResult{Posted: int(first(w.Posted, w.PostedCount, w.Published, w.Count))}
}

type tokenFields struct {
	AccessToken  flexString `json:"access_token"`
	Access       flexString `json:"access"`
	AccessCamel  flexString `json:"accessToken"`
	Token        flexString `json:"token"`
	RefreshToken flexString `json:"refresh_token"`
	Refresh      flexString `json:"refresh"`
	RefreshCamel flexString `json:"refreshToken"`
	ExpiresIn    flexID     `json:"expires_in"`
	Username     flexString `json:"username"`
	User         struct {
		Username flexString `json:"username"`
	} `json:"user"`
}

type tokenWire struct {
	tokenFields
	Data *tokenFields `json:"data"`
}

func (f tokenFields) tokens(now func() time.Time) auth.Tokens {
	t := auth.Tokens{
		Access:   string(first(f.AccessToken, f.Access, f.AccessCamel, f.Token)),
		Refresh:  string(first(f.RefreshToken, f.Refresh, f.RefreshCamel)),
		Username: string(first(f.Username, f.User.Username)),
	}
	if f.ExpiresIn > 0 {
		exp := now().Add(time.Duration(f.ExpiresIn) * time.Second)
		t.ExpiresAt = &exp
	}
	return t
}

// tokens prefers top-level fields and falls back to a "data" envelope.
func (w tokenWire) tokens(now func() time.Time) auth.Tokens {
	t := w.tokenFields.tokens(now)
	if w.Data == nil {
		return t
	}
	d := w.Data.tokens(now)
	if t.Access == "" {
		t.Access = d.Access
	}
	if t.Refresh == "" {
		t.Refresh = d.Refresh
	}
	if t.Username == "" {
		t.Username = d.Username
	}
	if t.ExpiresAt == nil {
		t.ExpiresAt = d.ExpiresAt
	}
	return t
}
