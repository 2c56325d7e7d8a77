package tui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/colonyops/sage/internal/console"
	"github.com/colonyops/sage/internal/core/llm"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/colonyops/sage/internal/data/api"
	"github.com/colonyops/sage/internal/tui/components/form"
)

type formKind int

const (
	formWorkspace formKind = iota
	formIntegration
	formConnect
	formLLM
	formMRFilter
	formCommentFilter
	formChooseLLM
	formHistory
)

// openForm is the dialog on screen. Mutation forms stay open while the
// request is in flight so server-side field errors land next to the field.
type openForm struct {
	kind    formKind
	id      int64
	dialog  *form.Dialog
	pending bool

	// previous values of an edited entity, used to send only changes.
	was map[string]string
	// available repositories offered by a connect form, by external id.
	available map[string]workspace.AvailableRepository
	// integration a connect form targets.
	integrationID int64
}

// store is the entity store a mutation form writes to.
func (f *openForm) store() (console.StoreKind, bool) {
	switch f.kind {
	case formWorkspace:
		return console.KindWorkspaces, true
	case formIntegration:
		return console.KindIntegrations, true
	case formConnect:
		return console.KindRepositories, true
	case formLLM:
		return console.KindLLMs, true
	}
	return 0, false
}

// changed returns the field value when it differs from the edited entity.
func (f *openForm) changed(name string) string {
	v := strings.TrimSpace(f.dialog.String(name))
	if f.was != nil && f.was[name] == v {
		return ""
	}
	return v
}

func id64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func workspaceForm(ws *workspace.Workspace) *openForm {
	title, name := "New workspace", ""
	f := &openForm{kind: formWorkspace}
	if ws != nil {
		title, name, f.id = "Rename workspace", ws.Name, ws.ID
	}
	f.dialog = form.NewDialog(title,
		[]form.Field{form.NewTextField("Name", "team-backend", name)},
		[]string{"name"})
	return f
}

func providerOptions[P ~string](ps []P) []form.Option {
	opts := make([]form.Option, 0, len(ps))
	for _, p := range ps {
		opts = append(opts, form.Option{Label: string(p), Value: string(p)})
	}
	return opts
}

func integrationForm(it *workspace.Integration) *openForm {
	f := &openForm{kind: formIntegration}
	title := "New integration"
	var name, provider, baseURL string
	tokenHint := "required"
	if it != nil {
		title, f.id = "Edit integration", it.ID
		name, provider, baseURL = it.Name, string(it.Provider), it.BaseURL
		tokenHint = "leave blank to keep"
		f.was = map[string]string{"name": name, "provider": provider, "base_url": baseURL}
	}
	if provider == "" {
		provider = string(workspace.ProviderGitHub)
	}
	f.dialog = form.NewDialog(title,
		[]form.Field{
			form.NewTextField("Name", "github", name),
			form.NewSelectField("Provider", providerOptions(workspace.Providers()), provider),
			form.NewTextField("Base URL", "https://gitlab.example.com", baseURL),
			form.NewSecretField("Access token", tokenHint),
			form.NewSecretField("Refresh token", "optional"),
		},
		[]string{"name", "provider", "base_url", "access_token", "refresh_token"})
	return f
}

func llmForm(it *llm.Integration) *openForm {
	f := &openForm{kind: formLLM}
	title := "New LLM integration"
	var name, model, baseURL string
	provider := string(llm.ProviderOpenAI)
	keyHint := "required for hosted providers"
	if it != nil {
		title, f.id = "Edit LLM integration", it.ID
		name, provider, model, baseURL = it.Name, string(it.Provider), it.Model, it.BaseURL
		keyHint = "leave blank to keep"
		f.was = map[string]string{"name": name, "provider": provider, "model": model, "base_url": baseURL}
	}
	f.dialog = form.NewDialog(title,
		[]form.Field{
			form.NewTextField("Name", "gpt reviewer", name),
			form.NewSelectField("Provider", providerOptions(llm.Providers()), provider),
			form.NewTextField("Model", "gpt-4o-mini", model),
			form.NewTextField("Base URL", "http://localhost:11434", baseURL),
			form.NewSecretField("API key", keyHint),
		},
		[]string{"name", "provider", "model", "base_url", "api_key"})
	return f
}

func connectForm(integrationID int64, available []workspace.AvailableRepository, connected []workspace.Repository) *openForm {
	f := &openForm{
		kind:          formConnect,
		integrationID: integrationID,
		available:     make(map[string]workspace.AvailableRepository, len(available)),
	}
	have := make(map[string]bool, len(connected))
	for _, r := range connected {
		have[r.ExternalID] = true
	}
	opts := make([]form.Option, 0, len(available))
	for _, r := range available {
		f.available[r.ExternalID] = r
		label := r.FullPath
		if have[r.ExternalID] {
			label += " (connected)"
		}
		opts = append(opts, form.Option{Label: label, Value: r.ExternalID})
	}
	f.dialog = form.NewDialog("Connect repositories",
		[]form.Field{form.NewMultiSelectField("Repositories", opts)},
		[]string{"repositories"})
	return f
}

func mrFilterForm(cur console.MRFilter) *openForm {
	states := []form.Option{{Label: "any", Value: ""}}
	for _, s := range []workspace.MergeRequestState{workspace.MergeRequestOpen, workspace.MergeRequestMerged, workspace.MergeRequestClosed} {
		states = append(states, form.Option{Label: string(s), Value: string(s)})
	}
	return &openForm{
		kind: formMRFilter,
		dialog: form.NewDialog("Filter merge requests",
			[]form.Field{
				form.NewSelectField("State", states, string(cur.State)),
				form.NewTextField("Title contains", "fix", cur.Title),
			},
			[]string{"state", "title"}),
	}
}

func commentFilterForm(cur console.CommentFilter, comments []review.Comment) *openForm {
	severities := []form.Option{{Label: "any", Value: ""}}
	for _, s := range review.Severities() {
		severities = append(severities, form.Option{Label: string(s), Value: string(s)})
	}
	types := []form.Option{{Label: "any", Value: ""}}
	for _, t := range console.TypeOptions(comments) {
		types = append(types, form.Option{Label: t, Value: t})
	}
	posted := []form.Option{
		{Label: "any", Value: strconv.Itoa(int(console.PostedAny))},
		{Label: "posted", Value: strconv.Itoa(int(console.PostedOnly))},
		{Label: "not posted", Value: strconv.Itoa(int(console.PostedNot))},
	}
	file := cur.FilePath
	if cur.FileGlob != "" {
		file = cur.FileGlob
	}
	return &openForm{
		kind: formCommentFilter,
		dialog: form.NewDialog("Filter comments",
			[]form.Field{
				form.NewSelectField("Severity", severities, string(cur.Severity)),
				form.NewSelectField("Type", types, cur.Type),
				form.NewTextField("File or glob", "internal/**/*.go", file),
				form.NewSelectField("Posted", posted, strconv.Itoa(int(cur.Posted))),
				form.NewTextField("Message contains", "nil", cur.Search),
			},
			[]string{"severity", "type", "file", "posted", "search"}),
	}
}

func chooseLLMForm(items []llm.Integration, current int64) *openForm {
	opts := make([]form.Option, 0, len(items))
	for _, it := range items {
		opts = append(opts, form.Option{
			Label: it.Name + " · " + string(it.Provider) + "/" + it.Model,
			Value: strconv.FormatInt(it.ID, 10),
		})
	}
	return &openForm{
		kind: formChooseLLM,
		dialog: form.NewDialog("Choose LLM",
			[]form.Field{form.NewSelectField("LLM integration", opts, strconv.FormatInt(current, 10))},
			[]string{"llm"}),
	}
}

func historyForm(runs []review.Run, current int64) *openForm {
	opts := make([]form.Option, 0, len(runs))
	for _, r := range runs {
		opts = append(opts, form.Option{
			Label: "#" + strconv.FormatInt(r.ID, 10) + " " + string(r.Status) + " · " + r.CreatedAt.Format("2006-01-02 15:04"),
			Value: strconv.FormatInt(r.ID, 10),
		})
	}
	return &openForm{
		kind: formHistory,
		dialog: form.NewDialog("Review runs",
			[]form.Field{form.NewSelectField("Run", opts, strconv.FormatInt(current, 10))},
			[]string{"run"}),
	}
}

// intent turns a submitted form into a console intent. Forms that change
// no entity report done: they close without waiting for a response.
func (f *openForm) intent() (msg console.Msg, done bool) {
	d := f.dialog
	switch f.kind {
	case formWorkspace:
		in := workspace.WorkspaceInput{Name: strings.TrimSpace(d.String("name"))}
		if f.id == 0 {
			return console.CreateWorkspace{Input: in}, false
		}
		return console.UpdateWorkspace{ID: f.id, Input: in}, false

	case formIntegration:
		if f.id == 0 {
			return console.CreateIntegration{Input: workspace.IntegrationInput{
				Name:         strings.TrimSpace(d.String("name")),
				Provider:     workspace.Provider(d.String("provider")),
				BaseURL:      strings.TrimSpace(d.String("base_url")),
				AccessToken:  strings.TrimSpace(d.String("access_token")),
				RefreshToken: strings.TrimSpace(d.String("refresh_token")),
			}}, false
		}
		return console.UpdateIntegration{ID: f.id, Input: workspace.IntegrationInput{
			Name:         f.changed("name"),
			Provider:     workspace.Provider(f.changed("provider")),
			BaseURL:      f.changed("base_url"),
			AccessToken:  strings.TrimSpace(d.String("access_token")),
			RefreshToken: strings.TrimSpace(d.String("refresh_token")),
		}}, false

	case formLLM:
		if f.id == 0 {
			return console.CreateLLM{Input: llm.Input{
				Name:     strings.TrimSpace(d.String("name")),
				Provider: llm.Provider(d.String("provider")),
				Model:    strings.TrimSpace(d.String("model")),
				BaseURL:  strings.TrimSpace(d.String("base_url")),
				APIKey:   strings.TrimSpace(d.String("api_key")),
			}}, false
		}
		return console.UpdateLLM{ID: f.id, Input: llm.Input{
			Name:     f.changed("name"),
			Provider: llm.Provider(f.changed("provider")),
			Model:    f.changed("model"),
			BaseURL:  f.changed("base_url"),
			APIKey:   strings.TrimSpace(d.String("api_key")),
		}}, false

	case formConnect:
		in := workspace.ConnectInput{IntegrationID: f.integrationID}
		for _, id := range d.Strings("repositories") {
			if r, ok := f.available[id]; ok {
				in.Repositories = append(in.Repositories, r)
			}
		}
		return console.ConnectRepositories{Input: in}, false

	case formMRFilter:
		return console.SetMergeRequestFilter{Filter: console.MRFilter{
			State: workspace.MergeRequestState(d.String("state")),
			Title: d.String("title"),
		}}, true

	case formCommentFilter:
		filter := console.CommentFilter{
			Severity: review.Severity(d.String("severity")),
			Type:     d.String("type"),
			Posted:   console.PostedFilter(id64(d.String("posted"))),
			Search:   d.String("search"),
		}
		if file := strings.TrimSpace(d.String("file")); file != "" {
			filter = filter.WithFile(file)
		}
		return console.SetCommentFilter{Filter: filter}, true

	case formChooseLLM:
		return console.ChooseLLM{ID: id64(d.String("llm"))}, true

	case formHistory:
		return console.AttachRun{ID: id64(d.String("run"))}, true
	}
	return nil, true
}

// showError puts a failed mutation back into the dialog. Gateway
// validation errors are spread over the fields they name.
func (f *openForm) showError(err error) {
	f.pending = false
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		general := apiErr.NonFieldErrors
		if len(apiErr.FieldErrors) == 0 {
			general = []string{apiErr.Summary()}
		}
		f.dialog.SetFieldErrors(apiErr.FieldErrors, general)
		return
	}
	f.dialog.SetErrors(err)
}
