// Package httpapi hosts form sessions over HTTP. Each session owns one form;
// clients drive it through JSON endpoints or plain browser posts and watch
// its events over a websocket.
package httpapi

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/model"
	"github.com/goliatone/go-formkit/pkg/render"
	"github.com/goliatone/go-formkit/pkg/validation"
)

// DefaultSubmitTimeout bounds how long a submit waits for pending checks.
const DefaultSubmitTimeout = 15 * time.Second

// Option configures a Server.
type Option func(*Server)

// WithRenderers sets the registry used for GET /forms/{id}.
func WithRenderers(registry *render.Registry) Option {
	return func(s *Server) {
		if registry != nil {
			s.renderers = registry
		}
	}
}

// WithTitle sets the title passed to renderers.
func WithTitle(title string) Option {
	return func(s *Server) {
		s.title = title
	}
}

// WithTheme passes go-theme settings to renderers.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(s *Server) {
		s.theme = cfg
	}
}

// WithHiddenFields adds per-request hidden inputs such as CSRF tokens.
func WithHiddenFields(fn func(*http.Request) map[string]string) Option {
	return func(s *Server) {
		s.hidden = fn
	}
}

// WithSubmitTimeout overrides DefaultSubmitTimeout.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}

// WithOriginPatterns sets the websocket origin allow list.
func WithOriginPatterns(patterns ...string) Option {
	return func(s *Server) {
		s.originPatterns = patterns
	}
}

// WithLogger routes request diagnostics to logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server exposes form sessions over HTTP.
type Server struct {
	sessions       *Sessions
	renderers      *render.Registry
	title          string
	theme          *theme.RendererConfig
	hidden         func(*http.Request) map[string]string
	submitTimeout  time.Duration
	originPatterns []string
	logger         *log.Logger
}

// NewServer returns a Server over sessions.
func NewServer(sessions *Sessions, opts ...Option) *Server {
	s := &Server{
		sessions:      sessions,
		renderers:     render.NewRegistry(),
		submitTimeout: DefaultSubmitTimeout,
		logger:        log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Routes returns a chi router with every form endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	s.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the form endpoints on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/forms", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleRender)
			r.Post("/", s.handleBrowserPost)
			r.Delete("/", s.handleDelete)
			r.Get("/state", s.handleState)
			r.Put("/values", s.handleSetValue)
			r.Post("/groups/{group}", s.handleAddInstance)
			r.Delete("/groups/{group}/{key}", s.handleRemoveInstance)
			r.Post("/reset", s.handleReset)
			r.Post("/clear", s.handleClear)
			r.Post("/submit", s.handleSubmit)
			r.Get("/events", s.handleEvents)
		})
	})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		formErrorToHTTP(w, err)
		return nil, false
	}
	return sess, true
}

type createResponse struct {
	ID    string        `json:"id"`
	State stateResponse `json:"state"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.logger.Printf("httpapi: create session: %v", err)
		writeError(w, http.StatusInternalServerError, "CREATE_FAILED", "could not create form")
		return
	}
	w.Header().Set("Location", "/forms/"+sess.ID)
	writeJSON(w, http.StatusCreated, createResponse{ID: sess.ID, State: stateOf(sess.Form)})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(w, r); !ok {
		return
	}
	s.sessions.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// fieldState is the JSON view of one mounted field.
type fieldState struct {
	Path     string           `json:"path"`
	Widget   string           `json:"widget"`
	Required bool             `json:"required,omitempty"`
	Input    string           `json:"input,omitempty"`
	State    validation.State `json:"state"`
}

type stateResponse struct {
	Values form.Snapshot       `json:"values"`
	Fields []fieldState        `json:"fields"`
	Groups map[string][]string `json:"groups,omitempty"`
}

func stateOf(f *form.Form) stateResponse {
	view := f.View()
	out := stateResponse{Values: f.Values(), Fields: []fieldState{}}
	add := func(fv form.FieldView) {
		st := fieldState{
			Path:     fv.Path,
			Widget:   string(fv.Widget),
			Required: fv.Required,
			Input:    fv.Input,
			State:    fv.State,
		}
		if fv.Widget == model.WidgetSecret {
			st.Input = ""
		}
		if st.State.Status == "" {
			st.State = validation.Untouched()
		}
		out.Fields = append(out.Fields, st)
	}
	for _, item := range view.Items {
		switch {
		case item.Field != nil:
			add(*item.Field)
		case item.Group != nil:
			if out.Groups == nil {
				out.Groups = make(map[string][]string)
			}
			keys := make([]string, 0, len(item.Group.Instances))
			for _, inst := range item.Group.Instances {
				keys = append(keys, inst.Key)
				for _, fv := range inst.Fields {
					add(fv)
				}
			}
			out.Groups[item.Group.Name] = keys
		}
	}
	return out
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.Form))
}

type setValueRequest struct {
	Path  string `json:"path"`
	Value string `json:"value"`
	Blur  bool   `json:"blur"`
}

func (s *Server) handleSetValue(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req setValueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	path := model.ParsePath(req.Path)
	if path.Empty() {
		writeError(w, http.StatusBadRequest, "INVALID_PATH", "path is required")
		return
	}
	if err := sess.Form.SetInput(path, req.Value); err != nil {
		formErrorToHTTP(w, err)
		return
	}
	if req.Blur {
		if err := sess.Form.Blur(path); err != nil {
			formErrorToHTTP(w, err)
			return
		}
	}
	st, err := sess.Form.State(path)
	if err != nil {
		formErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fieldState{Path: path.String(), State: st})
}

func (s *Server) handleAddInstance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	key, err := sess.Form.AddInstance(chi.URLParam(r, "group"))
	if err != nil {
		formErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

func (s *Server) handleRemoveInstance(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Form.RemoveInstance(chi.URLParam(r, "group"), chi.URLParam(r, "key")); err != nil {
		formErrorToHTTP(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Form.Reset(); err != nil {
		formErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.Form))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Form.Clear(); err != nil {
		formErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateOf(sess.Form))
}

func (s *Server) submit(ctx context.Context, f *form.Form) (form.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()
	return f.Submit(ctx)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, err := s.submit(r.Context(), sess.Form)
	if err != nil {
		formErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": snap})
}

func (s *Server) renderOptions(r *http.Request, sess *Session, errs map[string][]string) render.RenderOptions {
	var extra map[string]string
	if s.hidden != nil {
		extra = s.hidden(r)
	}
	return render.RenderOptions{
		Title:        s.title,
		Action:       "/forms/" + sess.ID,
		Method:       http.MethodPost,
		HiddenFields: render.SessionFields(sess.ID, extra),
		Errors:       errs,
		Theme:        s.theme,
	}
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, renderer render.Renderer, sess *Session, status int, errs map[string][]string) {
	out, err := renderer.Render(r.Context(), sess.Form.View(), s.renderOptions(r, sess, errs))
	if err != nil {
		s.logger.Printf("httpapi: render %s: %v", renderer.Name(), err)
		writeError(w, http.StatusInternalServerError, "RENDER_FAILED", "could not render form")
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	renderer, err := s.renderers.Negotiate(r.Header.Get("Accept"))
	if err != nil {
		writeError(w, http.StatusNotAcceptable, "NO_RENDERER", err.Error())
		return
	}
	s.write(w, r, renderer, sess, http.StatusOK, nil)
}

// handleBrowserPost applies a plain form post: every posted field path is
// set, then the pressed button runs. A post carrying another session id is
// refused.
func (s *Server) handleBrowserPost(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid form body")
		return
	}
	renderer, err := s.renderers.Get("html")
	if err != nil {
		renderer, err = s.renderers.Negotiate(r.Header.Get("Accept"))
		if err != nil {
			writeError(w, http.StatusNotAcceptable, "NO_RENDERER", err.Error())
			return
		}
	}

	post := render.ParsePost(r.PostForm)
	if post.Session != "" && post.Session != sess.ID {
		writeError(w, http.StatusConflict, "SESSION_MISMATCH", "form session does not match")
		return
	}

	f := sess.Form
	errs := make(map[string][]string)
	applied := make(map[string]bool)
	for {
		paths := postedPaths(f.View(), r, applied)
		if len(paths) == 0 {
			break
		}
		for _, path := range paths {
			applied[path] = true
			err := f.SetInput(model.ParsePath(path), r.PostForm.Get(path))
			var invalid *validation.ValidationError
			switch {
			case err == nil, errors.As(err, &invalid):
			case errors.Is(err, form.ErrHiddenField):
			default:
				formErrorToHTTP(w, err)
				return
			}
		}
	}

	status := http.StatusOK
	switch post.Action {
	case render.ActionAdd:
		_, err = f.AddInstance(post.Group)
	case render.ActionRemove:
		err = f.RemoveInstance(post.Group, post.Key)
	case render.ActionReset:
		err = f.Reset()
	case render.ActionClear:
		err = f.Clear()
	default:
		_, err = s.submit(r.Context(), f)
		var submitErr *form.SubmitError
		if errors.As(err, &submitErr) {
			status = http.StatusUnprocessableEntity
			if submitErr.Err != nil {
				errs[""] = append(errs[""], submitErr.Message)
			}
			err = nil
		} else if err == nil {
			w.Header().Set("X-Formkit-Submitted", "true")
		}
	}
	if err != nil {
		formErrorToHTTP(w, err)
		return
	}
	s.write(w, r, renderer, sess, status, errs)
}

// postedPaths lists the mounted, not yet applied field paths present in the
// post, in layout order. Callers repeat until nothing new mounts so fields
// revealed by earlier answers are applied too.
func postedPaths(view form.View, r *http.Request, applied map[string]bool) []string {
	var out []string
	visit := func(fv form.FieldView) {
		if _, ok := r.PostForm[fv.Path]; !ok || applied[fv.Path] {
			return
		}
		if fv.Widget == model.WidgetSecret && r.PostForm.Get(fv.Path) == "" {
			return
		}
		out = append(out, fv.Path)
	}
	for _, item := range view.Items {
		switch {
		case item.Field != nil:
			visit(*item.Field)
		case item.Group != nil:
			for _, inst := range item.Group.Instances {
				for _, fv := range inst.Fields {
					visit(fv)
				}
			}
		}
	}
	return out
}
