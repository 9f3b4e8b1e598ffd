package consult

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/forms"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/auth"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/storage"
	"github.com/PaulAlexX98/safescript-admin-sub001/pkg/pagination"
)

type Handler struct {
	svc       *Service
	store     *Store
	completer *Orchestrator
}

func NewHandler(svc *Service, store *Store, completer *Orchestrator) *Handler {
	return &Handler{svc: svc, store: store, completer: completer}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole("admin", "pharmacist", "prescriber")

	g := api.Group("", role)
	g.POST("/consultations", h.StartSession)
	g.GET("/consultations", h.ListSessions)
	g.GET("/consultations/:id", h.GetSession)
	g.POST("/consultations/:id/forms/:type", h.SaveForm)
	g.GET("/consultations/:id/forms/:type", h.GetForm)
	g.POST("/consultations/:id/complete", h.Complete)
	g.GET("/consultations/:id/completion", h.Completion)
}

func (h *Handler) StartSession(c echo.Context) error {
	var body struct {
		OrderID string `json:"order_id"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var orderID uuid.UUID
	if body.OrderID != "" {
		var err error
		orderID, err = uuid.Parse(body.OrderID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid order_id")
		}
	}

	session, err := h.svc.Start(c.Request().Context(), orderID, actorID(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, session)
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	session, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	responses, err := h.svc.Responses(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session":   session,
		"responses": responses,
	})
}

// SaveForm accepts either multipart form data (with file uploads) or a JSON
// body of answers.
func (h *Handler) SaveForm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	payload, uploads, err := parseSubmission(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// go_next finishes the form only; mark_complete also signals the session
	// itself should be completed once the answers are saved.
	markComplete := submissionFlag(payload, "mark_complete")
	in := SaveInput{
		SessionID:    id,
		FormType:     c.Param("type"),
		Payload:      payload,
		Uploads:      uploads,
		MarkComplete: markComplete || submissionFlag(payload, "go_next"),
		Step:         stringField(payload, "step"),
		Tab:          stringField(payload, "tab"),
		Actor:        actorID(c),
	}

	result, err := h.store.Save(c.Request().Context(), in)
	if err != nil {
		var verr *forms.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{
				"ok":      false,
				"field":   verr.Key,
				"message": verr.Message,
			})
		}
		if errors.Is(err, ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		if errors.Is(err, forms.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no active form for type")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	body := map[string]any{
		"ok":           true,
		"message":      "saved",
		"step":         result.Step,
		"tab":          result.Tab,
		"is_complete":  result.IsComplete,
		"completed_at": result.CompletedAt,
		"saved_keys":   result.SavedKeys,
	}

	if markComplete && h.completer != nil {
		completion, err := h.completer.Complete(c.Request().Context(), id, actorID(c))
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		body["completion"] = completion
	}

	return c.JSON(http.StatusOK, body)
}

func (h *Handler) GetForm(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	resp, err := h.store.Response(c.Request().Context(), id, c.Param("type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "form response not found")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.completer.Complete(c.Request().Context(), id, actorID(c))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Completion(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	result, err := h.completer.Result(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, result)
}

// parseSubmission reads answers from a JSON body or a multipart form. In
// multipart, repeated fields become arrays and files become uploads keyed by
// field name.
func parseSubmission(c echo.Context) (map[string]any, map[string][]forms.Upload, error) {
	ctype, _, _ := mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))

	if ctype == echo.MIMEApplicationJSON {
		var payload map[string]any
		if err := json.NewDecoder(c.Request().Body).Decode(&payload); err != nil {
			return nil, nil, err
		}
		return payload, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		// Plain urlencoded forms have values but no multipart body.
		values, ferr := c.FormParams()
		if ferr != nil {
			return nil, nil, err
		}
		payload := map[string]any{}
		for key, vals := range values {
			putFormValue(payload, key, vals)
		}
		return payload, nil, nil
	}

	payload := map[string]any{}
	for key, vals := range form.Value {
		putFormValue(payload, key, vals)
	}

	uploads := map[string][]forms.Upload{}
	for key, headers := range form.File {
		name := strings.TrimSuffix(key, "[]")
		for _, fh := range headers {
			fh := fh
			if fh.Size > storage.MaxUploadSize {
				return nil, nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large: "+fh.Filename)
			}
			uploads[name] = append(uploads[name], forms.Upload{
				Filename: fh.Filename,
				MimeType: fh.Header.Get("Content-Type"),
				Size:     fh.Size,
				Open:     func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}
	return payload, uploads, nil
}

func putFormValue(payload map[string]any, key string, vals []string) {
	if strings.HasSuffix(key, "[]") {
		arr := make([]any, len(vals))
		for i, v := range vals {
			arr[i] = v
		}
		payload[strings.TrimSuffix(key, "[]")] = arr
		return
	}
	if len(vals) == 1 {
		payload[key] = vals[0]
		return
	}
	arr := make([]any, len(vals))
	for i, v := range vals {
		arr[i] = v
	}
	payload[key] = arr
}

func submissionFlag(payload map[string]any, key string) bool {
	v, ok := payload[key]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(t) {
		case "1", "true", "on", "yes":
			return true
		}
	case float64:
		return t != 0
	}
	return false
}

func stringField(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}

func actorID(c echo.Context) string {
	return auth.FromContext(c.Request().Context()).ID
}
