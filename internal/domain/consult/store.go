package consult

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/forms"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/db"
)

// SchemaSource resolves the active form schema for a form type.
type SchemaSource interface {
	ActiveForm(ctx context.Context, formType string) (*forms.ClinicForm, error)
}

// NoteAppender records an audit note against an order.
type NoteAppender interface {
	AddNote(ctx context.Context, orderID uuid.UUID, note string) (bool, error)
}

// TxRunner executes fn with transactional repository access.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PoolTxRunner adapts the shared connection pool into a TxRunner.
func PoolTxRunner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
}

// Store runs the save pipeline: schema resolution, validation, normalization,
// transactional merge, visibility pruning, and session meta mirroring.
type Store struct {
	sessions  SessionRepository
	responses ResponseRepository
	schemas   SchemaSource
	files     forms.FileSaver
	notes     NoteAppender
	runTx     TxRunner
	log       zerolog.Logger
}

func NewStore(sessions SessionRepository, responses ResponseRepository, schemas SchemaSource,
	files forms.FileSaver, notes NoteAppender, runTx TxRunner, log zerolog.Logger) *Store {
	return &Store{
		sessions:  sessions,
		responses: responses,
		schemas:   schemas,
		files:     files,
		notes:     notes,
		runTx:     runTx,
		log:       log,
	}
}

// SaveInput is one form submission against a session.
type SaveInput struct {
	SessionID    uuid.UUID
	FormType     string
	Payload      map[string]any
	Uploads      map[string][]forms.Upload
	MarkComplete bool
	Step         string
	Tab          string
	Actor        string
}

// SaveResult reports what a save wrote.
type SaveResult struct {
	SavedKeys   []string   `json:"saved_keys"`
	IsComplete  bool       `json:"is_complete"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Step        string     `json:"step,omitempty"`
	Tab         string     `json:"tab,omitempty"`
}

// Save validates and persists a form submission. Validation failures surface
// as *forms.ValidationError; everything past validation is atomic.
func (s *Store) Save(ctx context.Context, in SaveInput) (*SaveResult, error) {
	session, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == SessionCompleted {
		return nil, fmt.Errorf("session %s is already completed", session.ID)
	}

	form, err := s.schemas.ActiveForm(ctx, in.FormType)
	if err != nil {
		return nil, fmt.Errorf("resolve form %q: %w", in.FormType, err)
	}
	if form.Service != "" && session.Service != "" && form.Service != session.Service {
		// Shared forms are reused across services; mismatch is logged, not
		// rejected.
		s.log.Warn().
			Str("session_id", session.ID.String()).
			Str("form_type", in.FormType).
			Str("form_service", form.Service).
			Str("session_service", session.Service).
			Msg("form service does not match session service")
	}

	if verr := forms.Validate(form.Schema, in.Payload, in.Uploads); verr != nil {
		return nil, verr
	}

	normalized, err := forms.Normalize(ctx, form.Schema, in.Payload, in.Uploads, s.files)
	if err != nil {
		return nil, fmt.Errorf("normalize answers: %w", err)
	}

	var result SaveResult
	err = s.runTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()

		resp, err := s.responses.GetForUpdate(ctx, in.SessionID, in.FormType)
		created := false
		if errors.Is(err, ErrResponseNotFound) {
			resp = &FormResponse{
				SessionID: in.SessionID,
				FormType:  in.FormType,
				Data:      map[string]any{},
				CreatedBy: in.Actor,
			}
			created = true
		} else if err != nil {
			return err
		}

		merged := forms.Merge(resp.Data, normalized)
		forms.Prune(form.Schema, merged)

		resp.Data = merged
		resp.UpdatedBy = in.Actor
		if in.MarkComplete {
			resp.MarkComplete(now)
		}

		if created {
			if err := s.responses.Create(ctx, resp); err != nil {
				return err
			}
		} else if err := s.responses.Update(ctx, resp); err != nil {
			return err
		}

		locked, err := s.sessions.GetForUpdate(ctx, in.SessionID)
		if err != nil {
			return err
		}
		mirrorAnswers(locked, in.FormType, form.Slug, merged)
		if err := s.sessions.Update(ctx, locked); err != nil {
			return err
		}

		result = SaveResult{
			SavedKeys:   savedKeys(normalized, merged),
			IsComplete:  resp.IsComplete,
			CompletedAt: resp.CompletedAt,
			Step:        in.Step,
			Tab:         in.Tab,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Free-text notes submitted with the form are lifted onto the order.
	// Best effort; a failure never unwinds the saved answers.
	if s.notes != nil && session.OrderID != uuid.Nil {
		for _, note := range noteTexts(normalized) {
			if _, err := s.notes.AddNote(ctx, session.OrderID, note); err != nil {
				s.log.Warn().Err(err).
					Str("session_id", session.ID.String()).
					Str("order_id", session.OrderID.String()).
					Msg("failed to append order note")
			}
		}
	}

	return &result, nil
}

// Response reads a session's stored answers for one form type.
func (s *Store) Response(ctx context.Context, sessionID uuid.UUID, formType string) (*FormResponse, error) {
	return s.responses.Get(ctx, sessionID, formType)
}

// mirrorAnswers copies merged answers into every meta path older consumers
// read from. All four spellings stay in sync on each save.
func mirrorAnswers(session *Session, formType, slug string, merged map[string]any) {
	session.MetaSet("forms."+formType+".answers", merged)
	if slug != "" && slug != formType {
		session.MetaSet("forms."+slug+".answers", merged)
	}
	session.MetaSet("formsQA."+formType, merged)
	session.MetaSet("forms_qa."+formType, merged)
}

// noteTexts pulls free-text note answers out of a submission, in stable
// order. The appender handles de-duplication against notes already on the
// order.
func noteTexts(normalized map[string]any) []string {
	var out []string
	for _, key := range []string{
		"admin_notes", "admin_note",
		"consultation_notes", "consultation_note",
		"clinician_notes",
	} {
		s, ok := normalized[key].(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// savedKeys lists the keys this save actually wrote, in stable order. Keys
// normalized away by visibility pruning are excluded.
func savedKeys(normalized, merged map[string]any) []string {
	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		if _, ok := merged[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
