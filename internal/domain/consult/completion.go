package consult

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/identity"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/orders"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/carrier"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/mail"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/platform/pdfgen"
)

// OrderFlow is the slice of the orders service completion needs.
type OrderFlow interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	CompleteOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	CompleteAppointment(ctx context.Context, orderID uuid.UUID) (*orders.Appointment, error)
	SetOrderMeta(ctx context.Context, id uuid.UUID, entries map[string]any) (*orders.Order, error)
	AddNote(ctx context.Context, id uuid.UUID, note string) (bool, error)
}

// UserSource loads the patient account behind a session.
type UserSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// Locator resolves a stored file reference to an absolute path on disk.
type Locator interface {
	Locate(ref string) (string, error)
}

// StepResult records the outcome of one post-completion step.
type StepResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// CompletionResult is the outcome of completing a session.
type CompletionResult struct {
	SessionID   uuid.UUID    `json:"session_id"`
	Status      string       `json:"status"`
	AlreadyDone bool         `json:"already_done"`
	Steps       []StepResult `json:"steps"`
}

/// Orchestrator drives consultation completion: the authoritative status
// flips, then the best-effort follow-up steps. Every follow-up failure is
// recorded but never unwinds the completion itself.
type Orchestrator struct {
	sessions  SessionRepository
	responses ResponseRepository
	orders    OrderFlow
	users     UserSource
	docs      pdfgen.Generator
	shipper   carrier.Client
	mailer    mail.Sender
	locator   Locator
	runTx     TxRunner
	log       zerolog.Logger

	// StepTimeout bounds each external call.
	StepTimeout time.Duration
	// Guides maps a service name to an information leaflet attached to the
	// confirmation email.
	Guides map[string]string
}

func NewOrchestrator(sessions SessionRepository, responses ResponseRepository, flow OrderFlow,
	users UserSource, docs pdfgen.Generator, shipper carrier.Client, mailer mail.Sender,
	locator Locator, runTx TxRunner, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:    sessions,
		responses:   responses,
		orders:      flow,
		users:       users,
		docs:        docs,
		shipper:     shipper,
		mailer:      mailer,
		locator:     locator,
		runTx:       runTx,
		log:         log,
		StepTimeout: 30 * time.Second,
	}
}

// Complete finishes a consultation session. Calling it again after full
// success returns the recorded outcome without re-running any step; after a
// partial failure it re-runs only the steps that failed.
func (o *Orchestrator) Complete(ctx context.Context, sessionID uuid.UUID, actor string) (*CompletionResult, error) {
	session, err := o.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status == SessionCompleted {
		if done, _ := session.MetaGet("completion.done"); done == true {
			return &CompletionResult{
				SessionID:   session.ID,
				Status:      session.Status,
				AlreadyDone: true,
				Steps:       storedSteps(session),
			}, nil
		}
	}

	// Authoritative flips happen atomically; nothing below runs unless the
	// session, order, and appointment all advanced.
	err = o.runTx(ctx, func(ctx context.Context) error {
		locked, err := o.sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if locked.Status == SessionCompleted {
			session = locked
			return nil
		}

		locked.Status = SessionCompleted
		locked.MetaSet("completion.completed_at", time.Now().UTC().Format(time.RFC3339))
		locked.MetaSet("completion.completed_by", actor)
		if err := o.sessions.Update(ctx, locked); err != nil {
			return err
		}

		if locked.OrderID != uuid.Nil {
			// Terminal order and appointment statuses are left untouched by
			// these calls, never treated as failures.
			if _, err := o.orders.CompleteOrder(ctx, locked.OrderID); err != nil {
				return fmt.Errorf("complete order: %w", err)
			}
			if _, err := o.orders.CompleteAppointment(ctx, locked.OrderID); err != nil &&
				!errors.Is(err, orders.ErrAppointmentNotFound) {
				return fmt.Errorf("complete appointment: %w", err)
			}
		}
		session = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	if list, err := o.responses.ListBySession(ctx, sessionID); err == nil {
		types := make([]any, 0, len(list))
		for _, r := range list {
			if r.IsComplete {
				types = append(types, r.FormType)
			}
		}
		session.MetaSet("completion.forms", types)
	}

	steps := []StepResult{
		o.runStep(ctx, session, "documents", o.stepDocuments),
		o.runStep(ctx, session, "shipping", o.stepShipping),
		o.runStep(ctx, session, "email", o.stepEmail),
		o.runStep(ctx, session, "hydration", o.stepHydration),
	}

	// The done marker is set only when every step succeeded; a re-invocation
	// after a partial failure re-runs just the failed steps.
	allOK := true
	for _, st := range steps {
		if !st.OK {
			allOK = false
			break
		}
	}
	if allOK {
		session.MetaSet("completion.done", true)
	}
	recordSteps(session, steps)
	if err := o.sessions.Update(ctx, session); err != nil {
		o.log.Error().Err(err).Str("session_id", session.ID.String()).
			Msg("failed to persist completion step results")
	}

	return &CompletionResult{
		SessionID: session.ID,
		Status:    session.Status,
		Steps:     steps,
	}, nil
}

// Result returns the recorded completion outcome for a session.
func (o *Orchestrator) Result(ctx context.Context, sessionID uuid.UUID) (*CompletionResult, error) {
	session, err := o.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	done, _ := session.MetaGet("completion.done")
	return &CompletionResult{
		SessionID:   session.ID,
		Status:      session.Status,
		AlreadyDone: done == true,
		Steps:       storedSteps(session),
	}, nil
}

type stepFunc func(ctx context.Context, session *Session) (string, error)

// runStep executes one follow-up step with a marker guard and a timeout. A
// step that already ran on a previous attempt reports its stored outcome.
func (o *Orchestrator) runStep(ctx context.Context, session *Session, name string, fn stepFunc) StepResult {
	if done, _ := session.MetaGet("completion.steps." + name + ".ok"); done == true {
		detail, _ := session.MetaGet("completion.steps." + name + ".detail")
		d, _ := detail.(string)
		return StepResult{Name: name, OK: true, Detail: d}
	}

	stepCtx, cancel := context.WithTimeout(ctx, o.StepTimeout)
	defer cancel()

	detail, err := fn(stepCtx, session)
	if err != nil {
		o.log.Warn().Err(err).
			Str("session_id", session.ID.String()).
			Str("step", name).
			Msg("completion step failed")
		return StepResult{Name: name, OK: false, Error: err.Error()}
	}
	session.MetaSet("completion.steps."+name+".ok", true)
	if detail != "" {
		session.MetaSet("completion.steps."+name+".detail", detail)
	}
	return StepResult{Name: name, OK: true, Detail: detail}
}

func (o *Orchestrator) stepDocuments(ctx context.Context, session *Session) (string, error) {
	if o.docs == nil {
		return "skipped: no document renderer configured", nil
	}
	docs, err := o.docs.Generate(ctx, session.ID.String())
	if err != nil {
		return "", err
	}
	session.MetaSet("completion.documents.record_of_supply", docs.RecordOfSupplyPath)
	session.MetaSet("completion.documents.invoice", docs.InvoicePath)
	if docs.NotificationPath != "" {
		session.MetaSet("completion.documents.notification", docs.NotificationPath)
	}

	if session.OrderID != uuid.Nil {
		entries := map[string]any{
			"documents.record_of_supply": docs.RecordOfSupplyPath,
			"documents.invoice":          docs.InvoicePath,
		}
		if docs.NotificationPath != "" {
			entries["documents.notification"] = docs.NotificationPath
		}
		if _, err := o.orders.SetOrderMeta(ctx, session.OrderID, entries); err != nil {
			return "", fmt.Errorf("record document paths on order: %w", err)
		}
	}
	return "documents generated", nil
}

func (o *Orchestrator) stepShipping(ctx context.Context, session *Session) (string, error) {
	if o.shipper == nil {
		return "skipped: no carrier configured", nil
	}
	if session.OrderID == uuid.Nil {
		return "skipped: session has no order", nil
	}
	order, err := o.orders.GetOrder(ctx, session.OrderID)
	if err != nil {
		return "", err
	}

	addr, source, err := o.resolveAddress(ctx, session, order)
	if err != nil {
		return "", err
	}

	result, err := o.shipper.CreateOrder(ctx, carrier.OrderRequest{
		Reference: order.Reference,
		Address:   addr,
	})
	if err != nil {
		return "", err
	}

	tracking := result.TrackingNumber()
	session.MetaSet("completion.shipping.address_source", source)
	entries := map[string]any{}
	if tracking != "" {
		session.MetaSet("completion.shipping.tracking_number", tracking)
		entries["shipping.tracking_number"] = tracking
		if _, err := o.orders.AddNote(ctx, order.ID, "Shipment booked, tracking "+tracking); err != nil {
			o.log.Warn().Err(err).Str("order_id", order.ID.String()).
				Msg("failed to append tracking note")
		}
	}
	if len(result.LabelPaths) > 0 {
		session.MetaSet("completion.shipping.labels", result.LabelPaths)
		entries["shipping.labels"] = result.LabelPaths
	}
	if len(entries) > 0 {
		if _, err := o.orders.SetOrderMeta(ctx, order.ID, entries); err != nil {
			return "", fmt.Errorf("record shipment on order: %w", err)
		}
	}
	return "shipment booked via " + source + " address", nil
}

// resolveAddress walks the fallback chain: the order's own structured
// address, nested address maps on the order meta, a best-effort rebuild from
// flat order-meta keys, answers captured during the consultation, then the
// patient account.
func (o *Orchestrator) resolveAddress(ctx context.Context, session *Session, order *orders.Order) (carrier.Address, string, error) {
	if order.Shipping.Usable() {
		return carrier.Address{
			Name:     order.Shipping.Name,
			Line1:    order.Shipping.Line1,
			Line2:    order.Shipping.Line2,
			City:     order.Shipping.City,
			Postcode: order.Shipping.Postcode,
			Country:  defaultCountry(order.Shipping.Country),
			Phone:    order.Shipping.Phone,
		}, "order", nil
	}

	for _, key := range []string{"shipping", "shipping_address", "delivery_address", "address"} {
		if nested, ok := order.Meta[key].(map[string]any); ok {
			if addr, ok := addressFromMap(nested); ok {
				return addr, "order_meta", nil
			}
		}
	}

	if addr, ok := addressFromMap(flatValues(order.Meta)); ok {
		return addr, "order_meta_flat", nil
	}

	if addr, ok := addressFromAnswers(session); ok {
		return addr, "answers", nil
	}

	if o.users != nil && session.UserID != uuid.Nil {
		user, err := o.users.GetByID(ctx, session.UserID)
		if err == nil && user.HasAddress() {
			return carrier.Address{
				Name:     user.FullName(),
				Line1:    user.AddressLine1,
				Line2:    user.AddressLine2,
				City:     user.City,
				Postcode: user.Postcode,
				Country:  defaultCountry(user.Country),
				Phone:    user.Phone,
				Email:    user.Email,
			}, "account", nil
		}
	}
	return carrier.Address{}, "", fmt.Errorf("no usable shipping address for order %s", order.Reference)
}

// addressFromAnswers scans every saved form's answers for shipping fields.
func addressFromAnswers(session *Session) (carrier.Address, bool) {
	formsMeta, ok := session.MetaGet("forms")
	if !ok {
		return carrier.Address{}, false
	}
	byType, ok := formsMeta.(map[string]any)
	if !ok {
		return carrier.Address{}, false
	}
	for _, entry := range byType {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		answers, ok := m["answers"].(map[string]any)
		if !ok {
			continue
		}
		if addr, ok := addressFromMap(answers); ok {
			return addr, true
		}
	}
	return carrier.Address{}, false
}

// addressFromMap rebuilds a delivery address from loosely-named keys. Usable
// only when at least a first line and a postcode emerge.
func addressFromMap(values map[string]any) (carrier.Address, bool) {
	addr := carrier.Address{
		Name:     answerString(values, "shipping_name", "full_name", "name"),
		Line1:    answerString(values, "shipping_line1", "address_line1", "line1", "address"),
		Line2:    answerString(values, "shipping_line2", "address_line2", "line2"),
		City:     answerString(values, "shipping_city", "city", "town"),
		Postcode: answerString(values, "shipping_postcode", "postcode", "post_code"),
		Country:  defaultCountry(answerString(values, "shipping_country", "country")),
		Phone:    answerString(values, "shipping_phone", "phone", "telephone"),
	}
	if addr.Line1 != "" && addr.Postcode != "" {
		return addr, true
	}
	return carrier.Address{}, false
}

// flatValues walks nested meta maps and indexes every leaf scalar under its
// own key, first value wins. Lets address reconstruction see keys however
// deeply an importer buried them.
func flatValues(meta map[string]any) map[string]any {
	out := map[string]any{}
	var walk func(m map[string]any)
	walk = func(m map[string]any) {
		for k, v := range m {
			if nested, ok := v.(map[string]any); ok {
				walk(nested)
				continue
			}
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	walk(meta)
	return out
}

func answerString(answers map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := answers[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func defaultCountry(c string) string {
	if c == "" {
		return "GB"
	}
	return c
}

func (o *Orchestrator) stepEmail(ctx context.Context, session *Session) (string, error) {
	if o.mailer == nil {
		return "skipped: no mailer configured", nil
	}
	if o.users == nil || session.UserID == uuid.Nil {
		return "skipped: session has no patient account", nil
	}
	user, err := o.users.GetByID(ctx, session.UserID)
	if err != nil {
		return "", err
	}
	if user.Email == "" {
		return "skipped: patient has no email address", nil
	}

	msg := mail.Message{
		To:      []string{user.Email},
		Subject: "Your consultation is complete",
		Body: fmt.Sprintf("<p>Dear %s,</p><p>Your consultation has been completed and your order is being prepared.</p>",
			user.FullName()),
	}

	attached := 0
	for _, path := range []string{
		metaString(session, "completion.documents.record_of_supply"),
		metaString(session, "completion.documents.invoice"),
		o.Guides[session.Service],
	} {
		if path == "" {
			continue
		}
		if o.locator != nil {
			resolved, err := o.locator.Locate(path)
			if err != nil {
				// Missing attachments are dropped, not fatal.
				o.log.Warn().Str("ref", path).Msg("attachment not found, skipping")
				continue
			}
			path = resolved
		}
		msg.Attachments = append(msg.Attachments, mail.Attachment{Path: path})
		attached++
	}

	if err := o.mailer.Send(ctx, msg); err != nil {
		return "", err
	}
	return fmt.Sprintf("confirmation sent to %s with %d attachments", user.Email, attached), nil
}

// stepHydration fills missing patient profile fields on the session meta,
/// never overwriting values already present. Sources in priority order: the
// order (its shipping address and meta), the patient account, then answers
// captured in forms.
func (o *Orchestrator) stepHydration(ctx context.Context, session *Session) (string, error) {
	var sources []map[string]any

	if session.OrderID != uuid.Nil {
		if order, err := o.orders.GetOrder(ctx, session.OrderID); err == nil {
			src := flatValues(order.Meta)
			if order.Shipping.Phone != "" {
				src["phone"] = order.Shipping.Phone
			}
			if order.Shipping.Postcode != "" {
				src["postcode"] = order.Shipping.Postcode
			}
			sources = append(sources, src)
		}
	}

	if o.users != nil && session.UserID != uuid.Nil {
		if user, err := o.users.GetByID(ctx, session.UserID); err == nil {
			sources = append(sources, map[string]any{
				"phone":    user.Phone,
				"postcode": user.Postcode,
			})
		}
	}

	sources = append(sources, collectAnswers(session))

	set := 0
	for metaPath, keys := range map[string][]string{
		"patient.dob":      {"date_of_birth", "dob"},
		"patient.phone":    {"phone", "telephone", "contact_number"},
		"patient.gp_name":  {"gp_name", "gp"},
		"patient.height":   {"height", "patient_height"},
		"patient.weight":   {"weight", "patient_weight"},
		"patient.postcode": {"postcode", "shipping_postcode"},
	} {
		v := lookupFirst(sources, keys)
		if v == nil {
			continue
		}
		if session.MetaSetIfEmpty(metaPath, v) {
			set++
		}
	}
	return fmt.Sprintf("hydrated %d profile fields", set), nil
}

// lookupFirst finds the first non-empty value for any of the keys, honouring
// source priority before key priority.
func lookupFirst(sources []map[string]any, keys []string) any {
	for _, src := range sources {
		for _, key := range keys {
			v, ok := src[key]
			if !ok || v == nil || v == "" {
				continue
			}
			return v
		}
	}
	return nil
}

// collectAnswers flattens every form's answers into one lookup map. Later
// forms never overwrite earlier values since order is not guaranteed.
func collectAnswers(session *Session) map[string]any {
	out := map[string]any{}
	formsMeta, ok := session.MetaGet("forms")
	if !ok {
		return out
	}
	byType, ok := formsMeta.(map[string]any)
	if !ok {
		return out
	}
	for _, entry := range byType {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		answers, ok := m["answers"].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range answers {
			if _, exists := out[k]; !exists {
				out[k] = v
			}
		}
	}
	return out
}

func metaString(session *Session, path string) string {
	v, _ := session.MetaGet(path)
	s, _ := v.(string)
	return s
}

func recordSteps(session *Session, steps []StepResult) {
	list := make([]any, 0, len(steps))
	for _, st := range steps {
		entry := map[string]any{"name": st.Name, "ok": st.OK}
		if st.Detail != "" {
			entry["detail"] = st.Detail
		}
		if st.Error != "" {
			entry["error"] = st.Error
		}
		list = append(list, entry)
	}
	session.MetaSet("completion.results", list)
}

func storedSteps(session *Session) []StepResult {
	raw, _ := session.MetaGet("completion.results")
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]StepResult, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		st := StepResult{}
		st.Name, _ = m["name"].(string)
		st.OK, _ = m["ok"].(bool)
		st.Detail, _ = m["detail"].(string)
		st.Error, _ = m["error"].(string)
		out = append(out, st)
	}
	return out
}
