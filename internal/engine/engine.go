package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/roach88/manifest/internal/ir"
	"github.com/roach88/manifest/internal/query"
	"github.com/roach88/manifest/internal/store"
)

// User is the acting identity a command runs as. TenantID scopes every
// read and write; the engine never touches another tenant's rows.
type User struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// Engine executes commands from one compiled document on behalf of one
// user. Engines are cheap; create one per execution context rather
// than sharing a mutable one.
type Engine struct {
	doc       *ir.Document
	user      User
	provider  store.Provider
	sink      EventSink
	telemetry Telemetry
	log       *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithEventSink attaches a sink that observes outbox rows after every
// successful write.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithTelemetry attaches a telemetry hook notified after every
// execution.
func WithTelemetry(t Telemetry) Option {
	return func(e *Engine) { e.telemetry = t }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithClock overrides the wall clock. Tests use this to pin event
// timestamps and now().
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides instance and uuid() id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New builds an Engine over a compiled document.
func New(doc *ir.Document, user User, provider store.Provider, opts ...Option) *Engine {
	e := &Engine{
		doc:      doc,
		user:     user,
		provider: provider,
		log:      slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateInstance validates data against the entity's declared
// properties, fills defaults for absent fields, and persists the new
// instance. An "id" key in data becomes the instance id; otherwise one
// is generated.
func (e *Engine) CreateInstance(ctx context.Context, entity string, data ir.IRObject) (*store.Instance, error) {
	ent := e.doc.Entity(entity)
	if ent == nil {
		return nil, errf(CodeEntityNotFound, "unknown entity %q", entity)
	}

	out := make(ir.IRObject, len(data))
	for k, v := range data {
		if k == "id" {
			continue
		}
		prop := ent.Property(k)
		if prop == nil {
			return nil, errf(CodeInvalidData, "unknown property %q on entity %q", k, entity)
		}
		if prop.Kind != ir.PropertyField {
			return nil, errf(CodeInvalidData, "property %q on entity %q is not writable", k, entity)
		}
		out[k] = v
	}

	env := &evalEnv{user: e.user, now: e.now, newID: e.newID}
	for i := range ent.Properties {
		prop := &ent.Properties[i]
		if prop.Kind != ir.PropertyField {
			continue
		}
		if _, ok := out[prop.Name]; ok {
			continue
		}
		if prop.Default != nil {
			v, err := env.eval(prop.Default)
			if err != nil {
				return nil, err
			}
			out[prop.Name] = v
			continue
		}
		if prop.HasModifier("required") {
			return nil, errf(CodeInvalidData, "missing required property %q on entity %q", prop.Name, entity)
		}
	}

	id := e.newID()
	if v, ok := data["id"].(ir.IRString); ok && v != "" {
		id = string(v)
	}
	out["id"] = ir.IRString(id)

	st, err := e.provider.StoreFor(entity)
	if err != nil {
		return nil, err
	}
	inst := store.Instance{ID: id, Data: out.Clone()}
	if err := st.Create(ctx, inst); err != nil {
		return nil, err
	}

	e.log.Debug("instance created", "entity", entity, "id", id, "tenant", e.user.TenantID)
	return &inst, nil
}

// ListInstances returns the tenant's instances of one entity type,
// optionally filtered. A nil predicate lists everything. Stores that
// filter on the backend are preferred; others fall back to loading all
// rows and evaluating the predicate here.
func (e *Engine) ListInstances(ctx context.Context, entity string, pred query.Predicate) ([]store.Instance, error) {
	if e.doc.Entity(entity) == nil {
		return nil, errf(CodeEntityNotFound, "unknown entity %q", entity)
	}
	st, err := e.provider.StoreFor(entity)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return st.GetAll(ctx)
	}
	if q, ok := st.(store.Querier); ok {
		return q.Query(ctx, pred)
	}

	all, err := st.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, inst := range all {
		ok, err := query.Matches(pred, inst.Data)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, inst)
		}
	}
	return out, nil
}

// GetInstance loads one instance. Absence is (nil, nil), including
// instances that exist under another tenant; callers can never tell
// the two cases apart.
func (e *Engine) GetInstance(ctx context.Context, entity, id string) (*store.Instance, error) {
	if e.doc.Entity(entity) == nil {
		return nil, errf(CodeEntityNotFound, "unknown entity %q", entity)
	}
	st, err := e.provider.StoreFor(entity)
	if err != nil {
		return nil, err
	}
	return st.GetByID(ctx, id)
}

// RunCommand executes one command against one instance.
//
// Policies and guards evaluate in order against the instance as loaded;
// the first failure returns a CommandResult with Success false and not
// a single byte of state changed. On success, actions apply in order to
// a clone of the instance data, emitted events become pending outbox
// rows, and both are committed in one transaction when the store
// supports it.
func (e *Engine) RunCommand(ctx context.Context, entity, command, instanceID string, params ir.IRObject) (*CommandResult, error) {
	ent := e.doc.Entity(entity)
	if ent == nil {
		return nil, errf(CodeEntityNotFound, "unknown entity %q", entity)
	}
	cmd := e.doc.CommandNamed(entity, command)
	if cmd == nil {
		return nil, errf(CodeCommandNotFound, "entity %q has no command %q", entity, command)
	}
	if err := validateParams(cmd, params); err != nil {
		return nil, err
	}

	st, err := e.provider.StoreFor(entity)
	if err != nil {
		return nil, err
	}
	inst, err := st.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, errf(CodeInstanceNotFound, "no %q instance %q", entity, instanceID)
	}

	result := &CommandResult{Entity: entity, Command: command, InstanceID: instanceID}
	env := &evalEnv{
		instance: inst.Data,
		entity:   ent,
		params:   params,
		user:     e.user,
		now:      e.now,
		newID:    e.newID,
	}

	for i := range e.doc.Policies {
		pol := &e.doc.Policies[i]
		if !policyApplies(pol, command) {
			continue
		}
		ok, err := env.evalBool(pol.Expr)
		if err != nil {
			return nil, err
		}
		if !ok {
			msg := pol.Message
			if msg == "" {
				msg = "denied by policy " + pol.Name
			}
			result.PolicyDenial = &PolicyDenial{Policy: pol.Name, Message: msg}
			return e.finish(ctx, result)
		}
	}

	for i := range cmd.Guards {
		g := &cmd.Guards[i]
		ok, err := env.evalBool(g.Expr)
		if err != nil {
			return nil, err
		}
		if !ok {
			msg := g.Message
			if msg == "" {
				msg = "guard failed: " + g.Source
			}
			result.GuardFailure = &GuardFailure{Index: i, Expression: g.Source, Message: msg}
			return e.finish(ctx, result)
		}
	}

	// Actions apply to a clone and see each other's writes in order.
	next := inst.Data.Clone()
	env.instance = next
	for i := range cmd.Actions {
		a := &cmd.Actions[i]
		v, err := env.eval(a.Expr)
		if err != nil {
			return nil, err
		}
		next[a.Target] = v
	}

	at := e.now().UTC()
	rows := make([]store.OutboxEvent, 0, len(cmd.Emits))
	for i := range cmd.Emits {
		tmpl := &cmd.Emits[i]
		payload := make(ir.IRObject, len(tmpl.Payload)+1)
		for _, f := range tmpl.Payload {
			v, err := env.eval(f.Value)
			if err != nil {
				return nil, err
			}
			payload[f.Key] = v
		}
		if !hasAggregateID(payload) {
			payload["aggregateId"] = ir.IRString(inst.ID)
		}

		eventType := e.eventTypeFor(ent.Name, tmpl.Event)
		row, err := store.NewOutboxEvent(e.user.TenantID, ent.Name, inst.ID, eventType, payload, i, at)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
		result.Events = append(result.Events, EmittedEvent{
			Name:    tmpl.Event,
			Type:    eventType,
			Payload: payload,
			At:      row.CreatedAt,
		})
	}

	if ew, ok := st.(store.EventWriter); ok && len(rows) > 0 {
		err = ew.UpdateWithEvents(ctx, inst.ID, next, rows)
	} else {
		if len(rows) > 0 {
			e.log.Warn("store lacks a transactional outbox; events go to the sink only",
				"entity", entity, "command", command)
		}
		err = st.Update(ctx, inst.ID, next)
	}
	if err != nil {
		return nil, err
	}

	if e.sink != nil && len(rows) > 0 {
		if err := e.sink.Record(ctx, rows); err != nil {
			return nil, err
		}
	}

	result.Success = true
	e.log.Debug("command executed",
		"entity", entity, "command", command, "instance", instanceID,
		"tenant", e.user.TenantID, "events", len(rows))
	return e.finish(ctx, result)
}

// finish runs the telemetry hook and hands the result back. Telemetry
// sees failures too; for successes it runs only after the write has
// committed.
func (e *Engine) finish(ctx context.Context, result *CommandResult) (*CommandResult, error) {
	if e.telemetry != nil {
		if err := e.telemetry.OnCommandExecuted(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func validateParams(cmd *ir.Command, params ir.IRObject) error {
	for i := range cmd.Params {
		if _, ok := params[cmd.Params[i].Name]; !ok {
			return errf(CodeInvalidParams, "command %q requires parameter %q", cmd.Name, cmd.Params[i].Name)
		}
	}
	for k := range params {
		if !hasParam(cmd, k) {
			return errf(CodeInvalidParams, "command %q has no parameter %q", cmd.Name, k)
		}
	}
	return nil
}

// policyApplies reports whether a policy governs the command. A policy
// declared without an action, or with the catch-all actions "all" or
// "execute", governs every command.
func policyApplies(pol *ir.Policy, command string) bool {
	switch pol.Action {
	case "", "all", "execute":
		return true
	}
	return pol.Action == command
}

func hasParam(cmd *ir.Command, name string) bool {
	for i := range cmd.Params {
		if cmd.Params[i].Name == name {
			return true
		}
	}
	return false
}

func hasAggregateID(payload ir.IRObject) bool {
	for _, f := range []string{"aggregateId", "taskId", "id"} {
		if v, ok := payload[f].(ir.IRString); ok && v != "" {
			return true
		}
	}
	return false
}

// eventTypeFor resolves the wire event type: the declared channel when
// one exists, otherwise <entity>.<event> in snake case.
func (e *Engine) eventTypeFor(entity, event string) string {
	if decl := e.doc.EventNamed(event); decl != nil && decl.Channel != "" {
		return decl.Channel
	}
	return toSnake(entity) + "." + toSnake(event)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
