// Package workflow coordinates user actions against the generation gateway
// and the session store. It owns the transient view state (busy flag, last
// error, display tab, solution chats) and publishes typed events.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
	"github.com/apmishra/gai-symptom-resolver/internal/document"
	"github.com/apmishra/gai-symptom-resolver/internal/engine"
	"github.com/apmishra/gai-symptom-resolver/internal/session"
)

// Generator is the generation side the orchestrator needs. *gateway.Gateway
// implements it.
type Generator interface {
	ExtractSymptoms(ctx context.Context, text string) ([]contracts.Symptom, error)
	GetAnalysis(ctx context.Context, names []string) (*contracts.AnalysisResults, error)
	QuerySource(ctx context.Context, solution contracts.Solution, question string, history []engine.ChatMessage) (string, error)
}

// View is what a front end renders for one session.
type View struct {
	Session  session.Session
	Tab      session.Tab
	Unlocked []session.Tab
	Active   bool
	Busy     bool
	Error    string
}

type chatKey struct {
	session  string
	category contracts.Category
	index    int
}

// Orchestrator runs at most one generation action per session at a time.
// A second action while one is in flight fails with ErrBusy.
type Orchestrator struct {
	store     *session.Store
	gen       Generator
	docs      document.Extractor
	nav       *session.Navigator
	listeners Listeners
	logger    *zap.Logger

	mu    sync.Mutex
	busy  map[string]bool
	errs  map[string]string
	chats map[chatKey][]engine.ChatMessage
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExtractor enables SubmitDocument.
func WithExtractor(x document.Extractor) Option {
	return func(o *Orchestrator) { o.docs = x }
}

// WithListener adds event listeners.
func WithListener(ls ...Listener) Option {
	return func(o *Orchestrator) { o.listeners = append(o.listeners, ls...) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an orchestrator over an initialised store.
func New(store *session.Store, gen Generator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:  store,
		gen:    gen,
		nav:    session.NewNavigator(),
		logger: zap.NewNop(),
		busy:   make(map[string]bool),
		errs:   make(map[string]string),
		chats:  make(map[chatKey][]engine.ChatMessage),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start creates a first session when the store is empty and points the
// active session's tab at its status.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.store.Len() == 0 {
		_, err := o.NewSession(ctx)
		return err
	}
	if s, ok := o.store.Active(); ok {
		o.nav.Follow(s.ID, s.Status)
	}
	return nil
}

// Sessions lists the history, newest first.
func (o *Orchestrator) Sessions() []session.Meta {
	return o.store.Metas()
}

// ActiveID returns the active session id, "" when there is none.
func (o *Orchestrator) ActiveID() string {
	return o.store.ActiveID()
}

// View returns the session and its view state. An empty id means the active
// session.
func (o *Orchestrator) View(id string) (View, error) {
	s, err := o.get(id)
	if err != nil {
		return View{}, err
	}

	o.mu.Lock()
	busy, msg := o.busy[s.ID], o.errs[s.ID]
	o.mu.Unlock()

	return View{
		Session:  s,
		Tab:      o.nav.Current(s.ID, s.Status),
		Unlocked: session.Unlocked(s.Status),
		Active:   s.ID == o.store.ActiveID(),
		Busy:     busy,
		Error:    msg,
	}, nil
}

// NewSession creates a session and makes it active.
func (o *Orchestrator) NewSession(ctx context.Context) (string, error) {
	id, err := o.store.Create(ctx)
	if err != nil {
		return "", err
	}
	s, _ := o.store.Get(id)
	o.nav.Follow(id, s.Status)
	o.emit(ctx, SessionCreated{Session: id, Name: s.Name})
	return id, nil
}

// SelectSession makes id active and moves its tab to match its status.
func (o *Orchestrator) SelectSession(ctx context.Context, id string) error {
	if !o.store.Select(id) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s, err := o.get(id)
	if err != nil {
		return err
	}
	tab := o.nav.Follow(id, s.Status)
	o.emit(ctx, SessionSelected{Session: id, Tab: tab})
	return nil
}

// DeleteSession removes a session and its view state. A session with an
// action in flight cannot be deleted.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	s, err := o.get(id)
	if err != nil {
		return err
	}
	if err := o.begin(s.ID); err != nil {
		return err
	}
	defer o.end(s.ID)

	if err := o.store.Delete(ctx, s.ID); err != nil {
		return err
	}
	o.nav.Forget(s.ID)
	o.dropChats(s.ID)
	o.mu.Lock()
	delete(o.errs, s.ID)
	o.mu.Unlock()

	active := o.store.ActiveID()
	if next, ok := o.store.Get(active); ok {
		o.nav.Follow(active, next.Status)
	}
	o.emit(ctx, SessionDeleted{Session: s.ID, Active: active})
	return nil
}

// SelectTab moves the display tab. Locked tabs are rejected with
// ErrTabLocked and the current tab is kept.
func (o *Orchestrator) SelectTab(ctx context.Context, id string, tab session.Tab) error {
	s, err := o.get(id)
	if err != nil {
		return err
	}
	if err := o.nav.Select(s.ID, tab, s.Status); err != nil {
		return err
	}
	o.emit(ctx, TabChanged{Session: s.ID, Tab: tab})
	return nil
}

// ResetSession returns the session to an empty input step.
func (o *Orchestrator) ResetSession(ctx context.Context, id string) error {
	s, err := o.get(id)
	if err != nil {
		return err
	}
	if err := o.begin(s.ID); err != nil {
		return err
	}
	defer o.end(s.ID)

	if err := o.store.Update(ctx, s.ID, func(sess *session.Session) error {
		session.Reset(sess)
		return nil
	}); err != nil {
		o.setError(s.ID, UserMessage(err, MsgSaveFailed))
		return err
	}
	o.dropChats(s.ID)
	o.nav.Follow(s.ID, session.StatusInput)
	o.emit(ctx, SessionReset{Session: s.ID})
	return nil
}

// ToggleSymptom flips one suggested symptom.
func (o *Orchestrator) ToggleSymptom(ctx context.Context, id string, index int) error {
	s, err := o.get(id)
	if err != nil {
		return err
	}
	if err := o.begin(s.ID); err != nil {
		return err
	}
	defer o.end(s.ID)

	return o.store.Update(ctx, s.ID, func(sess *session.Session) error {
		return session.ToggleSymptom(sess, index)
	})
}

// SubmitText extracts symptoms from text. On success the session moves to
// confirmation with every symptom confirmed and any earlier results
// cleared. On failure the session is left as it was.
func (o *Orchestrator) SubmitText(ctx context.Context, id, text string) error {
	s, err := o.get(id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		o.setError(s.ID, MsgEmptyInput)
		return &ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if err := o.begin(s.ID); err != nil {
		return err
	}
	defer o.end(s.ID)

	return o.extract(ctx, s.ID, text, SourceText)
}

// SubmitDocument extracts the text of a PDF and then its symptoms. A
// document that cannot be read leaves the session unchanged and asks the
// user to paste the text instead.
func (o *Orchestrator) SubmitDocument(ctx context.Context, id, path string) error {
	s, err := o.get(id)
	if err != nil {
		return err
	}
	if o.docs == nil {
		return errors.New("document extraction is not configured")
	}
	if err := o.begin(s.ID); err != nil {
		return err
	}
	defer o.end(s.ID)

	o.emit(ctx, ExtractionStarted{Session: s.ID, Source: SourceDocument})
	text, err := o.docs.ExtractText(ctx, path)
	if err != nil {
		msg := MsgPDFFailed
		if errors.Is(err, document.ErrUnsupportedType) {
			msg = MsgNotPDF
		}
		o.setError(s.ID, msg)
		o.emit(ctx, ExtractionFailed{Session: s.ID, Source: SourceDocument, Message: msg, Err: err})
		return err
	}
	return o.extract(ctx, s.ID, text, SourceDocument)
}

// extract runs the extraction call. Caller holds the busy flag.
func (o *Orchestrator) extract(ctx context.Context, id, text, source string) error {
	if source == SourceText {
		o.emit(ctx, ExtractionStarted{Session: id, Source: source})
	}

	symptoms, err := o.gen.ExtractSymptoms(ctx, text)
	if err == nil {
		err = o.store.Update(ctx, id, func(sess *session.Session) error {
			session.ApplyExtraction(sess, text, symptoms)
			return nil
		})
	}
	if err != nil {
		msg := UserMessage(err, MsgExtractFailed)
		o.setError(id, msg)
		o.emit(ctx, ExtractionFailed{Session: id, Source: source, Message: msg, Err: err})
		return err
	}

	o.dropChats(id)
	o.nav.Follow(id, session.StatusConfirmation)
	o.emit(ctx, ExtractionSucceeded{Session: id, Symptoms: len(symptoms)})
	return nil
}

// ConfirmSymptoms runs the analysis on the confirmed suggested symptoms plus
// the freeform names in additional. An empty combined list is rejected
// without a generation call.
func (o *Orchestrator) ConfirmSymptoms(ctx context.Context, id, additional string) error {
	s, err := o.get(id)
	if err != nil {
		return err
	}
	if s.Status.Ordinal() < session.StatusConfirmation.Ordinal() {
		o.setError(s.ID, MsgStepNotAvailable)
		return fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, s.Status)
	}
	if err := o.begin(s.ID); err != nil {
		return err
	}
	defer o.end(s.ID)

	// Re-read under the busy flag so a toggle that just finished is seen.
	if s, err = o.get(s.ID); err != nil {
		return err
	}
	names := CombineSymptoms(s.SuggestedSymptoms, additional)
	if len(names) == 0 {
		o.setError(s.ID, MsgNoSymptoms)
		return &ValidationError{Field: "symptoms", Reason: "at least one symptom is required"}
	}

	o.emit(ctx, AnalysisStarted{Session: s.ID, Symptoms: names})

	results, err := o.gen.GetAnalysis(ctx, names)
	if err == nil {
		err = o.store.Update(ctx, s.ID, func(sess *session.Session) error {
			return session.ApplyAnalysis(sess, results, names)
		})
	}
	if err != nil {
		msg := UserMessage(err, MsgAnalysisFailed)
		o.setError(s.ID, msg)
		o.emit(ctx, AnalysisFailed{Session: s.ID, Message: msg, Err: err})
		return err
	}

	o.dropChats(s.ID)
	o.nav.Follow(s.ID, session.StatusComplete)
	o.emit(ctx, AnalysisSucceeded{Session: s.ID, Reasons: len(results.PotentialReasons)})
	return nil
}

// AskSolution asks a question about one solution of the session's results.
// The question is added to that solution's chat before the call and removed
// again if the call fails, so the chat always alternates user and assistant
// turns.
func (o *Orchestrator) AskSolution(ctx context.Context, id string, category contracts.Category, index int, question string) (string, error) {
	s, err := o.get(id)
	if err != nil {
		return "", err
	}
	sol, err := solutionAt(s, category, index)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(question) == "" {
		o.setError(s.ID, MsgEmptyQuestion)
		return "", &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	if err := o.begin(s.ID); err != nil {
		return "", err
	}
	defer o.end(s.ID)

	key := chatKey{session: s.ID, category: category, index: index}
	o.mu.Lock()
	prior := append([]engine.ChatMessage(nil), o.chats[key]...)
	o.chats[key] = append(o.chats[key], engine.ChatMessage{Role: engine.RoleUser, Content: question})
	o.mu.Unlock()

	o.emit(ctx, QueryStarted{Session: s.ID, Category: category, Index: index, Question: question})

	answer, err := o.gen.QuerySource(ctx, sol, question, prior)
	if err != nil {
		o.mu.Lock()
		o.chats[key] = prior
		o.mu.Unlock()
		msg := UserMessage(err, MsgQueryFailed)
		o.setError(s.ID, msg)
		o.emit(ctx, QueryFailed{Session: s.ID, Category: category, Index: index, Message: msg, Err: err})
		return "", err
	}

	o.mu.Lock()
	o.chats[key] = append(o.chats[key], engine.ChatMessage{Role: engine.RoleAssistant, Content: answer})
	turns := len(o.chats[key])
	o.mu.Unlock()

	o.emit(ctx, QuerySucceeded{Session: s.ID, Category: category, Index: index, Turns: turns})
	return answer, nil
}

// ChatHistory returns a copy of one solution's chat.
func (o *Orchestrator) ChatHistory(id string, category contracts.Category, index int) []engine.ChatMessage {
	if id == "" {
		id = o.store.ActiveID()
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]engine.ChatMessage(nil), o.chats[chatKey{session: id, category: category, index: index}]...)
}

func solutionAt(s session.Session, category contracts.Category, index int) (contracts.Solution, error) {
	if s.AnalysisResults == nil {
		return contracts.Solution{}, ErrNoResults
	}
	if _, ok := contracts.ParseCategory(string(category)); !ok {
		return contracts.Solution{}, &ValidationError{Field: "category", Reason: fmt.Sprintf("unknown category %q", category)}
	}
	list := s.AnalysisResults.Solutions.Get(category)
	if index < 0 || index >= len(list) {
		return contracts.Solution{}, &ValidationError{
			Field:  "solution",
			Reason: fmt.Sprintf("index %d out of range [0,%d) for %s", index, len(list), category),
		}
	}
	return list[index], nil
}

// get resolves id ("" means active) to a session copy.
func (o *Orchestrator) get(id string) (session.Session, error) {
	if id == "" {
		id = o.store.ActiveID()
		if id == "" {
			return session.Session{}, fmt.Errorf("%w: no active session", ErrSessionNotFound)
		}
	}
	s, ok := o.store.Get(id)
	if !ok {
		return session.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (o *Orchestrator) begin(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.busy[id] {
		return ErrBusy
	}
	o.busy[id] = true
	delete(o.errs, id)
	return nil
}

func (o *Orchestrator) end(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.busy, id)
}

func (o *Orchestrator) setError(id, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs[id] = msg
}

func (o *Orchestrator) dropChats(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for k := range o.chats {
		if k.session == id {
			delete(o.chats, k)
		}
	}
}

func (o *Orchestrator) emit(ctx context.Context, e Event) {
	o.logger.Debug("emit", zap.String("event", e.Kind()), zap.String("session_id", e.SessionID()))
	o.listeners.OnEvent(ctx, e)
}
