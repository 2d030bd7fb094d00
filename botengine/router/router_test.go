package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/flow"
	"github.com/studiobotics/attendant/botengine/genai"
	"github.com/studiobotics/attendant/botengine/handoff"
	"github.com/studiobotics/attendant/botengine/store"
	"github.com/studiobotics/attendant/connector"
)

const testConv = "5547999990000@s.whatsapp.net"

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// ===== FAKES =====

type send struct {
	kind string // text, list, location, reaction, presence
	to   string
	text string // text body, list title, or emoji
}

type chainMessenger struct {
	mu    sync.Mutex
	sends []send
}

func (m *chainMessenger) record(s send) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, s)
}

func (m *chainMessenger) SendText(_ context.Context, to, text string) error {
	m.record(send{kind: "text", to: to, text: text})
	return nil
}

func (m *chainMessenger) SendList(_ context.Context, to string, list config.ListMessage) error {
	m.record(send{kind: "list", to: to, text: list.Title})
	return nil
}

func (m *chainMessenger) SendLocation(_ context.Context, to string, loc config.Location) error {
	m.record(send{kind: "location", to: to, text: loc.Name})
	return nil
}

func (m *chainMessenger) SendReaction(_ context.Context, to string, _ connector.MessageRef, emoji string) error {
	m.record(send{kind: "reaction", to: to, text: emoji})
	return nil
}

func (m *chainMessenger) SetPresence(_ context.Context, to string, p connector.Presence) error {
	m.record(send{kind: "presence", to: to, text: string(p)})
	return nil
}

func (m *chainMessenger) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sends))
	for i, s := range m.sends {
		out[i] = s.kind
	}
	return out
}

func (m *chainMessenger) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sends))
	for i, s := range m.sends {
		out[i] = s.text
	}
	return out
}

func (m *chainMessenger) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = nil
}

type fakeAlerter struct {
	handoffs []connector.Lead
	reads    []connector.Lead
	leads    []string // intents
}

func (a *fakeAlerter) NotifyHandoff(_ context.Context, lead connector.Lead) {
	a.handoffs = append(a.handoffs, lead)
}
func (a *fakeAlerter) NotifyRead(_ context.Context, lead connector.Lead) {
	a.reads = append(a.reads, lead)
}
func (a *fakeAlerter) NotifyLead(_ context.Context, _ connector.Lead, intent string) {
	a.leads = append(a.leads, intent)
}

type fakeLabeler struct{ labels []string }

func (l *fakeLabeler) AddLabel(_ context.Context, _, label string) error {
	l.labels = append(l.labels, label)
	return nil
}

type scriptedResponder struct {
	reply   genai.Reply
	prompts []string
}

func (r *scriptedResponder) Reply(_ context.Context, _, userText string) genai.Reply {
	r.prompts = append(r.prompts, userText)
	return r.reply
}

type fakeReminders struct {
	scheduled []string
	cancelled []string
}

func (r *fakeReminders) ScheduleAll(_ context.Context, conversation string) {
	r.scheduled = append(r.scheduled, conversation)
}
func (r *fakeReminders) Cancel(_ context.Context, conversation string) {
	r.cancelled = append(r.cancelled, conversation)
}

// ===== FIXTURE =====

type fixture struct {
	chain     *Chain
	stores    store.Stores
	msgr      *chainMessenger
	alerter   *fakeAlerter
	labeler   *fakeLabeler
	responder *scriptedResponder
	reminders *fakeReminders
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stores:    store.NewInMemoryStores(),
		msgr:      &chainMessenger{},
		alerter:   &fakeAlerter{},
		labeler:   &fakeLabeler{},
		responder: &scriptedResponder{},
		reminders: &fakeReminders{},
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := config.Default()
	content, err := config.NewContentProvider("", nopLogger{})
	require.NoError(t, err)
	monitor := hand(f, cfg)

	f.chain = NewChain(Deps{
		Cfg:       cfg,
		Content:   content,
		Stores:    f.stores,
		Messenger: f.msgr,
		Alerter:   f.alerter,
		Labeler:   f.labeler,
		Responder: f.responder,
		Reminders: f.reminders,
		Handoff:   monitor,
		Logger:    nopLogger{},
		Now:       func() time.Time { return f.now },
		Sleep:     func(context.Context, time.Duration) {},
	})
	return f
}

func hand(f *fixture, cfg *config.Config) *handoff.Monitor {
	return handoff.NewMonitor(f.stores.Flow, cfg.MuteWindow, nopLogger{})
}

// route delivers a plain text message from the lead.
func (f *fixture) route(t *testing.T, text string) string {
	t.Helper()
	return f.routeTurn(t, &Turn{
		Conversation: testConv,
		Name:         "Jonathan",
		Text:         text,
		Input:        strings.ToLower(strings.TrimSpace(text)),
		Ref:          connector.MessageRef{ID: "MSG1", RemoteJID: testConv},
	})
}

// routeRow delivers a structured list selection.
func (f *fixture) routeRow(t *testing.T, rowID string) string {
	t.Helper()
	return f.routeTurn(t, &Turn{
		Conversation: testConv,
		Name:         "Jonathan",
		Text:         rowID,
		Input:        rowID,
		Ref:          connector.MessageRef{ID: "MSG1", RemoteJID: testConv},
	})
}

// routeOwner delivers a message sent by the business account.
func (f *fixture) routeOwner(t *testing.T, text string) string {
	t.Helper()
	return f.routeTurn(t, &Turn{
		Conversation: testConv,
		Text:         text,
		Input:        strings.ToLower(strings.TrimSpace(text)),
		Ref:          connector.MessageRef{ID: "MSG1", RemoteJID: testConv, FromMe: true},
	})
}

func (f *fixture) routeTurn(t *testing.T, turn *Turn) string {
	t.Helper()
	if rec, err := f.stores.Flow.Get(context.Background(), turn.Conversation); err == nil {
		turn.State = rec
	}
	return f.chain.Route(context.Background(), turn)
}

func (f *fixture) state(t *testing.T) flow.State {
	t.Helper()
	rec, err := f.stores.Flow.Get(context.Background(), testConv)
	if errors.Is(err, store.ErrNotFound) {
		return flow.StateNone
	}
	require.NoError(t, err)
	return rec.State
}

// ===== GREETING AND MENU =====

func TestGreetingPresentsMenu(t *testing.T) {
	f := newFixture(t)

	handler := f.route(t, "Oi")

	assert.Equal(t, "greeting", handler)
	assert.Equal(t, []string{"reaction", "list"}, f.msgr.kinds())
	assert.Equal(t, flow.StateMenuMain, f.state(t))

	seen, err := f.stores.Funnel.HasEvent(context.Background(), testConv, "first_contact")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestGreetingIsExactMatch(t *testing.T) {
	f := newFixture(t)

	handler := f.route(t, "quem foi que falou comigo?")

	assert.NotEqual(t, "greeting", handler)
}

func TestZeroAlwaysReturnsToMenu(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.routeRow(t, "menu_schedule")
	f.msgr.reset()

	handler := f.route(t, "0")

	assert.Equal(t, "greeting", handler)
	assert.Equal(t, flow.StateMenuMain, f.state(t))
}

func TestMenuDigitOneStartsQuiz(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.msgr.reset()

	handler := f.route(t, "1")

	assert.Equal(t, "menu", handler)
	assert.Equal(t, flow.StateAskName, f.state(t))
	assert.Contains(t, f.msgr.texts()[0], "conhecer")
	assert.Contains(t, f.labeler.labels, "prospect")
}

func TestMenuRowIDsWorkWithoutState(t *testing.T) {
	f := newFixture(t)

	handler := f.routeRow(t, "menu_prices")

	assert.Equal(t, "menu", handler)
	assert.Contains(t, f.msgr.texts()[0], "INVESTIMENTO")
	assert.Equal(t, flow.StateNone, f.state(t))
	assert.Equal(t, []string{testConv}, f.reminders.scheduled)
}

func TestInboundActivityCancelsFollowUps(t *testing.T) {
	f := newFixture(t)
	f.routeRow(t, "menu_prices")
	require.Equal(t, []string{testConv}, f.reminders.scheduled)
	f.reminders.cancelled = nil

	f.route(t, "legal, vou pensar")

	assert.Equal(t, []string{testConv}, f.reminders.cancelled)

	// Operator interjections are not lead activity.
	f.reminders.cancelled = nil
	f.routeOwner(t, "Deixa comigo")
	assert.Empty(t, f.reminders.cancelled)
}

func TestMenuHumanHandsOff(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.msgr.reset()

	handler := f.route(t, "5")

	assert.Equal(t, "menu", handler)
	assert.Equal(t, flow.StateWaitingForHuman, f.state(t))
	require.Len(t, f.alerter.handoffs, 1)
	assert.Contains(t, f.labeler.labels, "human_handoff")
	assert.Contains(t, f.reminders.cancelled, testConv)
}

func TestScheduleListThenModality(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.msgr.reset()

	f.route(t, "2")
	assert.Equal(t, flow.StateSelectModality, f.state(t))
	f.msgr.reset()

	handler := f.routeRow(t, "mod_street")

	assert.Equal(t, "menu", handler)
	assert.Equal(t, flow.StateViewModalityDetails, f.state(t))
	texts := f.msgr.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "STREET")
	assert.Equal(t, "Próximos Passos", texts[1])
}

func TestBookingRowSendsIntroThenPrices(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.route(t, "2")
	f.routeRow(t, "mod_street")
	f.msgr.reset()

	handler := f.route(t, "1") // NextSteps row 1 = final_booking

	assert.Equal(t, "menu", handler)
	texts := f.msgr.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "agendar")
	assert.Contains(t, texts[1], "INVESTIMENTO")
	assert.Equal(t, []string{testConv}, f.reminders.scheduled)

	booked, err := f.stores.Funnel.HasEvent(context.Background(), testConv, "booking_click")
	require.NoError(t, err)
	assert.True(t, booked)
}

// ===== NUMERIC SAFETY NET =====

func TestBareDigitWithoutStateReplaysMainMenu(t *testing.T) {
	f := newFixture(t)

	handler := f.route(t, "3")

	assert.Equal(t, "numeric_safety", handler)
	assert.Contains(t, f.msgr.texts()[0], "INVESTIMENTO")
}

// ===== QUIZ =====

func TestQuizFullRunAdult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.route(t, "Oi")
	f.route(t, "1")
	f.msgr.reset()

	f.route(t, "Jonathan")
	assert.Equal(t, flow.StateAskAge, f.state(t))
	assert.Contains(t, f.msgr.texts()[0], "Jonathan")
	f.msgr.reset()

	f.route(t, "25")
	assert.Equal(t, flow.StateAskGoal, f.state(t))
	assert.Equal(t, []string{"text", "list"}, f.msgr.kinds())
	f.msgr.reset()

	f.routeRow(t, "goal_fun")
	assert.Equal(t, flow.StateAskExperience, f.state(t))
	f.msgr.reset()

	handler := f.routeRow(t, "exp_beginner")

	assert.Equal(t, "quiz", handler)
	assert.Equal(t, flow.StateMenuMain, f.state(t))
	assert.Contains(t, f.msgr.texts()[0], "adultos")

	prof, err := f.stores.Profiles.Get(ctx, testConv)
	require.NoError(t, err)
	assert.Equal(t, "Jonathan", prof.Name)
	assert.Equal(t, 25, prof.Age)
	assert.Equal(t, "goal_fun", prof.Goal)
	assert.Equal(t, "exp_beginner", prof.Experience)
	assert.Equal(t, "adult", prof.LastRecommendation)

	done, err := f.stores.Funnel.HasEvent(ctx, testConv, "quiz_complete")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestQuizKidsSkipGoal(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.route(t, "1")
	f.route(t, "Maria")
	f.msgr.reset()

	f.route(t, "8")

	assert.Equal(t, flow.StateAskExperience, f.state(t))
}

func TestQuizAgeRetryOnGarbage(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.route(t, "1")
	f.route(t, "Jonathan")
	f.msgr.reset()

	f.route(t, "vinte e cinco")

	assert.Equal(t, flow.StateAskAge, f.state(t))
	assert.Contains(t, f.msgr.texts()[0], "apenas a idade")
}

func TestQuizGoalByDigit(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.route(t, "1")
	f.route(t, "Jonathan")
	f.route(t, "25")
	f.msgr.reset()

	f.route(t, "2") // second goal row

	assert.Equal(t, flow.StateAskExperience, f.state(t))
	rec, err := f.stores.Flow.Get(context.Background(), testConv)
	require.NoError(t, err)
	assert.Equal(t, "goal_fitness", rec.StringData(flow.DataGoal))
}

// ===== OWNER AND MUTE =====

func TestOwnerFreeTextMutesAndLearns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.stores.Memory.Append(ctx, testConv, store.RoleUser, "Vocês têm aula de forró?"))

	handler := f.routeOwner(t, "Temos sim, às quintas!")

	assert.Equal(t, "owner", handler)
	assert.Equal(t, flow.StateHumanIntervention, f.state(t))

	learned, err := f.stores.Learned.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, learned, 1)
	assert.Equal(t, "Vocês têm aula de forró?", learned[0].Question)
	assert.Equal(t, "Temos sim, às quintas!", learned[0].Answer)

	// The lead's next message is swallowed.
	f.msgr.reset()
	assert.Equal(t, "mute", f.route(t, "E quanto custa?"))
	assert.Empty(t, f.msgr.sends)
}

func TestMuteExpiresAfterWindow(t *testing.T) {
	f := newFixture(t)
	f.routeOwner(t, "Deixa comigo")
	f.msgr.reset()

	f.now = f.now.Add(31 * time.Minute)
	handler := f.route(t, "Oi")

	assert.Equal(t, "greeting", handler)
	assert.Equal(t, flow.StateMenuMain, f.state(t))
}

func TestOwnerBotCommandResumes(t *testing.T) {
	f := newFixture(t)
	f.routeOwner(t, "/stop")
	assert.Equal(t, flow.StateHumanIntervention, f.state(t))
	f.msgr.reset()

	handler := f.routeOwner(t, "/bot")

	assert.Equal(t, "owner", handler)
	assert.Equal(t, flow.StateNone, f.state(t))
	assert.Contains(t, f.msgr.texts()[0], "retomado")

	f.msgr.reset()
	assert.Equal(t, "greeting", f.route(t, "Oi"))
}

// ===== LEAD COMMANDS =====

func TestResetClearsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.route(t, "Oi")
	require.NoError(t, f.stores.Memory.Append(ctx, testConv, store.RoleUser, "oi"))
	f.msgr.reset()

	handler := f.route(t, "/reset")

	assert.Equal(t, "commands", handler)
	assert.Equal(t, flow.StateNone, f.state(t))
	turns, err := f.stores.Memory.Recent(ctx, testConv, 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Contains(t, f.reminders.cancelled, testConv)
}

func TestOwnerCanUseSharedCommands(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.msgr.reset()

	handler := f.routeOwner(t, "/reset")

	assert.Equal(t, "commands", handler)
	assert.Equal(t, flow.StateNone, f.state(t))
}

func TestDebugDumpsState(t *testing.T) {
	f := newFixture(t)
	f.route(t, "Oi")
	f.msgr.reset()

	handler := f.route(t, "/debug")

	assert.Equal(t, "commands", handler)
	assert.Contains(t, f.msgr.texts()[0], "MENU_MAIN")
}

// ===== INBOUND LEAD SHORTCUTS =====

func TestScheduleCardJumpsToModality(t *testing.T) {
	f := newFixture(t)

	handler := f.route(t, "Olá! Vi a aula de Jazz Funk na grade e quero agendar uma experimental")

	assert.Equal(t, "schedule_lead", handler)
	assert.Equal(t, []string{"jazz"}, f.alerter.leads)
	texts := f.msgr.texts()
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Contains(t, texts[1], "JAZZ")
	assert.Equal(t, flow.StateViewModalityDetails, f.state(t))
}

func TestSiteLeadUnknownModalityFallsBackToMenu(t *testing.T) {
	f := newFixture(t)

	handler := f.route(t, "NOVA MENSAGEM DO SITE\n*Mensagem:* quero saber mais")

	assert.Equal(t, "site_lead", handler)
	assert.Equal(t, []string{"Contato pelo site"}, f.alerter.leads)
	assert.Equal(t, []string{"text", "list"}, f.msgr.kinds())
	assert.Equal(t, flow.StateMenuMain, f.state(t))
}

// ===== DIRECT KEYWORDS =====

func TestPriceKeywordSendsPrices(t *testing.T) {
	f := newFixture(t)

	handler := f.route(t, "qual o valor da mensalidade?")

	assert.Equal(t, "keywords", handler)
	assert.Contains(t, f.msgr.texts()[0], "INVESTIMENTO")
}

func TestLocationKeywordSendsPin(t *testing.T) {
	f := newFixture(t)

	handler := f.route(t, "onde fica a escola?")

	assert.Equal(t, "keywords", handler)
	assert.Equal(t, []string{"location", "text"}, f.msgr.kinds())
}

// ===== GENERATIVE FALLBACK =====

func TestFallbackSendsTextAndRunsDirective(t *testing.T) {
	f := newFixture(t)
	f.responder.reply = genai.Reply{DisplayText: "Claro, segue a grade!", Directive: genai.DirectiveShowSchedule}

	handler := f.route(t, "me fala sobre os treinos de vocês")

	assert.Equal(t, "generative", handler)
	assert.Equal(t, []string{"text", "list"}, f.msgr.kinds())
	assert.Equal(t, flow.StateSelectModality, f.state(t))
	require.Len(t, f.responder.prompts, 1)
}

func TestFallbackUnknownSuppressesTextAndShowsMenu(t *testing.T) {
	f := newFixture(t)
	f.responder.reply = genai.Reply{DisplayText: "não sei", Directive: genai.DirectiveUnknown}

	f.route(t, "xyzzy")

	texts := f.msgr.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "aprendendo")
	assert.NotContains(t, texts, "não sei")
	assert.Equal(t, flow.StateMenuMain, f.state(t))
}

func TestStaleMenuClickNeverReachesModel(t *testing.T) {
	f := newFixture(t)

	handler := f.routeRow(t, "goal_fun") // no quiz state

	assert.Equal(t, "menu", handler)
	assert.Empty(t, f.responder.prompts)
	assert.Empty(t, f.msgr.sends)
}

// ===== MEDIA LANE =====

func TestVoiceNoteAcknowledged(t *testing.T) {
	f := newFixture(t)

	handler := f.routeTurn(t, &Turn{
		Conversation: testConv,
		Name:         "Jonathan",
		HasAudio:     true,
		Ref:          connector.MessageRef{ID: "MSG1", RemoteJID: testConv},
	})

	assert.Equal(t, "audio_ack", handler)
	assert.Equal(t, []string{"reaction", "presence", "text"}, f.msgr.kinds())
	assert.Contains(t, f.msgr.texts()[2], "áudio")
}

func TestVoiceNoteStaysSilentWhileMuted(t *testing.T) {
	f := newFixture(t)
	f.routeOwner(t, "Deixa comigo")
	f.msgr.reset()

	handler := f.routeTurn(t, &Turn{
		Conversation: testConv,
		Name:         "Jonathan",
		HasAudio:     true,
		Ref:          connector.MessageRef{ID: "MSG1", RemoteJID: testConv},
	})

	assert.Equal(t, "mute", handler)
	assert.Empty(t, f.msgr.sends)
}

func TestVoiceNoteAcknowledgedAgainAfterMuteExpires(t *testing.T) {
	f := newFixture(t)
	f.routeOwner(t, "Deixa comigo")
	f.msgr.reset()

	f.now = f.now.Add(31 * time.Minute)
	handler := f.routeTurn(t, &Turn{
		Conversation: testConv,
		Name:         "Jonathan",
		HasAudio:     true,
		Ref:          connector.MessageRef{ID: "MSG2", RemoteJID: testConv},
	})

	assert.Equal(t, "audio_ack", handler)
	assert.Equal(t, []string{"reaction", "presence", "text"}, f.msgr.kinds())
}

func TestDuplicateHandlersNeverDoubleReply(t *testing.T) {
	f := newFixture(t)
	f.responder.reply = genai.Reply{DisplayText: "resposta"}

	f.route(t, "Oi") // claimed by greeting, fallback must not run

	assert.Empty(t, f.responder.prompts)
}
