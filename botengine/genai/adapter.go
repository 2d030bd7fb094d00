package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/observability"
	"github.com/studiobotics/attendant/botengine/store"
)

const learnedContextLimit = 20

// Adapter turns a user message into a parsed model reply. It assembles the
// chat context (recent memory, lead profile, operator-taught answers), calls
// the model, and maps failures to fixed user-facing texts so the router
// always has something to send.
type Adapter struct {
	client  TextClient
	memory  store.MemoryStore
	profile store.ProfileStore
	learned store.LearnedStore
	content *config.ContentProvider
	window  int
	logger  Logger
}

func NewAdapter(client TextClient, stores store.Stores, content *config.ContentProvider, window int, logger Logger) *Adapter {
	if window <= 0 {
		window = 30
	}
	return &Adapter{
		client:  client,
		memory:  stores.Memory,
		profile: stores.Profiles,
		learned: stores.Learned,
		content: content,
		window:  window,
		logger:  logger,
	}
}

// Reply generates and parses a model reply for the user's message. The
// user's turn must already be in memory; Reply appends only the model turn.
// The returned Reply is always sendable, even when the model call failed.
func (a *Adapter) Reply(ctx context.Context, conversation, userText string) Reply {
	c := a.content.Current()

	history, err := a.memory.Recent(ctx, conversation, a.window)
	if err != nil {
		a.logger.Warn("genai_history_unavailable", "conversation", conversation, "error", err)
	}
	turns := make([]Turn, 0, len(history))
	for _, h := range history {
		// The trailing user turn is resent as the prompt.
		turns = append(turns, Turn{Role: string(h.Role), Text: h.Text})
	}
	if n := len(turns); n > 0 && turns[n-1].Role == string(store.RoleUser) && turns[n-1].Text == userText {
		turns = turns[:n-1]
	}

	start := time.Now()
	raw, err := a.client.Generate(ctx, a.systemPrompt(ctx, c, conversation), turns, userText)
	observability.RecordGenAICall(callStatus(err), int(time.Since(start).Milliseconds()))
	if err != nil {
		return a.fallback(conversation, err, c)
	}

	reply := ParseReply(raw)
	// An [UNKNOWN] reply is never shown to the user, so its text must not
	// enter the history either.
	if reply.DisplayText != "" && reply.Directive != DirectiveUnknown {
		if err := a.memory.Append(ctx, conversation, store.RoleModel, reply.DisplayText); err != nil {
			a.logger.Warn("genai_memory_append_failed", "conversation", conversation, "error", err)
		}
	}
	return reply
}

// systemPrompt combines the base persona with what is known about the lead
// and what operators have taught the bot.
func (a *Adapter) systemPrompt(ctx context.Context, c *config.Content, conversation string) string {
	var b strings.Builder
	b.WriteString(c.SystemPrompt)

	if prof, err := a.profile.Get(ctx, conversation); err == nil {
		b.WriteString("\n\nSobre este aluno:")
		if prof.Name != "" {
			fmt.Fprintf(&b, "\n- Nome: %s", prof.Name)
		}
		if prof.Age > 0 {
			fmt.Fprintf(&b, "\n- Idade: %d", prof.Age)
		}
		if prof.Goal != "" {
			fmt.Fprintf(&b, "\n- Objetivo: %s", prof.Goal)
		}
		if prof.Experience != "" {
			fmt.Fprintf(&b, "\n- Experiência: %s", prof.Experience)
		}
		if prof.LastRecommendation != "" {
			fmt.Fprintf(&b, "\n- Última recomendação: %s", prof.LastRecommendation)
		}
	}

	answers, err := a.learned.Recent(ctx, learnedContextLimit)
	if err != nil || len(answers) == 0 {
		return b.String()
	}
	b.WriteString("\n\nRespostas da equipe para perguntas parecidas:")
	for _, ans := range answers {
		fmt.Fprintf(&b, "\nP: %s\nR: %s", ans.Question, ans.Answer)
	}
	return b.String()
}

func (a *Adapter) fallback(conversation string, err error, c *config.Content) Reply {
	switch {
	case errors.Is(err, ErrNoAPIKey):
		a.logger.Warn("genai_unconfigured", "conversation", conversation)
		return Reply{DisplayText: c.NoAPIKeyReply, Directive: DirectiveShowMenu}
	case isStatus(err, http.StatusTooManyRequests):
		a.logger.Warn("genai_throttled", "conversation", conversation)
		return Reply{DisplayText: c.ModelBusyReply}
	default:
		a.logger.Error("genai_call_failed", "conversation", conversation, "error", err)
		return Reply{DisplayText: c.ModelDownReply}
	}
}

func isStatus(err error, code int) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoAPIKey):
		return "unconfigured"
	case isStatus(err, http.StatusTooManyRequests):
		return "throttled"
	default:
		return "error"
	}
}
