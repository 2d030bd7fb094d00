package router

import (
	"context"
	"strconv"
	"strings"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/event"
	"github.com/studiobotics/attendant/botengine/flow"
	"github.com/studiobotics/attendant/botengine/store"
)

// quizHandler advances the profiling quiz. Each step validates its own
// input, re-asks on garbage, and forwards the accumulated payload so the
// final step can build the full profile in one write.
type quizHandler struct {
	deps    Deps
	actions *Actions
}

func (h *quizHandler) Name() string { return "quiz" }

func (h *quizHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	if t.State == nil || !t.State.State.IsQuiz() {
		return false, nil
	}
	switch t.State.State {
	case flow.StateAskName:
		return true, h.askedName(ctx, t)
	case flow.StateAskAge:
		return true, h.askedAge(ctx, t)
	case flow.StateAskGoal:
		return true, h.askedGoal(ctx, t)
	case flow.StateAskExperience:
		return true, h.askedExperience(ctx, t)
	}
	return false, nil
}

func (h *quizHandler) askedName(ctx context.Context, t *Turn) error {
	c := h.deps.Content.Current()
	name := event.SmartName(t.Text)
	if name == "" {
		name = strings.TrimSpace(t.Text)
	}
	if err := h.deps.Stores.Profiles.Upsert(ctx, t.Conversation, store.Profile{Name: name}); err != nil {
		h.deps.Logger.Warn("profile_upsert_failed", "conversation", t.Conversation, "error", err)
	}
	h.actions.setState(ctx, t.Conversation, flow.StateAskAge, map[string]any{
		flow.DataName: name,
	})
	return h.deps.Messenger.SendText(ctx, t.Conversation, config.Render(c.AskAge, "name", name))
}

func (h *quizHandler) askedAge(ctx context.Context, t *Turn) error {
	c := h.deps.Content.Current()
	age, err := strconv.Atoi(strings.TrimSpace(t.Text))
	if err != nil || age <= 0 || age > 120 {
		return h.deps.Messenger.SendText(ctx, t.Conversation, c.AgeRetry)
	}

	bracket := flow.BracketForAge(age)
	data := map[string]any{
		flow.DataName:    t.State.StringData(flow.DataName),
		flow.DataAge:     age,
		flow.DataBracket: string(bracket),
	}
	if err := h.deps.Messenger.SendText(ctx, t.Conversation, config.Render(c.AgeAck, "age", strconv.Itoa(age))); err != nil {
		return err
	}
	h.actions.pause(ctx)

	// Children skip the goal question: a guardian is answering, and the
	// kids catalog is narrow enough that experience alone decides.
	if bracket == flow.BracketKids {
		h.actions.setState(ctx, t.Conversation, flow.StateAskExperience, data)
		return h.deps.Messenger.SendList(ctx, t.Conversation, c.ExperiencePrompt)
	}
	h.actions.setState(ctx, t.Conversation, flow.StateAskGoal, data)
	return h.deps.Messenger.SendList(ctx, t.Conversation, c.GoalPrompt)
}

func (h *quizHandler) askedGoal(ctx context.Context, t *Turn) error {
	c := h.deps.Content.Current()
	goal := rowForInput(c.GoalPrompt, t.Input)
	if goal == "" {
		return h.deps.Messenger.SendList(ctx, t.Conversation, c.GoalPrompt)
	}
	data := cloneData(t.State.Data)
	data[flow.DataGoal] = goal
	h.actions.setState(ctx, t.Conversation, flow.StateAskExperience, data)
	return h.deps.Messenger.SendList(ctx, t.Conversation, c.ExperiencePrompt)
}

func (h *quizHandler) askedExperience(ctx context.Context, t *Turn) error {
	c := h.deps.Content.Current()
	experience := rowForInput(c.ExperiencePrompt, t.Input)
	if experience == "" {
		return h.deps.Messenger.SendList(ctx, t.Conversation, c.ExperiencePrompt)
	}

	bracket := t.State.StringData(flow.DataBracket)
	recommendation, ok := c.Recommendations[bracket]
	if !ok {
		recommendation = c.Recommendations[string(flow.BracketAdult)]
	}

	if err := h.deps.Stores.Profiles.Upsert(ctx, t.Conversation, store.Profile{
		Name:               t.State.StringData(flow.DataName),
		Age:                t.State.IntData(flow.DataAge),
		Goal:               t.State.StringData(flow.DataGoal),
		Experience:         experience,
		LastRecommendation: bracket,
	}); err != nil {
		h.deps.Logger.Warn("profile_upsert_failed", "conversation", t.Conversation, "error", err)
	}
	h.actions.track(ctx, t.Conversation, eventQuizComplete, map[string]any{"bracket": bracket})

	if err := h.deps.Messenger.SendText(ctx, t.Conversation, recommendation); err != nil {
		return err
	}
	h.actions.setState(ctx, t.Conversation, flow.StateMenuMain, nil)
	h.actions.pause(ctx)
	return h.deps.Messenger.SendList(ctx, t.Conversation, c.RecommendationMenu)
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	return out
}
