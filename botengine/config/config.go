// Package config provides orchestrator configuration and the reply content
// catalog.
//
// Config holds infrastructure-agnostic tunables only: timeouts, windows,
// pacing and operator identities. Endpoint URLs and credentials are parsed
// from the environment by the binary, not here.
package config

import (
	"fmt"
	"time"
)

// Config holds the orchestrator's runtime tunables.
type Config struct {
	// Windows
	MuteWindow time.Duration `json:"mute_window"` // operator handoff silence
	DedupTTL   time.Duration `json:"dedup_ttl"`   // message ID retention

	// Conversation memory
	MemoryWindow int `json:"memory_window"` // turns given to the model

	// Typing simulation
	TypingPerChar time.Duration `json:"typing_per_char"`
	TypingMin     time.Duration `json:"typing_min"`
	TypingMax     time.Duration `json:"typing_max"`

	// Pause before a secondary send (list after text, prices after intro).
	SideEffectDelay time.Duration `json:"side_effect_delay"`

	// Follow-up scheduling
	FollowUpStages    []FollowUpStage `json:"follow_up_stages"`
	FollowUpPoll      time.Duration   `json:"follow_up_poll"`
	FollowUpBatch     int             `json:"follow_up_batch"`
	FollowUpSendPause time.Duration   `json:"follow_up_send_pause"`

	// Operators notified on handoff and high-intent signals.
	Operators []string `json:"operators"`
}

// FollowUpStage names one reminder and its delay after a price view.
type FollowUpStage struct {
	Name  string        `json:"name"`
	Delay time.Duration `json:"delay"`
}

// Default returns a Config with the standing business rules.
func Default() *Config {
	return &Config{
		MuteWindow: 30 * time.Minute,
		DedupTTL:   time.Hour,

		MemoryWindow: 30,

		TypingPerChar: 50 * time.Millisecond,
		TypingMin:     time.Second,
		TypingMax:     5 * time.Second,

		SideEffectDelay: time.Second,

		FollowUpStages: []FollowUpStage{
			{Name: "reminder_15m", Delay: 15 * time.Minute},
			{Name: "reminder_2h", Delay: 2 * time.Hour},
			{Name: "reminder_24h", Delay: 24 * time.Hour},
		},
		FollowUpPoll:      time.Minute,
		FollowUpBatch:     10,
		FollowUpSendPause: 2 * time.Second,

		Operators: nil,
	}
}

// Validate checks invariants and fills safe defaults for zero fields.
func (c *Config) Validate() error {
	if c.MuteWindow <= 0 {
		return fmt.Errorf("Config.MuteWindow must be positive")
	}
	if c.DedupTTL <= 0 {
		return fmt.Errorf("Config.DedupTTL must be positive")
	}
	if c.MemoryWindow <= 0 {
		c.MemoryWindow = 30
	}
	if c.TypingMin > c.TypingMax {
		return fmt.Errorf("Config.TypingMin %v exceeds TypingMax %v", c.TypingMin, c.TypingMax)
	}
	if c.FollowUpPoll <= 0 {
		c.FollowUpPoll = time.Minute
	}
	if c.FollowUpBatch <= 0 {
		c.FollowUpBatch = 10
	}
	for i, stage := range c.FollowUpStages {
		if stage.Name == "" {
			return fmt.Errorf("Config.FollowUpStages[%d].Name is required", i)
		}
		if stage.Delay <= 0 {
			return fmt.Errorf("follow-up stage '%s' needs a positive delay", stage.Name)
		}
	}
	return nil
}
