package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// ContentProvider serves the active content catalog and hot-reloads it when
// the backing file changes. Without a file it serves DefaultContent.
type ContentProvider struct {
	path   string
	logger Logger
	schema *jsonschema.Schema

	mu      sync.RWMutex
	content *Content
}

// NewContentProvider compiles the catalog schema and loads the initial
// catalog. An empty path serves the built-in defaults.
func NewContentProvider(path string, logger Logger) (*ContentProvider, error) {
	schema, err := compileContentSchema()
	if err != nil {
		return nil, err
	}
	p := &ContentProvider{
		path:    path,
		logger:  logger,
		schema:  schema,
		content: DefaultContent(),
	}
	if path != "" {
		if err := p.Reload(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Current returns the active catalog. The returned pointer must be treated
// as read-only.
func (p *ContentProvider) Current() *Content {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.content
}

// Reload re-reads and validates the catalog file, keeping the previous
// catalog on any failure.
func (p *ContentProvider) Reload() error {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("content: read %s: %w", p.path, err)
	}
	content, err := p.parse(raw)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.content = content
	p.mu.Unlock()
	return nil
}

func (p *ContentProvider) parse(raw []byte) (*Content, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("content: parse: %w", err)
	}
	if err := p.schema.Validate(inst); err != nil {
		return nil, fmt.Errorf("content: schema: %w", err)
	}
	// Start from defaults so a partial file only overrides what it names.
	content := DefaultContent()
	if err := json.Unmarshal(raw, content); err != nil {
		return nil, fmt.Errorf("content: decode: %w", err)
	}
	return content, nil
}

// Watch reloads the catalog whenever the file is rewritten, until ctx is
// cancelled. It is a no-op when the provider serves defaults.
func (p *ContentProvider) Watch(ctx context.Context) error {
	if p.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("content: watch: %w", err)
	}
	if err := watcher.Add(p.path); err != nil {
		watcher.Close()
		return fmt.Errorf("content: watch %s: %w", p.path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := p.Reload(); err != nil {
					p.logger.Warn("content_reload_failed", "path", p.path, "error", err)
					continue
				}
				p.logger.Info("content_reloaded", "path", p.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Warn("content_watch_error", "error", err)
			}
		}
	}()
	return nil
}

func compileContentSchema() (*jsonschema.Schema, error) {
	sch, err := jsonschema.UnmarshalJSON(strings.NewReader(contentSchema))
	if err != nil {
		return nil, fmt.Errorf("content: schema parse: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("content.schema.json", sch); err != nil {
		return nil, fmt.Errorf("content: schema resource: %w", err)
	}
	schema, err := c.Compile("content.schema.json")
	if err != nil {
		return nil, fmt.Errorf("content: schema compile: %w", err)
	}
	return schema, nil
}

// contentSchema constrains the shape of a catalog file. Every field is
// optional (files may override a subset of the defaults) but present fields
// must have the right types.
const contentSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"default_lead_name": {"type": "string"},
		"greetings": {"type": "array", "items": {"type": "string"}},
		"schedule_keywords": {"type": "array", "items": {"type": "string"}},
		"price_keywords": {"type": "array", "items": {"type": "string"}},
		"location_keywords": {"type": "array", "items": {"type": "string"}},
		"human_keywords": {"type": "array", "items": {"type": "string"}},
		"modality_aliases": {
			"type": "object",
			"additionalProperties": {"type": "array", "items": {"type": "string"}}
		},
		"main_menu": {"$ref": "#/$defs/list"},
		"quiz_intro": {"type": "string"},
		"ask_age": {"type": "string"},
		"age_retry": {"type": "string"},
		"goal_prompt": {"$ref": "#/$defs/list"},
		"experience_prompt": {"$ref": "#/$defs/list"},
		"age_ack": {"type": "string"},
		"recommendations": {"type": "object", "additionalProperties": {"type": "string"}},
		"recommendation_menu": {"$ref": "#/$defs/list"},
		"schedule_list": {"$ref": "#/$defs/list"},
		"modality_details": {"type": "object", "additionalProperties": {"type": "string"}},
		"modality_fallback": {"type": "string"},
		"other_modalities": {"type": "string"},
		"next_steps": {"$ref": "#/$defs/list"},
		"prices": {"type": "string"},
		"booking_intro": {"type": "string"},
		"location": {
			"type": "object",
			"properties": {
				"latitude": {"type": "number"},
				"longitude": {"type": "number"},
				"name": {"type": "string"},
				"address": {"type": "string"}
			}
		},
		"location_follow": {"type": "string"},
		"handoff_ack": {"type": "string"},
		"bot_resumed": {"type": "string"},
		"bot_paused": {"type": "string"},
		"reset_done": {"type": "string"},
		"debug_prefix": {"type": "string"},
		"schedule_lead_markers": {"type": "array", "items": {"type": "string"}},
		"schedule_lead_greeting": {"type": "string"},
		"site_lead_marker": {"type": "string"},
		"site_message_separator": {"type": "string"},
		"site_lead_known": {"type": "string"},
		"site_lead_unknown": {"type": "string"},
		"keyword_schedule_intro": {"type": "string"},
		"call_auto_reply": {"type": "string"},
		"audio_ack": {"type": "string"},
		"system_prompt": {"type": "string"},
		"unknown_reply": {"type": "string"},
		"no_api_key_reply": {"type": "string"},
		"model_busy_reply": {"type": "string"},
		"model_down_reply": {"type": "string"},
		"handoff_alert": {"type": "string"},
		"read_alert": {"type": "string"},
		"lead_alert": {"type": "string"},
		"alert_call_to_action": {"type": "string"},
		"follow_up_messages": {"type": "object", "additionalProperties": {"type": "string"}}
	},
	"$defs": {
		"list": {
			"type": "object",
			"properties": {
				"title": {"type": "string"},
				"prompt": {"type": "string"},
				"button": {"type": "string"},
				"sections": {
					"type": "array",
					"items": {
						"type": "object",
						"properties": {
							"title": {"type": "string"},
							"rows": {
								"type": "array",
								"items": {
									"type": "object",
									"required": ["id", "title"],
									"properties": {
										"id": {"type": "string"},
										"title": {"type": "string"},
										"description": {"type": "string"}
									}
								}
							}
						}
					}
				}
			}
		}
	}
}`
