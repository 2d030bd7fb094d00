package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Debug(msg string, kv ...any) {}
func (testLogger) Info(msg string, kv ...any)  {}
func (testLogger) Warn(msg string, kv ...any)  {}
func (testLogger) Error(msg string, kv ...any) {}

// ===== CONFIG =====

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Minute, cfg.MuteWindow)
	assert.Equal(t, time.Hour, cfg.DedupTTL)
	assert.Len(t, cfg.FollowUpStages, 3)
}

func TestValidateRejectsBadWindows(t *testing.T) {
	cfg := Default()
	cfg.MuteWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.TypingMin = 10 * time.Second
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.FollowUpStages = []FollowUpStage{{Name: "", Delay: time.Minute}}
	assert.Error(t, cfg.Validate())
}

func TestValidateFillsZeroDefaults(t *testing.T) {
	cfg := Default()
	cfg.MemoryWindow = 0
	cfg.FollowUpBatch = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30, cfg.MemoryWindow)
	assert.Equal(t, 10, cfg.FollowUpBatch)
}

// ===== CONTENT =====

func TestDefaultContentCatalog(t *testing.T) {
	c := DefaultContent()
	assert.Contains(t, c.Greetings, "bom dia")
	assert.Equal(t, "menu_dance", c.MainMenu.Sections[0].Rows[0].ID)
	assert.Contains(t, c.Recommendations, "kids")
	assert.Contains(t, c.Recommendations, "teen")
	assert.Contains(t, c.Recommendations, "adult")
	assert.Contains(t, c.FollowUpMessages, "reminder_15m")
	assert.NotEmpty(t, c.SystemPrompt)
}

func TestRenderPlaceholders(t *testing.T) {
	got := Render("Olá, {name}! Você tem {age} anos.", "name", "Ana", "age", "25")
	assert.Equal(t, "Olá, Ana! Você tem 25 anos.", got)

	// No pairs leaves text untouched.
	assert.Equal(t, "plain", Render("plain"))
}

func TestProviderServesDefaultsWithoutFile(t *testing.T) {
	p, err := NewContentProvider("", testLogger{})
	require.NoError(t, err)
	assert.Equal(t, "Menu XPACE", p.Current().MainMenu.Title)
}

func TestProviderLoadsPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"prices": "tabela nova", "greetings": ["eai"]}`), 0o644))

	p, err := NewContentProvider(path, testLogger{})
	require.NoError(t, err)

	c := p.Current()
	assert.Equal(t, "tabela nova", c.Prices)
	assert.Equal(t, []string{"eai"}, c.Greetings)
	// Fields absent from the file keep defaults.
	assert.Equal(t, "Menu XPACE", c.MainMenu.Title)
}

func TestProviderRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"greetings": "not-a-list"}`), 0o644))

	_, err := NewContentProvider(path, testLogger{})
	assert.Error(t, err)
}

func TestReloadKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"prices": "v1"}`), 0o644))

	p, err := NewContentProvider(path, testLogger{})
	require.NoError(t, err)
	require.Equal(t, "v1", p.Current().Prices)

	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))
	assert.Error(t, p.Reload())
	assert.Equal(t, "v1", p.Current().Prices)

	require.NoError(t, os.WriteFile(path, []byte(`{"prices": "v2"}`), 0o644))
	require.NoError(t, p.Reload())
	assert.Equal(t, "v2", p.Current().Prices)
}
