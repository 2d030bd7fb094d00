package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ChatwootOptions configures the CRM labeler. Empty credentials produce a
// functional no-op labeler: CRM tagging is decoration, never a dependency.
type ChatwootOptions struct {
	BaseURL    string
	Token      string
	AccountID  string
	HTTPClient *http.Client
}

// ChatwootLabeler tags CRM conversations by lead phone number.
type ChatwootLabeler struct {
	baseURL    string
	token      string
	accountID  string
	httpClient *http.Client
	logger     Logger
}

func NewChatwootLabeler(opts ChatwootOptions, logger Logger) *ChatwootLabeler {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &ChatwootLabeler{
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		token:      strings.TrimSpace(opts.Token),
		accountID:  strings.TrimSpace(opts.AccountID),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (l *ChatwootLabeler) configured() bool {
	return l.baseURL != "" && l.token != "" && l.accountID != ""
}

// AddLabel tags the lead's most recent CRM conversation. Missing contacts
// and missing credentials are logged, not errors: labeling never blocks the
// reply path.
func (l *ChatwootLabeler) AddLabel(ctx context.Context, conversation, label string) error {
	if !l.configured() {
		l.logger.Debug("crm_label_skipped", "reason", "credentials missing", "label", label)
		return nil
	}
	phone := strings.TrimSuffix(strings.TrimSuffix(conversation, "@s.whatsapp.net"), "@g.us")

	contactID, err := l.findContact(ctx, phone)
	if err != nil {
		return err
	}
	if contactID == 0 {
		l.logger.Debug("crm_contact_not_found", "phone", phone)
		return nil
	}
	conversationID, err := l.latestConversation(ctx, contactID)
	if err != nil {
		return err
	}
	if conversationID == 0 {
		l.logger.Debug("crm_conversation_not_found", "contact_id", contactID)
		return nil
	}
	if err := l.postLabel(ctx, conversationID, label); err != nil {
		return err
	}
	l.logger.Debug("crm_label_added", "conversation_id", conversationID, "label", label)
	return nil
}

func (l *ChatwootLabeler) findContact(ctx context.Context, phone string) (int64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/accounts/%s/contacts/search?q=%s", l.baseURL, l.accountID, url.QueryEscape(phone))
	var out struct {
		Payload []struct {
			ID int64 `json:"id"`
		} `json:"payload"`
	}
	if err := l.get(ctx, endpoint, &out); err != nil {
		return 0, err
	}
	if len(out.Payload) == 0 {
		return 0, nil
	}
	return out.Payload[0].ID, nil
}

func (l *ChatwootLabeler) latestConversation(ctx context.Context, contactID int64) (int64, error) {
	endpoint := fmt.Sprintf("%s/api/v1/accounts/%s/contacts/%d/conversations", l.baseURL, l.accountID, contactID)
	var out struct {
		Payload []struct {
			ID int64 `json:"id"`
		} `json:"payload"`
	}
	if err := l.get(ctx, endpoint, &out); err != nil {
		return 0, err
	}
	if len(out.Payload) == 0 {
		return 0, nil
	}
	return out.Payload[0].ID, nil
}

func (l *ChatwootLabeler) postLabel(ctx context.Context, conversationID int64, label string) error {
	endpoint := fmt.Sprintf("%s/api/v1/accounts/%s/conversations/%d/labels", l.baseURL, l.accountID, conversationID)
	body := strings.NewReader(fmt.Sprintf(`{"labels":[%q]}`, label))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("connector: build crm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api_access_token", l.token)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connector: crm label: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{StatusCode: resp.StatusCode, URL: endpoint, Body: strings.TrimSpace(string(respBody))}
	}
	return nil
}

func (l *ChatwootLabeler) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("connector: build crm request: %w", err)
	}
	req.Header.Set("api_access_token", l.token)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connector: crm get: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{StatusCode: resp.StatusCode, URL: endpoint, Body: strings.TrimSpace(string(respBody))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
