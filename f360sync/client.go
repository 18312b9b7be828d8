package f360sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// erpClient is the remote boundary of the pipeline. One client wraps one
// bearer token; group children reuse the parent's client with their own cnpj
// as the filter parameter.
type erpClient interface {
	ListBankAccounts(ctx context.Context) (any, error)
	ListRelatedParties(ctx context.Context) (any, error)
	GenerateReport(ctx context.Context, start, end time.Time) (any, error)
	FetchChartOfAccounts(ctx context.Context, cnpj string) ([]RawAccount, error)
	FetchEntries(ctx context.Context, cnpj string, start, end time.Time, page, pageSize int) ([]RawEntry, error)
}

// clientFactory builds a client for one credential token. Injectable so tests
// can swap the remote out entirely.
type clientFactory func(token string) (erpClient, error)

type f360Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter <-chan time.Time

	sessionMu    sync.Mutex
	sessionToken string
}

func newF360Client(token string) (erpClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("F360_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.f360.com.br"
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("f360 token is empty")
	}
	rateLimitPerMin := int64(120)
	if v := strings.TrimSpace(os.Getenv("F360_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &f360Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: time.Tick(interval),
	}, nil
}

// authenticate exchanges the static token for a session token and caches it.
// The remote API is stateless per call, so one exchange per client is enough.
func (c *f360Client) authenticate(ctx context.Context) (string, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.sessionToken != "" {
		return c.sessionToken, nil
	}

	body, _ := json.Marshal(map[string]string{"token": c.token})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/PublicLoginAPI/DoLogin", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("f360 login error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed struct {
		Token string `json:"Token"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", errors.New("f360 login returned empty session token")
	}
	c.sessionToken = parsed.Token
	return c.sessionToken, nil
}

func (c *f360Client) doJSON(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	<-c.limiter

	session, err := c.authenticate(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	var reader io.Reader
	if body != nil {
		b, merr := json.Marshal(body)
		if merr != nil {
			return merr
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+session)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("f360 api error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// listEnvelope tolerates both {"data": [...]} and {"items": [...]} shapes.
type listEnvelope struct {
	Data  []json.RawMessage `json:"data"`
	Items []json.RawMessage `json:"items"`
}

func (e listEnvelope) rows() []json.RawMessage {
	if len(e.Data) > 0 {
		return e.Data
	}
	return e.Items
}

func (c *f360Client) ListBankAccounts(ctx context.Context) (any, error) {
	var out any
	err := c.doJSON(ctx, http.MethodGet, "/ContasBancariasAPI/ListarContas", nil, nil, &out)
	return out, err
}

func (c *f360Client) ListRelatedParties(ctx context.Context) (any, error) {
	var out any
	err := c.doJSON(ctx, http.MethodGet, "/PessoasAPI/ListarPessoas", nil, nil, &out)
	return out, err
}

func (c *f360Client) GenerateReport(ctx context.Context, start, end time.Time) (any, error) {
	body := map[string]string{
		"data_inicio": start.Format("2006-01-02"),
		"data_fim":    end.Format("2006-01-02"),
	}
	var out any
	err := c.doJSON(ctx, http.MethodPost, "/RelatoriosAPI/GerarRelatorioContabil", nil, body, &out)
	return out, err
}

func (c *f360Client) FetchChartOfAccounts(ctx context.Context, cnpj string) ([]RawAccount, error) {
	params := url.Values{}
	params.Set("cnpj", cnpj)

	var envelope listEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/PlanoDeContasAPI/ListarPlanoDeContas", params, nil, &envelope); err != nil {
		return nil, err
	}

	accounts := make([]RawAccount, 0, len(envelope.rows()))
	for _, raw := range envelope.rows() {
		var account RawAccount
		if err := json.Unmarshal(raw, &account); err != nil {
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

func (c *f360Client) FetchEntries(ctx context.Context, cnpj string, start, end time.Time, page, pageSize int) ([]RawEntry, error) {
	params := url.Values{}
	params.Set("cnpj", cnpj)
	params.Set("data_inicio", start.Format("2006-01-02"))
	params.Set("data_fim", end.Format("2006-01-02"))
	params.Set("pagina", strconv.Itoa(page))
	params.Set("tamanho_pagina", strconv.Itoa(pageSize))

	var envelope listEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/LancamentosContabeisAPI/ListarLancamentos", params, nil, &envelope); err != nil {
		return nil, err
	}

	entries := make([]RawEntry, 0, len(envelope.rows()))
	for _, raw := range envelope.rows() {
		var entry RawEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
