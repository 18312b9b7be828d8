package f360sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.Handler) erpClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("F360_API_BASE_URL", srv.URL)
	t.Setenv("F360_RATE_LIMIT_PER_MIN", "600000") // effectively unthrottled

	client, err := newF360Client("static-token")
	if err != nil {
		t.Fatalf("newF360Client: %v", err)
	}
	return client
}

func TestClientAuthenticatesOncePerSession(t *testing.T) {
	logins := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/PublicLoginAPI/DoLogin", func(w http.ResponseWriter, r *http.Request) {
		logins++
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["token"] != "static-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"Token": "session-1"})
	})
	mux.HandleFunc("/PlanoDeContasAPI/ListarPlanoDeContas", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer session-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("cnpj") != "11111111000111" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": []any{
			map[string]any{"codigo": "1", "nome": "Caixa", "tipo": "Ativo", "nivel": 1},
		}})
	})
	client := newTestServer(t, mux)

	for i := 0; i < 3; i++ {
		accounts, err := client.FetchChartOfAccounts(context.Background(), "11111111000111")
		if err != nil {
			t.Fatalf("FetchChartOfAccounts: %v", err)
		}
		if len(accounts) != 1 || accounts[0].Code != "1" {
			t.Fatalf("accounts = %+v", accounts)
		}
	}
	if logins != 1 {
		t.Fatalf("login called %d times, want cached session after the first", logins)
	}
}

func TestClientFetchEntriesSendsPaginationParams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/PublicLoginAPI/DoLogin", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"Token": "session-1"})
	})
	mux.HandleFunc("/LancamentosContabeisAPI/ListarLancamentos", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("pagina") != "3" || q.Get("tamanho_pagina") != "1000" {
			t.Errorf("pagination params = %v", q)
		}
		if q.Get("data_inicio") != "2026-03-01" || q.Get("data_fim") != "2026-03-31" {
			t.Errorf("period params = %v", q)
		}
		// items envelope instead of data: both shapes must parse
		json.NewEncoder(w).Encode(map[string]any{"items": []any{
			map[string]any{"id": "e-1", "data_lancamento": "2026-03-05", "valor_debito": 10.5},
		}})
	})
	client := newTestServer(t, mux)

	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)
	entries, err := client.FetchEntries(context.Background(), "11111111000111", start, end, 3, 1000)
	if err != nil {
		t.Fatalf("FetchEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].SourceId != "e-1" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Debit.String() != "10.5" {
		t.Fatalf("debit = %q", entries[0].Debit.String())
	}
}

func TestClientSurfacesApiErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/PublicLoginAPI/DoLogin", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"Token": "session-1"})
	})
	mux.HandleFunc("/ContasBancariasAPI/ListarContas", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	client := newTestServer(t, mux)

	if _, err := client.ListBankAccounts(context.Background()); err == nil {
		t.Fatal("expected error from 429 response")
	}
}

func TestClientLoginFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/PublicLoginAPI/DoLogin", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})
	client := newTestServer(t, mux)

	if _, err := client.FetchChartOfAccounts(context.Background(), "11111111000111"); err == nil {
		t.Fatal("expected login failure to propagate")
	}
}
