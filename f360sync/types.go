package f360sync

import "encoding/json"

// RawAccount is one chart-of-accounts row as returned by the ERP. The type
// field is free text and must go through MapAccountType before persistence.
type RawAccount struct {
	Code           string `json:"codigo"`
	Name           string `json:"nome"`
	Type           string `json:"tipo"`
	Level          int    `json:"nivel"`
	ParentCode     string `json:"codigo_pai"`
	AcceptsEntries bool   `json:"aceita_lancamentos"`
}

// RawEntry is one ledger entry as returned by the ERP.
type RawEntry struct {
	SourceId       string      `json:"id"`
	EntryDate      string      `json:"data_lancamento"`
	CompetenceDate string      `json:"data_competencia"`
	DocumentNumber string      `json:"numero_documento"`
	Description    string      `json:"descricao"`
	AccountCode    string      `json:"conta_contabil"`
	Debit          json.Number `json:"valor_debito"`
	Credit         json.Number `json:"valor_credito"`
	CostCenter     string      `json:"centro_custo"`
	ProjectCode    string      `json:"projeto"`
}

// SyncRequest is the trigger payload accepted by the HTTP surface.
type SyncRequest struct {
	Limit int `json:"limit"`
}
