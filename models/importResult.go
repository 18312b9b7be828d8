package models

import "fmt"

// CompanyError itemizes one failed company inside a run summary.
type CompanyError struct {
	Company string `json:"company"`
	Error   string `json:"error"`
}

// ImportResult aggregates one orchestration run. It lives only for the
// duration of the run and is never persisted. Each concurrent company task
// fills its own local result; the orchestrator merges them sequentially after
// a batch settles, so no field here needs locking.
type ImportResult struct {
	Success          int            `json:"success"`
	Errors           int            `json:"errors"`
	Skipped          int            `json:"skipped"`
	CompaniesCreated int            `json:"companies_created"`
	CompaniesUpdated int            `json:"companies_updated"`
	ClientsCreated   int            `json:"clients_created"`
	AccountsImported int            `json:"accounts_imported"`
	EntriesImported  int            `json:"entries_imported"`
	ErrorsList       []CompanyError `json:"errors_list"`
}

// RecordError marks a company as failed within this result.
func (r *ImportResult) RecordError(company string, err error) {
	r.Errors++
	r.ErrorsList = append(r.ErrorsList, CompanyError{Company: company, Error: err.Error()})
}

// RecordCompany counts a company write by whether it created a new row.
func (r *ImportResult) RecordCompany(created bool) {
	if created {
		r.CompaniesCreated++
	} else {
		r.CompaniesUpdated++
	}
}

// Merge folds another (local) result into this one.
func (r *ImportResult) Merge(other *ImportResult) {
	if other == nil {
		return
	}
	r.Success += other.Success
	r.Errors += other.Errors
	r.Skipped += other.Skipped
	r.CompaniesCreated += other.CompaniesCreated
	r.CompaniesUpdated += other.CompaniesUpdated
	r.ClientsCreated += other.ClientsCreated
	r.AccountsImported += other.AccountsImported
	r.EntriesImported += other.EntriesImported
	r.ErrorsList = append(r.ErrorsList, other.ErrorsList...)
}

// Attempted is the number of companies this result accounts for. It must
// equal the number of credentials processed: success + errors + skipped.
func (r *ImportResult) Attempted() int {
	return r.Success + r.Errors + r.Skipped
}

func (r *ImportResult) String() string {
	return fmt.Sprintf(
		"success=%d errors=%d skipped=%d companiesCreated=%d companiesUpdated=%d clientsCreated=%d accountsImported=%d entriesImported=%d",
		r.Success, r.Errors, r.Skipped,
		r.CompaniesCreated, r.CompaniesUpdated, r.ClientsCreated,
		r.AccountsImported, r.EntriesImported,
	)
}
