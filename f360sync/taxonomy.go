package f360sync

import (
	"strings"

	"bitbucket.org/contaflux/contabil_backend/models"
)

// Synonym phrases matched exactly (after lowercasing/trimming) before the
// substring keyword pass.
var typeSynonyms = map[string]models.AccountType{
	"a receber":        models.AccountTypeReceita,
	"contas a receber": models.AccountTypeReceita,
	"a pagar":          models.AccountTypeDespesa,
	"contas a pagar":   models.AccountTypeDespesa,
}

// Ordered keyword sets: the first category containing a matching substring
// wins, so the order below is part of the contract.
var typeKeywords = []struct {
	accountType models.AccountType
	keywords    []string
}{
	{models.AccountTypeReceita, []string{"receita", "revenue", "rendimento", "faturamento"}},
	{models.AccountTypeDespesa, []string{"despesa", "expense", "custo", "gasto"}},
	{models.AccountTypeAtivo, []string{"ativo", "asset", "caixa", "banco", "estoque", "imobilizado"}},
	{models.AccountTypePassivo, []string{"passivo", "liability", "fornecedor", "obrigacao", "obrigação", "emprestimo", "empréstimo"}},
	{models.AccountTypeResultado, []string{"resultado", "result", "apuracao", "apuração", "lucro", "prejuizo", "prejuízo"}},
}

// MapAccountType reconciles a free-text ERP account-type label into the closed
// taxonomy. It is the single source of truth for that decision: callers must
// drop rows it cannot map rather than persisting a placeholder type.
// Matching order: exact enum name, exact synonym phrase, substring keyword.
func MapAccountType(label string) (models.AccountType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if normalized == "" {
		return "", false
	}

	for _, t := range models.AllAccountTypes() {
		if normalized == strings.ToLower(string(t)) {
			return t, true
		}
	}

	if t, ok := typeSynonyms[normalized]; ok {
		return t, true
	}

	for _, set := range typeKeywords {
		for _, keyword := range set.keywords {
			if strings.Contains(normalized, keyword) {
				return set.accountType, true
			}
		}
	}

	return "", false
}
