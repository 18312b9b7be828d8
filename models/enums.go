package models

// AccountType is the closed taxonomy for chart-of-account classifications.
// Raw ERP labels are free text; rows that cannot be mapped to one of these
// values are never persisted.
type AccountType string

const (
	AccountTypeAtivo     AccountType = "ATIVO"
	AccountTypePassivo   AccountType = "PASSIVO"
	AccountTypeReceita   AccountType = "RECEITA"
	AccountTypeDespesa   AccountType = "DESPESA"
	AccountTypeResultado AccountType = "RESULTADO"
)

// AllAccountTypes lists every valid classification, in display order.
func AllAccountTypes() []AccountType {
	return []AccountType{
		AccountTypeAtivo,
		AccountTypePassivo,
		AccountTypeReceita,
		AccountTypeDespesa,
		AccountTypeResultado,
	}
}

// CompanyKind distinguishes the three shapes a synced company can take.
// A group parent is the synthetic umbrella row for a token that turned out
// to represent several companies; its children carry the parent reference.
type CompanyKind string

const (
	CompanyKindStandalone  CompanyKind = "standalone"
	CompanyKindGroupParent CompanyKind = "group_parent"
	CompanyKindGroupChild  CompanyKind = "group_child"
)

const (
	ErpTypeF360 = "F360"
	ErpTypeOmie = "Omie"
)
