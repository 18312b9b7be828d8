package f360sync

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"bitbucket.org/contaflux/contabil_backend/models"
	"github.com/sirupsen/logrus"
)

// scanDepth bounds the recursive walk over heuristic responses.
const scanDepth = 8

// Resolution is the identity-resolver output: exactly one tax id, a flag for
// whether it is synthetic, and the raw candidate set from the winning source
// (the group detector needs the full set, not just the first id).
type Resolution struct {
	TaxId      string
	Temporary  bool
	Candidates []string
}

// identitySource is one resolution strategy. Sources are tried in order and
// the first one returning at least one candidate wins; a source error is
// swallowed and the next source is tried.
type identitySource struct {
	name    string
	resolve func(ctx context.Context) ([]string, error)
}

type resolver struct {
	logger  *logrus.Logger
	sources []identitySource
}

// companyLookup is the store seam the resolver needs: the latest company row
// for a token, nil when none exists.
type companyLookup func(ctx context.Context, token string) (*models.Company, error)

func newResolver(token string, client erpClient, lookup companyLookup, tokenMap map[string]string, logger *logrus.Logger) *resolver {
	sources := []identitySource{
		{
			// Repeated syncs are stable: a standalone token that already
			// produced a real cnpj never goes back to the remote heuristics.
			// Group rows (parent or child) must not satisfy this source: one
			// child's cnpj would collapse the whole group to a single company
			// on re-sync, so the heuristics run again and re-detect the group.
			name: "existing-company",
			resolve: func(ctx context.Context) ([]string, error) {
				company, err := lookup(ctx, token)
				if err != nil {
					return nil, err
				}
				if company == nil || company.HasTemporaryId() || company.Kind != models.CompanyKindStandalone {
					return nil, nil
				}
				return []string{company.Cnpj}, nil
			},
		},
		{
			name: "token-map",
			resolve: func(ctx context.Context) ([]string, error) {
				if cnpj, ok := tokenMap[token]; ok {
					if normalized, valid := ExtractCnpj(cnpj); valid {
						return []string{normalized}, nil
					}
				}
				return nil, nil
			},
		},
		{
			name: "bank-accounts",
			resolve: func(ctx context.Context) ([]string, error) {
				response, err := client.ListBankAccounts(ctx)
				if err != nil {
					return nil, err
				}
				return ScanForCnpjs(response, scanDepth), nil
			},
		},
		{
			name: "related-parties",
			resolve: func(ctx context.Context) ([]string, error) {
				response, err := client.ListRelatedParties(ctx)
				if err != nil {
					return nil, err
				}
				return ScanForCnpjs(response, scanDepth), nil
			},
		},
		{
			name: "monthly-report",
			resolve: func(ctx context.Context) ([]string, error) {
				now := time.Now()
				monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
				response, err := client.GenerateReport(ctx, monthStart, now)
				if err != nil {
					return nil, err
				}
				return ScanForCnpjs(response, scanDepth), nil
			},
		},
	}
	return &resolver{logger: logger, sources: sources}
}

// Resolve walks the source chain. When every source comes up empty a
// temporary id is synthesized so the pipeline can proceed; that case is a
// warning, not an error.
func (r *resolver) Resolve(ctx context.Context) Resolution {
	for _, source := range r.sources {
		candidates, err := source.resolve(ctx)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"module": "f360sync",
				"source": source.name,
			}).Debugf("identity source failed: %v", err)
			continue
		}
		if len(candidates) > 0 {
			return Resolution{TaxId: candidates[0], Candidates: candidates}
		}
	}

	tempId := models.NewTemporaryId()
	r.logger.WithFields(logrus.Fields{
		"module": "f360sync",
		"tempId": tempId,
	}).Warn("identity resolution exhausted all sources; assigned temporary id")
	return Resolution{TaxId: tempId, Temporary: true, Candidates: nil}
}

// IsGroupToken applies the group rule: more than one distinct candidate from
// a single winning source means the token authenticates an umbrella of
// companies rather than one.
func (res Resolution) IsGroupToken() bool {
	return len(res.Candidates) > 1
}

// loadTokenMap reads the optional static token->cnpj table. A missing or
// malformed file just disables the source.
func loadTokenMap(logger *logrus.Logger) map[string]string {
	path := strings.TrimSpace(os.Getenv("F360_TOKEN_MAP_FILE"))
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.WithFields(logrus.Fields{"module": "f360sync", "path": path}).
			Warnf("token map file unreadable: %v", err)
		return nil
	}
	tokenMap := make(map[string]string)
	if err := json.Unmarshal(raw, &tokenMap); err != nil {
		logger.WithFields(logrus.Fields{"module": "f360sync", "path": path}).
			Warnf("token map file invalid: %v", err)
		return nil
	}
	return tokenMap
}
