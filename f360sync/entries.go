package f360sync

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"bitbucket.org/contaflux/contabil_backend/models"
	"bitbucket.org/contaflux/contabil_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type period struct {
	year  int
	month time.Month
}

func (p period) bounds() (time.Time, time.Time) {
	start := time.Date(p.year, p.month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return start, end
}

// monthlyPeriods covers every month of the current and previous calendar
// years. Month-sized windows keep result sets inside the remote pagination
// limits.
func monthlyPeriods(now time.Time) []period {
	periods := make([]period, 0, 24)
	for _, year := range []int{now.Year() - 1, now.Year()} {
		for month := time.January; month <= time.December; month++ {
			periods = append(periods, period{year: year, month: month})
		}
	}
	return periods
}

// fetchEntriesForPeriod pages through one period. A page error ends this
// period only; rows already fetched are kept. The loop stops when a page
// comes back short or the safety cap is hit.
func (p *pipeline) fetchEntriesForPeriod(ctx context.Context, client erpClient, cnpj string, per period) []RawEntry {
	start, end := per.bounds()
	var rows []RawEntry
	for page := 1; page <= p.maxPages; page++ {
		batch, err := client.FetchEntries(ctx, cnpj, start, end, page, p.pageSize)
		if err != nil {
			p.logger.WithFields(logrus.Fields{
				"module": "f360sync",
				"cnpj":   cnpj,
				"period": start.Format("2006-01"),
				"page":   page,
			}).Debugf("entry page fetch failed: %v", err)
			break
		}
		rows = append(rows, batch...)
		if len(batch) < p.pageSize {
			break
		}
	}
	return rows
}

// importEntries runs the full journal-entry import for one company: every
// period fetched, all rows mapped, then chunked upserts. A chunk write
// failure is logged and excluded from the count; remaining chunks still run.
// Returns the number of rows written.
func (p *pipeline) importEntries(ctx context.Context, client erpClient, company *models.Company, cnpj string) int {
	var raw []RawEntry
	for _, per := range monthlyPeriods(p.now()) {
		raw = append(raw, p.fetchEntriesForPeriod(ctx, client, cnpj, per)...)
	}
	if len(raw) == 0 {
		return 0
	}

	rows := make([]models.AccountingEntry, 0, len(raw))
	for _, entry := range raw {
		entryDate, ok := parseDate(entry.EntryDate)
		if !ok {
			continue
		}
		competence, ok := parseDate(entry.CompetenceDate)
		if !ok {
			competence = entryDate
		}
		rows = append(rows, models.AccountingEntry{
			CompanyId:      company.ID,
			EntryDate:      entryDate,
			CompetenceDate: competence,
			DocumentNumber: entry.DocumentNumber,
			Description:    entry.Description,
			AccountCode:    entry.AccountCode,
			DebitAmount:    decimalFromNumber(entry.Debit),
			CreditAmount:   decimalFromNumber(entry.Credit),
			CostCenter:     entry.CostCenter,
			ProjectCode:    entry.ProjectCode,
			SourceErp:      company.ErpType,
			SourceId:       entry.SourceId,
		})
	}

	written := 0
	for _, chunk := range utils.Chunk(rows, p.entryChunkSize) {
		if err := p.store.WriteEntryChunk(ctx, chunk); err != nil {
			p.logger.WithFields(logrus.Fields{
				"module":    "f360sync",
				"companyId": company.ID,
				"rows":      len(chunk),
			}).Errorf("entry chunk write failed: %v", err)
			continue
		}
		written += len(chunk)
	}
	return written
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "02/01/2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func decimalFromNumber(num json.Number) decimal.Decimal {
	if num.String() == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(num.String()); err == nil {
		return d
	}
	return decimal.Zero
}
