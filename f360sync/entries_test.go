package f360sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"bitbucket.org/contaflux/contabil_backend/models"
)

func TestMonthlyPeriodsCoversTwoYears(t *testing.T) {
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	periods := monthlyPeriods(now)

	if len(periods) != 24 {
		t.Fatalf("got %d periods, want 24", len(periods))
	}
	if periods[0] != (period{year: 2025, month: time.January}) {
		t.Errorf("first period = %+v, want 2025 January", periods[0])
	}
	if periods[23] != (period{year: 2026, month: time.December}) {
		t.Errorf("last period = %+v, want 2026 December", periods[23])
	}
}

func TestPeriodBoundsLeapFebruary(t *testing.T) {
	start, end := period{year: 2024, month: time.February}.bounds()
	if start.Day() != 1 || start.Month() != time.February {
		t.Errorf("start = %v", start)
	}
	if end.Day() != 29 || end.Month() != time.February {
		t.Errorf("end = %v, want Feb 29", end)
	}
}

func TestFetchEntriesForPeriodStopsAtPageCap(t *testing.T) {
	st := newMemStore()
	pagesRequested := 0
	client := &fakeClient{
		entries: func(ctx context.Context, cnpj string, start, end time.Time, page, pageSize int) ([]RawEntry, error) {
			pagesRequested++
			// always a full page: only the cap can stop the loop
			batch := make([]RawEntry, pageSize)
			return batch, nil
		},
	}
	p := newTestPipeline(client, st)
	p.pageSize = 2
	p.maxPages = 3

	rows := p.fetchEntriesForPeriod(context.Background(), client, "11111111000111", period{year: 2026, month: time.March})
	if pagesRequested != 3 {
		t.Fatalf("requested %d pages, want cap of 3", pagesRequested)
	}
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want 6", len(rows))
	}
}

func TestFetchEntriesForPeriodStopsOnShortPage(t *testing.T) {
	client := &fakeClient{
		entries: func(ctx context.Context, cnpj string, start, end time.Time, page, pageSize int) ([]RawEntry, error) {
			if page == 1 {
				return make([]RawEntry, pageSize), nil
			}
			return make([]RawEntry, 1), nil
		},
	}
	p := newTestPipeline(client, newMemStore())
	p.pageSize = 2

	rows := p.fetchEntriesForPeriod(context.Background(), client, "11111111000111", period{year: 2026, month: time.March})
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3 (full page then short page)", len(rows))
	}
}

func TestFetchEntriesForPeriodKeepsRowsBeforePageError(t *testing.T) {
	client := &fakeClient{
		entries: func(ctx context.Context, cnpj string, start, end time.Time, page, pageSize int) ([]RawEntry, error) {
			if page == 1 {
				return make([]RawEntry, pageSize), nil
			}
			return nil, errors.New("429 too many requests")
		},
	}
	p := newTestPipeline(client, newMemStore())
	p.pageSize = 2

	rows := p.fetchEntriesForPeriod(context.Background(), client, "11111111000111", period{year: 2026, month: time.March})
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want the 2 fetched before the error", len(rows))
	}
}

func TestImportEntriesMapsAndSkipsBadDates(t *testing.T) {
	st := newMemStore()
	client := &fakeClient{
		entries: func(ctx context.Context, cnpj string, start, end time.Time, page, pageSize int) ([]RawEntry, error) {
			if start.Year() != 2026 || start.Month() != time.March {
				return nil, nil
			}
			return []RawEntry{
				{SourceId: "e-1", EntryDate: "2026-03-05", CompetenceDate: "2026-03-01", Debit: json.Number("150.50")},
				{SourceId: "e-2", EntryDate: "05/03/2026", Credit: json.Number("99.90")}, // competence falls back to entry date
				{SourceId: "e-3", EntryDate: "not-a-date"},                               // dropped
			}, nil
		},
	}
	p := newTestPipeline(client, st)
	company := &models.Company{ID: 7, ErpType: models.ErpTypeF360}

	written := p.importEntries(context.Background(), client, company, "11111111000111")
	if written != 2 {
		t.Fatalf("written = %d, want 2", written)
	}

	var fallback *models.AccountingEntry
	for _, row := range st.entriesBy {
		if row.SourceId == "e-2" {
			r := row
			fallback = &r
		}
		if row.SourceErp != models.ErpTypeF360 {
			t.Errorf("row %s has source erp %q", row.SourceId, row.SourceErp)
		}
	}
	if fallback == nil {
		t.Fatal("row e-2 not persisted")
	}
	if !fallback.CompetenceDate.Equal(fallback.EntryDate) {
		t.Errorf("competence %v did not fall back to entry date %v", fallback.CompetenceDate, fallback.EntryDate)
	}
}

func TestImportEntriesToleratesChunkFailure(t *testing.T) {
	st := newMemStore()
	st.failFirstEntryChunks = 1
	client := &fakeClient{
		entries: func(ctx context.Context, cnpj string, start, end time.Time, page, pageSize int) ([]RawEntry, error) {
			if start.Year() != 2026 || start.Month() != time.January {
				return nil, nil
			}
			rows := make([]RawEntry, 5)
			for i := range rows {
				rows[i] = RawEntry{
					SourceId:  string(rune('a' + i)),
					EntryDate: "2026-01-10",
				}
			}
			return rows, nil
		},
	}
	p := newTestPipeline(client, st)
	p.entryChunkSize = 2
	company := &models.Company{ID: 7, ErpType: models.ErpTypeF360}

	written := p.importEntries(context.Background(), client, company, "11111111000111")
	if written != 3 {
		t.Fatalf("written = %d, want 3 (first chunk of 2 failed, remaining 3 persisted)", written)
	}
	if st.entryCalls != 3 {
		t.Fatalf("entry chunk calls = %d, want 3", st.entryCalls)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2026-03-05", true},
		{"2026-03-05T10:30:00Z", true},
		{"05/03/2026", true},
		{"", false},
		{"  ", false},
		{"03-05-2026", false},
	}
	for _, c := range cases {
		if _, ok := parseDate(c.in); ok != c.ok {
			t.Errorf("parseDate(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
	}
}

func TestDecimalFromNumber(t *testing.T) {
	if got := decimalFromNumber(json.Number("150.50")); got.String() != "150.5" {
		t.Errorf("decimalFromNumber(150.50) = %s", got)
	}
	if got := decimalFromNumber(json.Number("")); !got.IsZero() {
		t.Errorf("decimalFromNumber(empty) = %s, want zero", got)
	}
	if got := decimalFromNumber(json.Number("abc")); !got.IsZero() {
		t.Errorf("decimalFromNumber(garbage) = %s, want zero", got)
	}
}
