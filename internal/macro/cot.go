package macro

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// disaggURL is the CFTC Disaggregated Futures-Only report, the same
// positional-CSV feed the original institutional-positioning adapter
// parsed.
const disaggURL = "https://www.cftc.gov/dea/newcot/f_disagg.txt"

// Column indices into the disaggregated report, 0-based.
const (
	colMarket      = 0
	colDate        = 2
	colOI          = 7
	colProdLong    = 8
	colProdShort   = 9
	colSwapLong    = 10
	colMMLong      = 11
	colMMShort     = 12
	colOtherLong   = 13
	colOtherShort  = 14
	colNonrepLong  = 21
	colNonrepShort = 22
)

// COTSource fetches CFTC Commitment of Traders positioning for a named
// commodity (matched case-insensitively against the report's market
// name column).
type COTSource struct {
	Commodity  string
	httpClient *http.Client
}

func NewCOTSource(commodity string) *COTSource {
	return &COTSource{Commodity: commodity, httpClient: &http.Client{}}
}

func (s *COTSource) Name() string {
	return "cot_" + strings.ToLower(s.Commodity)
}

func (s *COTSource) FetchSummary(ctx context.Context) (Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, disaggURL, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("cot: build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Summary{}, fmt.Errorf("cot: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Summary{}, fmt.Errorf("cot: unexpected status %d", resp.StatusCode)
	}

	row, err := findLatestRow(resp.Body, s.Commodity)
	if err != nil {
		return Summary{}, err
	}

	fields := parsePositionalRow(row)
	return Summary{SourceName: s.Name(), Fields: fields}, nil
}

func findLatestRow(r io.Reader, commodity string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var best []string
	upper := strings.ToUpper(commodity)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cot: parse row: %w", err)
		}
		if len(row) <= colMarket || !strings.Contains(strings.ToUpper(row[colMarket]), upper) {
			continue
		}
		if best == nil || (len(row) > colDate && len(best) > colDate && row[colDate] > best[colDate]) {
			best = row
		}
	}
	if best == nil {
		return nil, fmt.Errorf("cot: %s not found in report", commodity)
	}
	return best, nil
}

func parsePositionalRow(row []string) map[string]any {
	val := func(idx int) int {
		if idx >= len(row) {
			return 0
		}
		n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(row[idx]), ",", ""))
		if err != nil {
			return 0
		}
		return n
	}

	mmLong, mmShort := val(colMMLong), val(colMMShort)
	prodLong, prodShort := val(colProdLong), val(colProdShort)
	otherLong, otherShort := val(colOtherLong), val(colOtherShort)
	nonrepLong, nonrepShort := val(colNonrepLong), val(colNonrepShort)

	mmNet := mmLong - mmShort
	prodNet := prodLong - prodShort

	reportDate := ""
	if len(row) > colDate {
		reportDate = strings.TrimSpace(row[colDate])
	}

	return map[string]any{
		"report_date":        reportDate,
		"open_interest":      val(colOI),
		"mm_net":             mmNet,
		"mm_long":            mmLong,
		"mm_short":           mmShort,
		"producer_net":       prodNet,
		"producer_long":      prodLong,
		"producer_short":     prodShort,
		"swap_long":          val(colSwapLong),
		"other_net":          otherLong - otherShort,
		"nonreportable_net":  nonrepLong - nonrepShort,
		"cot_net_long_pct":   netLongPct(mmLong, mmShort),
	}
}

func netLongPct(long, short int) float64 {
	total := long + short
	if total == 0 {
		return 0
	}
	return float64(long-short) / float64(total) * 100
}
