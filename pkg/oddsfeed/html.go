// Package oddsfeed turns bookmaker pages and historical result files into odds books and match history
package oddsfeed

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
)

// ErrNoOdds is returned when a page holds no usable price
var ErrNoOdds = errors.New("no odds found")

// ParseOddsHTML reads every odds table of a page. A table looks like
//
//	<table class="odds" data-market="1x2">
//	  <thead><tr><th>Bookmaker</th><th data-selection="home">1</th><th data-selection="draw">X</th>...</tr></thead>
//	  <tbody><tr><td>Bet365</td><td>2.20</td><td>7/2</td>...</tr></tbody>
//	</table>
//
// Prices may be decimal, fractional or EVS. Unreadable cells are skipped.
func ParseOddsHTML(r io.Reader) (model.OddsBook, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	book := model.OddsBook{}
	doc.Find("table.odds[data-market]").Each(func(_ int, table *goquery.Selection) {
		market := strings.TrimSpace(table.AttrOr("data-market", ""))
		if market == "" {
			return
		}

		// column index -> selection
		columns := map[int]string{}
		table.Find("thead tr").First().Children().Each(func(i int, th *goquery.Selection) {
			if sel, ok := th.Attr("data-selection"); ok && sel != "" {
				columns[i] = sel
			}
		})
		if len(columns) == 0 {
			logger.Debug("Odds table without selections", market)
			return
		}

		table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Children()
			bookmaker := strings.TrimSpace(cells.First().Text())
			if bookmaker == "" {
				return
			}
			cells.Each(func(i int, td *goquery.Selection) {
				sel, ok := columns[i]
				if !ok {
					return
				}
				odds, err := ParseOdds(td.Text())
				if err != nil {
					logger.Debug("Skipping odds cell", bookmaker, market, sel, err)
					return
				}
				book.Add(bookmaker, market, sel, odds)
			})
		})
	})

	if len(book) == 0 {
		return nil, ErrNoOdds
	}
	return book, nil
}

// ParseOdds converts a decimal ("2.20"), fractional ("7/2") or "EVS" price to decimal odds
func ParseOdds(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "":
		return 0, fmt.Errorf("empty price")
	case "EVS", "EVENS":
		return 2, nil
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, fmt.Errorf("bad fractional price %q", s)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil || d <= 0 || n <= 0 {
			return 0, fmt.Errorf("bad fractional price %q", s)
		}
		return 1 + n/d, nil
	}

	odds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad decimal price %q", s)
	}
	if odds <= 1 {
		return 0, fmt.Errorf("price %q is not above 1", s)
	}
	return odds, nil
}
