package oddsfeed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
)

// football-data.co.uk bookmaker column prefixes
var footballDataBookmakers = map[string]string{
	"B365": "bet365",
	"BW":   "bwin",
	"IW":   "interwetten",
	"PS":   "pinnacle",
	"WH":   "williamhill",
	"VC":   "betvictor",
	"Avg":  "average",
	"Max":  "maximum",
}

// over/under 2.5 columns use a shorter prefix for some bookmakers
var footballDataTotals = map[string]string{
	"B365": "bet365",
	"P":    "pinnacle",
	"Avg":  "average",
	"Max":  "maximum",
}

// ImportedMatch is one row of a football-data.co.uk results file
type ImportedMatch struct {
	Fixture   model.Fixture
	HomeName  string
	AwayName  string
	HomeGoals int // -1 until played
	AwayGoals int
	Odds      model.OddsBook
}

// Played reports whether the row carries a full-time score
func (m ImportedMatch) Played() bool {
	return m.HomeGoals >= 0 && m.AwayGoals >= 0
}

// Result converts a played row to a finished match
func (m ImportedMatch) Result() model.FinishedMatch {
	return model.FinishedMatch{
		MatchID:    m.Fixture.MatchID,
		LeagueID:   m.Fixture.LeagueID,
		Date:       m.Fixture.KickOff,
		HomeTeamID: m.Fixture.HomeTeamID,
		AwayTeamID: m.Fixture.AwayTeamID,
		HomeGoals:  m.HomeGoals,
		AwayGoals:  m.AwayGoals,
	}
}

var nonAlpha = regexp.MustCompile(`[^a-z0-9]+`)

// TeamID derives a stable identifier from a team name, e.g. "Nott'm Forest" -> "nottm-forest"
func TeamID(name string) string {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "'", "")
	return strings.Trim(nonAlpha.ReplaceAllString(s, "-"), "-")
}

// MatchID builds the identifier of a match from its day and teams
func MatchID(kickOff time.Time, homeTeamID, awayTeamID string) string {
	return fmt.Sprintf("%s_%s_%s", kickOff.UTC().Format("20060102"), homeTeamID, awayTeamID)
}

// ParseFootballData reads a football-data.co.uk CSV file. Rows that cannot be read are logged and skipped.
func ParseFootballData(r io.Reader, leagueID string) ([]ImportedMatch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}

	var out []ImportedMatch
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return out, fmt.Errorf("failed to parse CSV at line %d: %w", line, err)
		}

		row := make(map[string]string, len(headers))
		for j, value := range record {
			if j < len(headers) {
				row[headers[j]] = strings.TrimSpace(value)
			}
		}
		if row["HomeTeam"] == "" || row["AwayTeam"] == "" {
			continue
		}

		m, err := parseFootballDataRow(row, leagueID)
		if err != nil {
			logger.Warn("Failed to parse match at line", line, err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func parseFootballDataRow(row map[string]string, leagueID string) (ImportedMatch, error) {
	kickOff, err := parseFootballDataTime(row["Date"], row["Time"])
	if err != nil {
		return ImportedMatch{}, err
	}

	if leagueID == "" {
		leagueID = row["Div"]
	}
	m := ImportedMatch{
		HomeName:  row["HomeTeam"],
		AwayName:  row["AwayTeam"],
		HomeGoals: goals(row["FTHG"]),
		AwayGoals: goals(row["FTAG"]),
		Odds:      model.OddsBook{},
	}
	m.Fixture = model.Fixture{
		LeagueID:   leagueID,
		HomeTeamID: TeamID(m.HomeName),
		AwayTeamID: TeamID(m.AwayName),
		KickOff:    kickOff,
	}
	m.Fixture.MatchID = MatchID(kickOff, m.Fixture.HomeTeamID, m.Fixture.AwayTeamID)
	m.Fixture.Finished = m.Played()

	for prefix, bookmaker := range footballDataBookmakers {
		addPrice(m.Odds, bookmaker, model.Market1X2, model.SelHome, row[prefix+"H"])
		addPrice(m.Odds, bookmaker, model.Market1X2, model.SelDraw, row[prefix+"D"])
		addPrice(m.Odds, bookmaker, model.Market1X2, model.SelAway, row[prefix+"A"])
	}
	totals := model.OverUnderKey(2.5)
	for prefix, bookmaker := range footballDataTotals {
		addPrice(m.Odds, bookmaker, totals, model.SelOver, row[prefix+">2.5"])
		addPrice(m.Odds, bookmaker, totals, model.SelUnder, row[prefix+"<2.5"])
	}
	if line, err := strconv.ParseFloat(row["AHh"], 64); err == nil {
		ah := model.AsianHandicapKey(line)
		addPrice(m.Odds, "bet365", ah, model.SelHome, row["B365AHH"])
		addPrice(m.Odds, "bet365", ah, model.SelAway, row["B365AHA"])
		addPrice(m.Odds, "average", ah, model.SelHome, row["AvgAHH"])
		addPrice(m.Odds, "average", ah, model.SelAway, row["AvgAHA"])
	}
	return m, nil
}

func addPrice(book model.OddsBook, bookmaker, market, selection, cell string) {
	if cell == "" {
		return
	}
	odds, err := ParseOdds(cell)
	if err != nil {
		return
	}
	book.Add(bookmaker, market, selection, odds)
}

func goals(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// parseFootballDataTime reads DD/MM/YYYY or DD/MM/YY dates, with an optional HH:MM kick-off
// (15:00 when absent), as London local time and returns UTC.
func parseFootballDataTime(date, clock string) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("no date")
	}
	if clock == "" {
		clock = "15:00"
	}
	dt := date + " " + clock

	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		loc = time.UTC
	}
	for _, layout := range []string{"02/01/2006 15:04", "02/01/06 15:04"} {
		if t, err := time.ParseInLocation(layout, dt, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date from %s", dt)
}
