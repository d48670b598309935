// Package report renders predictions and value bets as HTML and Markdown for tool clients
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/richard-senior/valuebet/internal/logger"
	"github.com/richard-senior/valuebet/pkg/model"
	"github.com/richard-senior/valuebet/pkg/value"
)

const maxScores = 5

var funcs = template.FuncMap{
	"pct": func(p float64) string {
		return fmt.Sprintf("%.1f%%", p*100)
	},
	"num": func(v float64) string {
		return fmt.Sprintf("%.2f", v)
	},
	"kickoff": func(t time.Time) string {
		if t.IsZero() {
			return "TBC"
		}
		return t.UTC().Format("Mon 2 Jan 2006 15:04 MST")
	},
	"label": func(b model.ValueBet) string {
		return value.SelectionLabel(b.Market, b.Selection, b.HomeTeam, b.AwayTeam)
	},
}

var matchTemplate = template.Must(template.New("match").Funcs(funcs).Parse(`<html><head><title>{{.P.HomeTeam}} v {{.P.AwayTeam}}</title></head><body>
<h1>{{.P.HomeTeam}} v {{.P.AwayTeam}}</h1>
<p>Kick-off: {{kickoff .P.KickOff}}{{if .P.LeagueID}} ({{.P.LeagueID}}){{end}}</p>
<h2>Result</h2>
<ul>
<li>Home: {{pct .P.Probabilities.Home}}</li>
<li>Draw: {{pct .P.Probabilities.Draw}}</li>
<li>Away: {{pct .P.Probabilities.Away}}</li>
</ul>
<p>Pick: <strong>{{.P.Pick}}</strong> with {{printf "%.1f" .P.Confidence}}% confidence. Expected goals {{num .P.ExpectedGoals.Home}} - {{num .P.ExpectedGoals.Away}}.</p>
{{if .Scores}}<h2>Most likely scores</h2>
<ol>{{range .Scores}}<li>{{.Score}}: {{pct .P}}</li>{{end}}</ol>{{end}}
<h2>Models</h2>
<ul>{{range .P.Models}}<li>{{.Model}} (weight {{num .Weight}}){{if .Skipped}} skipped{{else}}: {{pct .Probabilities.Home}} / {{pct .Probabilities.Draw}} / {{pct .Probabilities.Away}}{{end}}</li>{{end}}</ul>
{{if .P.Quality.Fallbacks}}<p>Fallbacks: {{range $i, $f := .P.Quality.Fallbacks}}{{if $i}}, {{end}}{{$f.Model}} ({{$f.Reason}}){{end}}</p>{{end}}
{{if .Bets}}<h2>Value bets</h2>
<ol>{{range .Bets}}<li><strong>{{label .}}</strong> at {{num .Odds}} with {{.Bookmaker}}: model {{pct .ModelProbability}}, implied {{pct .ImpliedProbability}}, edge {{pct .Edge}}, rating {{printf "%.0f" .Rating}} ({{.Confidence}})</li>{{end}}</ol>
{{else}}<p>No value found.</p>{{end}}
{{if .Excluded}}<p>Markets left out for margin: {{range $i, $e := .Excluded}}{{if $i}}, {{end}}{{$e.Bookmaker}} {{$e.Market}} ({{pct $e.Margin}}){{end}}</p>{{end}}
</body></html>`))

var dailyTemplate = template.Must(template.New("daily").Funcs(funcs).Parse(`<html><head><title>Value bets for {{.Day}}</title></head><body>
<h1>Value bets for {{.Day}}</h1>
{{if .Bets}}<ol>{{range .Bets}}<li>{{.HomeTeam}} v {{.AwayTeam}} ({{kickoff .KickOff}}): <strong>{{label .}}</strong> at {{num .Odds}} with {{.Bookmaker}}, edge {{pct .Edge}}, rating {{printf "%.0f" .Rating}}</li>{{end}}</ol>
{{else}}<p>No value found.</p>{{end}}
</body></html>`))

type scoreLine struct {
	Score string
	P     float64
}

// Renderer turns predictions into documents. Domain is used to resolve relative links in Markdown output.
type Renderer struct {
	domain string
}

func NewRenderer(domain string) *Renderer {
	return &Renderer{domain: domain}
}

// MatchHTML renders a prediction and, when rep is not nil, its value bets
func (r *Renderer) MatchHTML(pred model.MatchPrediction, rep *value.Report) (string, error) {
	data := struct {
		P        model.MatchPrediction
		Scores   []scoreLine
		Bets     []model.ValueBet
		Excluded []value.MarginExclusion
	}{P: pred, Scores: topScores(pred.Scores, maxScores)}
	if rep != nil {
		data.Bets = rep.Bets
		data.Excluded = rep.Excluded
	}

	var buf bytes.Buffer
	if err := matchTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render match report: %w", err)
	}
	return buf.String(), nil
}

// MatchMarkdown renders MatchHTML and converts it
func (r *Renderer) MatchMarkdown(pred model.MatchPrediction, rep *value.Report) (string, error) {
	html, err := r.MatchHTML(pred, rep)
	if err != nil {
		return "", err
	}
	return r.markdown(html)
}

// DailyHTML renders a list of value bets for one day
func (r *Renderer) DailyHTML(day string, bets []model.ValueBet) (string, error) {
	var buf bytes.Buffer
	err := dailyTemplate.Execute(&buf, struct {
		Day  string
		Bets []model.ValueBet
	}{day, bets})
	if err != nil {
		return "", fmt.Errorf("failed to render daily report: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) DailyMarkdown(day string, bets []model.ValueBet) (string, error) {
	html, err := r.DailyHTML(day, bets)
	if err != nil {
		return "", err
	}
	return r.markdown(html)
}

func (r *Renderer) markdown(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(html, converter.WithDomain(r.domain))
	if err != nil {
		logger.Error("Failed to convert HTML to Markdown:", err)
		return "", err
	}
	return md, nil
}

// topScores returns the n most likely scores, ties broken by score text
func topScores(d model.ScoreDistribution, n int) []scoreLine {
	out := make([]scoreLine, 0, len(d.Scores))
	for s, p := range d.Scores {
		out = append(out, scoreLine{s, p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].P != out[j].P {
			return out[i].P > out[j].P
		}
		return out[i].Score < out[j].Score
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
