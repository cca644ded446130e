package catalog

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/DaanHessen/lifeswipe/internal/engine"
)

// Columns is the CSV interchange header, in order.
var Columns = []string{
	"Id", "Title", "Description", "Artwork",
	"LeftAnswer", "RightAnswer",
	"LeftHeart", "LeftCareer", "LeftHappiness", "LeftSociability",
	"RightHeart", "RightCareer", "RightHappiness", "RightSociability",
	"ImpactTypes", "AgeImpact",
	"IsChainCard", "NextOnLeft", "NextOnRight",
	"NextPoolLeft", "NextPoolRight",
	"LifeStage", "IsOnlyOnce",
}

// Escape quotes a string field, doubling inner quotes. Empty strings stay empty.
func Escape(v string) string {
	if v == "" {
		return ""
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func joinIDs[T ~string](ids []T) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			parts = append(parts, string(id))
		}
	}
	return strings.Join(parts, "|")
}

// WriteCSV exports cards with string fields always quoted and lists pipe-joined.
func WriteCSV(w io.Writer, cards []engine.Card) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(Columns, ",") + "\n"); err != nil {
		return err
	}
	for _, c := range cards {
		row := []string{
			Escape(c.ID), Escape(c.Title), Escape(c.Description), Escape(c.Artwork),
			Escape(c.LeftAnswer), Escape(c.RightAnswer),
			strconv.Itoa(c.LeftImpact.Heart), strconv.Itoa(c.LeftImpact.Career),
			strconv.Itoa(c.LeftImpact.Happiness), strconv.Itoa(c.LeftImpact.Sociability),
			strconv.Itoa(c.RightImpact.Heart), strconv.Itoa(c.RightImpact.Career),
			strconv.Itoa(c.RightImpact.Happiness), strconv.Itoa(c.RightImpact.Sociability),
			Escape(joinIDs(c.ImpactTypes)), strconv.FormatFloat(c.AgeImpact, 'g', -1, 64),
			strconv.FormatBool(c.IsChainCard), Escape(c.NextOnLeft), Escape(c.NextOnRight),
			Escape(joinIDs(c.NextPoolLeft)), Escape(joinIDs(c.NextPoolRight)),
			string(lifeStageOrAny(c.LifeStage)), strconv.FormatBool(c.IsOnlyOnce),
		}
		if _, err := bw.WriteString(strings.Join(row, ",") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func lifeStageOrAny(ls engine.LifeStage) engine.LifeStage {
	if ls == "" {
		return engine.LifeStageAny
	}
	return ls
}

// ReadCSV imports cards written by WriteCSV. Enum columns also accept CamelCase spellings
// ("YoungAdult", "Heart") and booleans accept "True"/"False".
func ReadCSV(r io.Reader) ([]engine.Card, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, col := range Columns {
		if strings.TrimPrefix(header[i], "\ufeff") != col {
			return nil, fmt.Errorf("column %d: got %q, want %q", i+1, header[i], col)
		}
	}
	var cards []engine.Card
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return cards, nil
		}
		if err != nil {
			return nil, err
		}
		c, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cards = append(cards, c)
	}
}

type rowParser struct {
	rec []string
	err error
}

func (p *rowParser) atoi(i int) int {
	if p.err != nil || p.rec[i] == "" {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(p.rec[i]))
	if err != nil {
		p.err = fmt.Errorf("%s: %w", Columns[i], err)
	}
	return v
}

func (p *rowParser) atof(i int) float64 {
	if p.err != nil || p.rec[i] == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.rec[i]), 64)
	if err != nil {
		p.err = fmt.Errorf("%s: %w", Columns[i], err)
	}
	return v
}

func (p *rowParser) flag(i int) bool {
	if p.err != nil || p.rec[i] == "" {
		return false
	}
	v, err := strconv.ParseBool(strings.TrimSpace(p.rec[i]))
	if err != nil {
		p.err = fmt.Errorf("%s: %w", Columns[i], err)
	}
	return v
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseRow(rec []string) (engine.Card, error) {
	p := &rowParser{rec: rec}
	c := engine.Card{
		ID:          rec[0],
		Title:       rec[1],
		Description: rec[2],
		Artwork:     rec[3],
		LeftAnswer:  rec[4],
		RightAnswer: rec[5],
		LeftImpact:  engine.Impact{Heart: p.atoi(6), Career: p.atoi(7), Happiness: p.atoi(8), Sociability: p.atoi(9)},
		RightImpact: engine.Impact{Heart: p.atoi(10), Career: p.atoi(11), Happiness: p.atoi(12), Sociability: p.atoi(13)},
		AgeImpact:   p.atof(15),
		IsChainCard: p.flag(16),
		NextOnLeft:  rec[17],
		NextOnRight: rec[18],
		IsOnlyOnce:  p.flag(22),
	}
	if p.err != nil {
		return engine.Card{}, p.err
	}
	for _, t := range splitIDs(rec[14]) {
		st := engine.Stat(enumSpelling(t))
		if !st.Validate() {
			return engine.Card{}, fmt.Errorf("ImpactTypes: unknown stat %q", t)
		}
		c.ImpactTypes = append(c.ImpactTypes, st)
	}
	c.NextPoolLeft = splitIDs(rec[19])
	c.NextPoolRight = splitIDs(rec[20])
	c.LifeStage = engine.LifeStage(enumSpelling(rec[21]))
	if c.LifeStage == "" {
		c.LifeStage = engine.LifeStageAny
	}
	if !c.LifeStage.Validate() {
		return engine.Card{}, fmt.Errorf("LifeStage: unknown value %q", rec[21])
	}
	return c, nil
}

// enumSpelling maps "YoungAdult" and "young_adult" alike to "young_adult".
func enumSpelling(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 && s[i-1] != '_' {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FromCSV builds a playable deck from imported cards. The sheet has no progress columns, so cards
// known to base keep base's progress flags and new cards count towards progress. Progress
// settings, end cards and their ranges come from base.
func FromCSV(name string, cards []engine.Card, base *Deck) *Deck {
	known := make(map[string]engine.Card, len(base.Cards))
	for _, c := range base.Cards {
		known[c.ID] = c
	}
	out := make([]engine.Card, len(cards))
	for i, c := range cards {
		if b, ok := known[c.ID]; ok {
			c.ContributesToProgress = b.ContributesToProgress
			c.IsFinalCard = b.IsFinalCard
			c.CompensatesSkippedCard = b.CompensatesSkippedCard
		} else {
			c.ContributesToProgress = true
		}
		out[i] = c
	}
	return &Deck{
		Name:          name,
		Progress:      base.Progress,
		EndCardRanges: base.EndCardRanges,
		Cards:         out,
		EndCards:      base.EndCards,
	}
}
