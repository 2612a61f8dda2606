package eval

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"advisor/internal/domain"
	"advisor/internal/service"
)

// Item is one evaluation question. Group is an optional key for
// aggregating scores (a topic, a source corpus); Reference is an
// optional expected answer carried through to the report.
type Item struct {
	Question  string
	Group     string
	Reference string
}

// Result is the outcome for a single question. Failed marks questions
// where the pipeline reported a contained error; those score zero.
type Result struct {
	Item
	Response string
	Score    float64
	Failed   bool
}

// GroupScore is the mean score of one group.
type GroupScore struct {
	Group string
	Score float64
}

// Report aggregates a finished evaluation run.
type Report struct {
	AverageScore float64
	Total        int
	Failures     int
	FailureRate  float64
	Groups       []GroupScore
	Best         []Result
	Worst        []Result
}

// Pipeline is the evaluated subset of the advisory service.
type Pipeline interface {
	Ask(ctx context.Context, state *domain.SessionState, utterance string) service.Reply
}

// questionKeys and friends are the field names accepted in question
// files; sets exported by different tools disagree on naming.
var (
	questionKeys  = []string{"question", "utterance"}
	groupKeys     = []string{"group", "db_id", "database", "topic"}
	referenceKeys = []string{"reference", "answer", "query", "sql"}
)

// LoadQuestions reads a JSON question file: a list of objects each
// holding a question plus optional group and reference fields. Items
// without a question are dropped.
func LoadQuestions(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	items := make([]Item, 0, len(raw))
	for _, entry := range raw {
		question := firstString(entry, questionKeys)
		if question == "" {
			continue
		}
		items = append(items, Item{
			Question:  question,
			Group:     firstString(entry, groupKeys),
			Reference: firstString(entry, referenceKeys),
		})
	}
	if len(items) == 0 {
		return nil, errors.New("no questions found in " + path)
	}
	return items, nil
}

// Discover returns the JSON files in dir that look like question sets:
// a non-empty list of objects whose first entry carries a question.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var raw []map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		if len(raw) > 0 && firstString(raw[0], questionKeys) != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func firstString(entry map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := entry[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Runner drives the pipeline over a question set.
type Runner struct {
	pipeline Pipeline
	log      *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(pipeline Pipeline, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{pipeline: pipeline, log: log}
}

// Run asks each question in order against one shared session, so
// conversational memory accumulates the way it does in a live chat.
// Failures are contained per question and the run continues.
// limit <= 0 evaluates every item.
func (r *Runner) Run(ctx context.Context, items []Item, limit int) []Result {
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	state := domain.NewSessionState()
	results := make([]Result, 0, len(items))
	for i, item := range items {
		reply := r.pipeline.Ask(ctx, state, item.Question)
		res := Result{Item: item, Response: reply.Text}
		if reply.Err != nil {
			res.Failed = true
			r.log.Warn("evaluation question failed",
				zap.Int("index", i),
				zap.Error(reply.Err))
		} else {
			res.Score = OverlapScore(reply.Text, item.Question)
		}
		results = append(results, res)
		r.log.Debug("question evaluated",
			zap.Int("index", i),
			zap.Float64("score", res.Score))
	}
	return results
}

// OverlapScore measures how much of the question's vocabulary the
// response covers: |response words ∩ question words| / |question
// words|, stopwords removed, case-insensitive.
func OverlapScore(response, question string) float64 {
	responseWords := contentWords(response)
	questionWords := contentWords(question)
	if len(questionWords) == 0 {
		return 0
	}
	hits := 0
	for word := range questionWords {
		if _, ok := responseWords[word]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(questionWords))
}

func contentWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?:;\"'()")
		if word == "" {
			continue
		}
		if _, stop := scoreStopwords[word]; stop {
			continue
		}
		words[word] = struct{}{}
	}
	return words
}

var scoreStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "with": {}, "by": {}, "about": {},
	"like": {}, "from": {},
}

// Analyze aggregates results into a report: mean score, failure rate,
// per-group means sorted best-first, and the topN best and worst
// questions.
func Analyze(results []Result, topN int) Report {
	report := Report{Total: len(results)}
	if len(results) == 0 {
		return report
	}
	sum := 0.0
	groupSums := map[string]float64{}
	groupCounts := map[string]int{}
	for _, res := range results {
		sum += res.Score
		if res.Failed {
			report.Failures++
		}
		if res.Group != "" {
			groupSums[res.Group] += res.Score
			groupCounts[res.Group]++
		}
	}
	report.AverageScore = sum / float64(len(results))
	report.FailureRate = float64(report.Failures) / float64(len(results))

	for group, total := range groupSums {
		report.Groups = append(report.Groups, GroupScore{Group: group, Score: total / float64(groupCounts[group])})
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		if report.Groups[i].Score != report.Groups[j].Score {
			return report.Groups[i].Score > report.Groups[j].Score
		}
		return report.Groups[i].Group < report.Groups[j].Group
	})

	if topN > len(results) {
		topN = len(results)
	}
	byScore := append([]Result(nil), results...)
	sort.SliceStable(byScore, func(i, j int) bool { return byScore[i].Score > byScore[j].Score })
	report.Best = append([]Result(nil), byScore[:topN]...)
	worst := append([]Result(nil), byScore[len(byScore)-topN:]...)
	for i, j := 0, len(worst)-1; i < j; i, j = i+1, j-1 {
		worst[i], worst[j] = worst[j], worst[i]
	}
	report.Worst = worst
	return report
}

// WriteCSV writes the detailed per-question results.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"question", "group", "reference", "response", "score", "failed"}); err != nil {
		return err
	}
	for _, res := range results {
		record := []string{
			res.Question,
			res.Group,
			res.Reference,
			res.Response,
			strconv.FormatFloat(res.Score, 'f', 4, 64),
			strconv.FormatBool(res.Failed),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
