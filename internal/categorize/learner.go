package categorize

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/jbrukh/bayesian"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
)

const (
	defaultTrainingSize = 500
	defaultModelMaxAge  = 15 * time.Minute
)

// TrainingSource supplies a user's already-categorized items.
type TrainingSource interface {
	CategorizedItems(ctx context.Context, userID string, limit int) ([]model.CategoryResult, error)
}

// userModel is a trained classifier for one user. cl is nil when the user
// does not have enough history to train on.
type userModel struct {
	builtAt time.Time
	cl      *bayesian.Classifier
	vocab   map[string]struct{}
	classes []bayesian.Class
}

// Learner suggests categories from a user's own history with a TF-IDF naive
// Bayes classifier. Models are rebuilt lazily once they age out.
type Learner struct {
	source       TrainingSource
	logger       *slog.Logger
	now          func() time.Time
	models       map[string]*userModel
	maxAge       time.Duration
	trainingSize int
	mu           sync.Mutex
}

// NewLearner creates a learner reading history from source.
func NewLearner(source TrainingSource, logger *slog.Logger) *Learner {
	return &Learner{
		source:       source,
		logger:       common.OrDefault(logger),
		now:          time.Now,
		models:       make(map[string]*userModel),
		maxAge:       defaultModelMaxAge,
		trainingSize: defaultTrainingSize,
	}
}

// Invalidate drops the cached model of userID so the next suggestion retrains.
func (l *Learner) Invalidate(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.models, userID)
}

// Suggest returns the category the user's history points to for label. It
// reports false when there is too little history, none of the label's terms
// have been seen, or no class clearly leads.
func (l *Learner) Suggest(ctx context.Context, userID, label string) (string, bool) {
	m, err := l.model(ctx, userID)
	if err != nil {
		l.logger.Debug("learner training failed", "user_id", userID, "error", err)
		return "", false
	}
	if m.cl == nil {
		return "", false
	}

	terms := classificationTerms(label)
	known := false
	for _, term := range terms {
		if _, ok := m.vocab[term]; ok {
			known = true
			break
		}
	}
	if !known {
		return "", false
	}

	class, ok := topClass(m, terms)
	if !ok || class == model.CategoryOther {
		return "", false
	}
	return class, true
}

func (l *Learner) model(ctx context.Context, userID string) (*userModel, error) {
	l.mu.Lock()
	m, ok := l.models[userID]
	l.mu.Unlock()
	if ok && l.now().Sub(m.builtAt) < l.maxAge {
		return m, nil
	}

	items, err := l.source.CategorizedItems(ctx, userID, l.trainingSize)
	if err != nil {
		return nil, err
	}
	m = train(items, l.now())

	l.mu.Lock()
	l.models[userID] = m
	l.mu.Unlock()
	return m, nil
}

// train builds a classifier over the observed categories. At least two
// distinct categories are needed.
func train(items []model.CategoryResult, now time.Time) *userModel {
	m := &userModel{builtAt: now, vocab: make(map[string]struct{})}

	seen := make(map[string]bool)
	for _, item := range items {
		if item.Category == "" || seen[item.Category] {
			continue
		}
		seen[item.Category] = true
		m.classes = append(m.classes, bayesian.Class(item.Category))
	}
	if len(m.classes) < 2 {
		return m
	}
	sort.Slice(m.classes, func(i, j int) bool { return m.classes[i] < m.classes[j] })

	m.cl = bayesian.NewClassifierTfIdf(m.classes...)
	for _, item := range items {
		if item.Category == "" {
			continue
		}
		terms := classificationTerms(item.ItemLabel)
		if len(terms) == 0 {
			continue
		}
		for _, term := range terms {
			m.vocab[term] = struct{}{}
		}
		m.cl.Learn(terms, bayesian.Class(item.Category))
	}
	m.cl.ConvertTermsFreqToTfIdf()
	return m
}

// topClass returns the best class when it leads the runner-up by more than
// one standard deviation of all scores.
func topClass(m *userModel, terms []string) (string, bool) {
	scores, best, strict := m.cl.LogScores(terms)
	if !strict || len(scores) < 2 {
		return "", false
	}

	var mean, stddev float64
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))
	for _, s := range scores {
		diff := s - mean
		stddev += diff * diff
	}
	stddev = math.Sqrt(stddev / float64(len(scores)-1))

	runnerUp := math.Inf(-1)
	for i, s := range scores {
		if i != best && s > runnerUp {
			runnerUp = s
		}
	}
	if scores[best]-runnerUp <= stddev/2 {
		return "", false
	}
	return string(m.classes[best]), true
}

// classificationTerms splits a label into lower-case alphanumeric terms.
func classificationTerms(label string) []string {
	fields := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			terms = append(terms, f)
		}
	}
	return terms
}
