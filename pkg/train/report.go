package train

import (
	"fmt"
	"strings"
)

// ClassMetrics are the per-class evaluation numbers of one fold.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a two-class precision/recall/F1 breakdown.
type Report struct {
	Classes map[string]*ClassMetrics
}

// Evaluate compares predictions against truth and returns (accuracy, report).
func Evaluate(predicted, truth []uint8) (float64, *Report) {
	classNames := []string{"idle", "active"}
	report := &Report{Classes: map[string]*ClassMetrics{}}
	correct := 0
	for class := uint8(0); class <= 1; class++ {
		tp, fp, fn := 0, 0, 0
		for i := range truth {
			switch {
			case predicted[i] == class && truth[i] == class:
				tp++
			case predicted[i] == class && truth[i] != class:
				fp++
			case predicted[i] != class && truth[i] == class:
				fn++
			}
		}
		m := &ClassMetrics{Support: tp + fn}
		if tp+fp > 0 {
			m.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			m.Recall = float64(tp) / float64(tp+fn)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.Classes[classNames[class]] = m
	}
	for i := range truth {
		if predicted[i] == truth[i] {
			correct++
		}
	}
	accuracy := 0.0
	if len(truth) > 0 {
		accuracy = float64(correct) / float64(len(truth))
	}
	return accuracy, report
}

func (r *Report) String() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%10v %9v %9v %9v %9v\n", "", "precision", "recall", "f1-score", "support")
	for _, name := range []string{"idle", "active"} {
		m := r.Classes[name]
		fmt.Fprintf(b, "%10v %9.2f %9.2f %9.2f %9v\n", name, m.Precision, m.Recall, m.F1, m.Support)
	}
	return b.String()
}
