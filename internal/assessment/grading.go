package assessment

import (
	"errors"
	"fmt"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

var (
	ErrScoreOutOfRange = errors.New("score out of range")
	ErrNotEligible     = errors.New("score below passing score")
)

// CheckScore enforces 0 <= score <= totalPoints.
func CheckScore(score, totalPoints int) error {
	if score < 0 || score > totalPoints {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrScoreOutOfRange, score, totalPoints)
	}
	return nil
}

// Eligible reports whether the certificate toggle may be enabled for score.
func Eligible(score, passingScore int) bool {
	return score >= passingScore
}

// AutoScore sums the points of quiz questions answered with the correct
// option. Short-answer questions are left for manual grading.
func AutoScore(questions models.Questions, answers models.QuizAnswers) int {
	total := 0
	for i, q := range questions {
		if q.Type == models.QuestionShortAnswer {
			continue
		}
		if chosen, ok := answers[i]; ok && chosen == q.CorrectOption {
			total += q.Points
		}
	}
	return total
}
