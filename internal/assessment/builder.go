package assessment

import "github.com/Ashik-Muhammed/zygreen/internal/models"

// Builder accumulates a learner's answer in memory until it is saved as a
// draft or handed in. It starts from the stored submission, if any.
type Builder struct {
	text    string
	answers models.QuizAnswers
	files   []models.Attachment
}

func NewBuilder(existing *models.Submission) *Builder {
	b := &Builder{answers: models.QuizAnswers{}}
	if existing == nil {
		return b
	}
	b.text = existing.TextAnswer
	for q, opt := range existing.Answers {
		b.answers[q] = opt
	}
	b.files = append(b.files, existing.Files...)
	return b
}

func (b *Builder) SetText(text string) {
	b.text = text
}

// SetAnswer records option as the answer to question, replacing any earlier one.
func (b *Builder) SetAnswer(question, option int) {
	b.answers[question] = option
}

// AddFile appends a file unless one with the same id is already attached.
func (b *Builder) AddFile(file models.Attachment) bool {
	for _, f := range b.files {
		if f.ID == file.ID {
			return false
		}
	}
	b.files = append(b.files, file)
	return true
}

func (b *Builder) RemoveFile(id string) bool {
	for i, f := range b.files {
		if f.ID == id {
			b.files = append(b.files[:i], b.files[i+1:]...)
			return true
		}
	}
	return false
}

// ReplaceFiles makes files the attachment set, going through AddFile and
// RemoveFile so ids stay unique.
func (b *Builder) ReplaceFiles(files []models.Attachment) {
	keep := make(map[string]bool, len(files))
	for _, f := range files {
		keep[f.ID] = true
	}
	for _, f := range append([]models.Attachment(nil), b.files...) {
		if !keep[f.ID] {
			b.RemoveFile(f.ID)
		}
	}
	for _, f := range files {
		b.AddFile(f)
	}
}

func (b *Builder) Text() string {
	return b.text
}

func (b *Builder) Answers() models.QuizAnswers {
	out := make(models.QuizAnswers, len(b.answers))
	for q, opt := range b.answers {
		out[q] = opt
	}
	return out
}

func (b *Builder) Files() models.Attachments {
	return append(models.Attachments{}, b.files...)
}

// Apply copies the accumulated answer onto s.
func (b *Builder) Apply(s *models.Submission) {
	s.TextAnswer = b.text
	s.Answers = b.Answers()
	s.Files = b.Files()
}
