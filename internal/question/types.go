package question

import (
	"regexp"

	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

// Difficulty constants.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// FSMTagPattern constrains the fastest-safe-method slug that links a
// question to a reusable problem pattern for mastery tracking.
var FSMTagPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Option is one answer choice. ID is a stable local key for UI selection
// state; it survives partial re-fetches.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// OptimalPath is the exam-specific shortcut method attached to a question,
// distinct from the full derivation.
type OptimalPath struct {
	Exists        bool     `json:"exists"`
	Steps         []string `json:"steps"`
	Preconditions []string `json:"preconditions,omitempty"`
	SanityCheck   string   `json:"sanityCheck,omitempty"`
}

// Solution is the full step-by-step derivation.
type Solution struct {
	Phases []SolutionPhase `json:"phases,omitempty"`
	Steps  []string        `json:"steps,omitempty"`
}

// SolutionPhase groups solution steps under a heading.
type SolutionPhase struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

// Question is the normalized payload delivered to clients. Content is
// immutable once persisted; only DiagramURL is patched in afterwards.
type Question struct {
	UUID               string                   `json:"uuid"`
	QuestionText       string                   `json:"questionText"`
	Options            []Option                 `json:"options"`
	CorrectOptionIndex int                      `json:"correctOptionIndex"`
	TimeTargets        map[taxonomy.ExamID]int  `json:"timeTargets"` // seconds per exam
	OptimalPath        OptimalPath              `json:"optimalPath"`
	FullSolution       Solution                 `json:"fullSolution"`
	FSMTag             string                   `json:"fsmTag"`
	Difficulty         string                   `json:"difficulty"`
	VisualDescription  string                   `json:"visualDescription,omitempty"`
	DiagramURL         string                   `json:"diagramUrl,omitempty"`
	DiagramRequired    bool                     `json:"diagramRequired"`
	Topic              taxonomy.TopicID         `json:"topic"`
	Subtopic           taxonomy.SubtopicID      `json:"subtopic"`
}

// TimeTarget returns the per-question target seconds for an exam, falling
// back to a sane default when the generator supplied none.
func (q *Question) TimeTarget(exam taxonomy.ExamID) int {
	if secs, ok := q.TimeTargets[exam]; ok && secs > 0 {
		return secs
	}
	return 120
}

// BatchRequest guides a question fetch for one user.
type BatchRequest struct {
	UserID     string
	Exam       taxonomy.ExamID
	Topic      taxonomy.TopicID
	Subtopic   taxonomy.SubtopicID
	Count      int
	Difficulty string
	ClassLevel int
	Board      string
	Subject    string
	// Exclude lists question texts already served this session, so
	// follow-up batches never repeat them.
	Exclude []string
}

// Batch holds fetched questions plus fetch metadata.
type Batch struct {
	Questions []Question `json:"questions"`
	Source    string     `json:"source"` // "cache", "store", or "generated"
}
