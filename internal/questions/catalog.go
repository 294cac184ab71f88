package questions

type typeProfile struct {
	Structure      string `json:"structure"`
	CognitiveLevel string `json:"cognitive_level"`
	Format         string `json:"format"`
}

type difficultyProfile struct {
	CognitiveDemand string `json:"cognitive_demand"`
	TimeAllocation  string `json:"time_allocation"`
	MarksRange      string `json:"marks_range"`
	Complexity      string `json:"complexity"`
}

const (
	TypeShortAnswer    = "Short Answer"
	TypeEssay          = "Essay"
	TypeProblemSolving = "Problem Solving"
	TypeTrueFalse      = "True/False"
	TypeFillBlanks     = "Fill in the Blanks"
	TypeDiagram        = "Diagram Based"
)

var questionTypes = map[string]typeProfile{
	TypeShortAnswer:    {"direct question requiring concise response", "comprehension, application", "brief answer format"},
	TypeEssay:          {"open-ended analytical question", "analysis, synthesis, evaluation", "extended response with arguments"},
	TypeProblemSolving: {"scenario-based question with steps", "application, analysis", "structured solution approach"},
	TypeTrueFalse:      {"statement to evaluate", "knowledge", "binary choice with explanation"},
	TypeFillBlanks:     {"sentence with missing words", "recall, comprehension", "completion task"},
	TypeDiagram:        {"visual with related questions", "application, analysis", "interpretation of visuals"},
}

var difficultyLevels = map[string]difficultyProfile{
	"Easy":   {"Basic recall and understanding", "1-2 minutes", "1-2 marks", "Single concept, straightforward application"},
	"Medium": {"Application and analysis", "3-5 minutes", "3-4 marks", "Multiple concepts, some problem-solving"},
	"Hard":   {"Analysis, synthesis, evaluation", "5-10 minutes", "5-8 marks", "Complex problem-solving, multiple steps"},
	"Mixed":  {"Varied levels", "Varied", "1-8 marks", "Combination of different levels"},
}

// TypeNames lists the supported question types in display order.
func TypeNames() []string {
	return []string{TypeShortAnswer, TypeEssay, TypeProblemSolving, TypeTrueFalse, TypeFillBlanks, TypeDiagram}
}

func DifficultyNames() []string {
	return []string{"Easy", "Medium", "Hard", "Mixed"}
}
