package generator

import "fmt"

// Fallback constructors produce deterministic payloads shaped like the
// generated ones. They back the degraded path: when the LLM is unavailable or
// returns garbage, delivery continues with these.

// FallbackLessonStep returns a deterministic lesson step.
func FallbackLessonStep(req LessonStepRequest) *LessonStep {
	return &LessonStep{
		StepNumber: req.StepNumber,
		TotalSteps: req.TotalSteps,
		Title:      fmt.Sprintf("Step %d: %s", req.StepNumber, req.Topic),
		Content: fmt.Sprintf("In this step we cover %s as part of %s. Work through the material below at your own pace.",
			req.Topic, req.Subject),
		Examples:         []string{fmt.Sprintf("A worked example applying %s.", req.Topic)},
		KeyPoints:        []string{fmt.Sprintf("Core ideas of %s.", req.Topic)},
		EstimatedTimeMin: 10,
		NextStepPreview:  "The next step builds on what you just learned.",
	}
}

// FallbackQuestion returns a deterministic practice question.
func FallbackQuestion(req QuestionRequest) *Question {
	questionType := req.QuestionType
	if questionType == "" {
		questionType = "multiple_choice"
	}

	q := &Question{
		QuestionType:  questionType,
		Question:      fmt.Sprintf("Which statement best describes %s?", req.Concept),
		CorrectAnswer: fmt.Sprintf("The fundamental principle of %s.", req.Concept),
		Explanation:   fmt.Sprintf("Review the core definition of %s in %s.", req.Concept, req.Topic),
		Difficulty:    "medium",
	}
	if questionType == "multiple_choice" {
		q.Options = []string{
			q.CorrectAnswer,
			fmt.Sprintf("An unrelated property of %s.", req.Subject),
			"None of the above.",
			"All of the above.",
		}
	}
	return q
}

// FallbackFeedback returns deterministic answer feedback.
func FallbackFeedback(req FeedbackRequest) *Feedback {
	fb := &Feedback{
		Feedback:    "Your answer was reviewed.",
		Explanation: fmt.Sprintf("The correct answer is: %s", req.CorrectAnswer),
	}
	if req.IsCorrect {
		fb.Feedback = "Correct, well done."
		fb.Explanation = fmt.Sprintf("You answered: %s", req.UserAnswer)
	} else {
		fb.ImprovementSuggestions = []string{"Compare your answer with the correct one and note the differences."}
	}
	return fb
}

// FallbackHint returns a deterministic hint for the level.
func FallbackHint(req HintRequest) *Hint {
	subject := req.Question
	if subject == "" {
		subject = req.Concept
	}
	return &Hint{
		Level:     req.Level,
		Hint:      fmt.Sprintf("This is a %s hint for %s.", req.Level, subject),
		Relevance: 0.8,
	}
}

// FallbackComplexityAdjustment returns deterministic complexity-adjusted
// content.
func FallbackComplexityAdjustment(req ComplexityRequest) *ComplexityAdjustment {
	return &ComplexityAdjustment{
		Content: fmt.Sprintf("Here is %s-level material for %s to match your recent %s performance.",
			req.Complexity, req.Topic, req.PerformanceLabel),
		Recommendation: fmt.Sprintf("Continue with %s content for now.", req.Complexity),
	}
}
