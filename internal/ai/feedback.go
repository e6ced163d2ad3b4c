package ai

// Scores grades one dimension of a group-discussion performance, 1..10.
type Scores struct {
	CommunicationClarity int `json:"communication_clarity" validate:"min=1,max=10"`
	LeadershipQualities  int `json:"leadership_qualities" validate:"min=1,max=10"`
	CollaborativeSpirit  int `json:"collaborative_spirit" validate:"min=1,max=10"`
	QualityOfPoints      int `json:"quality_of_points" validate:"min=1,max=10"`
}

// Feedback is the validated shape the model must return for a transcript.
type Feedback struct {
	Scores              Scores   `json:"scores"`
	OverallScore        float64  `json:"overall_score" validate:"min=1,max=10"`
	Summary             string   `json:"summary" validate:"required"`
	Strengths           []string `json:"strengths" validate:"required,min=1"`
	AreasForImprovement []string `json:"areas_for_improvement" validate:"required,min=1"`
}
