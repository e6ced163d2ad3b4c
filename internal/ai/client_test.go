package ai

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

const goodReply = "```json\n" + `{
  "scores": { "communication_clarity": 8, "leadership_qualities": 6, "collaborative_spirit": 7, "quality_of_points": 8 },
  "overall_score": 7.3,
  "summary": "Solid performance.",
  "strengths": ["Clear communication"],
  "areas_for_improvement": ["Lead more"]
}` + "\n```"

func testClient() *Client {
	return &Client{validate: validator.New()}
}

func TestParseFeedback_StripsFences(t *testing.T) {
	req := require.New(t)

	fb, err := testClient().parseFeedback(goodReply)
	req.NoError(err)
	req.Equal(8, fb.Scores.CommunicationClarity)
	req.InDelta(7.3, fb.OverallScore, 0.001)
	req.Equal([]string{"Clear communication"}, fb.Strengths)
}

func TestParseFeedback_PlainJSON(t *testing.T) {
	req := require.New(t)

	fb, err := testClient().parseFeedback(`{
		"scores": { "communication_clarity": 5, "leadership_qualities": 5, "collaborative_spirit": 5, "quality_of_points": 5 },
		"overall_score": 5,
		"summary": "ok",
		"strengths": ["s"],
		"areas_for_improvement": ["a"]
	}`)
	req.NoError(err)
	req.Equal("ok", fb.Summary)
}

func TestParseFeedback_RejectsOutOfRangeScore(t *testing.T) {
	req := require.New(t)

	_, err := testClient().parseFeedback(`{
		"scores": { "communication_clarity": 11, "leadership_qualities": 5, "collaborative_spirit": 5, "quality_of_points": 5 },
		"overall_score": 5,
		"summary": "ok",
		"strengths": ["s"],
		"areas_for_improvement": ["a"]
	}`)
	req.ErrorContains(err, "validation")
}

func TestParseFeedback_RejectsMissingFields(t *testing.T) {
	req := require.New(t)

	_, err := testClient().parseFeedback(`{
		"scores": { "communication_clarity": 5, "leadership_qualities": 5, "collaborative_spirit": 5, "quality_of_points": 5 },
		"overall_score": 5,
		"summary": "",
		"strengths": [],
		"areas_for_improvement": ["a"]
	}`)
	req.Error(err)
}

func TestParseFeedback_RejectsGarbage(t *testing.T) {
	req := require.New(t)

	_, err := testClient().parseFeedback("the model rambled instead of emitting json")
	req.ErrorContains(err, "parse feedback")
}

func TestParseFeedback_EmptyReply(t *testing.T) {
	req := require.New(t)

	_, err := testClient().parseFeedback("``````")
	req.ErrorIs(err, ErrEmptyReply)
}
