package ai

const (
	topicModel    = "gemini-2.5-pro"
	feedbackModel = "gemini-2.5-flash"
)

const topicPrompt = `You are an expert HR professional who sets topics for group discussions in interviews.

Generate a single, concise, and engaging group discussion topic suitable for a professional setting. The topic should be debatable, allowing for multiple viewpoints, and relevant to modern workplace challenges, technology, or ethics.

The topic should be a statement or a question. Do not add any preamble or explanation.

Example topics:
- "Is remote work a sustainable long-term model for all industries?"
- "Should companies prioritize employee well-being over shareholder profits?"
- "The rise of AI: a threat or a benefit to the creative job market?"

Now, generate a new topic.`

const feedbackPromptTemplate = `You are an expert AI HR evaluator specializing in Group Discussions (GD).
Your task is to analyze the provided GD transcript and provide structured feedback on the user's performance.
The user is the one identified as "You" in the transcript.

Group Discussion Transcript:
%s

Instructions:
Evaluate the user's performance on communication clarity, leadership qualities, collaborative spirit, and quality of points.
Provide a concise summary, 2-3 key strengths, and 2-3 actionable areas for improvement.
Return the output in a strict JSON format, with scores from 1 to 10, shaped like:

{
  "scores": { "communication_clarity": 8, "leadership_qualities": 6, "collaborative_spirit": 7, "quality_of_points": 8 },
  "overall_score": 7.3,
  "summary": "...",
  "strengths": ["...", "..."],
  "areas_for_improvement": ["...", "..."]
}`
