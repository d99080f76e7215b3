package services

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/insight-service/internal/models"
)

// Prompt builders for the insight categories. Each one renders the
// aggregated evidence into the prompt and pins the exact JSON shape the
// parser expects back.

func metricLines(metrics []models.TopicMetric) string {
	var b strings.Builder
	for _, m := range metrics {
		fmt.Fprintf(&b, "- subject=%q topic=%q accuracy=%.2f weighted=%.4f improvement=%+.1f%% attempted=%d/%d\n",
			m.Subject, m.Topic, m.Accuracy, m.WeightedAccuracy, m.ImprovementRate, m.Attempted, m.TotalInScope)
	}
	return b.String()
}

func selectionLines(results []models.SelectionResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- subject=%q topic=%q accuracy=%.2f weighted=%.4f question_ids=%v\n",
			r.Subject, r.Topic, r.Metric.Accuracy, r.Metric.WeightedAccuracy, r.Citations)
	}
	return b.String()
}

func subtopicLines(metrics []models.SubtopicMetric) string {
	var b strings.Builder
	for _, m := range metrics {
		fmt.Fprintf(&b, "- subject=%q topic=%q subtopic=%q accuracy=%.2f attempted=%d/%d misses=%d\n",
			m.Subject, m.Topic, m.Subtopic, m.Accuracy, m.Attempted, m.TotalInScope, len(m.Citations))
	}
	return b.String()
}

const promptPreamble = `You are an exam-performance analyst. Use ONLY the metrics provided; never invent topics, subjects, or numbers. Respond with a single JSON value inside a fenced code block and nothing else.`

func overviewPrompt(metrics []models.TopicMetric) string {
	return fmt.Sprintf(`%s

Per-topic performance:
%s
Write a performance overview. Respond with:
{"summary": "<3-4 sentence narrative>", "strengths": ["<topic-level strength>", ...], "weaknesses": ["<topic-level weakness>", ...]}`,
		promptPreamble, metricLines(metrics))
}

func swotPrompt(metrics []models.TopicMetric) string {
	return fmt.Sprintf(`%s

Per-topic performance grouped by subject:
%s
For EVERY subject above produce exactly %d strength bullets and %d weakness bullets. Respond with a JSON array:
[{"subject": "<subject>", "strengths": ["...", "..."], "weaknesses": ["...", "..."]}]`,
		promptPreamble, metricLines(metrics), models.SWOTBulletsPerSubject, models.SWOTBulletsPerSubject)
}

func actionPlanPrompt(weak []models.SelectionResult) string {
	return fmt.Sprintf(`%s

Weakest topics (ordered weakest first):
%s
Produce at most %d concrete study actions, one per topic, copying subject/topic/accuracy verbatim from the list. Respond with a JSON array:
[{"topic": "<topic>", "subject": "<subject>", "accuracy": <0..1>, "action": "<one imperative sentence>"}]`,
		promptPreamble, selectionLines(weak), models.MaxActionPlanItems)
}

func checklistPrompt(weak []models.SelectionResult) string {
	return fmt.Sprintf(`%s

Weakest topics (ordered weakest first):
%s
Produce at most %d checklist entries describing the likely underlying problem per topic, copying subject/topic/accuracy verbatim. Respond with a JSON array:
[{"topic": "<topic>", "subject": "<subject>", "accuracy": <0..1>, "problem": "<one sentence>"}]`,
		promptPreamble, selectionLines(weak), models.MaxChecklistItems)
}

func studyTipsPrompt(metrics []models.TopicMetric) string {
	return fmt.Sprintf(`%s

Per-topic performance grouped by subject:
%s
Produce one practical study tip per subject. Respond with a JSON array:
[{"subject": "<subject>", "tip": "<one or two sentences>"}]`,
		promptPreamble, metricLines(metrics))
}

func checkpointsPrompt(weak []models.SelectionResult) string {
	return fmt.Sprintf(`%s

Weakest topics with their evidence question IDs:
%s
Produce at most %d checkpoints (at most %d per subject): a measurable milestone plus the action to reach it, copying subject/topic/accuracy and citing the question_ids verbatim. Respond with a JSON array:
[{"topic": "<topic>", "subject": "<subject>", "accuracy": <0..1>, "checkpoint": "<measurable milestone>", "action": "<how to get there>", "citation": [<question_id>, ...]}]`,
		promptPreamble, selectionLines(weak), models.MaxCheckpoints, models.MaxCheckpointsPerSubject)
}

func subtopicsPrompt(metrics []models.SubtopicMetric) string {
	return fmt.Sprintf(`%s

Per-subtopic performance:
%s
For every subject rank the subtopics that most need review, rank 1 = most urgent, at most %d per subject. Copy subtopic names verbatim. Respond with a JSON object keyed by subject:
{"<subject>": [{"subtopic": "<subtopic>", "rank": 1, "reason": "<one sentence grounded in the accuracy numbers>"}]}`,
		promptPreamble, subtopicLines(metrics), models.MaxSubtopicsPerSubject)
}
