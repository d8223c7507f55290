package interview

import (
	"fmt"
	"strings"
)

const questionsSystem = `You are a senior hiring manager preparing for an interview.`

const questionsTemplate = `Based on the Job Description below, write exactly 5 interview questions that cover its key skills and responsibilities. They MUST increase in difficulty:
- Question 1: a basic introductory or screening question.
- Questions 2-3: intermediate questions about specific skills or experience.
- Questions 4-5: advanced, scenario-based or behavioral questions that need deep thought.

Job Description:
%s

Respond with ONLY this JSON object: {"questions":["...","...","...","...","..."]}`

const evaluationSystem = `You are an expert interviewer evaluating a candidate's response. Be fair and constructive: do not be harsh over minor omissions, but stay realistic about quality. A good answer is clear, relevant and shows the skills the job requires.`

const evaluationTemplate = `Job Description:
%s

Question Asked:
"%s"

Candidate's Answer:
"%s"

Score the answer from 1 to 10 on clarity, relevance and accuracy, and give concise feedback that explains the score, naming what was good and what could improve.
Respond with ONLY this JSON object: {"score":7,"feedback":"..."}`

const (
	questionsRepair  = `Your previous reply was unusable. Reply with ONLY a JSON object of the form {"questions":[...]} holding exactly 5 non-empty question strings.`
	evaluationRepair = `Your previous reply was unusable. Reply with ONLY a JSON object of the form {"score":N,"feedback":"..."} where N is an integer from 1 to 10 and feedback is non-empty.`
)

func buildQuestionsPrompt(jobDescription string) string {
	return fmt.Sprintf(questionsTemplate, strings.TrimSpace(jobDescription))
}

func buildEvaluationPrompt(jobDescription, question, answer string) string {
	return fmt.Sprintf(evaluationTemplate, strings.TrimSpace(jobDescription), strings.TrimSpace(question), strings.TrimSpace(answer))
}
