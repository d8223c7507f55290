package skillmatch

import "strings"

const systemPrompt = `You are an expert career analyst with the critical eye of a senior hiring manager. Perform a harsh, realistic analysis of the Resume against the Job Description. Focus only on the skills, technologies and experience the role explicitly requires.`

const analysisSteps = `Follow these steps:

1. **Job Description Analysis**
   - Extract the required skills and group them as Core Requirements (must-have) and Preferred Skills (nice-to-have).

2. **Resume Analysis**
   - Identify every direct skill in the resume.
   - Map related technologies onto required skills: MongoDB maps to NoSQL, Express.js maps to Node.js, Jenkins with Docker and AWS or Azure implies CI/CD pipelines, Django is close to FastAPI when the projects build APIs.
   - Judge project quality: meaningful usage counts, keyword lists do not.

3. **Implied Skills**
   - Write a short narrative (impliedSkills) of inferred skills with concrete examples from the resume.

4. **Gap Analysis**
   - Matching Skills: skills in the job description that the resume covers directly, by mapping, or by implication.
   - Missing Skills: skills the job description requires that are absent even after mapping.

5. **Weighted Match Score**
   - Core skills weigh most. Penalize missing skills by importance and reduce the penalty for close equivalents.
   - Ignore skills unrelated to the job description. Strong relevant projects raise the score.
   - Return an integer matchScore from 0 to 100.

6. **Status**
   - 75-100: Approved
   - 50-74: Needs Improvement
   - 0-49: Not a Match`

const outputInstructions = `IMPORTANT: After the analysis above, on a new line OUTPUT ONLY a single JSON object and nothing else. The JSON must contain these keys: matchScore (number), scoreRationale (string), matchingSkills (array of strings), missingSkills (array of strings), impliedSkills (string), status (string). Example:
{"matchScore":85,"scoreRationale":"...","matchingSkills":["Node.js"],"missingSkills":[],"impliedSkills":"...","status":"Approved"}
Do NOT output a JSON Schema, explanation, or any other text after the JSON.
Print the JSON between the literal markers <JSON_START> and <JSON_END> on their own lines. Example:
<JSON_START>
{"matchScore":85,"scoreRationale":"...","matchingSkills":["Node.js"],"missingSkills":[],"impliedSkills":"...","status":"Approved"}
<JSON_END>`

// SystemPrompt returns the analyst persona sent as the system message.
func SystemPrompt() string {
	return systemPrompt
}

// BuildPrompt renders the user prompt for one input.
func BuildPrompt(in Input) string {
	var b strings.Builder
	b.WriteString(analysisSteps)
	b.WriteString("\n\nJob Description:\n")
	b.WriteString(strings.TrimSpace(in.JobDescription))
	b.WriteString("\n\nResume:\n")
	b.WriteString(strings.TrimSpace(in.Resume))
	b.WriteString("\n\n")
	b.WriteString(outputInstructions)
	b.WriteString("\n")
	return b.String()
}
