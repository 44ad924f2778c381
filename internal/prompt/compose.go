// Package prompt builds the completion request sent to the model.
package prompt

import (
	"fmt"
	"strings"

	"resumelens/pkg/domain"
)

// System is the fixed instruction preamble for every analysis request.
const System = `You are an expert ATS (Applicant Tracking System) resume reviewer.
You evaluate resumes for structure, impact, and keyword fit.
Base all reasoning only on the provided text; do not invent experience.
Return only valid JSON. Do not include explanations, markdown fences, or any text before or after the JSON object.`

const resumeOnlySchema = `{
  "mode": "resume_only",
  "ats_score": number (0-100),
  "strengths": [string],
  "weaknesses": [string],
  "enhancements": [string],
  "section_feedback": {
    "skills": string,
    "projects": string,
    "experience": string,
    "education": string
  }
}`

const resumeJDSchema = `{
  "mode": "resume_jd",
  "ats_score": number (0-100),
  "keyword_match": number (0-100),
  "matched_keywords": [string],
  "missing_keywords": [string],
  "strengths": [string],
  "weaknesses": [string],
  "enhancements": [string],
  "section_feedback": {
    "skills": string,
    "projects": string,
    "experience": string,
    "education": string
  }
}`

// Compose builds the user prompt for the given resume text and optional job
// description. It is pure: no network or storage access. The mode is
// resume_jd iff the trimmed job description is non-empty. Both schemas are
// always embedded so the model sees the contrast; the trailing directive
// names the schema to use.
func Compose(resumeText, jobDescription string) (domain.Mode, string) {
	jd := strings.TrimSpace(jobDescription)
	mode := domain.ModeResumeOnly
	if jd != "" {
		mode = domain.ModeResumeJD
	}

	var b strings.Builder
	b.WriteString("Analyze the following resume")
	if mode == domain.ModeResumeJD {
		b.WriteString(" against the provided job description")
	}
	b.WriteString(".\n\nResume:\n")
	b.WriteString(resumeText)
	if mode == domain.ModeResumeJD {
		b.WriteString("\n\nJob description:\n")
		b.WriteString(jd)
	}
	b.WriteString("\n\nWhen no job description is given, respond with JSON in this exact shape:\n")
	b.WriteString(resumeOnlySchema)
	b.WriteString("\n\nWhen a job description is given, respond with JSON in this exact shape:\n")
	b.WriteString(resumeJDSchema)
	fmt.Fprintf(&b, "\n\nUse the %q schema for this request. Respond with a single JSON object and nothing else.", string(mode))
	return mode, b.String()
}
