package agents

// EvaluatePrompt scores a frame's pre-development thinking against a
// fixed 100-point rubric. The {frame_content} placeholder takes the
// rendered frame.
const EvaluatePrompt = `You are an expert software engineering reviewer evaluating a frame. Assess the quality and completeness of the pre-development thinking.

## Frame Content

{frame_content}

## Evaluation Criteria

Score each section (0-25 points each, total 100):

1. **Problem Statement** (0-25)
   - Is the problem clearly defined?
   - Is the business value articulated?
   - Are success metrics defined?
   - For bug frames: is there a root cause analysis?

2. **User Perspective** (0-25)
   - Are target users identified?
   - Is the user journey understood?
   - Are pain points specific?

3. **Engineering Framing** (0-25)
   - Is the solution approach clear?
   - Are technical decisions documented?
   - Are non-goals explicit?
   - Are risks identified?

4. **Validation Thinking** (0-25)
   - Are structured test cases provided (scenario, steps, expected result, priority)?
   - Is there a success criteria checklist?
   - Is there a rollback plan?
   - Deduct points if validation is only freeform prose without structured test cases

## Response Format

Provide your evaluation as JSON:
` + "```json" + `
{
  "score": <total 0-100>,
  "breakdown": {
    "problem_statement": <0-25>,
    "user_perspective": <0-25>,
    "engineering_framing": <0-25>,
    "validation_thinking": <0-25>
  },
  "feedback": "<overall assessment>",
  "issues": ["<specific issue 1>", "<specific issue 2>", ...]
}
` + "```"

// GeneratePrompt drafts one frame section from questionnaire answers.
// Placeholders: {section}, {formatted_answers}.
const GeneratePrompt = `You are an expert technical writer helping create documentation. Generate content for the {section} section based on the provided questionnaire answers.

## Section: {section}

## Questionnaire Answers

{formatted_answers}

## Instructions

Generate well-structured content for the {section} section. The content should:
- Be clear and concise
- Use bullet points where appropriate
- Include specific details from the answers
- Follow product development best practices
- Balance user needs with technical feasibility

## Response Format

Provide your response as JSON:
` + "```json" + `
{
  "content": "<generated markdown content>",
  "suggestions": ["<improvement suggestion 1>", "<improvement suggestion 2>"]
}
` + "```"

// RefinePrompt rewrites existing content per an instruction.
// Placeholders: {content}, {instruction}.
const RefinePrompt = `## Current Content

{content}

## Instruction

{instruction}

Improve the content based on the instruction while preserving its structure.`

// Fixed system prompts for the three structured calls.
const (
	evaluateSystem = "You are a frame evaluator. Respond with JSON containing: score (0-100), breakdown (dict of category scores), feedback (string), issues (list of strings)."
	generateSystem = "You are a content generator for development frames. Generate clear, well-structured content. Respond with JSON containing: content (string), suggestions (list of strings for improvements)."
	refineSystem   = "You are a content refiner. Improve the given content based on instructions while preserving its structure. Respond with JSON containing: content (string with improved text), changes (list of strings describing changes made)."
	historySystem  = "You are a content refiner. Continue improving the content based on the conversation history. Respond with JSON containing: content (string), changes (list of strings)."
)
