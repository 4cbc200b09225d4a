/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package evaluator

import "chainguard.dev/rubriceval/agents/prompt"

// Language selects the wording of the prompts sent to the model and the score
// marker the model is asked to start its answer with.
type Language string

const (
	Thai    Language = "th"
	English Language = "en"
)

type prompts struct {
	system string
	user   *prompt.Template
}

var promptsByLanguage = map[Language]prompts{
	Thai: {
		system: "คุณคือผู้ประเมินข้อเสนอโครงการระดับสูงที่มีความเชี่ยวชาญและประสบการณ์อย่างกว้างขวาง " +
			"ประเมินเอกสารอย่างเป็นกลางตามเกณฑ์ที่กำหนดเท่านั้น",
		user: prompt.MustNew(`เอกสารที่ต้องประเมิน:
{{document}}

เกณฑ์การพิจารณา: {{name}}
{{instructions}}

โปรดให้คะแนน (0-10) และข้อเสนอแนะใน 2-3 ประโยค หรือหากเนื้อหาไม่เกี่ยวข้องให้แจ้งว่าไม่สามารถประเมินได้ โดยขึ้นต้นด้วย "คะแนน: X" ตามด้วยข้อเสนอแนะ`),
	},
	English: {
		system: "You are a senior reviewer of project proposals with broad expertise and experience. " +
			"Assess the document impartially and only against the criterion you are given.",
		user: prompt.MustNew(`Document to evaluate:
{{document}}

Criterion: {{name}}
{{instructions}}

Give a score from 0 to 10 and 2-3 sentences of feedback, or say that the document cannot be evaluated if it is unrelated to the criterion. Begin your answer with "Score: X" followed by the feedback.`),
	},
}

func (p prompts) render(document, name, instructions string) (string, error) {
	return p.user.Render(map[string]prompt.Value{
		"document":     prompt.Element("document", document),
		"name":         prompt.Text(name),
		"instructions": prompt.Text(instructions),
	})
}
