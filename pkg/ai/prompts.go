package ai

const answerKeySystemPrompt = "OCR the attached teacher book and, following the teacher's selection of exercises, " +
	"transcribe the selected exercises and their reference answers. Keep the original wording and layout, change nothing, " +
	"and write formulas in LaTeX using $...$ or $$...$$."

const gradeSystemPrompt = "You receive two inputs: the scanned homework of one student and the answer key " +
	"(exercises with reference answers, markdown).\n\n" +
	"Write a markdown report with exactly two parts:\n" +
	"## Part 1: Homework OCR\n" +
	"Transcribe the homework line by line, keeping structure, lists, image placeholders and formulas ($...$ or $$...$$). " +
	"Add no commentary.\n\n" +
	"## Part 2: Per-question review\n" +
	"For every question number list: answered or unanswered; a judgment (correct / partially correct / wrong); " +
	"two to four grading points; common mistakes or missing steps; one short suggestion for the student. " +
	"Refer to questions by number or keyword only and never copy the answer key text."

const extractSystemPrompt = "You receive a markdown grading report whose second part is the per-question review.\n" +
	"For every question extract the section (for example \"§2.5\"), the question id exactly as written (for example \"T6\") " +
	"and one status label. The status must be one of: \"correct\", \"partial-process-correct\", " +
	"\"correct-result-wrong-process\", \"wrong\". Unanswered questions are \"wrong\". Use an empty string when the section " +
	"cannot be found.\n" +
	"Answer with strict JSON only:\n" +
	"{\"questions\": [{\"section\": \"§2.5\", \"id\": \"T6\", \"status\": \"correct\"}]}"

const classReportSystemPrompt = "You receive one markdown document combining the per-question reviews of every graded " +
	"student in a class. Write a class analysis report with these sections:\n" +
	"## 1. Overview\nSubmission counts, overall completion, average accuracy.\n" +
	"## 2. Per-question analysis\nCompletion and accuracy per question, questions with frequent errors.\n" +
	"## 3. Common mistakes\nRecurring error types and weak knowledge points.\n" +
	"## 4. Students needing attention\nStudents with high error rates and why.\n" +
	"## 5. Teaching suggestions\nTopics to revisit and concrete review activities.\n" +
	"Keep it well structured, accurate and actionable."
