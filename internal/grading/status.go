package grading

import "strings"

// Status is one of the four canonical per-question outcomes.
type Status string

const (
	StatusCorrect            Status = "correct"
	StatusPartialProcess     Status = "partial-process-correct"
	StatusResultWrongProcess Status = "correct-result-wrong-process"
	StatusWrong              Status = "wrong"
)

// Statuses lists the canonical statuses in ledger order.
var Statuses = []Status{StatusCorrect, StatusPartialProcess, StatusResultWrongProcess, StatusWrong}

// Valid reports whether s is one of the canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusCorrect, StatusPartialProcess, StatusResultWrongProcess, StatusWrong:
		return true
	}
	return false
}

// StatusRule maps a phrase to a canonical status.
type StatusRule struct {
	Phrase string
	Status Status
}

// StatusRules is the ordered matching table used by NormalizeStatus. Phrases
// that contain other phrases must come first: "部分正确" contains "正确" and
// "答案正确结果错误" contains both "正确" and "错误".
var StatusRules = []StatusRule{
	{Phrase: string(StatusResultWrongProcess), Status: StatusResultWrongProcess},
	{Phrase: string(StatusPartialProcess), Status: StatusPartialProcess},
	{Phrase: "答案正确结果错误", Status: StatusResultWrongProcess},
	{Phrase: "过程部分正确", Status: StatusPartialProcess},
	{Phrase: "步骤部分正确", Status: StatusPartialProcess},
	{Phrase: "思路正确但有疏漏", Status: StatusPartialProcess},
	{Phrase: "部分正确", Status: StatusPartialProcess},
	{Phrase: "partially correct", Status: StatusPartialProcess},
	{Phrase: "partial", Status: StatusPartialProcess},
	{Phrase: "结果错误", Status: StatusResultWrongProcess},
	{Phrase: "计算错误", Status: StatusResultWrongProcess},
	{Phrase: "result wrong", Status: StatusResultWrongProcess},
	{Phrase: "calculation error", Status: StatusResultWrongProcess},
	{Phrase: "完全错误", Status: StatusWrong},
	{Phrase: "未作答", Status: StatusWrong},
	{Phrase: "空白", Status: StatusWrong},
	{Phrase: "不对", Status: StatusWrong},
	{Phrase: "incorrect", Status: StatusWrong},
	{Phrase: "not correct", Status: StatusWrong},
	{Phrase: "unanswered", Status: StatusWrong},
	{Phrase: "错误", Status: StatusWrong},
	{Phrase: string(StatusWrong), Status: StatusWrong},
	{Phrase: "完全正确", Status: StatusCorrect},
	{Phrase: "正确", Status: StatusCorrect},
	{Phrase: string(StatusCorrect), Status: StatusCorrect},
	{Phrase: "对", Status: StatusCorrect},
}

// NormalizeStatus maps a free-text judgment to a canonical status. The first
// rule whose phrase is contained in the input (case-insensitively) wins and
// unrecognised text is graded as wrong.
func NormalizeStatus(raw string) Status {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return StatusWrong
	}
	for _, rule := range StatusRules {
		if strings.Contains(text, strings.ToLower(rule.Phrase)) {
			return rule.Status
		}
	}
	return StatusWrong
}
