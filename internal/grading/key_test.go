package grading

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuestionKeyConstruction(t *testing.T) {
	cases := []struct {
		section string
		id      string
		want    string
	}{
		{section: "§2.5", id: "T6", want: "§2.5 T6"},
		{section: "Section 3 exercises", id: " t-1a ", want: "§3 t-1a"},
		{section: "习题 2.10 (a)", id: "第7题", want: "§2.10 7"},
		{section: "", id: "Q1.b", want: "Q1.b"},
		{section: "appendix", id: "T2", want: "T2"},
		{section: "1.2 and 3.4", id: "T1", want: "§1.2 T1"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, QuestionKey(tc.section, tc.id))
	}
}

func TestQuestionKeyIsDeterministic(t *testing.T) {
	first := QuestionKey("§4.1", "T3")
	for i := 0; i < 5; i++ {
		require.Equal(t, first, QuestionKey("§4.1", "T3"))
	}
}

func TestQuestionIDStripsEverythingElse(t *testing.T) {
	require.Equal(t, "", QuestionID("（）"))
	require.Equal(t, "T6", QuestionID("T6:"))
	require.Equal(t, "A.1-b", QuestionID("A.1-b!"))
	require.Equal(t, "", SectionLabel("no number"))
}
