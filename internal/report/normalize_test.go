package report

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRubricSchema(t *testing.T) {
	payload := `{
		"assignmentTitle": "我的乐园",
		"studentName": "张三",
		"submittedAt": "2025-04-01 10:00:00",
		"meta": {
			"student": "张三丰",
			"student_no": "20230012",
			"class": "五年级三班",
			"teacher": "李老师",
			"topic": "我的乐园",
			"date": "2025-04-01",
			"grade": "五年级",
			"genre": "记叙文",
			"words": 420
		},
		"scores": {
			"total": 85,
			"rationale": "结构完整，语言生动",
			"rubrics": [
				{"name": "内容", "score": 45, "max": 50, "reason": "主题明确"},
				{"name": "语言", "score": 40, "max": 50, "weight": 2}
			]
		},
		"analysis": {
			"outline": [{"para": 1, "intent": "开篇点题"}, {"para": 2, "intent": "具体描写"}],
			"issues": ["结尾略显仓促"]
		},
		"diagnostics": [
			{"para": 2, "issue": "错别字", "evidence": "身临奇境", "advice": ["应为身临其境"]},
			{"issue": "详略不当", "evidence": "", "advice": []}
		],
		"exercises": [
			{"type": "仿写", "prompt": "用比喻描写一处景物", "hints": ["抓住颜色", "抓住声音"], "sample": "湖面像一面镜子"}
		],
		"paragraphs": [
			{"para_num": 1, "original_text": "我家后院有个小花园。", "feedback": "开头直接", "polished_text": "推开后门，我的小花园便映入眼帘。"}
		],
		"text": {"original": "原始全文", "cleaned": "清洗后全文"},
		"currentEssayContent": "教师定稿全文",
		"summary": "整体表现良好",
		"parentSummary": "孩子写作进步明显",
		"review_status": "teacher_reviewed",
		"reviewed_by": "李老师",
		"reviewed_at": "2025-04-02 09:00:00"
	}`

	rec, err := Normalize([]byte(payload))
	require.NoError(t, err)

	require.Equal(t, "我的乐园", rec.AssignmentTitle)
	// Top-level studentName wins over the nested meta field.
	require.Equal(t, "张三", rec.Meta.Student)
	require.Equal(t, "20230012", rec.Meta.StudentNo)
	require.Equal(t, "五年级三班", rec.Meta.Class)
	require.Equal(t, 420, rec.Meta.Words)

	require.InDelta(t, 85, rec.Scores.Total, 0.001)
	require.Equal(t, "结构完整，语言生动", rec.Scores.Rationale)
	require.Len(t, rec.Scores.Rubrics, 2)
	require.Equal(t, "内容", rec.Scores.Rubrics[0].Name)
	// Absent weight defaults to 1; explicit weight is preserved.
	require.InDelta(t, 1, rec.Scores.Rubrics[0].Weight, 0.001)
	require.InDelta(t, 2, rec.Scores.Rubrics[1].Weight, 0.001)

	require.Len(t, rec.Analysis.Outline, 2)
	require.Equal(t, "开篇点题", rec.Analysis.Outline[0].Intent)
	require.Equal(t, []string{"结尾略显仓促"}, rec.Analysis.Issues)

	require.Len(t, rec.Diagnostics, 2)
	require.NotNil(t, rec.Diagnostics[0].Para)
	require.Equal(t, 2, *rec.Diagnostics[0].Para)
	require.Nil(t, rec.Diagnostics[1].Para)

	require.Len(t, rec.Exercises, 1)
	require.Equal(t, []string{"抓住颜色", "抓住声音"}, rec.Exercises[0].Hints)

	require.Len(t, rec.Paragraphs, 1)
	require.Equal(t, 1, rec.Paragraphs[0].Para)

	require.Equal(t, "原始全文", rec.Text.Original)
	require.Equal(t, "教师定稿全文", rec.Text.Current)

	require.Equal(t, ReviewStatusTeacherReviewed, rec.ReviewStatus)
	require.Equal(t, "李老师", rec.ReviewedBy)
}

func TestNormalizeLegacyFlatScores(t *testing.T) {
	payload := `{
		"meta": {"student": "王五", "class_": "四年级一班"},
		"scores": {"content": 16, "structure": 15, "language": "17", "aesthetics": 14, "norms": 18, "total": 80, "rationale": "基础扎实"}
	}`

	rec, err := Normalize([]byte(payload))
	require.NoError(t, err)

	// Legacy class_ spelling is coalesced onto the canonical field.
	require.Equal(t, "四年级一班", rec.Meta.Class)

	require.Len(t, rec.Scores.Rubrics, 5)
	names := make([]string, 0, 5)
	for _, r := range rec.Scores.Rubrics {
		names = append(names, r.Name)
		require.InDelta(t, 20, r.Max, 0.001)
		require.InDelta(t, 1, r.Weight, 0.001)
	}
	require.Equal(t, []string{"内容", "结构", "语言", "文采", "规范"}, names)

	// Quoted numbers in legacy payloads still parse.
	require.InDelta(t, 17, rec.Scores.Rubrics[2].Score, 0.001)
	require.InDelta(t, 80, rec.Scores.Total, 0.001)
	require.Equal(t, "基础扎实", rec.Scores.Rationale)
}

func TestNormalizeHintSpellings(t *testing.T) {
	legacy := `{"exercises": [{"type": "扩写", "prompt": "补全场景", "hint": ["加入动作描写"]}]}`
	current := `{"exercises": [{"type": "扩写", "prompt": "补全场景", "hints": ["加入动作描写"]}]}`

	recLegacy, err := Normalize([]byte(legacy))
	require.NoError(t, err)
	recCurrent, err := Normalize([]byte(current))
	require.NoError(t, err)

	require.Equal(t, recCurrent.Exercises, recLegacy.Exercises)
	require.Equal(t, []string{"加入动作描写"}, recLegacy.Exercises[0].Hints)
}

func TestNormalizeEmptyContainers(t *testing.T) {
	rec, err := Normalize([]byte(`{}`))
	require.NoError(t, err)

	require.NotNil(t, rec.Diagnostics)
	require.NotNil(t, rec.Exercises)
	require.NotNil(t, rec.Paragraphs)
	require.NotNil(t, rec.Analysis.Outline)
	require.NotNil(t, rec.Analysis.Issues)
	require.NotNil(t, rec.Scores.Rubrics)
	require.Empty(t, rec.Diagnostics)

	require.Equal(t, ReviewStatusAIGenerated, rec.ReviewStatus)
}

func TestNormalizePreservesStoredOrder(t *testing.T) {
	payload := `{
		"diagnostics": [
			{"para": 3, "issue": "丙"},
			{"para": 1, "issue": "甲"},
			{"para": 2, "issue": "乙"}
		]
	}`

	rec, err := Normalize([]byte(payload))
	require.NoError(t, err)

	require.Equal(t, "丙", rec.Diagnostics[0].Issue)
	require.Equal(t, "甲", rec.Diagnostics[1].Issue)
	require.Equal(t, "乙", rec.Diagnostics[2].Issue)
}

func TestNormalizeRejectsUnrecoverableInput(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"empty payload", ``},
		{"whitespace payload", "  \n "},
		{"not json", `{"meta":`},
		{"scores is a list", `{"scores": [80]}`},
		{"scores is a scalar", `{"scores": 80}`},
		{"non numeric dimension", `{"scores": {"content": "很好"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize([]byte(tc.payload))
			require.Error(t, err)
			require.True(t, IsDataError(err))
		})
	}
}

func TestNormalizeNullScores(t *testing.T) {
	rec, err := Normalize([]byte(`{"scores": null}`))
	require.NoError(t, err)
	require.Empty(t, rec.Scores.Rubrics)
	require.Zero(t, rec.Scores.Total)
}
