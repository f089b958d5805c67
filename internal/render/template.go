package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

	rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`

	documentHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

	documentFooter = `<w:sectPr/></w:body></w:document>`

	// pageBreakXML separates composed per-student sections.
	pageBreakXML = `<w:p><w:r><w:br w:type="page"/></w:r></w:p>`
)

// writeContainer wraps a document body into a minimal zip-based
// word-processor container.
func writeContainer(bodyXML string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/document.xml", documentHeader + bodyXML + documentFooter},
	}

	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, fmt.Errorf("create container part %s: %w", part.name, err)
		}
		if _, err := f.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write container part %s: %w", part.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize container: %w", err)
	}
	return buf.Bytes(), nil
}

func escapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(s)
}

// paragraph renders text as one paragraph per line. Each run carries exactly
// one text element; a placeholder must sit inside a single uninterrupted text
// run or the binding pass cannot locate it.
func paragraph(text string) string {
	var sb strings.Builder
	for _, line := range strings.Split(text, "\n") {
		sb.WriteString(`<w:p><w:r><w:t xml:space="preserve">`)
		sb.WriteString(escapeXML(line))
		sb.WriteString(`</w:t></w:r></w:p>`)
	}
	return sb.String()
}

// heading renders one bold paragraph used as a section heading.
func heading(text string) string {
	return `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">` + escapeXML(text) + `</w:t></w:r></w:p>`
}

// defaultTemplateSections lays out the built-in single-report template. Each
// section binds the declared variables by name; together the sections
// reference the complete declared set, so a fully populated context leaves no
// placeholder unbound.
var defaultTemplateSections = []struct {
	title string
	body  string
}{
	{"", "批阅作业 - {assignmentTitle}（{studentName}）"},
	{"基本信息", "学生：{studentName}（学号：{studentNo}）\n班级：{className}\n教师：{teacherName}\n年级：{grade}\n体裁：{genre}\n题目：{topic}\n字数：{wordCount}\n提交时间：{submittedAt}"},
	{"评分结果", "总分：{totalScore} / {totalMaxScore}\n评分理由：{scoreRationale}"},
	{"维度评分明细", "{scoreTable}"},
	{"作文正文", "{essayContent}"},
	{"综合评价", "{feedbackSummary}"},
	{"段落大纲分析", "{outline}"},
	{"诊断建议", "{diagnostics}"},
	{"高亮摘要", "{highlightSummary}"},
	{"段落级增强", "{paragraphs}"},
	{"个性化练习", "{exercises}"},
	{"给家长的总结", "{parentSummary}"},
	{"审核状态", "{reviewStatus}（审核人：{reviewedBy}，审核时间：{reviewedAt}）"},
	{"", "报告生成时间：{generatedAt}"},
}

// DefaultTemplate produces the built-in report template as container bytes.
// It is written to disk when no template asset exists yet, so a fresh
// deployment can export reports without any provisioning step.
func DefaultTemplate() ([]byte, error) {
	var body strings.Builder
	for _, section := range defaultTemplateSections {
		if section.title != "" {
			body.WriteString(heading(section.title))
		}
		body.WriteString(paragraph(section.body))
	}
	return writeContainer(body.String())
}
