package render

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	docx "github.com/lukasjarosch/go-docx"
	"github.com/rs/zerolog"
)

// DefaultTemplateName is the template asset looked up inside the template directory.
const DefaultTemplateName = "ReportTemplate.docx"

// TemplateError reports a template problem: the asset is malformed, or it
// references a variable the context assembler did not populate. These are
// always surfaced to the caller, never silently downgraded, so template and
// context drift stays debuggable.
type TemplateError struct {
	Path    string
	Unbound []string
	Err     error
}

func (e *TemplateError) Error() string {
	if len(e.Unbound) > 0 {
		return fmt.Sprintf("template %s references undeclared variables: %s", e.Path, strings.Join(e.Unbound, ", "))
	}
	return fmt.Sprintf("template %s is malformed: %v", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// IsTemplateError reports whether err wraps a TemplateError.
func IsTemplateError(err error) bool {
	var te *TemplateError
	return errors.As(err, &te)
}

// Document is one rendered report: opaque container bytes plus the suggested
// download filename. Ownership is transient; the caller persists or streams it.
type Document struct {
	Filename string
	Data     []byte
}

// Cover describes the generated cover page of a combined report.
type Cover struct {
	AssignmentTitle string
	ClassName       string
	TeacherName     string
	ItemCount       int
	GeneratedAt     time.Time
}

// Renderer binds template contexts to the report template. The template asset
// is read-only during rendering, so one Renderer is safe for concurrent use.
type Renderer struct {
	templatePath string
	logger       zerolog.Logger
}

// NewRenderer creates a renderer rooted at templateDir.
func NewRenderer(templateDir string, logger zerolog.Logger) *Renderer {
	return &Renderer{
		templatePath: filepath.Join(templateDir, DefaultTemplateName),
		logger:       logger.With().Str("component", "docx_renderer").Logger(),
	}
}

// TemplatePath exposes the resolved template location, mainly for logging.
func (r *Renderer) TemplatePath() string { return r.templatePath }

// ensureTemplate regenerates the built-in template when the asset is missing.
func (r *Renderer) ensureTemplate() error {
	if _, err := os.Stat(r.templatePath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat template: %w", err)
	}

	data, err := DefaultTemplate()
	if err != nil {
		return fmt.Errorf("build default template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.templatePath), 0o755); err != nil {
		return fmt.Errorf("create template dir: %w", err)
	}
	if err := os.WriteFile(r.templatePath, data, 0o644); err != nil {
		return fmt.Errorf("write default template: %w", err)
	}
	r.logger.Info().Str("path", r.templatePath).Msg("regenerated default report template")
	return nil
}

// RenderSingle binds one flattened variable set to the template. The template
// is scanned before binding; a placeholder referencing a variable outside the
// provided set fails with a TemplateError, never a silently empty field.
func (r *Renderer) RenderSingle(vars map[string]string) ([]byte, error) {
	if err := r.ensureTemplate(); err != nil {
		return nil, err
	}

	templateData, err := os.ReadFile(r.templatePath)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	referenced, err := findPlaceholders(templateData)
	if err != nil {
		return nil, &TemplateError{Path: r.templatePath, Err: err}
	}
	var unbound []string
	for _, name := range referenced {
		if _, ok := vars[name]; !ok {
			unbound = append(unbound, name)
		}
	}
	if len(unbound) > 0 {
		return nil, &TemplateError{Path: r.templatePath, Unbound: unbound}
	}

	doc, err := docx.Open(r.templatePath)
	if err != nil {
		return nil, &TemplateError{Path: r.templatePath, Err: err}
	}

	mapping := make(docx.PlaceholderMap, len(vars))
	for name, value := range vars {
		mapping[name] = value
	}
	if err := doc.ReplaceAll(mapping); err != nil && !errors.Is(err, docx.ErrPlaceholderNotFound) {
		return nil, &TemplateError{Path: r.templatePath, Err: err}
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		return nil, fmt.Errorf("write rendered document: %w", err)
	}

	return buf.Bytes(), nil
}

// RenderCombined renders each variable set in input order, then composes the
// results into one document with a generated cover page and page breaks
// between items.
func (r *Renderer) RenderCombined(cover Cover, items []map[string]string) ([]byte, error) {
	rendered := make([][]byte, 0, len(items))
	for i, vars := range items {
		data, err := r.RenderSingle(vars)
		if err != nil {
			return nil, fmt.Errorf("render item %d: %w", i, err)
		}
		rendered = append(rendered, data)
	}
	return Compose(cover, rendered)
}

// Compose concatenates already-rendered documents into one, prefixed with a
// generated cover page and separated by page breaks, preserving input order.
func Compose(cover Cover, rendered [][]byte) ([]byte, error) {
	var body strings.Builder
	body.WriteString(coverBody(cover))

	for i, doc := range rendered {
		section, err := extractBody(doc)
		if err != nil {
			return nil, fmt.Errorf("compose item %d: %w", i, err)
		}
		body.WriteString(pageBreakXML)
		body.WriteString(section)
	}

	return writeContainer(body.String())
}

func coverBody(cover Cover) string {
	var sb strings.Builder
	sb.WriteString(heading(cover.AssignmentTitle + " 批量作文评估报告"))
	sb.WriteString(paragraph("班级：" + cover.ClassName))
	sb.WriteString(paragraph("教师：" + cover.TeacherName))
	sb.WriteString(paragraph(fmt.Sprintf("报告份数：%d", cover.ItemCount)))
	sb.WriteString(paragraph("生成时间：" + cover.GeneratedAt.Format("2006年01月02日 15:04:05")))
	return sb.String()
}

// placeholderPattern matches the named-variable syntax of report templates.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// tagPattern strips element markup so placeholders split across runs are
// rejoined before scanning.
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// findPlaceholders lists the distinct variable names a template references,
// in order of first appearance.
func findPlaceholders(document []byte) ([]string, error) {
	content, err := readDocumentXML(document)
	if err != nil {
		return nil, err
	}
	text := tagPattern.ReplaceAllString(content, "")

	seen := map[string]bool{}
	var names []string
	for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names, nil
}

var bodyPattern = regexp.MustCompile(`(?s)<w:body>(.*)</w:body>`)
var sectPrPattern = regexp.MustCompile(`(?s)<w:sectPr.*?(</w:sectPr>|/>)`)

// extractBody pulls the body content out of a rendered container so it can be
// recomposed into a combined document. Section properties are dropped; the
// combined document carries its own.
func extractBody(document []byte) (string, error) {
	content, err := readDocumentXML(document)
	if err != nil {
		return "", err
	}
	match := bodyPattern.FindStringSubmatch(content)
	if match == nil {
		return "", errors.New("document has no body element")
	}
	return sectPrPattern.ReplaceAllString(match[1], ""), nil
}

func readDocumentXML(document []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return "", fmt.Errorf("open container: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document part: %w", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return "", fmt.Errorf("read document part: %w", err)
		}
		return string(data), nil
	}
	return "", errors.New("container has no word/document.xml")
}
