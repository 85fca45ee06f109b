// Package export renders a cached study artifact into a
// self-contained printable HTML document: summary, key points,
// flashcards, quiz with answer key, references, and the research
// digest. The research digest is markdown-rendered; everything else is
// escaped plain text.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/medfocus/medgenie/internal/material"
)

// documentTemplate is the printable page. Styling is intentionally
// minimal so browsers print it cleanly.
const documentTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="UTF-8">
<title>{{.Subject}}</title>
<style>
body { font-family: sans-serif; padding: 40px; line-height: 1.6; }
h1 { color: #4f46e5; }
h2 { border-bottom: 2px solid #e2e8f0; padding-bottom: 10px; }
.meta { color: #64748b; font-size: 0.9em; }
.card { border: 1px solid #e2e8f0; border-radius: 8px; padding: 12px; margin: 8px 0; }
.answer { color: #16a34a; }
</style>
</head>
<body>
<h1>{{.Subject}}</h1>
<p class="meta">{{.InstitutionName}} — {{.YearLevel}}º Ano — gerado em {{.GeneratedAt}}</p>

<h2>Sumário Executivo</h2>
<p>{{.Content.Summary}}</p>

<h2>Pontos Chave</h2>
<ul>
{{range .Content.KeyPoints}}<li>{{.}}</li>
{{end}}</ul>

{{if .Content.Flashcards}}<h2>Flashcards</h2>
{{range .Content.Flashcards}}<div class="card"><strong>{{.Front}}</strong><br>{{.Back}}</div>
{{end}}{{end}}

{{if .Content.Quiz}}<h2>Quiz</h2>
<ol>
{{range .Content.Quiz}}<li>
<p>{{.Question}}</p>
<ol type="A">
{{range .Options}}<li>{{.}}</li>
{{end}}</ol>
<p class="answer">Gabarito: {{answerLetter .CorrectIndex}} — {{.Explanation}}</p>
</li>
{{end}}</ol>{{end}}

{{if .Content.VisualPrompt}}<h2>Atlas Visual</h2>
<p>{{.Content.VisualPrompt}}</p>{{end}}

{{if .Content.Innovations}}<h2>Inovações</h2>
<ul>
{{range .Content.Innovations}}<li>{{.}}</li>
{{end}}</ul>{{end}}

{{if .Content.References}}<h2>Referências</h2>
<ul>
{{range .Content.References}}<li>{{.Title}} — {{.Author}}{{if .VerifiedBy}} (verificado por {{.VerifiedBy}}){{end}}</li>
{{end}}</ul>{{end}}

{{if .ResearchHTML}}<h2>Pesquisa Global</h2>
{{.ResearchHTML}}{{end}}
</body>
</html>
`

// answerLetter maps a correct-option index onto its quiz letter.
func answerLetter(index int) string {
	if index < 0 || index >= 26 {
		return "?"
	}

	return string(rune('A' + index))
}

var pageTemplate = template.Must(
	template.New("material").Funcs(template.FuncMap{
		"answerLetter": answerLetter,
	}).Parse(documentTemplate),
)

// templateData is the rendering context for one document.
type templateData struct {
	Subject         string
	InstitutionName string
	YearLevel       int
	GeneratedAt     string
	Content         material.Content
	ResearchHTML    template.HTML
}

// RenderHTML renders the entry into a printable HTML document.
func RenderHTML(key material.MaterialKey, institutionName string,
	entry *material.CachedEntry) (string, error) {

	researchHTML, err := renderResearch(entry.Research)
	if err != nil {
		return "", fmt.Errorf("render research: %w", err)
	}

	data := templateData{
		Subject:         material.NormalizeSubject(key.SubjectName),
		InstitutionName: institutionName,
		YearLevel:       key.YearLevel,
		GeneratedAt: entry.CreatedAt.Format(
			"02/01/2006 15:04",
		),
		Content:      entry.Content,
		ResearchHTML: researchHTML,
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}

	return buf.String(), nil
}

// renderResearch converts the markdown research digest into HTML. An
// empty digest renders as nothing rather than an empty section.
func renderResearch(research string) (template.HTML, error) {
	if strings.TrimSpace(research) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(research), &buf); err != nil {
		return "", err
	}

	return template.HTML(buf.String()), nil
}
