package genai

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/medfocus/medgenie/internal/material"
)

// contentPromptTemplate is the primary generation prompt. The response
// shape is enforced separately via the JSON response schema; the
// prompt restates it so the model fills every section with substance
// rather than minimal placeholders.
const contentPromptTemplate = `VOCÊ É O MEDGENIE, UM TUTOR MÉDICO DE ELITE.

GERAR MATERIAL DE ESTUDO COMPLETO:
Disciplina: %s
Universidade: %s
Ano: %dº Ano
Nível de profundidade: %s

GERAR MATERIAL DE EXCELÊNCIA:
1. SUMÁRIO EXECUTIVO: Profundo, com foco em fisiopatologia e correlação clínica. Use referências como Harrison ou Guyton.
2. KEY POINTS: 5 pontos críticos que caem em provas de residência (ENARE/USP/AMP).
3. FLASHCARDS: 3 flashcards no formato (Pergunta na frente / Resposta no verso) para Active Recall.
4. ATLAS VISUAL: Descreva um esquema isométrico para visualização mental.
5. QUIZ: 2 questões complexas com justificativas.
6. REFERÊNCIAS: Cite livros e capítulos específicos.
7. INOVAÇÕES: 2 avanços recentes na área.

RETORNE EM JSON RIGOROSO.`

// researchPromptTemplate is the supplementary research prompt, run
// with Google Search grounding.
const researchPromptTemplate = `Traga os 3 artigos/estudos mais ` +
	`relevantes e recentes sobre "%s" das principais revistas ` +
	`médicas (NEJM, Lancet, JAMA, Nature Medicine, PubMed). Para ` +
	`cada artigo inclua: título, autores principais, revista, ano, ` +
	`resumo de 2-3 frases e DOI quando disponível. Também inclua ` +
	`uma síntese geral do estado da arte neste tema.`

// buildContentPrompt renders the primary prompt for a request.
func buildContentPrompt(req material.GenerateRequest) string {
	return fmt.Sprintf(contentPromptTemplate,
		req.SubjectName, req.InstitutionName, req.YearLevel,
		req.DepthInstruction,
	)
}

// buildResearchPrompt renders the supplementary prompt for a topic.
func buildResearchPrompt(topic string) string {
	return fmt.Sprintf(researchPromptTemplate, topic)
}

// contentSchema is the structured-output schema for the primary call.
// It mirrors material.Content field for field so the decoded JSON
// unmarshals directly into the typed envelope.
var contentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary": {Type: genai.TypeString},
		"keyPoints": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"flashcards": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"front": {Type: genai.TypeString},
					"back":  {Type: genai.TypeString},
				},
				Required: []string{"front", "back"},
			},
		},
		"quiz": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question": {Type: genai.TypeString},
					"options": {
						Type: genai.TypeArray,
						Items: &genai.Schema{
							Type: genai.TypeString,
						},
					},
					"correctIndex": {
						Type: genai.TypeInteger,
					},
					"explanation": {
						Type: genai.TypeString,
					},
					"source": {Type: genai.TypeString},
				},
				Required: []string{
					"question", "options",
					"correctIndex", "explanation",
				},
			},
		},
		"references": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":      {Type: genai.TypeString},
					"author":     {Type: genai.TypeString},
					"type":       {Type: genai.TypeString},
					"verifiedBy": {Type: genai.TypeString},
				},
				Required: []string{"title", "author"},
			},
		},
		"visualPrompt": {Type: genai.TypeString},
		"innovations": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{
		"summary", "keyPoints", "flashcards", "quiz", "references",
		"visualPrompt",
	},
}
