package material

import "fmt"

// Depth band labels, one per pair of academic years. These feed the
// prompt for both generation calls, so the artifact and the research
// digest target the same level.
const (
	// DepthFoundational targets years 1-2.
	DepthFoundational = "Básico — Foco em fundamentos e conceitos " +
		"essenciais"

	// DepthClinical targets years 3-4.
	DepthClinical = "Intermediário — Correlação clínica e " +
		"fisiopatologia"

	// DepthResidency targets years 5-6.
	DepthResidency = "Avançado — Nível residência com diagnóstico " +
		"diferencial"
)

// DepthInstruction maps an academic year onto its depth band. Years
// outside the valid range clamp into the nearest band, since the
// instruction only shapes prompt tone.
func DepthInstruction(yearLevel int) string {
	switch {
	case yearLevel <= 2:
		return DepthFoundational
	case yearLevel <= 4:
		return DepthClinical
	default:
		return DepthResidency
	}
}

// ResearchTopic combines the subject with the depth instruction into
// the topic string handed to the supplementary call.
func ResearchTopic(subjectName, depthInstruction string) string {
	return fmt.Sprintf("%s (%s)", NormalizeSubject(subjectName),
		depthInstruction)
}
