package domain

import (
	"fmt"
	"strings"
)

// BuildNarrativePrompt asks for a three-paragraph agronomic assessment of the
// computed metrics.
func BuildNarrativePrompt(params AgroReportParams, m MetricsBundle) string {
	var b strings.Builder
	b.WriteString("You are an agronomist specialised in precision agriculture.\n")
	b.WriteString("Write a short technical report for a crop with these parameters:\n")
	fmt.Fprintf(&b, "- Base temperature: %s°C\n", formatNumber(params.CropBaseTempC))
	fmt.Fprintf(&b, "- Maximum temperature: %s°C\n\n", formatNumber(params.CropMaxTempC))

	fmt.Fprintf(&b, "AGROMETEOROLOGICAL DATA (%s to %s):\n", FormatDate(params.StartDate), FormatDate(params.EndDate))
	fmt.Fprintf(&b, "- Accumulated growing degree days (GDD): %s\n", formatNumber(m.GDD))
	fmt.Fprintf(&b, "- Heat stress hours (> %s°C): %d h\n", formatNumber(params.CropMaxTempC), m.StressHours.Heat)
	fmt.Fprintf(&b, "- Cold stress hours (< %s°C): %d h\n", formatNumber(params.CropBaseTempC), m.StressHours.Cold)
	fmt.Fprintf(&b, "- Total rainfall: %s mm\n", formatNumber(m.WaterBalance.TotalInput))
	fmt.Fprintf(&b, "- Reference evapotranspiration (ETo): %s mm\n", formatNumber(m.WaterBalance.TotalOutput))
	fmt.Fprintf(&b, "- Water balance: %s mm\n", formatNumber(m.WaterBalance.Balance))
	fmt.Fprintf(&b, "- Fungal disease risk: %s\n", m.DiseaseRisk)
	fmt.Fprintf(&b, "- Optimal spraying windows: %d h available\n\n", m.OptimalWindows.SprayHours)

	b.WriteString("TASK:\n")
	b.WriteString("Write three paragraphs of plain text, without markdown headings or bold.\n")
	b.WriteString("1. Crop development: interpret the accumulated GDD. Is the crop developing fast or slow?\n")
	b.WriteString("2. Stress alerts: assess water balance and thermal stress. How serious are they?\n")
	b.WriteString("3. Practical recommendations for tomorrow: irrigation, fungicide, spraying windows.\n")
	b.WriteString("Keep a professional, direct tone useful for decision making.\n")
	return b.String()
}

// BuildChatPrompt embeds a prior report snapshot and a follow-up question.
func BuildChatPrompt(question string, prior AgroReportResult) string {
	var b strings.Builder
	b.WriteString("You are the same agronomist who wrote the previous report.\n\n")
	b.WriteString("CURRENT CROP CONTEXT (metrics already computed):\n")
	fmt.Fprintf(&b, "- Period: %s to %s\n", prior.Period.StartDate, prior.Period.EndDate)
	fmt.Fprintf(&b, "- GDD: %s\n", formatNumber(prior.Metrics.GDD))
	fmt.Fprintf(&b, "- Heat / cold stress hours: %d / %d\n", prior.Metrics.StressHours.Heat, prior.Metrics.StressHours.Cold)
	fmt.Fprintf(&b, "- Water balance: %s mm\n", formatNumber(prior.Metrics.WaterBalance.Balance))
	fmt.Fprintf(&b, "- Disease risk: %s\n\n", prior.Metrics.DiseaseRisk)
	b.WriteString("YOUR PREVIOUS ANALYSIS:\n")
	fmt.Fprintf(&b, "\"%s\"\n\n", prior.Narrative)
	b.WriteString("USER QUESTION:\n")
	fmt.Fprintf(&b, "\"%s\"\n\n", strings.TrimSpace(question))
	b.WriteString("Answer the question directly using the context above. Be brief, practical, technical but accessible.\n")
	return b.String()
}

func formatNumber(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
