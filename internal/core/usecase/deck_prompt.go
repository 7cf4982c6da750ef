package usecase

import "fmt"

func buildSlidesPrompt(p DeckPrompt) string {
	return fmt.Sprintf(`You are an expert presentation creator. Create a compelling presentation about %s with exactly %d slides. Mandatory.
Use the following information as a basis, but feel free to expand on it with your knowledge:
---
%s
---
User Instructions:
%s

Structure the presentation according to the user instructions and the specified number of slides. Always include:
1. An engaging introduction slide
2. A conclusion slide summarizing the main points
3. A "Next Steps" or "Call to Action" slide that includes the contact details if any

Adjust the content to fit the specified number of slides. If more slides are requested, expand on the topic with more details.
If fewer slides are requested, focus on the most important points and summarize the content accordingly.

Each slide should have:
- A concise, attention-grabbing title
- Points of key information (written in full sentences), elaborate if required
- A brief speaker note providing additional context or talking points.

Return the structured information as JSON as follows:
{
    "slides": [
        {
            "title": "Slide Title",
            "content": "Bullet point 1\n Bullet point 2\n Bullet point 3",
            "speaker_note": "Additional context or talking points for the presenter"
        }
    ]
}
`, p.Topic, p.NumSlides, p.Information, p.Instructions)
}

func buildStylePrompt(slidesJSON, style, audience string) string {
	return fmt.Sprintf(`Adapt the following presentation slides to a %s style for a %s audience. Mandatory.
Maintain the overall structure and key points, but adjust the language, tone, and complexity accordingly.

Original slides:
%s

Return the adapted slides in the same JSON format. Do not invent facts. Return JSON only.
`, style, audience, slidesJSON)
}

func buildExecutiveSummaryPrompt(slidesJSON string) string {
	return fmt.Sprintf(`Create a concise executive summary for the following presentation:
%s

The summary should:
1. Capture the main idea of the presentation in one sentence
2. List key takeaways
3. Conclude with a brief statement of the presentation's significance or call to action

Return the summary as a JSON object with the following structure:
{
    "title": "Executive Summary",
    "content": " Main idea\n Key takeaway 1\n Key takeaway 2\n Key takeaway 3\n Conclusion",
    "speaker_note": "Additional context or emphasis points"
}
`, slidesJSON)
}

func buildAnalysisPrompt(content string) string {
	return fmt.Sprintf(`Analyze the following document content and provide a brief summary:
1. Main topics covered
2. Key sections or chapters
3. Suggested presentation structure (max 10 slides)

Content:
%s

Return the analysis as a JSON object. This is Critical & MANDATORY! No Hallucination`, content)
}
