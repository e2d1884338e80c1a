package analysis

import (
	"fmt"
	"strings"

	"github.com/ayush/whattobuild/internal/extract"
	"github.com/ayush/whattobuild/internal/models"
)

const digestCharsPerSource = 2000

var categoryFocus = map[models.Category]string{
	models.CategorySaaS:      "- SaaS: Software tools, platforms, apps, browser extensions",
	models.CategoryEcommerce: "- E-commerce: Physical products, dropshipping, private label, DTC brands",
	models.CategoryDirectory: "- Directory/Marketplace: Listing sites, comparison tools, aggregators, curated databases",
	models.CategoryWebsite:   "- Website/Content: Blogs, courses, communities, info products, templates",
}

func focusBlock(categories []models.Category) string {
	if len(categories) == 0 {
		return ""
	}
	names := make([]string, 0, len(categories))
	lines := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
		if l, ok := categoryFocus[c]; ok {
			lines = append(lines, l)
		}
	}
	return fmt.Sprintf("\n\nThe user is specifically looking for %s opportunities. Focus your solutions on these business models:\n%s",
		strings.Join(names, " + "), strings.Join(lines, "\n"))
}

// Digest renders the extracted documents for the prompt.
func Digest(contents []extract.Content) string {
	parts := make([]string, 0, len(contents))
	for i, c := range contents {
		parts = append(parts, fmt.Sprintf("[Source %d: %s]\nURL: %s\n%s",
			i+1, c.Source, c.URL, extract.Truncate(c.Content, digestCharsPerSource)))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// BuildPrompt assembles the pain-point analysis prompt.
func BuildPrompt(niche string, contents []extract.Content, categories []models.Category) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are analyzing user complaints and discussions about %q to identify pain points and product opportunities.%s\n\n", niche, focusBlock(categories))
	b.WriteString("Here is scraped content from Reddit, Quora, Hacker News, Product Hunt, review sites, and forums:\n\n")
	b.WriteString(Digest(contents))
	b.WriteString(analysisInstructions)
	return b.String()
}

const analysisInstructions = `

Analyze this content and identify the top pain points. For each pain point:
1. Give it a clear, concise title
2. Write a brief description of the problem
3. Rate its frequency (1-10, how often it comes up)
4. Rate your confidence (0-100) in this pain point being a real, validated problem. Base this on: number of independent sources mentioning it, specificity of complaints, and consistency across sources. 90+ = mentioned in many sources with specific details. 50-89 = mentioned in a few sources or with less detail. Below 50 = inferred or only vaguely mentioned.
5. Count evidenceCount: the number of distinct sources (URLs/threads) from the scraped content that mention or support this pain point.
6. Classify sentiment: "negative", "neutral", or "mixed"
7. Extract 2-3 direct quotes from the content that illustrate the pain point
8. List relevant keywords for search volume research
9. Suggest 2-3 concrete product solutions that directly address this pain point. For each solution:
   - Give it a creative, brandable product name
   - Write a one-sentence description of what it does
   - Classify its type: "saas", "ecommerce", "service", or "content"
   - Rate difficulty to build: "easy", "medium", or "hard"
   - Suggest a specific monetization model (e.g. "$9.99/mo subscription", "$29 one-time", "freemium with $19/mo pro tier")

Return the top 5-10 most significant pain points, ordered by frequency (highest first).

Return JSON matching this schema:
{
  "painPoints": [
    {
      "title": "string",
      "description": "string",
      "frequency": number,
      "confidence": number,
      "evidenceCount": number,
      "sentiment": "negative" | "neutral" | "mixed",
      "quotes": [{"text": "string", "source": "string", "url": "string"}],
      "keywords": ["string"],
      "solutions": [
        {
          "title": "string (creative product name)",
          "description": "string (one-sentence product description)",
          "type": "saas" | "ecommerce" | "service" | "content",
          "difficulty": "easy" | "medium" | "hard",
          "monetization": "string (specific pricing model)"
        }
      ]
    }
  ]
}`

// BuildRegeneratePrompt asks for solutions that differ from the existing ones.
func BuildRegeneratePrompt(niche string, painPoints []models.PainPoint) string {
	summaries := make([]string, 0, len(painPoints))
	for i, pp := range painPoints {
		prev := "none"
		if len(pp.Solutions) > 0 {
			titles := make([]string, 0, len(pp.Solutions))
			for _, s := range pp.Solutions {
				titles = append(titles, s.Title)
			}
			prev = strings.Join(titles, ", ")
		}
		summaries = append(summaries, fmt.Sprintf("%d. %q - %s\n   Keywords: %s\n   Previous solutions: %s",
			i+1, pp.Title, pp.Description, strings.Join(pp.Keywords, ", "), prev))
	}

	return fmt.Sprintf(`You previously analyzed the %q niche and found these pain points:

%s

Now generate COMPLETELY DIFFERENT product solutions for each pain point. Think outside the box:
- Consider unconventional business models (community-based, marketplace, API-first, white-label, browser extension, mobile-first, AI-powered)
- Try different price points and monetization strategies
- Consider underserved segments or niches within the niche
- Look at the problem from a different angle (prevention vs cure, B2B vs B2C, automation vs manual, premium vs budget)

IMPORTANT: Do NOT repeat any of the previous solution titles. Generate fresh, creative ideas.

For each pain point, provide 2-3 new solutions. painPointIndex is zero-based.

Return JSON matching this schema:
{
  "solutions": [
    {
      "painPointIndex": 0,
      "solutions": [
        {
          "title": "string (creative, brandable product name)",
          "description": "string (one-sentence product description)",
          "type": "saas" | "ecommerce" | "service" | "content",
          "difficulty": "easy" | "medium" | "hard",
          "monetization": "string (specific pricing model)"
        }
      ]
    }
  ]
}`, niche, strings.Join(summaries, "\n\n"))
}
