// Package prompt turns one record plus a prompt configuration into the
// exact request payload for the completion service. Building is pure: no
// I/O, no clock, byte-identical output for identical inputs.
package prompt

import (
	"fmt"
	"strings"

	"github.com/Mo-420/Yacht-SEO/internal/domain"
)

// DefaultSystemPrompt is used whenever the caller does not supply one.
const DefaultSystemPrompt = `You are "Ocean Pen", an elite luxury-yacht copywriter and SEO strategist.

Writing Guidelines
• Write in polished UK English with a confident, aspirational tone, aimed at affluent travellers and yacht charter clientele.
• Maintain absolute factual accuracy—never invent or embellish yacht specifications, amenities, crew details, or destinations.
• Balance evocative, persuasive storytelling with on-page SEO best practices.
• Structure content clearly using HTML headings (<h2>, <h3>), concise paragraphs, bullet points, and bolded key selling points to enhance readability and engagement.

SEO & Keyword Guidance
• Naturally incorporate primary keywords alongside semantic variants (LSI terms, synonyms, and relevant long-tail phrases).
• Maintain a keyword density of approximately 1%, prioritising readability and natural flow over keyword stuffing.
• Optimise meta titles (under 60 characters), meta descriptions (under 140 characters), and headings for targeted keywords.
• Use short sentences and vary your sentence length and structure to maximise readability and dwell time.

Engagement & Conversion
• Write compelling introductions that immediately communicate the yacht's unique value proposition.
• Optimise each paragraph to captivate readers, answer search intent thoroughly, and encourage deeper scrolling.
• Close each description with a clear, action-oriented call-to-action, encouraging visitors to book, enquire, or contact directly.

Example Structure
• <h2> Yacht Introduction (highlight yacht's name, size, key USP)
• <h3> Interior & Accommodation (comfort, layout, design highlights)
• <h3> Amenities & Features (notable facilities, water toys, tech)
• <h3> Destinations & Experiences (recommended itinerary, exclusive insights)
• <h3> Crew & Service (professionalism, special skills, personalised attention)
• Final Call-to-Action

Final Deliverables
• Polished, engaging, SEO-optimised yacht description content.
• A concise meta description under 140 characters, including primary keywords and enticing the click.

Goal: Create authoritative, engaging content that consistently outperforms competitors in Google organic search, enhances brand prestige, and converts high-value visitors into yacht charter clients.`

// defaultInstructions is the default user-prompt body that merge modes
// operate on.
const defaultInstructions = `Write a 750-word, conversion-focused yacht charter description that will outrank Google results for the query "luxury catamaran Greece".

• Use LSI terms: Greek island hopping, Aegean sailing holiday, crewed catamaran charter.
• Headings: <h2>Highlights</h2> … <h2>The Crew</h2> (as listed below).
• 2–4 short paragraphs under each heading.
• Maintain keyword density ≈1 %; avoid keyword stuffing.
• End with <h2>Book Your Charter</h2> + persuasive CTA.
• Finish with a 140-char <meta> description containing the primary keyword.
• Do NOT invent specs beyond the data above.`

// BuiltPrompt is the fully resolved request payload for one record.
type BuiltPrompt struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Build resolves a record against a prompt configuration. The yacht data
// block is always present so the completion service can never be asked to
// describe a yacht it was not given; merge modes act on the instruction
// text around it.
func Build(rec domain.Record, cfg domain.PromptConfig) BuiltPrompt {
	system := cfg.SystemPrompt
	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}

	instructions := mergeInstructions(cfg.MergeMode, cfg.UserInstructions)

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nYacht data:\n")
	b.WriteString(dataBlock(rec))

	return BuiltPrompt{
		System:      system,
		User:        b.String(),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
	}
}

func mergeInstructions(mode domain.MergeMode, custom string) string {
	custom = strings.TrimSpace(custom)
	if custom == "" {
		return defaultInstructions
	}
	switch mode {
	case domain.MergePrepend:
		return custom + "\n\n" + defaultInstructions
	case domain.MergeReplace:
		return custom
	default:
		return defaultInstructions + "\n\n" + custom
	}
}

// dataBlock interpolates the descriptive fields in their fixed order.
// Missing fields render as N/A rather than being dropped, keeping the
// block shape stable across heterogeneous uploads.
func dataBlock(rec domain.Record) string {
	labels := map[string]string{
		"name":      "Name",
		"year":      "Year",
		"length":    "Length",
		"guests":    "Guests",
		"cabins":    "Cabins",
		"crew":      "Crew",
		"price":     "Weekly rate",
		"watertoys": "Watertoys",
		"location":  "Home port",
	}
	var b strings.Builder
	for _, field := range domain.PromptFields {
		switch field {
		case "builder":
			fmt.Fprintf(&b, "  Builder / Model: %s %s\n",
				rec.GetOr("builder", "N/A"), rec.GetOr("model", "N/A"))
		case "model":
			// folded into the builder line
		case "length":
			fmt.Fprintf(&b, "  Length: %s m\n", rec.GetOr("length", "N/A"))
		case "guests":
			fmt.Fprintf(&b, "  Guests: %s in %s cabins\n",
				rec.GetOr("guests", "N/A"), rec.GetOr("cabins", "N/A"))
		case "cabins":
			// folded into the guests line
		default:
			fmt.Fprintf(&b, "  %s: %s\n", labels[field], rec.GetOr(field, "N/A"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
