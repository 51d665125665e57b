// Package prompts holds the instructions sent to the upstream model.
package prompts

import (
	"fmt"
	"strings"
)

// System instructs the model to answer in the three marked sections the
// stream machine parses.
const System = `You are an expert web developer who builds production-ready, content-rich websites. Respond in EXACTLY three parts separated by the markers below.

PART 1 - ANALYSIS (between ===ANALYSIS_START=== and ===ANALYSIS_END===):
A brief analysis of what the user needs and what kind of website serves them best.

PART 2 - CODE (between ===CODE_START=== and ===CODE_END===):
Generate ONLY HTML, CSS and JAVASCRIPT.

Content requirements:
- Use ALL actual content, data and information provided in the request
- Include any contact information given (phone, email, address)
- Give listed services, features or products their own sections
- Display pricing or packages prominently
- Use company and product names throughout the site
- Replace every placeholder with real content from the request

Design requirements:
- Import Font Awesome or Lucide before using icons
- Use images from www.unsplash.com with search terms matching the content
- TailwindCSS may be used via <script src="https://cdn.tailwindcss.com"></script> in head
- Add smooth animations, hover effects and interactive elements
- The layout must be responsive on every screen size
- Use a cohesive color scheme that fits the content

Output only the complete HTML document, starting with <!DOCTYPE html> and ending with </html>.

PART 3 - SUMMARY (between ===SUMMARY_START=== and ===SUMMARY_END===):
Explain what you built, the key features, the design choices and how it meets the request.

Strict format:
===ANALYSIS_START===
[analysis]
===ANALYSIS_END===

===CODE_START===
[complete HTML]
===CODE_END===

===SUMMARY_START===
[summary]
===SUMMARY_END===
`

const requirements = `
Mandatory requirements:

1. Real content: use every concrete detail given (names, contact details, services, pricing, testimonials).
2. Structure: a dedicated section for each content category.
3. Quality: modern typography, micro-interactions, responsive layout, semantic headings, lean code.
4. Visuals: a fitting color scheme, Unsplash imagery, professional icons, consistent spacing.
5. Functionality: working navigation, interactive elements, smooth scrolling, a mobile menu.

The result must be production-ready. Avoid generic placeholders.

Follow the three-part response format with the analysis, code and summary markers.
`

const userTemplate = `CREATE A WORLD-CLASS, CONTENT-RICH WEBSITE FROM THE FOLLOWING REQUEST:

%s
` + requirements

const descriptionTemplate = `CREATE A WORLD-CLASS, CONTENT-RICH WEBSITE FROM THE FOLLOWING DETAILED DESCRIPTION:

%s
` + requirements

const refinementTemplate = `The user previously asked for:

%s

and you produced this page:

===PREVIOUS_HTML_START===
%s
===PREVIOUS_HTML_END===

Revise that page according to the new request below. Keep everything the new request does not ask to change.

%s
` + requirements

// User builds the user message for a free-text prompt. When previousHTML is
// set the request refines that page instead of starting over.
func User(prompt, previousHTML, previousPrompt string) string {
	prompt = strings.TrimSpace(prompt)
	if strings.TrimSpace(previousHTML) == "" {
		return fmt.Sprintf(userTemplate, prompt)
	}
	return fmt.Sprintf(refinementTemplate, strings.TrimSpace(previousPrompt), previousHTML, prompt)
}

// FromDescription builds the user message for an image- or document-derived
// generation.
func FromDescription(description string) string {
	return fmt.Sprintf(descriptionTemplate, strings.TrimSpace(description))
}

// ImageAnalysis asks a vision model to describe a screenshot or mockup.
const ImageAnalysis = `Analyze this image and provide a concise description.
Describe the main elements, colors, layout and UI components.
Identify what type of website or application it resembles.
Focus on the structural and visual elements needed to recreate the design.`

// DocumentAnalysis asks a model to turn a document into a website brief.
// The extracted text is truncated to maxDocumentText characters.
func DocumentAnalysis(filename, text string) string {
	if r := []rune(text); len(r) > maxDocumentText {
		text = string(r[:maxDocumentText])
	}
	return fmt.Sprintf(documentTemplate, filename, text)
}

const maxDocumentText = 8000

const documentTemplate = `Analyze this document to create a comprehensive website design specification.

Document: %s

Extracted text:
%s

Describe:
1. Content structure: every section, heading and key piece of information
2. Visual design: colors, fonts and layout patterns if the document shows them
3. Content categories: contact info, services, features, pricing, testimonials and so on
4. Key information: company or product name, contact details, offerings, prices, calls to action, links
5. Website type: landing page, portfolio, business site or similar

Your description will be used to generate a complete website. Include ALL important text and data so it can be placed on the page.`
