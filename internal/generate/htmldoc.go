package generate

import "fmt"

// docShell wraps body markup in the studio's standard document chrome so every
// generated document renders consistently in the viewer.
func docShell(title, agent, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
  * { margin:0; padding:0; box-sizing:border-box; }
  body { font-family: 'Inter', -apple-system, sans-serif; background:#0d0d0f; color:#e0ddd5; line-height:1.7; padding:48px 64px; max-width:920px; margin:0 auto; }
  h1 { font-size:2rem; font-weight:700; color:#c8a96e; margin-bottom:8px; }
  h2 { font-size:1.3rem; font-weight:600; color:#e0ddd5; margin:32px 0 12px; border-bottom:1px solid rgba(200,169,110,0.2); padding-bottom:8px; }
  h3 { font-size:1rem; font-weight:600; color:#c8a96e; margin:20px 0 8px; }
  p { margin:0 0 14px; font-size:0.92rem; color:#a09b8c; }
  .meta { font-size:0.75rem; color:#706b5e; margin-bottom:32px; }
  .meta span { color:#c8a96e; }
  ul, ol { padding-left:20px; margin:8px 0 16px; }
  li { font-size:0.9rem; color:#a09b8c; margin-bottom:6px; }
  table { width:100%%; border-collapse:collapse; margin:16px 0 24px; }
  th { text-align:left; padding:10px 14px; background:rgba(200,169,110,0.08); border:1px solid rgba(200,169,110,0.15); color:#c8a96e; font-size:0.78rem; text-transform:uppercase; letter-spacing:0.04em; }
  td { padding:10px 14px; border:1px solid rgba(255,255,255,0.06); font-size:0.85rem; color:#a09b8c; }
  .highlight { background:rgba(200,169,110,0.06); border-left:3px solid #c8a96e; padding:16px 20px; border-radius:6px; margin:16px 0; }
  .highlight p { margin:0; color:#e0ddd5; }
  .tag { display:inline-block; padding:3px 10px; background:rgba(200,169,110,0.1); border-radius:4px; font-size:0.72rem; color:#c8a96e; font-weight:600; margin-right:6px; }
</style>
</head>
<body>
<h1>%s</h1>
<div class="meta">Generated by <span>@%s</span> &middot; Templo Atelier</div>
%s
</body>
</html>`, title, title, agent, body)
}

// Document types the workflow engine requests during research and positioning.
const (
	DocMarketLandscape    = "market_landscape"
	DocCompetitorAnalysis = "competitor_analysis"
	DocTargetAudience     = "target_audience"
	DocBrandPositioning   = "brand_positioning"
)

func fallbackDocument(docType, projectName, brief, strategyContext string) string {
	switch docType {
	case DocMarketLandscape:
		return docShell("Market Landscape — "+projectName, "Strategist", fmt.Sprintf(`
<div class="highlight"><p><strong>Brief:</strong> %s</p></div>
<h2>Industry Overview</h2>
<p>%s operates in a space where cultural relevance, experiential value, and community identity intersect. Consumers are shifting from product-centric to experience-centric models.</p>
<h3>Key Market Trends</h3>
<ul>
  <li><strong>Experience Economy:</strong> spending continues to shift from products to experiences.</li>
  <li><strong>Conscious Consumption:</strong> growing demand for brands aligned with personal values.</li>
  <li><strong>Community-as-Product:</strong> membership models replacing transactional relationships.</li>
  <li><strong>Curation over Volume:</strong> appetite for human-curated, intentional offerings.</li>
</ul>
<h2>Opportunity</h2>
<p>Few entrants in the elevated-experience space execute with depth. A clearly positioned brand with consistent identity can claim the gap.</p>`, brief, projectName))
	case DocCompetitorAnalysis:
		return docShell("Competitor Analysis — "+projectName, "Strategist", fmt.Sprintf(`
<div class="highlight"><p><strong>Brief:</strong> %s</p></div>
<h2>Competitive Archetypes</h2>
<table>
  <tr><th>Archetype</th><th>Threat</th><th>Weakness to exploit</th></tr>
  <tr><td>The Direct Rival</td><td><span class="tag">HIGH</span></td><td>Established but generic; identity lacks depth.</td></tr>
  <tr><td>The Indirect Substitute</td><td><span class="tag">MEDIUM</span></td><td>Competes for the same attention without the same intent.</td></tr>
  <tr><td>The Aspirational Benchmark</td><td><span class="tag">LOW</span></td><td>Sets the quality bar but serves a different market.</td></tr>
</table>
<h2>Whitespace</h2>
<p>No competitor combines strategic clarity with a distinct visual voice for %s's audience. That combination is the opening.</p>`, brief, projectName))
	case DocTargetAudience:
		return docShell("Target Audience Profile — "+projectName, "Strategist", fmt.Sprintf(`
<h2>Primary Audience</h2>
<p>Urban creatives and early adopters with high cultural literacy, discovering brands through word of mouth and curated channels.</p>
<h2>Psychographics</h2>
<ul>
  <li>Value authenticity over polish; reward brands with a point of view.</li>
  <li>Willing to pay a premium for quality and belonging.</li>
  <li>Skeptical of mass-market messaging.</li>
</ul>
<h2>Strategic Context</h2>
<div class="highlight"><p>%s</p></div>`, strategyContext))
	case DocBrandPositioning:
		return docShell("Brand Positioning Report — "+projectName, "Strategist", fmt.Sprintf(`
<h2>The Why</h2>
<p>%s exists to give its audience something the category has stopped offering: intent.</p>
<h2>The How</h2>
<div class="highlight"><p>%s</p></div>
<h2>The What</h2>
<p>A brand system where every touchpoint reinforces the chosen direction, from identity to launch collateral.</p>`, projectName, strategyContext))
	}
	return docShell(docType+" — "+projectName, "Strategist",
		fmt.Sprintf(`<p>Working document for %s.</p><div class="highlight"><p>%s</p></div>`, projectName, brief))
}
