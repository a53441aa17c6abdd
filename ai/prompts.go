package ai

import (
	"fmt"
	"strings"
)

const labelSystemInstruction = `You are a precise annotator of retail ad copy.
Given an ad's text, produce a one-sentence description of the product/service/promotion being advertised, and label it against a FIXED taxonomy.

Summary rules:
- If a clear single product/service/promotion/venue/event is identifiable, describe it succinctly in one sentence.
- If the ad is only brand building, employer branding, atmosphere, or ambiguous with no concrete offer, still summarize the ad in one sentence.
- Keep it factual (no hype), <= 140 characters where feasible, no emojis, no hashtags, no URLs.
- Treat promotions/discount weekends/contests as valid 'products'.
- ALWAYS return everything in English, even if the ad is in another language!

Label rules:
- Choose 1 to 3 labels from ALLOWED THEMES below, the FIRST being the single MOST APPROPRIATE cluster.
- If no cluster fits, use OTHER. Do NOT force-fit; keep OTHER if uncertain.
- Return ONLY the theme name before the dash, never the examples.

Key distinction:
- Seasonal Promotions and Discounts = time-bound events linked to a specific season, holiday, or calendar moment.
- General Discounts and Promotions = price cuts or deals not tied to a season or holiday.
- Shopping Experiences = initiatives improving the overall mall/supermarket visit, unrelated to individual store products.

ALLOWED THEMES:
1. Seasonal Promotions and Discounts — Christmas sale, Black Friday offers, Easter weekend deals.
2. Community Engagement and Events — charity drive, blood donation day, local farmer market.
3. Health and Wellness Initiatives — free health check, flu shot clinic, yoga session.
4. Family-Friendly Activities — kids' play zone, family movie day, puppet show.
5. Fashion and Style Trends — new clothing line launch, styling workshop.
6. Food and Culinary Experiences — cooking class, wine tasting, gourmet pop-up.
7. Contests and Giveaways — raffle for prizes, social media giveaway.
8. Shopping Experiences — free parking, free changing rooms, mall gift card, stroller rental.
9. Beauty and Personal Care — skincare demo, hair salon discounts.
10. Sustainable Practices and Eco-Friendly Initiatives — recycling program, zero-waste fair.
11. Technology and Innovation — tech gadget demo, AR shopping guide.
12. Entertainment and Leisure Activities — live concert, art performance.
13. Pet Care and Events — pet adoption day, pet grooming promo.
14. Cultural and Artistic Experiences — art exhibition, craft workshop.
15. Travel and Vacation Essentials — luggage sale, travel insurance promo.
16. Home and Lifestyle Products — furniture discounts, home decor ideas.
17. Education and Learning Activities — coding camp, book reading.
18. Sports and Fitness — sports gear sale, fitness challenge.
19. Job Opportunities and Career Development — job fair, career coaching.
20. Customer Engagement and Loyalty Programs — new loyalty card, double points week.
21. Warnings and Announcements — changed opening hours, construction notice.
22. General Discounts and Promotions — everyday low prices, ongoing 2-for-1 deal.

The response MUST be a valid JSON object with two keys:
1. summary: the one-sentence description.
2. labels: an array of 1 to 3 theme names, most appropriate first.
You MUST NOT wrap the JSON output in a markdown code block. The response must contain ONLY the raw JSON string.`

func buildLabelPrompt(req LabelRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Advertiser: %s\n\nAd text:\n%s\n", req.Brand, req.BodyText)
	return b.String()
}

func buildNarrativePrompt(req NarrativeRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are analyzing advertising performance for %s. ", req.Brand)
	b.WriteString("Provide a factual summary of their advertising performance in the current period compared to the previous period.\n\n")

	fmt.Fprintf(&b, "PERIOD: %s to %s\n\n", req.WindowStart.Format("2006-01-02"), req.WindowEnd.Format("2006-01-02"))

	b.WriteString("PERFORMANCE METRICS:\n")
	fmt.Fprintf(&b, "- Current period: %d ads, %d reach, %d engagement\n", req.CurrentAds, req.CurrentReach, req.CurrentEngagement)
	fmt.Fprintf(&b, "- Previous period: %d ads, %d reach, %d engagement\n", req.PreviousAds, req.PreviousReach, req.PrevEngagement)
	fmt.Fprintf(&b, "- Ads change: %+.1f%%\n", req.AdsChangePct)
	fmt.Fprintf(&b, "- Reach change: %+.1f%%\n\n", req.ReachChangePct)

	writeCaptions(&b, "CURRENT PERIOD AD CONTENT", req.CurrentCaptions, 20)
	writeCaptions(&b, "PREVIOUS PERIOD AD CONTENT", req.PreviousCaptions, 15)

	fmt.Fprintf(&b, "CURRENT PERIOD CLUSTERS:\n%s\n\n", strings.Join(req.CurrentClusters, ", "))
	fmt.Fprintf(&b, "PREVIOUS PERIOD CLUSTERS:\n%s\n\n", strings.Join(req.PreviousClusters, ", "))

	b.WriteString(`Provide a concise 2-3 paragraph summary covering:
1. Performance metrics (ads and reach changes)
2. Cluster focus areas and changes
3. Specific examples of ads posted this period vs last period

Focus only on facts and actual data. Do not make assumptions about strategy, intentions, or potential outcomes. Include specific examples of actual ads posted.`)

	return b.String()
}

func writeCaptions(b *strings.Builder, header string, captions []string, limit int) {
	if len(captions) > limit {
		captions = captions[:limit]
	}
	fmt.Fprintf(b, "%s (first %d ads):\n", header, len(captions))
	for _, c := range captions {
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}
