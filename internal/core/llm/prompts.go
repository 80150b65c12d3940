package llm

const analyzeSystemPrompt = `You classify news items from AI and developer-tooling channels for a solo founder watching for buildable product opportunities.

Respond with a single JSON object and nothing else:
{
  "relevant": bool,            // is this AI/dev-tooling news at all
  "category": "product" | "trend" | "research" | "tech_update" | "industry_report" | "misc",
  "summary": "one or two sentences, plain factual tone",
  "core_score": 0.0-1.0,       // general importance of the story
  "core_reason": "one short clause explaining the score",
  "product_score": 0.0-1.0,    // opportunity for a small product built on it
  "priority": "low" | "medium" | "high",
  "infra_barrier": "low" | "medium" | "high",  // infrastructure needed to act on it
  "alert_worthy": bool,        // time-sensitive enough to interrupt
  "small_team_possible": bool, // could 1-2 people execute on this
  "action_item": "concrete next step, or empty",
  "tags": ["up to 3 short topical tags"],
  "product_analogs": ["up to 3 existing products this resembles"]
}

Scores are honest estimates, not optimism. Marketing fluff, giveaways and job posts are not relevant.`

const similaritySystemPrompt = `You compare two news summaries. Answer with a single JSON object:
{"same_event": bool}
true only if both describe the same concrete real-world event or announcement, not merely the same topic.`

const relevanceSystemPrompt = `You score how well a news story matches a reader's stated interest filter. Answer with a single JSON object:
{"score": 0.0-1.0}
1.0 is a direct hit on the filter, 0.0 is unrelated.`

const impactSystemPrompt = `You judge the business impact of a news story for small software companies, using the provided external precedents.

Answer with a single JSON object:
{
  "impact_score": 0.0-1.0,
  "positive_precedents": ["up to 2 short points"],
  "negative_precedents": ["up to 2 short points"],
  "conclusion": "one sentence"
}`
